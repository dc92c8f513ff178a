package store

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/api"
	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/session"
	"github.com/mmeshcher/freight-storefront/internal/storage"
	"github.com/mmeshcher/freight-storefront/internal/stubbackend"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

type testEnv struct {
	backend  *stubbackend.Backend
	server   *httptest.Server
	storage  *storage.Memory
	sessions *session.Manager
	store    *Store
	toLogin  atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{backend: stubbackend.New("test-secret")}
	e.server = httptest.NewServer(stubbackend.NewHandler(e.backend, zap.NewNop()).SetupRouter())
	t.Cleanup(e.server.Close)

	e.storage = storage.NewMemory()
	e.sessions = session.NewManager(e.storage, zap.NewNop())

	client := apiclient.NewClient(e.sessions, apiclient.Options{
		Origin:    e.server.URL,
		Navigator: apiclient.NavigatorFunc(func() { e.toLogin.Add(1) }),
	})

	e.store = New(Deps{
		Auth:     api.NewAuth(client),
		Cart:     api.NewCart(client, ""),
		Orders:   api.NewOrders(client, ""),
		Sessions: e.sessions,
		Events:   client,
		Logger:   zap.NewNop(),
	})
	return e
}

func registrationForm(login string) validation.RegistrationForm {
	return validation.RegistrationForm{
		Login:           login,
		Email:           login + "@example.com",
		Name:            login,
		Password:        "secret1",
		PasswordConfirm: "secret1",
	}
}

func shipment() model.ShipmentDetails {
	return model.ShipmentDetails{FromCity: "Москва", ToCity: "Тверь", Weight: 10, Length: 1, Width: 1, Height: 1}
}

func (e *testEnv) stored(t *testing.T, key string) string {
	t.Helper()
	v, err := e.storage.Get(context.Background(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return ""
	}
	require.NoError(t, err)
	return v
}

func TestAuth_LoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	require.NoError(t, e.store.Auth.Logout(ctx))

	require.NoError(t, e.store.Auth.Login(ctx, model.Credentials{Login: "alice", Password: "secret1"}))

	st := e.store.Auth.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Login)

	assert.Equal(t, st.AccessToken, e.stored(t, session.KeyAccessToken))
	assert.Equal(t, st.RefreshToken, e.stored(t, session.KeyRefreshToken))
	assert.Contains(t, e.stored(t, session.KeyUser), `"login":"alice"`)
}

func TestAuth_LoginFailure(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	require.NoError(t, e.store.Auth.Logout(ctx))

	err := e.store.Auth.Login(ctx, model.Credentials{Login: "alice", Password: "wrong-pass"})
	require.Error(t, err)

	st := e.store.Auth.Snapshot()
	assert.False(t, st.IsAuthenticated)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "invalid login or password", st.Error)
	assert.Empty(t, e.stored(t, session.KeyAccessToken))

	e.store.Auth.ClearError()
	assert.Empty(t, e.store.Auth.Snapshot().Error)
}

func TestAuth_RegisterPasswordMismatch(t *testing.T) {
	e := newTestEnv(t)

	form := registrationForm("alice")
	form.PasswordConfirm = "secret2"

	err := e.store.Auth.Register(context.Background(), form)
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Пароли не совпадают", e.store.Auth.Snapshot().Error)
}

func TestAuth_LogoutAlwaysClearsStorage(t *testing.T) {
	tests := []struct {
		name         string
		backendAlive bool
	}{
		{name: "backend reachable", backendAlive: true},
		{name: "backend unreachable", backendAlive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			e := newTestEnv(t)
			require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
			_, err := e.store.Cart.AddToCart(ctx, 1)
			require.NoError(t, err)

			if !tt.backendAlive {
				e.server.Close()
			}

			require.NoError(t, e.store.Auth.Logout(ctx))

			st := e.store.Auth.Snapshot()
			assert.False(t, st.IsAuthenticated)
			assert.Nil(t, st.User)
			assert.Empty(t, st.AccessToken)
			assert.Empty(t, e.stored(t, session.KeyAccessToken))
			assert.Empty(t, e.stored(t, session.KeyRefreshToken))
			assert.Empty(t, e.stored(t, session.KeyUser))
			assert.Zero(t, e.store.Cart.Snapshot().Count)
		})
	}
}

func TestAuth_RestoreAuthIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	want := e.store.Auth.Snapshot()

	// новый стор поверх того же хранилища, как после перезапуска
	fresh := New(Deps{Sessions: e.sessions})
	assert.False(t, fresh.Auth.Snapshot().IsAuthenticated)

	require.NoError(t, fresh.Auth.RestoreAuth(ctx))
	once := fresh.Auth.Snapshot()
	require.NoError(t, fresh.Auth.RestoreAuth(ctx))
	twice := fresh.Auth.Snapshot()

	assert.Equal(t, once, twice)
	assert.True(t, once.IsAuthenticated)
	assert.Equal(t, want.AccessToken, once.AccessToken)
	assert.Equal(t, want.User.ID, once.User.ID)
}

func TestAuth_RestoreAuthEmptyStorage(t *testing.T) {
	s := New(Deps{Sessions: session.NewManager(storage.NewMemory(), nil)})

	require.NoError(t, s.Auth.RestoreAuth(context.Background()))
	require.NoError(t, s.Auth.RestoreAuth(context.Background()))
	assert.Equal(t, AuthState{}, s.Auth.Snapshot())
}

func TestAuth_ProfileUpdatePersistsUser(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))

	name := "Алиса"
	require.NoError(t, e.store.Auth.UpdateProfile(ctx, model.ProfileUpdate{Name: &name}))
	assert.Equal(t, name, e.store.Auth.Snapshot().User.Name)
	assert.Contains(t, e.stored(t, session.KeyUser), name)

	bad := "not-an-email"
	require.Error(t, e.store.Auth.UpdateProfile(ctx, model.ProfileUpdate{Email: &bad}))
	st := e.store.Auth.Snapshot()
	assert.Equal(t, name, st.User.Name, "previous user survives a failed update")
	assert.NotEmpty(t, st.Error)

	require.NoError(t, e.store.Auth.FetchProfile(ctx))
	assert.Empty(t, e.store.Auth.Snapshot().Error)
}

func TestUnauthorizedTearsDownState(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	_, err := e.store.Cart.AddToCart(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, e.store.Orders.FetchOrders(ctx, model.OrdersFilter{}))

	e.backend.Tokens().Revoke(e.store.Auth.Snapshot().AccessToken)

	err = e.store.Orders.FetchOrders(ctx, model.OrdersFilter{})
	require.ErrorIs(t, err, apiclient.ErrUnauthorized)

	assert.EqualValues(t, 1, e.toLogin.Load())
	assert.False(t, e.store.Auth.Snapshot().IsAuthenticated)
	assert.Zero(t, e.store.Cart.Snapshot().Count)
	assert.Empty(t, e.stored(t, session.KeyAccessToken))
	assert.Empty(t, e.stored(t, session.KeyUser))
}

func TestCart_BadgeScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))

	var mu sync.Mutex
	var counts []int
	unsubscribe := e.store.Cart.Subscribe(func(s CartState) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, s.Count)
	})
	defer unsubscribe()

	require.NoError(t, e.store.Cart.FetchCartCount(ctx))
	assert.Zero(t, e.store.Cart.Snapshot().Count)

	res, err := e.store.Cart.AddToCart(ctx, 1)
	require.NoError(t, err)

	st := e.store.Cart.Snapshot()
	assert.Equal(t, 1, st.Count)
	assert.Equal(t, res.RequestID, st.DraftID)
	assert.False(t, st.IsLoading)

	require.NoError(t, e.store.Cart.FetchCart(ctx))
	st = e.store.Cart.Snapshot()
	require.NotNil(t, st.Cart)
	assert.Equal(t, 1, st.Count)
	require.Len(t, st.Cart.Services, 1)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, counts)
	assert.Equal(t, 1, counts[len(counts)-1])
}

func TestCart_ClearCartResetsMirrorOnFailure(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	_, err := e.store.Cart.AddToCart(ctx, 1)
	require.NoError(t, err)

	e.server.Close()

	require.Error(t, e.store.Cart.ClearCart(ctx))
	st := e.store.Cart.Snapshot()
	assert.Zero(t, st.Count)
	assert.Nil(t, st.Cart)
	assert.Zero(t, st.DraftID)
	assert.Equal(t, "Ошибка очистки корзины", st.Error)
}

func TestOrders_Flow(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))

	res, err := e.store.Cart.AddToCart(ctx, 3)
	require.NoError(t, err)
	_, err = e.store.Cart.AddToCart(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, e.store.Orders.FetchOrders(ctx, model.OrdersFilter{}))
	require.Len(t, e.store.Orders.Snapshot().Orders, 1)

	city := "Сочи"
	updated, err := e.store.Orders.UpdateOrder(ctx, res.RequestID, model.OrderPatch{ToCity: &city})
	require.NoError(t, err)
	st := e.store.Orders.Snapshot()
	assert.Equal(t, city, updated.ToCity)
	assert.Equal(t, city, st.CurrentOrder.ToCity)
	assert.Equal(t, city, st.Orders[0].ToCity, "list entry is updated in place")

	require.NoError(t, e.store.Orders.UpdateServiceInOrder(ctx, res.RequestID, 2, 5))
	assert.Equal(t, 6, e.store.Orders.Snapshot().CurrentOrder.ItemCount())

	require.NoError(t, e.store.Orders.RemoveServiceFromOrder(ctx, res.RequestID, 3))
	require.Len(t, e.store.Orders.Snapshot().CurrentOrder.Services, 1)

	formed, err := e.store.Orders.FormOrder(ctx, res.RequestID, shipment())
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFormed, formed.Status)

	require.NoError(t, e.store.Orders.FetchOrder(ctx, res.RequestID))
	assert.Equal(t, formed, *e.store.Orders.Snapshot().CurrentOrder)
	assert.Zero(t, e.store.Cart.Snapshot().Count, "forming the draft empties the cart")

	_, err = e.store.Orders.FormOrder(ctx, res.RequestID, shipment())
	require.Error(t, err)
	assert.Equal(t, "order is not a draft", e.store.Orders.Snapshot().Error)
	e.store.Orders.ClearError()

	submitted, err := e.store.Orders.SubmitOrder(ctx, shipment())
	require.NoError(t, err)
	st = e.store.Orders.Snapshot()
	assert.Equal(t, submitted.ID, st.CurrentOrder.ID)
	assert.Len(t, st.Orders, 2)

	e.store.Orders.ClearCurrentOrder()
	e.store.Orders.ClearOrders()
	st = e.store.Orders.Snapshot()
	assert.Nil(t, st.CurrentOrder)
	assert.Empty(t, st.Orders)
	assert.Empty(t, st.Error)
}

func TestFilters(t *testing.T) {
	s := New(Deps{})

	search := "авиа"
	s.Filters.UpdateFilter(model.ServiceFiltersPatch{Search: &search})
	from := "2024-01-01"
	s.Filters.UpdateFilter(model.ServiceFiltersPatch{DateFrom: &from})

	f := s.Filters.Snapshot().Filters
	assert.Equal(t, "авиа", f.Search)
	assert.Equal(t, "2024-01-01", f.DateFrom)

	s.Filters.SetFilters(model.ServiceFilters{DateTo: "2024-12-31"})
	f = s.Filters.Snapshot().Filters
	assert.Empty(t, f.Search)
	assert.Equal(t, "2024-12-31", f.DateTo)

	s.Filters.ClearFilters()
	assert.True(t, s.Filters.Snapshot().Filters.IsZero())
}

// blockingCart отвечает на Count только после release.
type blockingCart struct {
	CartAPI
	count   int
	started chan struct{}
	release chan struct{}
}

func (b *blockingCart) Count(ctx context.Context) (model.CartCount, error) {
	close(b.started)
	select {
	case <-b.release:
		return model.CartCount{Count: b.count, RequestID: 7}, nil
	case <-ctx.Done():
		return model.CartCount{}, ctx.Err()
	}
}

func TestScope_ClosedScopeDiscardsResponse(t *testing.T) {
	cart := &blockingCart{count: 3, started: make(chan struct{}), release: make(chan struct{})}
	s := New(Deps{Cart: cart})

	scope := NewScope(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Cart.FetchCartCount(scope.Context()) }()

	<-cart.started
	assert.True(t, s.Cart.Snapshot().IsLoading)

	scope.Close()
	err := <-done
	require.ErrorIs(t, err, context.Canceled)

	st := s.Cart.Snapshot()
	assert.Zero(t, st.Count)
	assert.Empty(t, st.Error)
	assert.False(t, st.IsLoading)
}

func TestCart_StaleResponseDoesNotOverwriteNewerCount(t *testing.T) {
	cart := &blockingCart{count: 3, started: make(chan struct{}), release: make(chan struct{})}
	s := New(Deps{Cart: cart})

	done := make(chan error, 1)
	go func() { done <- s.Cart.FetchCartCount(context.Background()) }()
	<-cart.started

	s.Cart.SetCount(5)
	close(cart.release)
	require.NoError(t, <-done)

	st := s.Cart.Snapshot()
	assert.Equal(t, 5, st.Count)
	assert.False(t, st.IsLoading)
}

func TestObservable_SubscribersSeeMonotonicStates(t *testing.T) {
	s := New(Deps{})

	var mu sync.Mutex
	var seen []int
	unsubscribe := s.Cart.Subscribe(func(st CartState) {
		mu.Lock()
		seen = append(seen, st.Count)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Cart.SetCount(i)
		}()
	}
	wg.Wait()
	unsubscribe()

	// после отписки уведомления не приходят
	s.Cart.SetCount(100)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	assert.Equal(t, s.Cart.Snapshot().Count, seen[len(seen)-1])
	assert.NotContains(t, seen, 100)
}

func TestIsLoadingTracksConcurrentOperations(t *testing.T) {
	first := &blockingCart{count: 1, started: make(chan struct{}), release: make(chan struct{})}
	s := New(Deps{Cart: first})

	done := make(chan error, 2)
	go func() { done <- s.Cart.FetchCartCount(context.Background()) }()
	<-first.started

	seq := s.Cart.obs.begin()
	assert.True(t, s.Cart.Snapshot().IsLoading)

	close(first.release)
	require.NoError(t, <-done)
	assert.True(t, s.Cart.Snapshot().IsLoading, "second operation still in flight")

	s.Cart.obs.finish(seq, nil)
	assert.Eventually(t, func() bool { return !s.Cart.Snapshot().IsLoading }, time.Second, 10*time.Millisecond)
}

// blockingProfile отдаёт профиль только после release.
type blockingProfile struct {
	AuthAPI
	user    model.User
	started chan struct{}
	release chan struct{}
}

func (b *blockingProfile) Profile(ctx context.Context) (model.User, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.user, nil
	case <-ctx.Done():
		return model.User{}, ctx.Err()
	}
}

func (b *blockingProfile) UpdateProfile(ctx context.Context, _ model.ProfileUpdate) (model.User, error) {
	return b.Profile(ctx)
}

func (b *blockingProfile) Logout(context.Context) error { return nil }

func TestAuth_ProfileResponseAfterLogoutIsDiscarded(t *testing.T) {
	tests := []struct {
		name string
		call func(ctx context.Context, a *AuthSlice) error
	}{
		{
			name: "fetch profile",
			call: func(ctx context.Context, a *AuthSlice) error { return a.FetchProfile(ctx) },
		},
		{
			name: "update profile",
			call: func(ctx context.Context, a *AuthSlice) error {
				name := "Алиса"
				return a.UpdateProfile(ctx, model.ProfileUpdate{Name: &name})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := storage.NewMemory()
			sessions := session.NewManager(mem, zap.NewNop())
			require.NoError(t, sessions.Save(ctx, model.Session{
				AccessToken:  "access",
				RefreshToken: "refresh",
				User:         model.User{ID: 1, Login: "alice"},
			}))

			auth := &blockingProfile{
				user:    model.User{ID: 1, Login: "alice", Name: "Алиса"},
				started: make(chan struct{}),
				release: make(chan struct{}),
			}
			s := New(Deps{Auth: auth, Sessions: sessions})
			require.NoError(t, s.Auth.RestoreAuth(ctx))

			done := make(chan error, 1)
			go func() { done <- tt.call(ctx, s.Auth) }()
			<-auth.started

			require.NoError(t, s.Auth.Logout(ctx))
			close(auth.release)
			require.NoError(t, <-done)

			_, err := mem.Get(ctx, session.KeyUser)
			assert.ErrorIs(t, err, storage.ErrNotFound, "user must not be written back after logout")

			st := s.Auth.Snapshot()
			assert.False(t, st.IsAuthenticated)
			assert.Nil(t, st.User)
			assert.False(t, st.IsLoading)
			assert.Equal(t, 0, mem.Len())
		})
	}
}

func TestAuth_RefreshAfterLoginStillApplies(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	require.NoError(t, e.store.Auth.Register(ctx, registrationForm("alice")))
	require.NoError(t, e.store.Auth.Logout(ctx))
	require.NoError(t, e.store.Auth.Login(ctx, model.Credentials{Login: "alice", Password: "secret1"}))

	require.NoError(t, e.store.Auth.FetchProfile(ctx))
	st := e.store.Auth.Snapshot()
	require.NotNil(t, st.User)
	assert.Equal(t, "alice", st.User.Login)
	assert.Contains(t, e.stored(t, session.KeyUser), "alice")
}
