package api_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
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
	sessions *session.Manager
	client   *apiclient.Client
	auth     *api.Auth
	services *api.Services
	cart     *api.Cart
	orders   *api.Orders
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	b := stubbackend.New("test-secret")
	srv := httptest.NewServer(stubbackend.NewHandler(b, zap.NewNop()).SetupRouter())
	t.Cleanup(srv.Close)

	sessions := session.NewManager(storage.NewMemory(), zap.NewNop())
	client := apiclient.NewClient(sessions, apiclient.Options{Origin: srv.URL})

	return &testEnv{
		backend:  b,
		sessions: sessions,
		client:   client,
		auth:     api.NewAuth(client),
		services: api.NewServices(client, "", "http://localhost:9003"),
		cart:     api.NewCart(client, "http://localhost:9003"),
		orders:   api.NewOrders(client, "http://localhost:9003"),
	}
}

func (e *testEnv) signUp(t *testing.T, login string) model.Session {
	t.Helper()
	s, err := e.auth.Register(context.Background(), model.RegisterRequest{
		Login:    login,
		Email:    login + "@example.com",
		Name:     login,
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NoError(t, e.sessions.Save(context.Background(), s))
	return s
}

func shipment() model.ShipmentDetails {
	return model.ShipmentDetails{
		FromCity: "Москва",
		ToCity:   "Новосибирск",
		Weight:   500,
		Length:   3,
		Width:    2,
		Height:   2,
	}
}

func TestAuth_RegisterLoginProfile(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	s := e.signUp(t, "alice")
	assert.NotEmpty(t, s.AccessToken)
	assert.NotEmpty(t, s.RefreshToken)
	assert.False(t, s.ExpiresAt.IsZero())
	assert.Equal(t, "alice", s.User.Login)
	assert.Equal(t, model.RoleBuyer, s.User.Role)

	logged, err := e.auth.Login(ctx, model.Credentials{Login: "alice", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, logged.User.ID)

	u, err := e.auth.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)

	phone := "+79990000000"
	u, err = e.auth.UpdateProfile(ctx, model.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, u.Phone)
	assert.Equal(t, "alice", u.Name)
}

func TestAuth_ValidationBeforeRequest(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.auth.Login(context.Background(), model.Credentials{Login: "alice"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)

	_, err = e.auth.Register(context.Background(), model.RegisterRequest{Login: "a", Email: "a@example.com", Name: "A"})
	require.ErrorAs(t, err, &verr)
}

func TestAuth_FormatChecksLeftToBackend(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.auth.Register(ctx, model.RegisterRequest{Login: "a", Email: "a@example.com", Name: "A", Password: "123"})
	var verr *validation.Error
	require.False(t, errors.As(err, &verr), "short password must reach the backend")
	msg, ok := apiclient.ServerMessage(err)
	require.True(t, ok)
	assert.Equal(t, "Пароль должен содержать минимум 6 символов", msg)

	e.signUp(t, "alice")
	bad := "not-an-email"
	_, err = e.auth.UpdateProfile(ctx, model.ProfileUpdate{Email: &bad})
	require.False(t, errors.As(err, &verr), "email format is checked by the backend")
	msg, ok = apiclient.ServerMessage(err)
	require.True(t, ok)
	assert.Equal(t, "некорректный email", msg)
}

func TestAuth_LoginRejectedCarriesServerMessage(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "alice")

	_, err := e.auth.Login(context.Background(), model.Credentials{Login: "alice", Password: "wrong-pass"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	msg, ok := apiclient.ServerMessage(err)
	require.True(t, ok)
	assert.Equal(t, "invalid login or password", msg)
}

func TestAuth_LogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.signUp(t, "alice")

	require.NoError(t, e.auth.Logout(ctx))

	_, err := e.auth.Profile(ctx)
	assert.ErrorIs(t, err, apiclient.ErrUnauthorized)

	token, err := e.sessions.AccessToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "401 must clear the stored session")
}

func TestServices_ListAndGet(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	all, err := e.services.List(ctx, model.ServiceFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	minPrice := decimal.NewFromInt(80000)
	maxPrice := decimal.NewFromInt(120000)
	filtered, err := e.services.List(ctx, model.ServiceFilters{MinPrice: &minPrice, MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, filtered, 3)
	assert.Equal(t, int64(4), filtered[0].ID)

	s, err := e.services.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Авиа", s.Name)
	assert.True(t, decimal.NewFromInt(150000).Equal(s.Price))

	_, err = e.services.Get(ctx, 999)
	var nerr *apiclient.NetworkError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, 404, nerr.Status)
}

func TestServices_LegacyArrayListing(t *testing.T) {
	e := newTestEnv(t)
	legacy := api.NewServices(e.client, "/api/transport-services", "")

	all, err := legacy.List(context.Background(), model.ServiceFilters{Search: "поезд"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(4), all[0].ID)
}

func TestCart_AddThenGetReflectsCount(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	count, err := e.cart.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count.Count, "anonymous badge is zero, never the -1 sentinel")

	e.signUp(t, "alice")

	res, err := e.cart.Add(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)

	cart, err := e.cart.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cart.Order)
	assert.Equal(t, 1, cart.Count)
	assert.Equal(t, res.RequestID, cart.Order.ID)
	assert.Equal(t, model.OrderStatusDraft, cart.Order.Status)
	require.Len(t, cart.Services, 1)
	assert.Equal(t, "Фура", cart.Services[0].Name)

	res, err = e.cart.Add(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	count, err = e.cart.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count.Count)
	assert.Equal(t, res.RequestID, count.RequestID)

	require.NoError(t, e.cart.Clear(ctx))
	cart, err = e.cart.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cart.Order)
	assert.Zero(t, cart.Count)
}

func TestOrders_FormRefetchesCanonicalOrder(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.signUp(t, "alice")

	res, err := e.cart.Add(ctx, 5)
	require.NoError(t, err)

	city := "Владивосток"
	updated, err := e.orders.Update(ctx, res.RequestID, model.OrderPatch{ToCity: &city})
	require.NoError(t, err)
	assert.Equal(t, city, updated.ToCity)

	formed, err := e.orders.Form(ctx, res.RequestID, shipment())
	require.NoError(t, err)
	assert.Equal(t, res.RequestID, formed.ID)
	assert.Equal(t, model.OrderStatusFormed, formed.Status)
	assert.NotNil(t, formed.FormedAt)
	require.Len(t, formed.Services, 1)
	require.NotNil(t, formed.Services[0].Service)
	assert.Equal(t, "Корабль", formed.Services[0].Service.Name)
	assert.Equal(t, 30, formed.TotalDays)

	_, err = e.orders.Form(ctx, res.RequestID, shipment())
	require.Error(t, err)
	msg, ok := apiclient.ServerMessage(err)
	require.True(t, ok)
	assert.Equal(t, "order is not a draft", msg)
}

func TestOrders_LineItems(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.signUp(t, "alice")

	_, err := e.cart.Add(ctx, 1)
	require.NoError(t, err)
	res, err := e.cart.Add(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, e.orders.UpdateService(ctx, res.RequestID, 2, 3))
	o, err := e.orders.Get(ctx, res.RequestID)
	require.NoError(t, err)
	assert.Equal(t, 4, o.ItemCount())
	assert.True(t, decimal.NewFromInt(95000).Equal(o.TotalCost))

	require.NoError(t, e.orders.RemoveService(ctx, res.RequestID, 1))
	o, err = e.orders.Get(ctx, res.RequestID)
	require.NoError(t, err)
	require.Len(t, o.Services, 1)
	assert.Equal(t, int64(2), o.Services[0].ServiceID)

	err = e.orders.UpdateService(ctx, res.RequestID, 2, 0)
	var verr *validation.Error
	assert.ErrorAs(t, err, &verr)
}

func TestOrders_SubmitAndList(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.signUp(t, "alice")

	o, err := e.orders.Submit(ctx, shipment())
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFormed, o.Status)
	assert.Equal(t, "Москва", o.FromCity)

	require.NoError(t, e.backend.Moderate(o.ID, model.OrderStatusCompleted))

	list, err := e.orders.List(ctx, model.OrdersFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.OrderStatusCompleted, list[0].Status)
	assert.NotNil(t, list[0].CompletedAt)

	list, err = e.orders.List(ctx, model.OrdersFilter{Status: model.OrderStatusRejected})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = e.orders.Submit(ctx, model.ShipmentDetails{FromCity: "Москва"})
	var verr *validation.Error
	assert.ErrorAs(t, err, &verr)
}
