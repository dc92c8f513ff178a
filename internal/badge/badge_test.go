package badge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmeshcher/freight-storefront/internal/api"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
	block chan struct{}
}

func (f *countingFetcher) FetchCartCount(ctx context.Context) error {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func TestFromCart(t *testing.T) {
	tests := []struct {
		name  string
		state store.CartState
		want  Badge
	}{
		{
			name:  "empty cart disabled",
			state: store.CartState{},
			want:  Badge{},
		},
		{
			name:  "one item enabled",
			state: store.CartState{Count: 1, DraftID: 3},
			want:  Badge{Count: 1, DraftID: 3, Enabled: true},
		},
		{
			name:  "loading disables",
			state: store.CartState{Count: 2, Status: store.Status{IsLoading: true}},
			want:  Badge{Count: 2, Loading: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromCart(tt.state))
		})
	}
}

type stubCart struct {
	count int
}

func (c *stubCart) Add(context.Context, int64) (api.AddResult, error) {
	c.count++
	return api.AddResult{Success: true, Count: c.count, RequestID: 10}, nil
}

func (c *stubCart) Get(context.Context) (model.Cart, error) {
	return model.Cart{Count: c.count}, nil
}

func (c *stubCart) Count(context.Context) (model.CartCount, error) {
	return model.CartCount{Count: c.count, RequestID: 10}, nil
}

func (c *stubCart) Clear(context.Context) error {
	c.count = 0
	return nil
}

func TestWatch_EmptyCartThenOneItem(t *testing.T) {
	s := store.New(store.Deps{Cart: &stubCart{}})

	var mu sync.Mutex
	var badges []Badge
	unsubscribe := Watch(s.Cart, func(b Badge) {
		mu.Lock()
		defer mu.Unlock()
		badges = append(badges, b)
	})
	defer unsubscribe()

	_, err := s.Cart.AddToCart(context.Background(), 1)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, badges)
	assert.Equal(t, Badge{}, badges[0])
	assert.Equal(t, Badge{Count: 1, DraftID: 10, Enabled: true}, badges[len(badges)-1])

	for i := 1; i < len(badges); i++ {
		assert.NotEqual(t, badges[i-1], badges[i], "duplicate badge values are not emitted")
	}
}

func TestRefresher_MinInterval(t *testing.T) {
	f := &countingFetcher{}
	r := NewRefresher(f, time.Hour, time.Minute, nil)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	done, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	now = now.Add(30 * time.Second)
	done, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	now = now.Add(31 * time.Second)
	done, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, done)

	assert.EqualValues(t, 2, f.calls.Load())
}

func TestRefresher_SkipsWhileInFlight(t *testing.T) {
	f := &countingFetcher{block: make(chan struct{})}
	r := NewRefresher(f, time.Hour, 0, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Refresh(context.Background())
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)

	ok, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	close(f.block)
	<-done
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestRefresher_PropagatesError(t *testing.T) {
	f := &countingFetcher{err: errors.New("boom")}
	r := NewRefresher(f, time.Hour, 0, nil)

	ok, err := r.Refresh(context.Background())
	assert.True(t, ok)
	assert.EqualError(t, err, "boom")
}

func TestRefresher_RunPollsUntilCancelled(t *testing.T) {
	f := &countingFetcher{}
	r := NewRefresher(f, 10*time.Millisecond, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return f.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, <-errCh)
}
