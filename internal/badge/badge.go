// Package badge обновляет и отображает счётчик корзины.
package badge

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/store"
)

// CountFetcher перечитывает счётчик корзины в сторе.
type CountFetcher interface {
	FetchCartCount(ctx context.Context) error
}

// CartSubscriber даёт доступ к состоянию корзины.
type CartSubscriber interface {
	Snapshot() store.CartState
	Subscribe(fn func(store.CartState)) (unsubscribe func())
}

// Badge описывает отображение значка корзины.
type Badge struct {
	Count   int
	DraftID int64
	Loading bool
	// Enabled истинно, если можно перейти в корзину.
	Enabled bool
}

// FromCart строит модель значка из состояния корзины.
func FromCart(s store.CartState) Badge {
	return Badge{
		Count:   s.Count,
		DraftID: s.DraftID,
		Loading: s.IsLoading,
		Enabled: s.Count > 0 && !s.IsLoading,
	}
}

// Watch вызывает fn с текущим значением значка и затем при каждом его изменении.
func Watch(cart CartSubscriber, fn func(Badge)) (unsubscribe func()) {
	var (
		mu      sync.Mutex
		last    Badge
		emitted bool
	)
	emit := func(b Badge) {
		mu.Lock()
		defer mu.Unlock()
		if emitted && b == last {
			return
		}
		emitted = true
		last = b
		fn(b)
	}

	unsubscribe = cart.Subscribe(func(s store.CartState) {
		emit(FromCart(s))
	})
	emit(FromCart(cart.Snapshot()))
	return unsubscribe
}

// Refresher является единственным источником обновлений счётчика: периодический опрос
// и обновления по запросу пользователя проходят через один путь и не чаще
// минимального интервала.
type Refresher struct {
	cart        CountFetcher
	interval    time.Duration
	minInterval time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	last     time.Time
	inflight bool
}

// NewRefresher создаёт обновлятель счётчика.
func NewRefresher(cart CountFetcher, interval, minInterval time.Duration, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Refresher{
		cart:        cart,
		interval:    interval,
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// Refresh перечитывает счётчик. Возвращает false, если запрос пропущен:
// предыдущий ещё выполняется или с его начала прошло меньше минимального интервала.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	now := r.now()
	if r.inflight || (!r.last.IsZero() && now.Sub(r.last) < r.minInterval) {
		r.mu.Unlock()
		return false, nil
	}
	r.inflight = true
	r.last = now
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inflight = false
		r.mu.Unlock()
	}()

	return true, r.cart.FetchCartCount(ctx)
}

// Run опрашивает счётчик с заданным интервалом до отмены ctx.
// Первое обновление выполняется сразу.
func (r *Refresher) Run(ctx context.Context) error {
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
		r.logger.Warn("cart badge refresh failed", zap.Error(err))
	}
}
