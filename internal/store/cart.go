package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/api"
	"github.com/mmeshcher/freight-storefront/internal/model"
)

// CartState зеркалирует черновик пользователя. Подписчики (например, бейдж
// корзины) получают каждое изменение Count и DraftID.
type CartState struct {
	Cart    *model.Cart
	Count   int
	DraftID int64
	Status

	// written хранит номер операции, последней записавшей Cart/Count/DraftID.
	written uint64
}

// CartSlice управляет корзиной.
type CartSlice struct {
	obs    *observable[CartState]
	api    CartAPI
	logger *zap.Logger
}

func newCartSlice(c CartAPI, logger *zap.Logger) *CartSlice {
	return &CartSlice{
		obs:    newObservable(CartState{}, func(s *CartState) *Status { return &s.Status }),
		api:    c,
		logger: logger,
	}
}

// Snapshot возвращает текущее состояние.
func (c *CartSlice) Snapshot() CartState {
	return c.obs.snapshot()
}

// Subscribe подписывает fn на изменения состояния.
func (c *CartSlice) Subscribe(fn func(CartState)) (unsubscribe func()) {
	return c.obs.subscribe(fn)
}

// write применяет изменение зеркала, только если оно не старше уже записанного.
func write(s *CartState, seq uint64, fn func(*CartState)) {
	if seq < s.written {
		return
	}
	s.written = seq
	fn(s)
}

func (c *CartSlice) run(ctx context.Context, call func() (func(*CartState), error), fallback string) error {
	seq := c.obs.begin()

	apply, err := call()
	if !alive(ctx) {
		c.obs.finish(seq, nil)
		return ctx.Err()
	}
	if err != nil {
		c.obs.finish(seq, func(s *CartState, _ uint64) {
			s.Error = errorMessage(err, fallback)
		})
		return err
	}

	c.obs.finish(seq, func(s *CartState, seq uint64) {
		write(s, seq, apply)
	})
	return nil
}

// AddToCart добавляет услугу в черновик и обновляет счётчик из ответа.
// Повторные нажатия не дедуплицируются: черновик сериализует бэкенд.
func (c *CartSlice) AddToCart(ctx context.Context, serviceID int64) (api.AddResult, error) {
	var res api.AddResult
	err := c.run(ctx, func() (func(*CartState), error) {
		var err error
		res, err = c.api.Add(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		return func(s *CartState) {
			s.Count = res.Count
			if res.RequestID != 0 {
				s.DraftID = res.RequestID
			}
		}, nil
	}, "Ошибка добавления в корзину")
	if err != nil {
		return api.AddResult{}, err
	}

	c.logger.Debug("service added to cart", zap.Int64("service_id", serviceID), zap.Int("count", res.Count))
	return res, nil
}

// FetchCart перечитывает черновик целиком.
func (c *CartSlice) FetchCart(ctx context.Context) error {
	return c.run(ctx, func() (func(*CartState), error) {
		cart, err := c.api.Get(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *CartState) {
			s.Cart = &cart
			s.Count = cart.Count
			s.DraftID = 0
			if cart.Order != nil {
				s.DraftID = cart.Order.ID
			}
		}, nil
	}, "Ошибка загрузки корзины")
}

// FetchCartCount перечитывает только счётчик бейджа.
func (c *CartSlice) FetchCartCount(ctx context.Context) error {
	return c.run(ctx, func() (func(*CartState), error) {
		cc, err := c.api.Count(ctx)
		if err != nil {
			return nil, err
		}
		return func(s *CartState) {
			s.Count = cc.Count
			s.DraftID = cc.RequestID
		}, nil
	}, "Ошибка загрузки корзины")
}

// ClearCart удаляет черновик. Локальное зеркало сбрасывается при любом исходе запроса.
func (c *CartSlice) ClearCart(ctx context.Context) error {
	seq := c.obs.begin()

	err := c.api.Clear(ctx)
	if err != nil {
		c.logger.Warn("clear cart request failed", zap.Error(err))
	}

	c.obs.finish(seq, func(s *CartState, seq uint64) {
		write(s, seq, clearMirror)
		if err != nil && alive(ctx) {
			s.Error = errorMessage(err, "Ошибка очистки корзины")
		}
	})
	return err
}

func clearMirror(s *CartState) {
	s.Cart = nil
	s.Count = 0
	s.DraftID = 0
}

// ResetCart синхронно сбрасывает зеркало без обращения к сети. Используется при выходе.
func (c *CartSlice) ResetCart() {
	c.obs.update(func(s *CartState, seq uint64) {
		write(s, seq, clearMirror)
		s.Error = ""
	})
}

// SetCount синхронно задаёт значение счётчика.
func (c *CartSlice) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	c.obs.update(func(s *CartState, seq uint64) {
		write(s, seq, func(s *CartState) { s.Count = n })
	})
}

// ClearError сбрасывает текст ошибки.
func (c *CartSlice) ClearError() {
	c.obs.update(func(s *CartState, _ uint64) {
		s.Error = ""
	})
}
