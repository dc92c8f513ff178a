package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

// OrdersState содержит список заявок и открытую заявку.
type OrdersState struct {
	Orders       []model.Order
	CurrentOrder *model.Order
	Status

	listSeq    uint64
	currentSeq uint64
}

// OrdersSlice управляет заявками пользователя.
type OrdersSlice struct {
	obs    *observable[OrdersState]
	api    OrdersAPI
	logger *zap.Logger
	// onDraftClosed вызывается, когда черновик перестал быть корзиной.
	onDraftClosed func()
}

func newOrdersSlice(o OrdersAPI, logger *zap.Logger, onDraftClosed func()) *OrdersSlice {
	return &OrdersSlice{
		obs:           newObservable(OrdersState{}, func(s *OrdersState) *Status { return &s.Status }),
		api:           o,
		logger:        logger,
		onDraftClosed: onDraftClosed,
	}
}

// Snapshot возвращает текущее состояние.
func (o *OrdersSlice) Snapshot() OrdersState {
	return o.obs.snapshot()
}

// Subscribe подписывает fn на изменения состояния.
func (o *OrdersSlice) Subscribe(fn func(OrdersState)) (unsubscribe func()) {
	return o.obs.subscribe(fn)
}

func setCurrent(s *OrdersState, seq uint64, order model.Order) {
	if seq < s.currentSeq {
		return
	}
	s.currentSeq = seq
	s.CurrentOrder = &order
}

// replaceInList заменяет заявку с тем же id, не изменяя исходный срез.
func replaceInList(s *OrdersState, order model.Order) {
	for i := range s.Orders {
		if s.Orders[i].ID != order.ID {
			continue
		}
		list := make([]model.Order, len(s.Orders))
		copy(list, s.Orders)
		list[i] = order
		s.Orders = list
		return
	}
}

func (o *OrdersSlice) run(ctx context.Context, call func() (func(*OrdersState, uint64), error), fallback string) error {
	seq := o.obs.begin()

	apply, err := call()
	if !alive(ctx) {
		o.obs.finish(seq, nil)
		return ctx.Err()
	}
	if err != nil {
		o.obs.finish(seq, func(s *OrdersState, _ uint64) {
			s.Error = errorMessage(err, fallback)
		})
		return err
	}
	o.obs.finish(seq, apply)
	return nil
}

// FetchOrders загружает список заявок с фильтром по статусу и датам.
func (o *OrdersSlice) FetchOrders(ctx context.Context, f model.OrdersFilter) error {
	return o.run(ctx, func() (func(*OrdersState, uint64), error) {
		list, err := o.api.List(ctx, f)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			if seq < s.listSeq {
				return
			}
			s.listSeq = seq
			s.Orders = list
		}, nil
	}, "Ошибка загрузки заявок")
}

// FetchOrder загружает заявку в CurrentOrder.
func (o *OrdersSlice) FetchOrder(ctx context.Context, id int64) error {
	return o.run(ctx, func() (func(*OrdersState, uint64), error) {
		order, err := o.api.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			setCurrent(s, seq, order)
		}, nil
	}, "Ошибка загрузки заявки")
}

// UpdateOrder меняет поля черновика и обновляет CurrentOrder и запись в списке.
func (o *OrdersSlice) UpdateOrder(ctx context.Context, id int64, p model.OrderPatch) (model.Order, error) {
	var order model.Order
	err := o.run(ctx, func() (func(*OrdersState, uint64), error) {
		var err error
		order, err = o.api.Update(ctx, id, p)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			setCurrent(s, seq, order)
			replaceInList(s, order)
		}, nil
	}, "Ошибка обновления заявки")
	return order, err
}

// RemoveServiceFromOrder удаляет услугу и перечитывает заявку.
func (o *OrdersSlice) RemoveServiceFromOrder(ctx context.Context, orderID, serviceID int64) error {
	return o.mutateLineItem(ctx, orderID, func() error {
		return o.api.RemoveService(ctx, orderID, serviceID)
	}, "Ошибка удаления услуги из заявки")
}

// UpdateServiceInOrder меняет количество услуги и перечитывает заявку.
func (o *OrdersSlice) UpdateServiceInOrder(ctx context.Context, orderID, serviceID int64, quantity int) error {
	return o.mutateLineItem(ctx, orderID, func() error {
		return o.api.UpdateService(ctx, orderID, serviceID, quantity)
	}, "Ошибка обновления услуги в заявке")
}

func (o *OrdersSlice) mutateLineItem(ctx context.Context, orderID int64, mutate func() error, fallback string) error {
	return o.run(ctx, func() (func(*OrdersState, uint64), error) {
		if err := mutate(); err != nil {
			return nil, err
		}
		order, err := o.api.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			setCurrent(s, seq, order)
		}, nil
	}, fallback)
}

// FormOrder переводит черновик в статус formed. Возвращается заявка,
// перечитанная после формирования.
func (o *OrdersSlice) FormOrder(ctx context.Context, id int64, d model.ShipmentDetails) (model.Order, error) {
	var order model.Order
	err := o.run(ctx, func() (func(*OrdersState, uint64), error) {
		var err error
		order, err = o.api.Form(ctx, id, d)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			setCurrent(s, seq, order)
			replaceInList(s, order)
		}, nil
	}, "Ошибка оформления заявки")
	if err != nil {
		return model.Order{}, err
	}

	o.logger.Info("order formed", zap.Int64("order_id", order.ID))
	o.draftClosed()
	return order, nil
}

// SubmitOrder создаёт и сразу формирует заявку.
func (o *OrdersSlice) SubmitOrder(ctx context.Context, d model.ShipmentDetails) (model.Order, error) {
	var order model.Order
	err := o.run(ctx, func() (func(*OrdersState, uint64), error) {
		var err error
		order, err = o.api.Submit(ctx, d)
		if err != nil {
			return nil, err
		}
		return func(s *OrdersState, seq uint64) {
			setCurrent(s, seq, order)
			list := make([]model.Order, 0, len(s.Orders)+1)
			list = append(list, s.Orders...)
			s.Orders = append(list, order)
		}, nil
	}, "Ошибка отправки заявки")
	if err != nil {
		return model.Order{}, err
	}

	o.logger.Info("order submitted", zap.Int64("order_id", order.ID))
	o.draftClosed()
	return order, nil
}

func (o *OrdersSlice) draftClosed() {
	if o.onDraftClosed != nil {
		o.onDraftClosed()
	}
}

// ClearCurrentOrder сбрасывает открытую заявку.
func (o *OrdersSlice) ClearCurrentOrder() {
	o.obs.update(func(s *OrdersState, seq uint64) {
		s.currentSeq = seq
		s.CurrentOrder = nil
	})
}

// ClearOrders сбрасывает список заявок.
func (o *OrdersSlice) ClearOrders() {
	o.obs.update(func(s *OrdersState, seq uint64) {
		s.listSeq = seq
		s.Orders = nil
	})
}

// ClearError сбрасывает текст ошибки.
func (o *OrdersSlice) ClearError() {
	o.obs.update(func(s *OrdersState, _ uint64) {
		s.Error = ""
	})
}

func (o *OrdersSlice) reset() {
	o.obs.update(func(s *OrdersState, seq uint64) {
		*s = OrdersState{
			Status:     Status{IsLoading: s.IsLoading},
			listSeq:    seq,
			currentSeq: seq,
		}
	})
}
