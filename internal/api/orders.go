package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// Orders работает с заявками.
type Orders struct {
	client    apiclient.Doer
	assetHost string
}

// NewOrders создаёт модуль заявок.
func NewOrders(c apiclient.Doer, assetHost string) *Orders {
	return &Orders{client: c, assetHost: assetHost}
}

func orderPath(id int64) string {
	return "/api/orders/" + strconv.FormatInt(id, 10)
}

func lineItemPath(orderID, serviceID int64) string {
	return fmt.Sprintf("/api/orders/%d/services/%d", orderID, serviceID)
}

func (o *Orders) decode(env orderEnvelope) (model.Order, error) {
	if env.Order == nil {
		return model.Order{}, ErrEmptyResponse
	}
	return env.Order.toModel(o.assetHost), nil
}

// List возвращает заявки пользователя с фильтром по статусу и датам.
func (o *Orders) List(ctx context.Context, f model.OrdersFilter) ([]model.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}

	var resp struct {
		Status string     `json:"status"`
		Orders []orderDTO `json:"orders"`
	}
	err := o.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/orders",
		Query:  q,
	}, &resp)
	if err != nil {
		return nil, err
	}

	out := make([]model.Order, 0, len(resp.Orders))
	for _, dto := range resp.Orders {
		out = append(out, dto.toModel(o.assetHost))
	}
	return out, nil
}

// Get возвращает заявку по идентификатору.
func (o *Orders) Get(ctx context.Context, id int64) (model.Order, error) {
	if err := validation.PositiveID("orderID", id); err != nil {
		return model.Order{}, err
	}

	var env orderEnvelope
	err := o.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   orderPath(id),
	}, &env)
	if err != nil {
		return model.Order{}, err
	}
	return o.decode(env)
}

// Update меняет поля черновика. Ограничение «только черновик» проверяет бэкенд.
// Если бэкенд не вернул заявку, она перечитывается.
func (o *Orders) Update(ctx context.Context, id int64, p model.OrderPatch) (model.Order, error) {
	if err := validation.PositiveID("orderID", id); err != nil {
		return model.Order{}, err
	}

	var env orderEnvelope
	err := o.client.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   orderPath(id),
		Body: orderPatchDTO{
			FromCity: p.FromCity,
			ToCity:   p.ToCity,
			Weight:   p.Weight,
			Length:   p.Length,
			Width:    p.Width,
			Height:   p.Height,
		},
	}, &env)
	if err != nil {
		return model.Order{}, err
	}
	if env.Order == nil {
		return o.Get(ctx, id)
	}
	return o.decode(env)
}

// RemoveService удаляет позицию из заявки. Бэкенд не возвращает обновлённую заявку.
func (o *Orders) RemoveService(ctx context.Context, orderID, serviceID int64) error {
	if err := validation.PositiveID("orderID", orderID); err != nil {
		return err
	}
	if err := validation.PositiveID("serviceID", serviceID); err != nil {
		return err
	}
	return o.client.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   lineItemPath(orderID, serviceID),
	}, nil)
}

// UpdateService меняет количество услуги в заявке.
func (o *Orders) UpdateService(ctx context.Context, orderID, serviceID int64, quantity int) error {
	if err := validation.PositiveID("orderID", orderID); err != nil {
		return err
	}
	if err := validation.PositiveID("serviceID", serviceID); err != nil {
		return err
	}
	if err := validation.PositiveID("quantity", int64(quantity)); err != nil {
		return err
	}
	return o.client.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   lineItemPath(orderID, serviceID),
		Body:   map[string]int{"quantity": quantity},
	}, nil)
}

// Form переводит черновик в статус formed. Ответ эндпоинта формирования не
// является каноническим представлением, поэтому заявка всегда перечитывается.
func (o *Orders) Form(ctx context.Context, id int64, d model.ShipmentDetails) (model.Order, error) {
	if err := validation.PositiveID("orderID", id); err != nil {
		return model.Order{}, err
	}
	if err := validation.Shipment(d); err != nil {
		return model.Order{}, err
	}

	err := o.client.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   orderPath(id) + "/form",
		Body:   newShipmentDTO(d),
	}, nil)
	if err != nil {
		return model.Order{}, err
	}
	return o.Get(ctx, id)
}

// Submit создаёт и сразу формирует заявку, минуя корзину.
func (o *Orders) Submit(ctx context.Context, d model.ShipmentDetails) (model.Order, error) {
	if err := validation.Shipment(d); err != nil {
		return model.Order{}, err
	}

	var env orderEnvelope
	err := o.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/submitcargoorder",
		Body:   newShipmentDTO(d),
	}, &env)
	if err != nil {
		return model.Order{}, err
	}
	return o.decode(env)
}
