package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// Cart работает с корзиной (черновиком заявки).
type Cart struct {
	client    apiclient.Doer
	assetHost string
}

// NewCart создаёт модуль корзины.
func NewCart(c apiclient.Doer, assetHost string) *Cart {
	return &Cart{client: c, assetHost: assetHost}
}

// AddResult содержит ответ на добавление услуги в корзину.
type AddResult struct {
	Success   bool
	Count     int
	RequestID int64
	Message   string
}

type addResponse struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	RequestID int64  `json:"request_id"`
	Message   string `json:"message"`
}

type cartResponse struct {
	Cart     *orderDTO    `json:"cart"`
	Services []serviceDTO `json:"services"`
	Count    int          `json:"count"`
}

// countResponse: count содержит служебное значение (0/-1) для кэшей и отладки,
// real_count содержит настоящее значение бейджа.
type countResponse struct {
	Count     int   `json:"count"`
	RealCount *int  `json:"real_count"`
	RequestID int64 `json:"request_id"`
}

// Add добавляет услугу в черновик пользователя, создавая его при необходимости.
func (c *Cart) Add(ctx context.Context, serviceID int64) (AddResult, error) {
	if err := validation.PositiveID("serviceID", serviceID); err != nil {
		return AddResult{}, err
	}

	var resp addResponse
	err := c.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/cart/add/" + strconv.FormatInt(serviceID, 10),
	}, &resp)
	if err != nil {
		return AddResult{}, err
	}
	return AddResult{
		Success:   resp.Success,
		Count:     resp.Count,
		RequestID: resp.RequestID,
		Message:   resp.Message,
	}, nil
}

// Get возвращает черновик, услуги в нём и количество позиций.
func (c *Cart) Get(ctx context.Context) (model.Cart, error) {
	var resp cartResponse
	err := c.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/cart",
	}, &resp)
	if err != nil {
		return model.Cart{}, err
	}

	out := model.Cart{Count: resp.Count}
	if resp.Cart != nil && resp.Cart.ID != 0 {
		o := resp.Cart.toModel(c.assetHost)
		out.Order = &o
	}
	for _, s := range resp.Services {
		out.Services = append(out.Services, s.toModel(c.assetHost))
	}
	return out, nil
}

// Count возвращает значение бейджа корзины. Приоритет у real_count;
// служебный count используется только если real_count отсутствует и не отрицателен.
func (c *Cart) Count(ctx context.Context) (model.CartCount, error) {
	var resp countResponse
	err := c.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/cart/icon",
	}, &resp)
	if err != nil {
		return model.CartCount{}, err
	}

	n := resp.Count
	if resp.RealCount != nil {
		n = *resp.RealCount
	}
	if n < 0 {
		n = 0
	}
	return model.CartCount{Count: n, RequestID: resp.RequestID}, nil
}

// Clear удаляет черновик пользователя.
func (c *Cart) Clear(ctx context.Context) error {
	return c.client.Do(ctx, apiclient.Request{
		Method: http.MethodDelete,
		Path:   "/api/cart",
	}, nil)
}
