package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// DefaultServicesPath задаёт путь списка услуг. Старые версии бэкенда используют /api/transport-services.
const DefaultServicesPath = "/api/services"

// Services работает с каталогом услуг.
type Services struct {
	client    apiclient.Doer
	listPath  string
	assetHost string
}

// NewServices создаёт модуль каталога.
func NewServices(c apiclient.Doer, listPath, assetHost string) *Services {
	if listPath == "" {
		listPath = DefaultServicesPath
	}
	return &Services{
		client:    c,
		listPath:  strings.TrimRight(listPath, "/"),
		assetHost: assetHost,
	}
}

// FiltersQuery переводит фильтры каталога в параметры запроса.
func FiltersQuery(f model.ServiceFilters) url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", f.MaxPrice.String())
	}
	if f.DateFrom != "" {
		q.Set("dateFrom", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("dateTo", f.DateTo)
	}
	return q
}

// List возвращает услуги, отфильтрованные бэкендом.
// Ответ может быть объектом {services: [...]} или массивом.
func (s *Services) List(ctx context.Context, f model.ServiceFilters) ([]model.Service, error) {
	var raw json.RawMessage
	err := s.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   s.listPath,
		Query:  FiltersQuery(f),
	}, &raw)
	if err != nil {
		return nil, err
	}

	var items []serviceDTO
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0:
		return nil, ErrEmptyResponse
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode services: %w", err)
		}
	default:
		var env struct {
			Services *[]serviceDTO `json:"services"`
		}
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("decode services: %w", err)
		}
		if env.Services == nil {
			return nil, fmt.Errorf("decode services: unexpected response format")
		}
		items = *env.Services
	}

	out := make([]model.Service, 0, len(items))
	for _, it := range items {
		out = append(out, it.toModel(s.assetHost))
	}
	return out, nil
}

// Get возвращает услугу по идентификатору.
func (s *Services) Get(ctx context.Context, id int64) (model.Service, error) {
	if err := validation.PositiveID("serviceID", id); err != nil {
		return model.Service{}, err
	}

	var resp struct {
		Service *serviceDTO `json:"service"`
	}
	err := s.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   s.listPath + "/" + strconv.FormatInt(id, 10),
	}, &resp)
	if err != nil {
		return model.Service{}, err
	}
	if resp.Service == nil {
		return model.Service{}, ErrEmptyResponse
	}
	return resp.Service.toModel(s.assetHost), nil
}
