// Package catalog отдаёт каталог услуг с деградированным режимом: если бэкенд
// недоступен, показывается встроенный каталог, отфильтрованный локально.
package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

// ErrNotFound возвращается, если услуги нет ни на бэкенде, ни во встроенном каталоге.
var ErrNotFound = errors.New("service not found")

// Source отдаёт живые данные каталога.
type Source interface {
	List(ctx context.Context, f model.ServiceFilters) ([]model.Service, error)
	Get(ctx context.Context, id int64) (model.Service, error)
}

// Listing содержит результат запроса каталога.
type Listing struct {
	Services []model.Service
	// Degraded означает, что данные взяты из встроенного каталога.
	Degraded bool
	// Err хранит ошибку живого запроса, из-за которой включился деградированный режим.
	Err error
}

// Catalog объединяет живой источник и встроенный каталог.
type Catalog struct {
	source Source
	sample []model.Service
	logger *zap.Logger
}

// New создаёт каталог поверх источника.
func New(source Source, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{source: source, sample: Sample(), logger: logger}
}

// List возвращает услуги. Ошибка живого запроса никогда не доходит до
// вызывающего: вместо неё возвращается встроенный каталог.
func (c *Catalog) List(ctx context.Context, f model.ServiceFilters) Listing {
	services, err := c.source.List(ctx, f)
	if err == nil {
		return Listing{Services: services}
	}

	c.logger.Warn("failed to fetch services from backend, using sample catalog", zap.Error(err))
	return Listing{
		Services: Filter(c.sample, f),
		Degraded: true,
		Err:      err,
	}
}

// Get возвращает услугу по идентификатору; второе значение true, если
// услуга взята из встроенного каталога.
func (c *Catalog) Get(ctx context.Context, id int64) (model.Service, bool, error) {
	s, err := c.source.Get(ctx, id)
	if err == nil {
		return s, false, nil
	}

	c.logger.Warn("failed to fetch service from backend", zap.Int64("id", id), zap.Error(err))
	for _, s := range c.sample {
		if s.ID == id {
			return s, true, nil
		}
	}
	return model.Service{}, true, ErrNotFound
}
