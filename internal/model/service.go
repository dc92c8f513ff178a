package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Service описывает услугу перевозки из каталога.
type Service struct {
	ID           int64
	Name         string
	Description  string
	Price        decimal.Decimal
	ImageURL     string
	DeliveryDays int
	MaxWeight    float64
	MaxVolume    float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DateLayout задаёт формат дат в фильтрах (календарная дата без времени).
const DateLayout = "2006-01-02"

// ServiceFilters содержит критерии фильтрации каталога.
// Пустые строки и nil-границы означают отсутствие ограничения.
type ServiceFilters struct {
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	DateFrom string
	DateTo   string
}

// ServiceFiltersPatch описывает частичное обновление фильтров.
// Указатель на пустую строку сбрасывает соответствующий критерий.
type ServiceFiltersPatch struct {
	Search   *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	DateFrom *string
	DateTo   *string

	ClearMinPrice bool
	ClearMaxPrice bool
}

// Merge возвращает фильтры с применённым частичным обновлением.
func (f ServiceFilters) Merge(p ServiceFiltersPatch) ServiceFilters {
	out := f
	if p.Search != nil {
		out.Search = *p.Search
	}
	if p.DateFrom != nil {
		out.DateFrom = *p.DateFrom
	}
	if p.DateTo != nil {
		out.DateTo = *p.DateTo
	}
	if p.MinPrice != nil {
		v := *p.MinPrice
		out.MinPrice = &v
	}
	if p.MaxPrice != nil {
		v := *p.MaxPrice
		out.MaxPrice = &v
	}
	if p.ClearMinPrice {
		out.MinPrice = nil
	}
	if p.ClearMaxPrice {
		out.MaxPrice = nil
	}
	return out
}

// IsZero сообщает, что ни один критерий не задан.
func (f ServiceFilters) IsZero() bool {
	return f.Search == "" && f.MinPrice == nil && f.MaxPrice == nil && f.DateFrom == "" && f.DateTo == ""
}
