package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

func sampleTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

// Sample возвращает копию встроенного каталога, который показывается,
// когда бэкенд недоступен.
func Sample() []model.Service {
	out := make([]model.Service, len(sample))
	copy(out, sample)
	return out
}

var sample = []model.Service{
	{
		ID:           1,
		Name:         "Фура",
		Description:  "Грузоперевозки на фурах для больших объемов. Идеально для габаритных грузов.",
		Price:        decimal.NewFromInt(50000),
		DeliveryDays: 7,
		MaxWeight:    20000,
		MaxVolume:    80,
		CreatedAt:    sampleTime("2024-01-15T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-15T10:00:00Z"),
	},
	{
		ID:           2,
		Name:         "Малотоннажный",
		Description:  "Быстрые грузоперевозки на малотоннажных автомобилях. Подходит для малых партий.",
		Price:        decimal.NewFromInt(15000),
		DeliveryDays: 3,
		MaxWeight:    3000,
		MaxVolume:    15,
		CreatedAt:    sampleTime("2024-01-10T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-10T10:00:00Z"),
	},
	{
		ID:           3,
		Name:         "Авиа",
		Description:  "Скоростная доставка грузов по воздуху. Самый быстрый способ доставки.",
		Price:        decimal.NewFromInt(150000),
		DeliveryDays: 1,
		MaxWeight:    5000,
		MaxVolume:    25,
		CreatedAt:    sampleTime("2024-01-20T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-20T10:00:00Z"),
	},
	{
		ID:           4,
		Name:         "Поезд",
		Description:  "Надежные железнодорожные перевозки. Оптимально для больших объемов на дальние расстояния.",
		Price:        decimal.NewFromInt(80000),
		DeliveryDays: 14,
		MaxWeight:    40000,
		MaxVolume:    100,
		CreatedAt:    sampleTime("2024-01-05T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-05T10:00:00Z"),
	},
	{
		ID:           5,
		Name:         "Корабль",
		Description:  "Морские грузоперевозки. Экономичный вариант для международной доставки.",
		Price:        decimal.NewFromInt(120000),
		DeliveryDays: 30,
		MaxWeight:    100000,
		MaxVolume:    500,
		CreatedAt:    sampleTime("2024-01-12T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-12T10:00:00Z"),
	},
	{
		ID:           6,
		Name:         "Мультимодальный",
		Description:  "Комбинированная доставка разными видами транспорта. Максимальная гибкость.",
		Price:        decimal.NewFromInt(100000),
		DeliveryDays: 10,
		MaxWeight:    30000,
		MaxVolume:    150,
		CreatedAt:    sampleTime("2024-01-18T10:00:00Z"),
		UpdatedAt:    sampleTime("2024-01-18T10:00:00Z"),
	},
}
