package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус логистической заявки.
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusFormed    OrderStatus = "formed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusDeleted   OrderStatus = "deleted"
)

// CanTransition сообщает, допустим ли переход между статусами.
// Переходы выполняет бэкенд, клиент лишь запрашивает их.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusDraft:
		return to == OrderStatusFormed || to == OrderStatusDeleted
	case OrderStatusFormed:
		return to == OrderStatusCompleted || to == OrderStatusRejected || to == OrderStatusDeleted
	}
	return false
}

// LineItem связывает заявку с услугой каталога.
type LineItem struct {
	ID        int64
	OrderID   int64
	ServiceID int64
	Quantity  int
	Comment   string
	SortOrder int
	Service   *Service
}

// Order описывает логистическую заявку. Черновик играет роль корзины.
type Order struct {
	ID          int64
	SessionID   string
	IsDraft     bool
	FromCity    string
	ToCity      string
	Weight      float64
	Length      float64
	Width       float64
	Height      float64
	Services    []LineItem
	TotalCost   decimal.Decimal
	TotalDays   int
	Status      OrderStatus
	CreatorID   int64
	ModeratorID *int64
	CreatedAt   time.Time
	FormedAt    *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// ItemCount возвращает суммарное количество позиций заявки.
func (o *Order) ItemCount() int {
	if o == nil {
		return 0
	}
	n := 0
	for _, li := range o.Services {
		n += li.Quantity
	}
	return n
}

// ShipmentDetails содержит габариты и маршрут груза, обязательные при формировании заявки.
type ShipmentDetails struct {
	FromCity string  `validate:"required"`
	ToCity   string  `validate:"required"`
	Weight   float64 `validate:"gt=0"`
	Length   float64 `validate:"gt=0"`
	Width    float64 `validate:"gt=0"`
	Height   float64 `validate:"gt=0"`
}

// OrderPatch описывает изменение полей черновика. Nil-поля не отправляются.
type OrderPatch struct {
	FromCity *string
	ToCity   *string
	Weight   *float64
	Length   *float64
	Width    *float64
	Height   *float64
}

// OrdersFilter ограничивает список заявок по статусу и диапазону дат.
type OrdersFilter struct {
	Status   OrderStatus
	DateFrom string
	DateTo   string
}

// Cart представляет текущий черновик пользователя.
type Cart struct {
	Order    *Order
	Services []Service
	Count    int
}

// CartCount содержит значение бейджа корзины.
type CartCount struct {
	Count     int
	RequestID int64
}
