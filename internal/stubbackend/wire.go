package stubbackend

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

type userJSON struct {
	ID        int64  `json:"id"`
	UUID      string `json:"uuid"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func newUserJSON(u model.User) userJSON {
	return userJSON{
		ID:        u.ID,
		UUID:      u.UUID,
		Login:     u.Login,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
		UpdatedAt: formatTime(u.UpdatedAt),
	}
}

type serviceJSON struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     *string         `json:"image_url"`
	DeliveryDays int             `json:"delivery_days"`
	MaxWeight    float64         `json:"max_weight"`
	MaxVolume    float64         `json:"max_volume"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func newServiceJSON(s model.Service) serviceJSON {
	out := serviceJSON{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		Price:        s.Price,
		DeliveryDays: s.DeliveryDays,
		MaxWeight:    s.MaxWeight,
		MaxVolume:    s.MaxVolume,
		CreatedAt:    formatTime(s.CreatedAt),
		UpdatedAt:    formatTime(s.UpdatedAt),
	}
	if s.ImageURL != "" {
		image := s.ImageURL
		out.ImageURL = &image
	}
	return out
}

func newServicesJSON(services []model.Service) []serviceJSON {
	out := make([]serviceJSON, 0, len(services))
	for _, s := range services {
		out = append(out, newServiceJSON(s))
	}
	return out
}

type lineItemJSON struct {
	ID        int64        `json:"id"`
	OrderID   int64        `json:"logistic_request_id"`
	ServiceID int64        `json:"transport_service_id"`
	Quantity  int          `json:"quantity"`
	Comment   string       `json:"comment"`
	SortOrder int          `json:"sort_order"`
	Service   *serviceJSON `json:"service,omitempty"`
}

type orderJSON struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	IsDraft     bool            `json:"is_draft"`
	FromCity    string          `json:"from_city"`
	ToCity      string          `json:"to_city"`
	Weight      float64         `json:"weight"`
	Length      float64         `json:"length"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Services    []lineItemJSON  `json:"services"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	TotalDays   int             `json:"total_days"`
	Status      string          `json:"status"`
	CreatorID   int64           `json:"creator_id"`
	ModeratorID *int64          `json:"moderator_id"`
	CreatedAt   string          `json:"created_at"`
	FormedAt    *string         `json:"formed_at"`
	CompletedAt *string         `json:"completed_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func newOrderJSON(o model.Order) orderJSON {
	items := make([]lineItemJSON, 0, len(o.Services))
	for _, li := range o.Services {
		item := lineItemJSON{
			ID:        li.ID,
			OrderID:   li.OrderID,
			ServiceID: li.ServiceID,
			Quantity:  li.Quantity,
			Comment:   li.Comment,
			SortOrder: li.SortOrder,
		}
		if li.Service != nil {
			s := newServiceJSON(*li.Service)
			item.Service = &s
		}
		items = append(items, item)
	}

	return orderJSON{
		ID:          o.ID,
		SessionID:   o.SessionID,
		IsDraft:     o.IsDraft,
		FromCity:    o.FromCity,
		ToCity:      o.ToCity,
		Weight:      o.Weight,
		Length:      o.Length,
		Width:       o.Width,
		Height:      o.Height,
		Services:    items,
		TotalCost:   o.TotalCost,
		TotalDays:   o.TotalDays,
		Status:      string(o.Status),
		CreatorID:   o.CreatorID,
		ModeratorID: o.ModeratorID,
		CreatedAt:   formatTime(o.CreatedAt),
		FormedAt:    formatTimePtr(o.FormedAt),
		CompletedAt: formatTimePtr(o.CompletedAt),
		UpdatedAt:   formatTime(o.UpdatedAt),
	}
}

type shipmentJSON struct {
	FromCity string  `json:"from_city"`
	ToCity   string  `json:"to_city"`
	Weight   float64 `json:"weight"`
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func (s shipmentJSON) toModel() model.ShipmentDetails {
	return model.ShipmentDetails{
		FromCity: s.FromCity,
		ToCity:   s.ToCity,
		Weight:   s.Weight,
		Length:   s.Length,
		Width:    s.Width,
		Height:   s.Height,
	}
}
