package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

// wireTime принимает RFC 3339, время без зоны, календарную дату, пустую строку и null.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	model.DateLayout,
}

func (t *wireTime) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("time must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported time format %q", s)
}

func (t *wireTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

type userDTO struct {
	ID        int64    `json:"id"`
	UUID      string   `json:"uuid"`
	Login     string   `json:"login"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Role      string   `json:"role"`
	CreatedAt wireTime `json:"created_at"`
	UpdatedAt wireTime `json:"updated_at"`
}

func (u userDTO) toModel() model.User {
	return model.User{
		ID:        u.ID,
		UUID:      u.UUID,
		Login:     u.Login,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      model.Role(u.Role),
		CreatedAt: u.CreatedAt.Time,
		UpdatedAt: u.UpdatedAt.Time,
	}
}

type serviceDTO struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	ImageURL     *string         `json:"image_url"`
	DeliveryDays int             `json:"delivery_days"`
	MaxWeight    float64         `json:"max_weight"`
	MaxVolume    float64         `json:"max_volume"`
	CreatedAt    wireTime        `json:"created_at"`
	UpdatedAt    wireTime        `json:"updated_at"`
}

func (s serviceDTO) toModel(assetHost string) model.Service {
	var image string
	if s.ImageURL != nil {
		image = RewriteImageURL(*s.ImageURL, assetHost)
	}
	return model.Service{
		ID:           s.ID,
		Name:         s.Name,
		Description:  s.Description,
		Price:        s.Price,
		ImageURL:     image,
		DeliveryDays: s.DeliveryDays,
		MaxWeight:    s.MaxWeight,
		MaxVolume:    s.MaxVolume,
		CreatedAt:    s.CreatedAt.Time,
		UpdatedAt:    s.UpdatedAt.Time,
	}
}

type lineItemDTO struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"logistic_request_id"`
	ServiceID int64       `json:"transport_service_id"`
	Quantity  int         `json:"quantity"`
	Comment   string      `json:"comment"`
	SortOrder int         `json:"sort_order"`
	Service   *serviceDTO `json:"service"`
}

type orderDTO struct {
	ID          int64           `json:"id"`
	SessionID   string          `json:"session_id"`
	IsDraft     bool            `json:"is_draft"`
	FromCity    string          `json:"from_city"`
	ToCity      string          `json:"to_city"`
	Weight      float64         `json:"weight"`
	Length      float64         `json:"length"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Services    []lineItemDTO   `json:"services"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	TotalDays   int             `json:"total_days"`
	Status      string          `json:"status"`
	CreatorID   int64           `json:"creator_id"`
	ModeratorID *int64          `json:"moderator_id"`
	CreatedAt   wireTime        `json:"created_at"`
	FormedAt    *wireTime       `json:"formed_at"`
	CompletedAt *wireTime       `json:"completed_at"`
	UpdatedAt   wireTime        `json:"updated_at"`
}

func (o orderDTO) toModel(assetHost string) model.Order {
	items := make([]model.LineItem, 0, len(o.Services))
	for _, li := range o.Services {
		item := model.LineItem{
			ID:        li.ID,
			OrderID:   li.OrderID,
			ServiceID: li.ServiceID,
			Quantity:  li.Quantity,
			Comment:   li.Comment,
			SortOrder: li.SortOrder,
		}
		if li.Service != nil {
			svc := li.Service.toModel(assetHost)
			item.Service = &svc
		}
		items = append(items, item)
	}

	return model.Order{
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
		Status:      model.OrderStatus(o.Status),
		CreatorID:   o.CreatorID,
		ModeratorID: o.ModeratorID,
		CreatedAt:   o.CreatedAt.Time,
		FormedAt:    o.FormedAt.ptr(),
		CompletedAt: o.CompletedAt.ptr(),
		UpdatedAt:   o.UpdatedAt.Time,
	}
}

type shipmentDTO struct {
	FromCity string  `json:"from_city"`
	ToCity   string  `json:"to_city"`
	Weight   float64 `json:"weight"`
	Length   float64 `json:"length"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

func newShipmentDTO(d model.ShipmentDetails) shipmentDTO {
	return shipmentDTO{
		FromCity: d.FromCity,
		ToCity:   d.ToCity,
		Weight:   d.Weight,
		Length:   d.Length,
		Width:    d.Width,
		Height:   d.Height,
	}
}

type orderPatchDTO struct {
	FromCity *string  `json:"from_city,omitempty"`
	ToCity   *string  `json:"to_city,omitempty"`
	Weight   *float64 `json:"weight,omitempty"`
	Length   *float64 `json:"length,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
}

type orderEnvelope struct {
	Status string    `json:"status"`
	Order  *orderDTO `json:"order"`
}
