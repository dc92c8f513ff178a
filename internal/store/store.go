// Package store содержит состояние клиента: авторизацию, корзину, заявки и
// фильтры каталога. Представления читают снимки состояния и подписываются
// на изменения, сетевые операции выполняются через модули api.
package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/api"
	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// AuthAPI описывает операции авторизации, которые использует стор.
type AuthAPI interface {
	Login(ctx context.Context, c model.Credentials) (model.Session, error)
	Register(ctx context.Context, r model.RegisterRequest) (model.Session, error)
	Logout(ctx context.Context) error
	Profile(ctx context.Context) (model.User, error)
	UpdateProfile(ctx context.Context, p model.ProfileUpdate) (model.User, error)
}

// CartAPI описывает операции корзины.
type CartAPI interface {
	Add(ctx context.Context, serviceID int64) (api.AddResult, error)
	Get(ctx context.Context) (model.Cart, error)
	Count(ctx context.Context) (model.CartCount, error)
	Clear(ctx context.Context) error
}

// OrdersAPI описывает операции заявок.
type OrdersAPI interface {
	List(ctx context.Context, f model.OrdersFilter) ([]model.Order, error)
	Get(ctx context.Context, id int64) (model.Order, error)
	Update(ctx context.Context, id int64, p model.OrderPatch) (model.Order, error)
	RemoveService(ctx context.Context, orderID, serviceID int64) error
	UpdateService(ctx context.Context, orderID, serviceID int64, quantity int) error
	Form(ctx context.Context, id int64, d model.ShipmentDetails) (model.Order, error)
	Submit(ctx context.Context, d model.ShipmentDetails) (model.Order, error)
}

// Sessions описывает долговременное хранилище сессии.
type Sessions interface {
	Load(ctx context.Context) (model.Session, bool, error)
	Save(ctx context.Context, s model.Session) error
	SaveUser(ctx context.Context, u model.User) error
	Clear(ctx context.Context) error
}

// UnauthorizedNotifier оповещает о получении ответа 401.
type UnauthorizedNotifier interface {
	OnUnauthorized(fn func())
}

// Deps содержит зависимости стора.
type Deps struct {
	Auth     AuthAPI
	Cart     CartAPI
	Orders   OrdersAPI
	Sessions Sessions
	// Events может быть nil; тогда 401 не сбрасывает состояние автоматически.
	Events UnauthorizedNotifier
	Logger *zap.Logger
}

// Store объединяет слайсы состояния клиента.
type Store struct {
	Auth    *AuthSlice
	Cart    *CartSlice
	Orders  *OrdersSlice
	Filters *FiltersSlice

	logger *zap.Logger
}

// New создаёт стор и подписывает его на ответы 401.
func New(d Deps) *Store {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{logger: logger}
	s.Cart = newCartSlice(d.Cart, logger)
	s.Orders = newOrdersSlice(d.Orders, logger, s.Cart.ResetCart)
	s.Filters = newFiltersSlice()
	s.Auth = newAuthSlice(d.Auth, d.Sessions, logger, s.resetUserData)

	if d.Events != nil {
		d.Events.OnUnauthorized(s.teardown)
	}
	return s
}

// resetUserData сбрасывает данные, принадлежащие пользователю.
// Фильтры каталога от пользователя не зависят и сохраняются.
func (s *Store) resetUserData() {
	s.Cart.ResetCart()
	s.Orders.reset()
}

// teardown вызывается адаптером после очистки сессии на ответ 401.
func (s *Store) teardown() {
	s.logger.Info("session revoked by backend, resetting state")
	s.Auth.reset()
	s.resetUserData()
}

// errorMessage возвращает текст ошибки для поля Error слайса.
func errorMessage(err error, fallback string) string {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return apiclient.Message(err, fallback)
}
