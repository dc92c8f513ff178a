// Package stubbackend реализует in-memory бэкенд сервиса грузоперевозок по тому же
// HTTP-контракту, что и настоящий. Используется в контрактных тестах клиента и
// для локального запуска freightctl без реального сервера.
package stubbackend

import (
	"crypto/sha256"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/freight-storefront/internal/catalog"
	"github.com/mmeshcher/freight-storefront/internal/model"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrServiceNotFound возвращается, если услуги нет в каталоге.
	ErrServiceNotFound = errors.New("service not found")
	// ErrOrderNotFound возвращается, если заявка не найдена или принадлежит другому пользователю.
	ErrOrderNotFound = errors.New("order not found")
	// ErrLineItemNotFound возвращается, если услуги нет в заявке.
	ErrLineItemNotFound = errors.New("service is not in the order")
	// ErrNotDraft возвращается при попытке изменить заявку не в статусе черновика.
	ErrNotDraft = errors.New("order is not a draft")
	// ErrEmptyOrder возвращается при формировании заявки без услуг.
	ErrEmptyOrder = errors.New("order has no services")
	// ErrInvalidTransition возвращается при недопустимой смене статуса.
	ErrInvalidTransition = errors.New("invalid status transition")
)

type userRecord struct {
	user         model.User
	passwordHash []byte
}

// Backend хранит пользователей, каталог и заявки в памяти.
// Все изменения черновика сериализуются мьютексом.
type Backend struct {
	mu sync.Mutex

	tokens *TokenIssuer

	usersByLogin map[string]*userRecord
	usersByID    map[int64]*userRecord
	services     []model.Service
	orders       map[int64]*model.Order
	drafts       map[int64]int64

	nextUserID  int64
	nextOrderID int64
	nextItemID  int64

	now func() time.Time
}

// New создаёт бэкенд со встроенным каталогом услуг.
func New(secret string) *Backend {
	return &Backend{
		tokens:       NewTokenIssuer(secret, 15*time.Minute),
		usersByLogin: make(map[string]*userRecord),
		usersByID:    make(map[int64]*userRecord),
		services:     catalog.Sample(),
		orders:       make(map[int64]*model.Order),
		drafts:       make(map[int64]int64),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Tokens возвращает выпускающего токены.
func (b *Backend) Tokens() *TokenIssuer {
	return b.tokens
}

// SetServices заменяет каталог услуг.
func (b *Backend) SetServices(services []model.Service) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services = append([]model.Service(nil), services...)
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// Register создаёт пользователя. Роль по умолчанию buyer.
func (b *Backend) Register(r model.RegisterRequest) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.usersByLogin[r.Login]; ok {
		return model.User{}, ErrUserExists
	}

	role := r.Role
	if !role.Valid() {
		role = model.RoleBuyer
	}

	b.nextUserID++
	now := b.now()
	rec := &userRecord{
		user: model.User{
			ID:        b.nextUserID,
			UUID:      uuid.NewString(),
			Login:     r.Login,
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hashPassword(r.Login, r.Password),
	}
	b.usersByLogin[r.Login] = rec
	b.usersByID[rec.user.ID] = rec

	return rec.user, nil
}

// Authenticate проверяет логин и пароль.
func (b *Backend) Authenticate(login, password string) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.usersByLogin[login]
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if string(rec.passwordHash) != string(hashPassword(login, password)) {
		return model.User{}, ErrInvalidCredentials
	}
	return rec.user, nil
}

// Profile возвращает профиль пользователя.
func (b *Backend) Profile(userID int64) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.usersByID[userID]
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	return rec.user, nil
}

// UpdateProfile частично обновляет профиль.
func (b *Backend) UpdateProfile(userID int64, p model.ProfileUpdate) (model.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.usersByID[userID]
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if p.Name != nil {
		rec.user.Name = *p.Name
	}
	if p.Email != nil {
		rec.user.Email = *p.Email
	}
	if p.Phone != nil {
		rec.user.Phone = *p.Phone
	}
	rec.user.UpdatedAt = b.now()
	return rec.user, nil
}

// Services возвращает каталог, отфильтрованный так же, как это делает встроенный каталог клиента.
func (b *Backend) Services(f model.ServiceFilters) []model.Service {
	b.mu.Lock()
	defer b.mu.Unlock()
	return catalog.Filter(b.services, f)
}

// Service возвращает услугу по идентификатору.
func (b *Backend) Service(id int64) (model.Service, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.serviceLocked(id)
}

func (b *Backend) serviceLocked(id int64) (model.Service, error) {
	for _, s := range b.services {
		if s.ID == id {
			return s, nil
		}
	}
	return model.Service{}, ErrServiceNotFound
}

// AddToCart добавляет услугу в черновик пользователя, создавая черновик при необходимости.
// Повторное добавление увеличивает количество.
func (b *Backend) AddToCart(userID, serviceID int64) (int, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	svc, err := b.serviceLocked(serviceID)
	if err != nil {
		return 0, 0, err
	}

	draft := b.draftLocked(userID, true)
	found := false
	for i := range draft.Services {
		if draft.Services[i].ServiceID == serviceID {
			draft.Services[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		b.nextItemID++
		s := svc
		draft.Services = append(draft.Services, model.LineItem{
			ID:        b.nextItemID,
			OrderID:   draft.ID,
			ServiceID: serviceID,
			Quantity:  1,
			SortOrder: len(draft.Services) + 1,
			Service:   &s,
		})
	}
	b.recalcLocked(draft)

	return draft.ItemCount(), draft.ID, nil
}

func (b *Backend) draftLocked(userID int64, create bool) *model.Order {
	if id, ok := b.drafts[userID]; ok {
		if o, ok := b.orders[id]; ok && o.Status == model.OrderStatusDraft {
			return o
		}
		delete(b.drafts, userID)
	}
	if !create {
		return nil
	}

	b.nextOrderID++
	now := b.now()
	o := &model.Order{
		ID:        b.nextOrderID,
		IsDraft:   true,
		Status:    model.OrderStatusDraft,
		CreatorID: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.orders[o.ID] = o
	b.drafts[userID] = o.ID
	return o
}

func (b *Backend) recalcLocked(o *model.Order) {
	total := decimal.Zero
	days := 0
	for _, li := range o.Services {
		if li.Service == nil {
			continue
		}
		total = total.Add(li.Service.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
		if li.Service.DeliveryDays > days {
			days = li.Service.DeliveryDays
		}
	}
	o.TotalCost = total
	o.TotalDays = days
	o.UpdatedAt = b.now()
}

// Cart возвращает копию черновика пользователя (nil, если его нет) и количество позиций.
func (b *Backend) Cart(userID int64) (*model.Order, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	draft := b.draftLocked(userID, false)
	if draft == nil {
		return nil, 0
	}
	c := cloneOrder(draft)
	return &c, draft.ItemCount()
}

// ClearCart помечает черновик пользователя удалённым.
func (b *Backend) ClearCart(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	draft := b.draftLocked(userID, false)
	if draft == nil {
		return
	}
	draft.Status = model.OrderStatusDeleted
	draft.IsDraft = false
	draft.UpdatedAt = b.now()
	delete(b.drafts, userID)
}

// Orders возвращает заявки пользователя. Удалённые заявки возвращаются только
// при явном фильтре по статусу deleted.
func (b *Backend) Orders(userID int64, f model.OrdersFilter) []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []model.Order
	for _, o := range b.orders {
		if o.CreatorID != userID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.Status == "" && o.Status == model.OrderStatusDeleted {
			continue
		}
		created := o.CreatedAt.Format(model.DateLayout)
		if f.DateFrom != "" && created < f.DateFrom {
			continue
		}
		if f.DateTo != "" && created > f.DateTo {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Order возвращает заявку пользователя.
func (b *Backend) Order(userID, id int64) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.ownedLocked(userID, id)
	if err != nil {
		return model.Order{}, err
	}
	return cloneOrder(o), nil
}

func (b *Backend) ownedLocked(userID, id int64) (*model.Order, error) {
	o, ok := b.orders[id]
	if !ok || o.CreatorID != userID {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (b *Backend) ownedDraftLocked(userID, id int64) (*model.Order, error) {
	o, err := b.ownedLocked(userID, id)
	if err != nil {
		return nil, err
	}
	if o.Status != model.OrderStatusDraft {
		return nil, ErrNotDraft
	}
	return o, nil
}

// UpdateOrder меняет поля черновика.
func (b *Backend) UpdateOrder(userID, id int64, p model.OrderPatch) (model.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.ownedDraftLocked(userID, id)
	if err != nil {
		return model.Order{}, err
	}
	if p.FromCity != nil {
		o.FromCity = *p.FromCity
	}
	if p.ToCity != nil {
		o.ToCity = *p.ToCity
	}
	if p.Weight != nil {
		o.Weight = *p.Weight
	}
	if p.Length != nil {
		o.Length = *p.Length
	}
	if p.Width != nil {
		o.Width = *p.Width
	}
	if p.Height != nil {
		o.Height = *p.Height
	}
	o.UpdatedAt = b.now()
	return cloneOrder(o), nil
}

// RemoveLineItem удаляет услугу из черновика.
func (b *Backend) RemoveLineItem(userID, orderID, serviceID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.ownedDraftLocked(userID, orderID)
	if err != nil {
		return err
	}
	for i, li := range o.Services {
		if li.ServiceID == serviceID {
			o.Services = append(o.Services[:i:i], o.Services[i+1:]...)
			b.recalcLocked(o)
			return nil
		}
	}
	return ErrLineItemNotFound
}

// UpdateLineItem меняет количество услуги в черновике.
func (b *Backend) UpdateLineItem(userID, orderID, serviceID int64, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.ownedDraftLocked(userID, orderID)
	if err != nil {
		return err
	}
	for i := range o.Services {
		if o.Services[i].ServiceID == serviceID {
			o.Services[i].Quantity = quantity
			b.recalcLocked(o)
			return nil
		}
	}
	return ErrLineItemNotFound
}

// FormOrder переводит черновик в статус formed.
func (b *Backend) FormOrder(userID, id int64, d model.ShipmentDetails) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, err := b.ownedDraftLocked(userID, id)
	if err != nil {
		return err
	}
	if len(o.Services) == 0 {
		return ErrEmptyOrder
	}
	b.formLocked(o, d)
	delete(b.drafts, userID)
	return nil
}

func (b *Backend) formLocked(o *model.Order, d model.ShipmentDetails) {
	now := b.now()
	o.FromCity = d.FromCity
	o.ToCity = d.ToCity
	o.Weight = d.Weight
	o.Length = d.Length
	o.Width = d.Width
	o.Height = d.Height
	o.Status = model.OrderStatusFormed
	o.IsDraft = false
	o.FormedAt = &now
	o.UpdatedAt = now
}

// SubmitOrder формирует заявку одним вызовом: текущий черновик пользователя,
// если он есть, иначе новую заявку.
func (b *Backend) SubmitOrder(userID int64, d model.ShipmentDetails) model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	o := b.draftLocked(userID, true)
	b.formLocked(o, d)
	delete(b.drafts, userID)
	return cloneOrder(o)
}

// Moderate выполняет переход, доступный только модератору бэкенда.
func (b *Backend) Moderate(orderID int64, status model.OrderStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != model.OrderStatusFormed || (status != model.OrderStatusCompleted && status != model.OrderStatusRejected) {
		return ErrInvalidTransition
	}
	now := b.now()
	o.Status = status
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

func cloneOrder(o *model.Order) model.Order {
	c := *o
	c.Services = make([]model.LineItem, len(o.Services))
	copy(c.Services, o.Services)
	return c
}
