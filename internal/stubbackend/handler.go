package stubbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// Handler реализует HTTP-обработчики бэкенда грузоперевозок.
type Handler struct {
	backend *Backend
	logger  *zap.Logger
}

// NewHandler создаёт обработчики поверх бэкенда.
func NewHandler(b *Backend, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{backend: b, logger: logger}
}

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Status: "error", Error: msg})
}

func (h *Handler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return id, ok
}

type registerRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    string   `json:"expires_at"`
	User         userJSON `json:"user"`
}

func (h *Handler) issue(w http.ResponseWriter, status int, u model.User) {
	access, refresh, expires, err := h.backend.Tokens().Issue(u.ID)
	if err != nil {
		h.internalError(w, "issue token error", err)
		return
	}
	writeJSON(w, status, authResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    formatTime(expires),
		User:         newUserJSON(u),
	})
}

// Register создаёт пользователя и сразу выдаёт токены.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := model.RegisterRequest{
		Login:    req.Login,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     model.Role(req.Role),
	}
	form := validation.RegistrationForm{
		Login:           in.Login,
		Email:           in.Email,
		Name:            in.Name,
		Password:        in.Password,
		PasswordConfirm: in.Password,
		Phone:           in.Phone,
		Role:            req.Role,
	}
	if err := validation.Registration(form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.backend.Register(in)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusConflict, "user with this login already exists")
			return
		}
		h.internalError(w, "register user error", err)
		return
	}

	h.logger.Info("user registered", zap.Int64("user_id", u.ID), zap.String("login", u.Login))
	h.issue(w, http.StatusCreated, u)
}

// Login проверяет учётные данные и выдаёт токены.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Login == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	u, err := h.backend.Authenticate(req.Login, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid login or password")
		return
	}
	h.issue(w, http.StatusOK, u)
}

// Logout отзывает токен текущего пользователя.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := tokenFromContext(r.Context()); token != "" {
		h.backend.Tokens().Revoke(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type profileResponse struct {
	Status string   `json:"status"`
	User   userJSON `json:"user"`
}

// Profile возвращает профиль текущего пользователя.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	u, err := h.backend.Profile(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Status: "ok", User: newUserJSON(u)})
}

type profileUpdateRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// UpdateProfile частично обновляет профиль.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := model.ProfileUpdate{Name: req.Name, Email: req.Email, Phone: req.Phone}
	if err := validation.Profile(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.backend.UpdateProfile(userID, p)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Status: "ok", User: newUserJSON(u)})
}

func parseServiceFilters(r *http.Request) (model.ServiceFilters, error) {
	q := r.URL.Query()
	f := model.ServiceFilters{
		Search:   q.Get("search"),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}
	if v := q.Get("minPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, err
		}
		f.MinPrice = &d
	}
	if v := q.Get("maxPrice"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return f, err
		}
		f.MaxPrice = &d
	}
	return f, nil
}

// ListServices возвращает каталог с фильтрами из параметров запроса.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	f, err := parseServiceFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price filter")
		return
	}
	services := h.backend.Services(f)
	writeJSON(w, http.StatusOK, map[string]any{"services": newServicesJSON(services)})
}

// ListServicesArray возвращает каталог массивом, как это делают старые версии бэкенда.
func (h *Handler) ListServicesArray(w http.ResponseWriter, r *http.Request) {
	f, err := parseServiceFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price filter")
		return
	}
	writeJSON(w, http.StatusOK, newServicesJSON(h.backend.Services(f)))
}

// GetService возвращает услугу по идентификатору.
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}
	s, err := h.backend.Service(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service": newServiceJSON(s)})
}

type addResponse struct {
	Success   bool   `json:"success"`
	Count     int    `json:"count"`
	RequestID int64  `json:"request_id"`
	Message   string `json:"message"`
}

// AddToCart добавляет услугу в черновик текущего пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	serviceID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid service id")
		return
	}

	count, orderID, err := h.backend.AddToCart(userID, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		h.internalError(w, "add to cart error", err)
		return
	}

	h.logger.Debug("service added to cart",
		zap.Int64("user_id", userID),
		zap.Int64("service_id", serviceID),
		zap.Int64("order_id", orderID),
		zap.Int("count", count),
	)
	writeJSON(w, http.StatusOK, addResponse{
		Success:   true,
		Count:     count,
		RequestID: orderID,
		Message:   "service added to cart",
	})
}

type cartResponse struct {
	Cart     *orderJSON    `json:"cart"`
	Services []serviceJSON `json:"services"`
	Count    int           `json:"count"`
}

// GetCart возвращает черновик пользователя. Анонимный пользователь получает пустую корзину.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	resp := cartResponse{Services: []serviceJSON{}}

	if userID, ok := UserIDFromContext(r.Context()); ok {
		if draft, count := h.backend.Cart(userID); draft != nil {
			o := newOrderJSON(*draft)
			resp.Cart = &o
			resp.Count = count
			for _, li := range draft.Services {
				if li.Service != nil {
					resp.Services = append(resp.Services, newServiceJSON(*li.Service))
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type cartIconResponse struct {
	Count     int   `json:"count"`
	RealCount int   `json:"real_count"`
	RequestID int64 `json:"request_id"`
}

// CartIcon возвращает значение бейджа. count всегда -1, чтобы промежуточные
// кэши не отдавали устаревшее значение; настоящее значение в real_count.
func (h *Handler) CartIcon(w http.ResponseWriter, r *http.Request) {
	resp := cartIconResponse{Count: -1}

	if userID, ok := UserIDFromContext(r.Context()); ok {
		if draft, count := h.backend.Cart(userID); draft != nil {
			resp.RealCount = count
			resp.RequestID = draft.ID
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// ClearCart удаляет черновик пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	h.backend.ClearCart(userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type orderEnvelope struct {
	Status string    `json:"status"`
	Order  orderJSON `json:"order"`
}

func (h *Handler) orderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrLineItemNotFound):
		writeError(w, http.StatusNotFound, "service is not in the order")
	case errors.Is(err, ErrNotDraft):
		writeError(w, http.StatusBadRequest, "order is not a draft")
	case errors.Is(err, ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, "order has no services")
	default:
		h.internalError(w, "order operation error", err)
	}
}

// ListOrders возвращает заявки пользователя с фильтрами status, date_from, date_to.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	orders := h.backend.Orders(userID, model.OrdersFilter{
		Status:   model.OrderStatus(q.Get("status")),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	})

	out := make([]orderJSON, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "orders": out})
}

// GetOrder возвращает заявку пользователя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	o, err := h.backend.Order(userID, id)
	if err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Status: "ok", Order: newOrderJSON(o)})
}

type orderPatchRequest struct {
	FromCity *string  `json:"from_city"`
	ToCity   *string  `json:"to_city"`
	Weight   *float64 `json:"weight"`
	Length   *float64 `json:"length"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
}

// UpdateOrder меняет поля черновика.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	var req orderPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.backend.UpdateOrder(userID, id, model.OrderPatch{
		FromCity: req.FromCity,
		ToCity:   req.ToCity,
		Weight:   req.Weight,
		Length:   req.Length,
		Width:    req.Width,
		Height:   req.Height,
	})
	if err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Status: "ok", Order: newOrderJSON(o)})
}

// RemoveLineItem удаляет услугу из черновика.
func (h *Handler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderID, ok1 := pathID(r, "id")
	serviceID, ok2 := pathID(r, "serviceID")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid identifier")
		return
	}
	if err := h.backend.RemoveLineItem(userID, orderID, serviceID); err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// UpdateLineItem меняет количество услуги в черновике.
func (h *Handler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderID, ok1 := pathID(r, "id")
	serviceID, ok2 := pathID(r, "serviceID")
	if !ok1 || !ok2 {
		writeError(w, http.StatusBadRequest, "invalid identifier")
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}
	if err := h.backend.UpdateLineItem(userID, orderID, serviceID, req.Quantity); err != nil {
		h.orderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeShipment(r *http.Request) (model.ShipmentDetails, error) {
	var req shipmentJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.ShipmentDetails{}, err
	}
	d := req.toModel()
	return d, validation.Shipment(d)
}

// FormOrder переводит черновик в статус formed. Ответ содержит только статус.
func (h *Handler) FormOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	d, err := decodeShipment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.backend.FormOrder(userID, id, d); err != nil {
		h.orderError(w, err)
		return
	}

	h.logger.Info("order formed", zap.Int64("user_id", userID), zap.Int64("order_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitOrder создаёт и формирует заявку одним запросом.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	d, err := decodeShipment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o := h.backend.SubmitOrder(userID, d)
	h.logger.Info("order submitted", zap.Int64("user_id", userID), zap.Int64("order_id", o.ID))
	writeJSON(w, http.StatusCreated, orderEnvelope{Status: "ok", Order: newOrderJSON(o)})
}
