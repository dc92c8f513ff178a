// Package api содержит модули доступа к ресурсам бэкенда: авторизация, каталог,
// корзина и заявки. Имена полей протокола переводятся в доменные только здесь.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmeshcher/freight-storefront/internal/apiclient"
	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/session"
	"github.com/mmeshcher/freight-storefront/internal/validation"
)

// ErrEmptyResponse возвращается, если бэкенд ответил без ожидаемого объекта.
var ErrEmptyResponse = errors.New("empty response")

// Auth отвечает за авторизацию и профиль пользователя.
type Auth struct {
	client apiclient.Doer
}

// NewAuth создаёт модуль авторизации.
func NewAuth(c apiclient.Doer) *Auth {
	return &Auth{client: c}
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type registerRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

type authResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresAt    wireTime `json:"expires_at"`
	User         *userDTO `json:"user"`
}

func (r authResponse) toSession() (model.Session, error) {
	if r.AccessToken == "" || r.User == nil {
		return model.Session{}, ErrEmptyResponse
	}
	expires := r.ExpiresAt.Time
	if expires.IsZero() {
		expires = session.TokenExpiry(r.AccessToken)
	}
	return model.Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expires,
		User:         r.User.toModel(),
	}, nil
}

type profileResponse struct {
	Status string   `json:"status"`
	User   *userDTO `json:"user"`
}

type profileUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Login выполняет вход и возвращает новую сессию.
func (a *Auth) Login(ctx context.Context, c model.Credentials) (model.Session, error) {
	if err := validation.Credentials(c); err != nil {
		return model.Session{}, err
	}

	var resp authResponse
	err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/users/login",
		Body:   loginRequest{Login: c.Login, Password: c.Password},
	}, &resp)
	if err != nil {
		return model.Session{}, err
	}
	return resp.toSession()
}

// Register регистрирует пользователя и возвращает новую сессию.
func (a *Auth) Register(ctx context.Context, r model.RegisterRequest) (model.Session, error) {
	if err := validation.RegisterRequest(r); err != nil {
		return model.Session{}, err
	}

	var resp authResponse
	err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/users/register",
		Body: registerRequest{
			Login:    r.Login,
			Email:    r.Email,
			Name:     r.Name,
			Password: r.Password,
			Phone:    r.Phone,
			Role:     string(r.Role),
		},
	}, &resp)
	if err != nil {
		return model.Session{}, err
	}
	return resp.toSession()
}

// Logout сообщает бэкенду о выходе.
func (a *Auth) Logout(ctx context.Context) error {
	return a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPost,
		Path:   "/api/users/logout",
	}, nil)
}

// Profile возвращает профиль текущего пользователя.
func (a *Auth) Profile(ctx context.Context) (model.User, error) {
	var resp profileResponse
	err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/api/users/profile",
	}, &resp)
	if err != nil {
		return model.User{}, err
	}
	if resp.User == nil {
		return model.User{}, ErrEmptyResponse
	}
	return resp.User.toModel(), nil
}

// UpdateProfile частично обновляет профиль и возвращает результат.
func (a *Auth) UpdateProfile(ctx context.Context, p model.ProfileUpdate) (model.User, error) {
	var resp profileResponse
	err := a.client.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   "/api/users/profile",
		Body:   profileUpdateRequest{Name: p.Name, Email: p.Email, Phone: p.Phone},
	}, &resp)
	if err != nil {
		return model.User{}, err
	}
	if resp.User == nil {
		return model.User{}, ErrEmptyResponse
	}
	return resp.User.toModel(), nil
}
