// Package session управляет данными аутентификации в долговременном хранилище.
// Manager является единственной точкой чтения и записи токенов и профиля; HTTP-клиент
// и хранилище состояния получают его явно.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/freight-storefront/internal/model"
	"github.com/mmeshcher/freight-storefront/internal/storage"
)

// Ключи долговременного хранилища.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
	KeyServerIP     = "api_server_ip"
)

// Manager читает, сохраняет и очищает сессию.
type Manager struct {
	storage storage.Storage
	logger  *zap.Logger
}

// NewManager создаёт менеджер сессии поверх хранилища.
func NewManager(s storage.Storage, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{storage: s, logger: logger}
}

type storedUser struct {
	ID        int64     `json:"id"`
	UUID      string    `json:"uuid,omitempty"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func encodeUser(u model.User) (string, error) {
	raw, err := json.Marshal(storedUser{
		ID:        u.ID,
		UUID:      u.UUID,
		Login:     u.Login,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}
	return string(raw), nil
}

func decodeUser(raw string) (model.User, error) {
	var su storedUser
	if err := json.Unmarshal([]byte(raw), &su); err != nil {
		return model.User{}, fmt.Errorf("decode user: %w", err)
	}
	return model.User{
		ID:        su.ID,
		UUID:      su.UUID,
		Login:     su.Login,
		Email:     su.Email,
		Name:      su.Name,
		Phone:     su.Phone,
		Role:      model.Role(su.Role),
		CreatedAt: su.CreatedAt,
		UpdatedAt: su.UpdatedAt,
	}, nil
}

// Load возвращает сохранённую сессию. Второе значение false, если токен
// или профиль отсутствуют либо профиль не удалось разобрать.
func (m *Manager) Load(ctx context.Context) (model.Session, bool, error) {
	token, err := m.get(ctx, KeyAccessToken)
	if err != nil {
		return model.Session{}, false, err
	}
	rawUser, err := m.get(ctx, KeyUser)
	if err != nil {
		return model.Session{}, false, err
	}
	if token == "" || rawUser == "" {
		return model.Session{}, false, nil
	}

	user, err := decodeUser(rawUser)
	if err != nil {
		m.logger.Warn("failed to restore user from storage", zap.Error(err))
		return model.Session{}, false, nil
	}

	refresh, err := m.get(ctx, KeyRefreshToken)
	if err != nil {
		return model.Session{}, false, err
	}

	return model.Session{
		AccessToken:  token,
		RefreshToken: refresh,
		ExpiresAt:    TokenExpiry(token),
		User:         user,
	}, true, nil
}

// Save сохраняет пару токенов и профиль.
func (m *Manager) Save(ctx context.Context, s model.Session) error {
	rawUser, err := encodeUser(s.User)
	if err != nil {
		return err
	}
	if err := m.storage.Set(ctx, KeyAccessToken, s.AccessToken); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if err := m.storage.Set(ctx, KeyRefreshToken, s.RefreshToken); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	if err := m.storage.Set(ctx, KeyUser, rawUser); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// SaveUser перезаписывает только профиль пользователя.
func (m *Manager) SaveUser(ctx context.Context, u model.User) error {
	rawUser, err := encodeUser(u)
	if err != nil {
		return err
	}
	if err := m.storage.Set(ctx, KeyUser, rawUser); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Clear удаляет все поля сессии. Адрес сервера сохраняется.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.storage.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// AccessToken возвращает текущий токен доступа или пустую строку.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	return m.get(ctx, KeyAccessToken)
}

// ServerAddress возвращает сохранённый адрес сервера для desktop-режима.
func (m *Manager) ServerAddress(ctx context.Context) (string, error) {
	return m.get(ctx, KeyServerIP)
}

// SetServerAddress сохраняет адрес сервера для desktop-режима.
func (m *Manager) SetServerAddress(ctx context.Context, addr string) error {
	if addr == "" {
		return m.storage.Delete(ctx, KeyServerIP)
	}
	if err := m.storage.Set(ctx, KeyServerIP, addr); err != nil {
		return fmt.Errorf("save server address: %w", err)
	}
	return nil
}

func (m *Manager) get(ctx context.Context, key string) (string, error) {
	v, err := m.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}
