// Package model содержит доменные сущности клиента сервиса грузоперевозок.
package model

import (
	"time"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleBuyer   Role = "buyer"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User представляет профиль аутентифицированного пользователя.
type User struct {
	ID        int64
	UUID      string
	Login     string
	Name      string
	Email     string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session связывает пару токенов с профилем пользователя.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// Credentials содержит данные для входа.
type Credentials struct {
	Login    string
	Password string
}

// RegisterRequest содержит данные регистрации нового пользователя.
type RegisterRequest struct {
	Login    string
	Email    string
	Name     string
	Password string
	Phone    string
	Role     Role
}

// ProfileUpdate описывает частичное обновление профиля. Nil-поля не меняются.
type ProfileUpdate struct {
	Name  *string
	Email *string
	Phone *string
}

// Empty сообщает, что обновление не содержит ни одного поля.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil
}
