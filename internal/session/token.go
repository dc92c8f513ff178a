package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry извлекает срок действия из JWT без проверки подписи.
// Подпись проверяет бэкенд; клиенту срок нужен только для отображения.
// Для непрозрачных токенов возвращается нулевое время.
func TokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
