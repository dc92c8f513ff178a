package apiclient

import (
	"errors"
	"fmt"
)

// ErrUnauthorized сопоставляется с *AuthError через errors.Is.
var ErrUnauthorized = errors.New("unauthorized")

// NetworkError описывает запрос, который не завершился или вернул статус не 2xx.
type NetworkError struct {
	Method string
	Path   string
	// Status равен нулю, если ответ не был получен.
	Status int
	// Message содержит текст ошибки из тела ответа бэкенда, если он есть.
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Status)
	}
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError возвращается на ответ 401. К моменту возврата сессия уже очищена.
type AuthError struct {
	Method  string
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: unauthorized: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: unauthorized", e.Method, e.Path)
}

func (e *AuthError) Is(target error) bool { return target == ErrUnauthorized }

// ServerMessage возвращает текст ошибки, присланный бэкендом.
func ServerMessage(err error) (string, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message, true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) && netErr.Message != "" {
		return netErr.Message, true
	}
	return "", false
}

// Message возвращает текст для показа пользователю: сообщение бэкенда,
// а если его нет, fallback.
func Message(err error, fallback string) string {
	if msg, ok := ServerMessage(err); ok {
		return msg
	}
	return fallback
}
