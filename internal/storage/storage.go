// Package storage содержит реализации долговременного хранилища ключ-значение,
// в котором клиент хранит данные сессии между запусками.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound возвращается, если ключ отсутствует в хранилище.
var ErrNotFound = errors.New("key not found")

// Storage описывает долговременное хранилище ключ-значение.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
