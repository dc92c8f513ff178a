package store

import (
	"context"
	"sync/atomic"
)

type scopeKey struct{}

// Scope связывает операции с жизнью представления. После Close ответы
// операций, запущенных в контексте области, не применяются к состоянию,
// а незавершённые запросы отменяются.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewScope создаёт область, производную от parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	s := &Scope{cancel: cancel}
	s.ctx = context.WithValue(ctx, scopeKey{}, s)
	return s
}

// Context возвращает контекст для операций представления.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Close закрывает область. Повторный вызов безопасен.
func (s *Scope) Close() {
	s.closed.Store(true)
	s.cancel()
}

// Closed сообщает, закрыта ли область.
func (s *Scope) Closed() bool {
	return s.closed.Load()
}

// alive сообщает, нужен ли ещё результат операции, запущенной с ctx.
// Операции вне области применяются всегда.
func alive(ctx context.Context) bool {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return !ok || !s.Closed()
}
