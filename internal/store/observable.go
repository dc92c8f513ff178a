package store

import (
	"sync"
)

// Status описывает общую часть состояния слайсов с сетевыми операциями.
type Status struct {
	// IsLoading истинно, пока выполняется хотя бы одна операция слайса.
	IsLoading bool
	// Error содержит текст последней ошибки для показа пользователю.
	Error string
}

// observable хранит состояние слайса и рассылает его подписчикам.
//
// Срезы и указатели внутри состояния никогда не изменяются на месте:
// операции собирают новые значения, поэтому поверхностная копия безопасна.
type observable[S any] struct {
	mu       sync.Mutex
	state    S
	status   func(*S) *Status
	inflight int
	seq      uint64
	version  uint64
	subs     map[int]func(S)
	nextSub  int

	notifyMu  sync.Mutex
	delivered uint64
}

func newObservable[S any](initial S, status func(*S) *Status) *observable[S] {
	return &observable[S]{
		state:  initial,
		status: status,
		subs:   make(map[int]func(S)),
	}
}

func (o *observable[S]) snapshot() S {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// subscribe регистрирует подписчика и возвращает функцию отписки.
// Подписчик не должен синхронно вызывать операции того же слайса.
func (o *observable[S]) subscribe(fn func(S)) func() {
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// update синхронно меняет состояние. fn получает номер изменения для защиты
// полей от перезаписи устаревшими ответами.
func (o *observable[S]) update(fn func(s *S, seq uint64)) {
	o.mu.Lock()
	o.seq++
	fn(&o.state, o.seq)
	o.publishLocked()
}

// begin отмечает начало сетевой операции и возвращает её номер.
func (o *observable[S]) begin() uint64 {
	o.mu.Lock()
	o.seq++
	seq := o.seq
	o.inflight++
	if o.status != nil {
		st := o.status(&o.state)
		st.IsLoading = true
		st.Error = ""
	}
	o.publishLocked()
	return seq
}

// finish завершает операцию с номером seq. apply вызывается, только если
// результат ещё нужен (apply == nil означает «ничего не применять»).
func (o *observable[S]) finish(seq uint64, apply func(s *S, seq uint64)) {
	o.mu.Lock()
	o.inflight--
	if apply != nil {
		apply(&o.state, seq)
	}
	if o.status != nil {
		o.status(&o.state).IsLoading = o.inflight > 0
	}
	o.publishLocked()
}

// publishLocked снимает копию состояния, отпускает мьютекс и оповещает
// подписчиков. Более старое состояние не доставляется после более нового.
func (o *observable[S]) publishLocked() {
	o.version++
	version := o.version
	state := o.state
	subs := make([]func(S), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()

	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if version <= o.delivered {
		return
	}
	o.delivered = version
	for _, fn := range subs {
		fn(state)
	}
}
