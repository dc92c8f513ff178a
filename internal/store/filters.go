package store

import (
	"github.com/mmeshcher/freight-storefront/internal/model"
)

// FiltersState хранит критерии каталога между переходами по экранам.
type FiltersState struct {
	Filters model.ServiceFilters
}

// FiltersSlice хранит фильтры каталога. Операции синхронные.
type FiltersSlice struct {
	obs *observable[FiltersState]
}

func newFiltersSlice() *FiltersSlice {
	return &FiltersSlice{obs: newObservable(FiltersState{}, nil)}
}

// Snapshot возвращает текущее состояние.
func (f *FiltersSlice) Snapshot() FiltersState {
	return f.obs.snapshot()
}

// Subscribe подписывает fn на изменения состояния.
func (f *FiltersSlice) Subscribe(fn func(FiltersState)) (unsubscribe func()) {
	return f.obs.subscribe(fn)
}

// SetFilters заменяет фильтры целиком.
func (f *FiltersSlice) SetFilters(v model.ServiceFilters) {
	f.obs.update(func(s *FiltersState, _ uint64) {
		s.Filters = v
	})
}

// ClearFilters сбрасывает все критерии.
func (f *FiltersSlice) ClearFilters() {
	f.obs.update(func(s *FiltersState, _ uint64) {
		s.Filters = model.ServiceFilters{}
	})
}

// UpdateFilter частично обновляет фильтры.
func (f *FiltersSlice) UpdateFilter(p model.ServiceFiltersPatch) {
	f.obs.update(func(s *FiltersState, _ uint64) {
		s.Filters = s.Filters.Merge(p)
	})
}
