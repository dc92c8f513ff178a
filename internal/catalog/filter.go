package catalog

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/mmeshcher/freight-storefront/internal/model"
)

// Matches сообщает, удовлетворяет ли услуга фильтрам:
// подстрока поиска в названии или описании без учёта регистра,
// цена в [MinPrice, MaxPrice], дата создания в [DateFrom, DateTo] включительно.
// Даты сравниваются как календарные (YYYY-MM-DD, UTC).
func Matches(s model.Service, f model.ServiceFilters) bool {
	if f.Search != "" {
		fold := cases.Fold()
		needle := fold.String(f.Search)
		if !strings.Contains(fold.String(s.Name), needle) && !strings.Contains(fold.String(s.Description), needle) {
			return false
		}
	}

	if f.MinPrice != nil && s.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && s.Price.GreaterThan(*f.MaxPrice) {
		return false
	}

	if f.DateFrom != "" || f.DateTo != "" {
		created := s.CreatedAt.UTC().Format(model.DateLayout)
		if f.DateFrom != "" && created < f.DateFrom {
			return false
		}
		if f.DateTo != "" && created > f.DateTo {
			return false
		}
	}

	return true
}

// Filter возвращает услуги, удовлетворяющие фильтрам, в исходном порядке.
func Filter(services []model.Service, f model.ServiceFilters) []model.Service {
	out := make([]model.Service, 0, len(services))
	for _, s := range services {
		if Matches(s, f) {
			out = append(out, s)
		}
	}
	return out
}
