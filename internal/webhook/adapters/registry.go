package adapters

import (
	"strings"

	"github.com/irensaltali/fax-app-backend/internal/webhook/domain"
)

// Registry holds one verified adapter per webhook sender.
type Registry struct {
	adapters map[string]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	byName := make(map[string]domain.Adapter, len(adapters))
	for _, a := range adapters {
		if a == nil {
			continue
		}
		byName[strings.ToLower(a.Provider())] = a
	}
	return &Registry{adapters: byName}
}

func (r *Registry) Adapter(provider string) (domain.Adapter, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(provider))]
	return a, ok
}
