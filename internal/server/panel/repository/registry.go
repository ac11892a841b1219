package repository

import (
	"fmt"
	"sync"

	"github.com/Alwanly/guang-panel/internal/config"
	"github.com/Alwanly/guang-panel/internal/models"
)

// Registry maps facility names to their backend identifiers and holds the
// last worker count the backend reported for each of them.
type Registry struct {
	mu         sync.RWMutex
	facilities map[string]*models.Facility
	order      []string
}

// NewRegistry builds a registry from configuration entries
func NewRegistry(entries []config.FacilityConfig) (*Registry, error) {
	r := &Registry{facilities: make(map[string]*models.Facility, len(entries))}

	for _, e := range entries {
		if e.Name == "" || e.BackendID == "" {
			return nil, fmt.Errorf("facility %q: name and backend id are required", e.Name)
		}
		if _, exists := r.facilities[e.Name]; exists {
			return nil, fmt.Errorf("facility %s registered twice", e.Name)
		}
		countKey := e.CountKey
		if countKey == "" {
			countKey = e.Name
		}
		r.facilities[e.Name] = &models.Facility{
			Name:          e.Name,
			BackendID:     e.BackendID,
			CountKey:      countKey,
			DefaultAmount: e.DefaultAmount,
		}
		r.order = append(r.order, e.Name)
	}

	return r, nil
}

// Lookup returns a copy of the named facility
func (r *Registry) Lookup(name string) (models.Facility, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.facilities[name]
	if !ok {
		return models.Facility{}, false
	}
	return *f, true
}

// SetCount stores the count the backend reported for a facility
func (r *Registry) SetCount(name string, count int) (models.Facility, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.facilities[name]
	if !ok {
		return models.Facility{}, false
	}
	f.Count = count
	return *f, true
}

// ApplyCounts updates every facility whose count key is present in counts
// and returns the names of the facilities that were updated.
func (r *Registry) ApplyCounts(counts map[string]int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var updated []string
	for _, name := range r.order {
		f := r.facilities[name]
		if n, ok := counts[f.CountKey]; ok {
			f.Count = n
			updated = append(updated, name)
		}
	}
	return updated
}

// List returns all facilities in registration order
func (r *Registry) List() []models.Facility {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Facility, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.facilities[name])
	}
	return out
}
