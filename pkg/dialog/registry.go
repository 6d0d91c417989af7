package dialog

import (
	"fmt"
	"sync"

	"github.com/parleyio/parley/pkg/domain"
)

// Registry maps dialog ids to definitions. Registration happens once at
// startup; the registry is immutable while serving traffic. Components carry
// their own child registry, so two components may reuse the same local id
// without collision.
type Registry struct {
	mu      sync.RWMutex
	dialogs map[string]Dialog
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		dialogs: make(map[string]Dialog),
	}
}

// Register adds a dialog definition. Duplicate registration is a programmer
// error and fails immediately.
func (r *Registry) Register(d Dialog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dialogs[d.ID()]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateDialog, d.ID())
	}
	r.dialogs[d.ID()] = d
	return nil
}

// MustRegister is Register for startup wiring; it panics on duplicates.
func (r *Registry) MustRegister(dialogs ...Dialog) *Registry {
	for _, d := range dialogs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Resolve returns the definition for an id.
func (r *Registry) Resolve(id string) (Dialog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.dialogs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDialogNotFound, id)
	}
	return d, nil
}

// IDs returns the registered ids, for introspection.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.dialogs))
	for id := range r.dialogs {
		ids = append(ids, id)
	}
	return ids
}
