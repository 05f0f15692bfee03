package matching

import (
	"fmt"
	"sync"

	"github.com/epic1st/optioncore/backend/internal/core"
)

// Registry holds one Engine per instrument symbol, enforcing the
// one-engine-per-symbol invariant a real venue registry would (spec.md
// §7's DuplicateSymbol: "a provider asked to add the same symbol twice;
// surfaced synchronously").
type Registry struct {
	mu      sync.Mutex
	engines map[string]*Engine
}

// NewRegistry returns an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*Engine)}
}

// Register adds a new Engine for symbol. It fails with
// core.ErrDuplicateSymbol if an engine for that symbol already exists.
func (r *Registry) Register(symbol string, e *Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[symbol]; exists {
		return fmt.Errorf("%w: %s", core.ErrDuplicateSymbol, symbol)
	}
	r.engines[symbol] = e
	return nil
}

// Engine returns the registered engine for symbol, if any.
func (r *Registry) Engine(symbol string) (*Engine, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[symbol]
	return e, ok
}

// Unregister removes the engine for symbol, if present.
func (r *Registry) Unregister(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.engines, symbol)
}
