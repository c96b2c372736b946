package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ejseo87/openai-assistants-2025/internal/remote"
)

// Registry maps tool names to definitions. It is filled once at startup and
// only read afterwards; the lock covers late registration in tests.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]ToolDefinition
	order []string
}

// NewRegistry registers defs in order and fails on the first duplicate.
func NewRegistry(defs ...ToolDefinition) (*Registry, error) {
	r := &Registry{defs: make(map[string]ToolDefinition, len(defs))}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(def ToolDefinition) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return fmt.Errorf("register tool: name is empty")
	}
	if def.Function == nil {
		return fmt.Errorf("register tool %q: handler is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.defs[name] = def
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Resolve(name string) (ToolDefinition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return ToolDefinition{}, fmt.Errorf("%w %q", ErrUnknownTool, name)
	}
	return def, nil
}

// Names returns registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns the declarations to advertise when the assistant is defined.
func (r *Registry) Schemas() []remote.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]remote.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].Schema())
	}
	return out
}
