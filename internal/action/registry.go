package action

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
)

// Info describes a registered action.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry maps action names to actions. It is populated at startup and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	actions map[string]Action
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds actions, rejecting empty and duplicate names.
func (r *Registry) Register(actions ...Action) error {
	for _, a := range actions {
		name := a.Name()
		if name == "" {
			return fmt.Errorf("registering action: empty name")
		}
		if _, exists := r.actions[name]; exists {
			return fmt.Errorf("registering action %q: already registered", name)
		}
		r.actions[name] = a
	}
	return nil
}

// MustRegister is Register for static wiring; it panics on error.
func (r *Registry) MustRegister(actions ...Action) {
	if err := r.Register(actions...); err != nil {
		panic(err)
	}
}

// Get returns the action registered under name.
func (r *Registry) Get(name string) (Action, error) {
	a, ok := r.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return a, nil
}

// List returns all registered actions sorted by name.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.actions))
	for _, a := range r.actions {
		infos = append(infos, Info{Name: a.Name(), Description: a.Description()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Invoke runs the named action with a JSON request.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) (any, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return a.Invoke(ctx, input)
}
