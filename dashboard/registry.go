// Package dashboard keeps a set of independent widgets live against the API.
//
// Widgets are declared once in a Registry. A Dispatcher refreshes all of them
// in cycles: every cycle owns one cancellation scope, a new cycle cancels the
// previous one, and a failing widget never affects its siblings.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RenderFunc applies a successful payload to a widget's display.
type RenderFunc func(payload json.RawMessage) error

// Bind adapts a typed render function into a RenderFunc. The payload is
// decoded into T before fn is called; a decoding failure fails the widget.
func Bind[T any](fn func(T)) RenderFunc {
	return func(payload json.RawMessage) error {
		var v T
		if err := json.Unmarshal(payload, &v); err != nil {
			return fmt.Errorf("decoding payload: %w", err)
		}
		fn(v)
		return nil
	}
}

// Descriptor declares one widget. Descriptors are immutable once registered.
type Descriptor struct {
	Name     string
	Endpoint string
	// Chart widgets keep their last frame while loading and redraw in place.
	Chart  bool
	Render RenderFunc
}

// Registry is the ordered, fixed set of widgets.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

// NewRegistry validates and registers descs in order.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(descs))}
	for _, d := range descs {
		switch {
		case d.Name == "":
			return nil, errors.New("widget name is required")
		case d.Endpoint == "":
			return nil, fmt.Errorf("widget %q: endpoint is required", d.Name)
		case d.Render == nil:
			return nil, fmt.Errorf("widget %q: renderer is required", d.Name)
		}
		if _, dup := r.index[d.Name]; dup {
			return nil, fmt.Errorf("widget %q registered twice", d.Name)
		}
		r.index[d.Name] = len(r.descs)
		r.descs = append(r.descs, d)
	}
	return r, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descs[i], true
}

// All returns the descriptors in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.descs))
	copy(out, r.descs)
	return out
}

// Names returns widget names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.descs))
	for i, d := range r.descs {
		names[i] = d.Name
	}
	return names
}

// Len returns the number of registered widgets.
func (r *Registry) Len() int {
	return len(r.descs)
}
