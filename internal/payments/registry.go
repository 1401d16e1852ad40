package payments

import (
	"fmt"
)

// Registry maps a method to its adapter. It is assembled once at startup and
// read concurrently afterwards.
type Registry struct {
	gateways map[Method]Gateway
}

func NewRegistry(gateways ...Gateway) (*Registry, error) {
	r := &Registry{gateways: make(map[Method]Gateway, len(gateways))}
	for _, g := range gateways {
		m := g.Supports()
		if !m.Valid() {
			return nil, fmt.Errorf("%w: adapter declares unknown method %q", ErrConfiguration, m)
		}
		if _, dup := r.gateways[m]; dup {
			return nil, fmt.Errorf("%w: more than one adapter for %s", ErrConfiguration, m)
		}
		r.gateways[m] = g
	}
	return r, nil
}

// Of returns the adapter for m.
func (r *Registry) Of(m Method) (Gateway, error) {
	g, ok := r.gateways[m]
	if !ok {
		return nil, fmt.Errorf("%w: no gateway registered for %s", ErrConfiguration, m)
	}
	return g, nil
}

// Methods returns the registered methods in canonical order.
func (r *Registry) Methods() []Method {
	out := make([]Method, 0, len(r.gateways))
	for _, m := range Methods {
		if _, ok := r.gateways[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
