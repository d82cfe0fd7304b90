package mode

import "sort"

// Registry maps configured mode names to handlers. It is built once and never mutated,
// so it is safe for concurrent reads without locking.
type Registry struct {
	names    map[Name]struct{}
	handlers map[Name]Handler
}

// NewRegistry creates a registry from the configured names and the available bindings.
// A configured name without a binding stays registered; Handler reports it as missing.
// Bindings for names that are not configured are ignored.
func NewRegistry(names []Name, bindings map[Name]Handler) *Registry {
	r := &Registry{
		names:    make(map[Name]struct{}, len(names)),
		handlers: make(map[Name]Handler, len(bindings)),
	}
	for _, n := range names {
		n = ParseName(string(n))
		if n == "" {
			continue
		}
		r.names[n] = struct{}{}
	}
	for n, h := range bindings {
		n = ParseName(string(n))
		if _, ok := r.names[n]; !ok || h == nil {
			continue
		}
		r.handlers[n] = h
	}
	return r
}

// Has reports whether name is a registered mode
func (r *Registry) Has(name Name) bool {
	if r == nil || name == "" {
		return false
	}
	_, ok := r.names[name]
	return ok
}

// Handler returns the handler bound to name
func (r *Registry) Handler(name Name) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns registered mode names in stable order
func (r *Registry) Names() []Name {
	if r == nil {
		return nil
	}
	out := make([]Name, 0, len(r.names))
	for n := range r.names {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Unbound returns registered names with no handler, used to warn at startup
func (r *Registry) Unbound() []Name {
	var out []Name
	for _, n := range r.Names() {
		if _, ok := r.handlers[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
