package wizard

import "sync"

// Registry keeps at most one open wizard per session key.
type Registry struct {
	mu   sync.Mutex
	open map[string]*Wizard
}

func NewRegistry() *Registry {
	return &Registry{open: make(map[string]*Wizard)}
}

// Open starts a fresh wizard for key, discarding any previous one.
func (r *Registry) Open(key string) *Wizard {
	w := New()
	r.mu.Lock()
	r.open[key] = w
	r.mu.Unlock()
	return w
}

// Get returns the open wizard for key.
func (r *Registry) Get(key string) (*Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.open[key]
	return w, ok
}

// Close forgets the wizard for key if it is still w. A nil w closes whatever is open.
func (r *Registry) Close(key string, w *Wizard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.open[key]; ok && (w == nil || cur == w) {
		delete(r.open, key)
	}
}

// Len reports the number of open wizards.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
