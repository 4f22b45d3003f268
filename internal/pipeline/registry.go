package pipeline

// State is an element's position in the processing state machine.
type State int

const (
	// StateProcessing marks work in flight.
	StateProcessing State = iota
	// StateProcessed marks a completed affordance injection.
	StateProcessed
)

// Registry maps derived element identities to processing state for one
// page's lifetime. It is owned and mutated exclusively by the
// Coordinator, which runs on a single goroutine, so it carries no lock;
// nothing else may write to it.
type Registry struct {
	entries map[string]State
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]State)}
}

// Get returns the state for an identity.
func (r *Registry) Get(id string) (State, bool) {
	s, ok := r.entries[id]
	return s, ok
}

// Seen reports whether the identity is processing or processed.
func (r *Registry) Seen(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// MarkProcessing records the Unseen→Processing transition.
func (r *Registry) MarkProcessing(id string) {
	r.entries[id] = StateProcessing
}

// MarkProcessed records the Processing→Processed transition.
func (r *Registry) MarkProcessed(id string) {
	r.entries[id] = StateProcessed
}

// Forget drops the identity, returning the element toward Unseen so a
// later rescan can retry it.
func (r *Registry) Forget(id string) {
	delete(r.entries, id)
}

// Rekey moves an entry to a higher-confidence identity discovered after
// the fact (a permalink that appeared only on a later render).
func (r *Registry) Rekey(old, new string) {
	if old == new {
		return
	}
	if s, ok := r.entries[old]; ok {
		delete(r.entries, old)
		r.entries[new] = s
	}
}

// Reset clears everything. Called on SPA navigation, when the host
// discards and rebuilds its DOM tree.
func (r *Registry) Reset() {
	r.entries = make(map[string]State)
}

// Len returns the number of tracked identities.
func (r *Registry) Len() int {
	return len(r.entries)
}
