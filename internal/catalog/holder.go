package catalog

import "sync/atomic"

// Holder publishes the current catalog handle. Reloads swap the pointer;
// a request keeps whichever handle it read at its start.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder creates a holder, optionally seeded with c
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	if c != nil {
		h.current.Store(c)
	}
	return h
}

// Get returns the current catalog or nil when none is loaded
func (h *Holder) Get() *Catalog {
	return h.current.Load()
}

// Swap replaces the current catalog and returns the previous one
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.current.Swap(c)
}
