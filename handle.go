package httpshare

import "sync"

// Handle is the capability a transfer handle exposes to the share subsystem.
// The share never depends on a concrete transfer type; it only needs a stable
// identifier and the attachment bookkeeping supplied by an embedded Binding.
//
// A handle is attached to at most one Share at a time. Implementations
// satisfy the interface by embedding Binding:
//
//	type myHandle struct {
//	    httpshare.Binding
//	    // ...
//	}
//
//	func (h *myHandle) ID() string { return h.id }
type Handle interface {
	// ID returns a stable opaque identifier for the handle.
	ID() string

	binding() *Binding
}

// Binding records which Share a handle is currently attached to. It is
// mutated only by Share.Attach and Share.Detach.
type Binding struct {
	mu    sync.Mutex
	share *Share
}

func (b *Binding) binding() *Binding { return b }

// Share returns the Share the handle is attached to, or nil when detached.
func (b *Binding) Share() *Share {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.share
}

// Attached reports whether the handle is currently attached to any Share.
func (b *Binding) Attached() bool {
	return b.Share() != nil
}
