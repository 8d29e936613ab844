package core

import "sync"

// MaxFramesInFlight bounds how many in-flight frames the host may reference
// simultaneously; the frame token ring must be at least this large.
const MaxFramesInFlight = 3

// defaultRingSize matches the original implementation's ring: large enough
// that a token handed out this frame stays resolvable for every evaluate
// call tagging it, across the deepest the host is allowed to let any
// command list trail the frame that produced it.
const defaultRingSize = MaxFramesInFlight * 2

// FrameToken is an opaque per-frame identifier. Two tokens compare equal
// exactly when they were produced by the same ring slot advance.
type FrameToken struct {
	counter uint32
}

// Index returns the monotonic frame counter the token wraps. Used only for
// logging and diagnostics -- callers should treat FrameToken as opaque.
func (t *FrameToken) Index() uint32 { return t.counter }

// FrameTokenRing hands out stable FrameToken pointers. A request bearing no
// explicit frame index rotates the ring and stamps a freshly incremented
// counter; a request bearing an explicit index reuses the current head's
// slot if the index matches what's already stored there, and otherwise
// rotates exactly like the no-index case. An out-of-order explicit index is
// not special-cased: it is simply "different from the current slot" and
// evicts the oldest slot like any other advance.
type FrameTokenRing struct {
	mu      sync.Mutex
	slots   []FrameToken
	head    int
	counter uint32
}

// NewFrameTokenRing creates a ring with the given size; a size below
// MaxFramesInFlight (including 0) is replaced with defaultRingSize.
func NewFrameTokenRing(size int) *FrameTokenRing {
	if size < MaxFramesInFlight {
		size = defaultRingSize
	}
	return &FrameTokenRing{slots: make([]FrameToken, size)}
}

// Get implements getNewFrameToken. frameIndex is nil for "give me the next
// token"; non-nil to request (or reuse) a specific index.
func (r *FrameTokenRing) Get(frameIndex *uint32) *FrameToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := &r.slots[r.head]
	if frameIndex != nil && current.counter == *frameIndex {
		return current
	}

	r.head = (r.head + 1) % len(r.slots)
	if frameIndex != nil {
		r.counter = *frameIndex
	} else {
		r.counter++
	}
	r.slots[r.head] = FrameToken{counter: r.counter}
	return &r.slots[r.head]
}

// Contains reports whether tok points into this ring's slot array. Slots are
// overwritten in place by later advances, so a token whose slot has since
// been reused still reports true; eviction is not detected.
func (r *FrameTokenRing) Contains(tok *FrameToken) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if &r.slots[i] == tok {
			return true
		}
	}
	return false
}
