package core

// Viewport is the host-chosen opaque identifier partitioning per-frame state
// across simultaneous rendering contexts (split-screen, multi-camera). It is
// a raw integer, not an idpool handle: the host mints it, not this module.
type Viewport uint32

// Feature identifies a loaded feature plugin (super-resolution, frame
// generation, Reflex, DirectSR, ...). The plugin manager assigns these from
// its JSON-declared feature ids; the core treats them as opaque keys.
type Feature uint32
