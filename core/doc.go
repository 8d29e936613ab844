// Package core implements the frame coordination core -- the state every
// feature plugin shares through the common plugin: the frame token ring,
// per-viewport constants and resource tags, the per-(viewport,feature)
// state machine, and the evaluate dispatch the host drives once per frame.
//
// It owns no feature algorithm and no graphics-API call; it only resolves
// what a feature asks for (this frame's constants, a named tag) against
// what the host most recently supplied, and hands the feature its
// begin/end callbacks at the right moment.
package core
