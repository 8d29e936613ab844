package streamline

import "github.com/sl-streamline/core/core"

// ErrorFilter re-exports the frame-coordination-core's error category so a
// feature plugin can push/report against a specific class of diagnostic
// without importing package core directly.
type ErrorFilter = core.ErrorFilter

const (
	ErrorFilterValidation  = core.ErrorFilterValidation
	ErrorFilterOutOfMemory = core.ErrorFilterOutOfMemory
	ErrorFilterInternal    = core.ErrorFilterInternal
)

// CapturedError is a diagnostic captured by an open error scope.
type CapturedError = core.CapturedError

// PushErrorScope opens a new error scope on viewport capturing the first
// error matching filter. A feature's Begin/End handlers call this around an
// operation whose failure they want to observe directly via PopErrorScope,
// instead of only through the log.
func (inst *Instance) PushErrorScope(viewport core.Viewport, filter ErrorFilter) {
	inst.mu.Lock()
	scopes := inst.errScopes
	inst.mu.Unlock()
	scopes.Stack(viewport).Push(filter)
}

// PopErrorScope closes the most recently pushed scope on viewport, returning
// whatever it captured (nil if nothing matched while it was open).
func (inst *Instance) PopErrorScope(viewport core.Viewport) (*CapturedError, error) {
	inst.mu.Lock()
	scopes := inst.errScopes
	inst.mu.Unlock()
	return scopes.Stack(viewport).Pop()
}

// reportError delivers an error to viewport's topmost open scope matching
// filter. Returns whether some scope captured it; EvaluateFeature falls back
// to logging the error itself when this returns false.
func (inst *Instance) reportError(viewport core.Viewport, filter ErrorFilter, message string) bool {
	inst.mu.Lock()
	scopes := inst.errScopes
	inst.mu.Unlock()
	return scopes.Stack(viewport).Report(filter, message)
}
