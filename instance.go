package streamline

import (
	"sync"

	"github.com/sl-streamline/core/core"
	"github.com/sl-streamline/core/internal/log"
	"github.com/sl-streamline/core/internal/minidump"
	"github.com/sl-streamline/core/internal/parambus"
)

// Instance is the root object a host obtains from Init and drives for the
// life of the process: the frame token ring, constants and tag stores, the
// per-(viewport,feature) state machine, and the parameters bus feature
// plugins use to exchange NGX/DRS context. The plugin manager and CHI that
// sit below this in the full system are wired in separately (see package
// plugin and package chi); Instance only owns the frame-coordination-core
// pieces this package is directly responsible for.
type Instance struct {
	mu sync.Mutex

	prefs Preferences

	frames     *core.FrameTokenRing
	constants  *core.ConstantsStore
	tags       *core.TagStore
	states     *core.StateMachine
	params     *parambus.Bus
	dumper     minidump.Writer
	resolver   FeatureResolver
	errScopes  *core.ErrorScopeRegistry

	initialized bool
}

var (
	globalMu sync.Mutex
	global   *Instance
)

// Init implements init(preferences, sdkVersion): it configures logging and
// constructs the frame-coordination-core state. Plugin discovery (which in
// the full system also happens here) is driven by package plugin against
// the Instance this returns.
func Init(prefs Preferences, sdkVersion string) (*Instance, error) {
	globalMu.Lock()
	defer globalMu.Unlock()

	log.Init(prefs.ToLogPreferences())

	inst := &Instance{
		prefs:       prefs,
		frames:      core.NewFrameTokenRing(0),
		constants:   core.NewConstantsStore(defaultConstantsWarning),
		tags:        core.NewTagStore(nil),
		states:      core.NewStateMachine(),
		params:      parambus.New(),
		dumper:      minidump.Noop(),
		errScopes:   core.NewErrorScopeRegistry(),
		initialized: true,
	}
	global = inst

	log.Infof("streamline: initialized (sdkVersion=%s, renderAPI=%v)", sdkVersion, prefs.RenderAPI)
	return inst, nil
}

func defaultConstantsWarning(viewport core.Viewport, reason string) {
	log.Warnf("streamline: viewport %d: suspicious camera constants on first set: %s", viewport, reason)
}

// Shutdown implements shutdown(): unloads plugins (handled by package
// plugin against this Instance before calling here), marks the instance
// uninitialized, clears the process-wide Instance, and stops the logger.
// Compute and the parameters bus are not torn down here.
func (inst *Instance) Shutdown() error {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if !inst.initialized {
		return NewError("shutdown", ResultNotInitialized, nil)
	}
	inst.initialized = false

	globalMu.Lock()
	if global == inst {
		global = nil
	}
	globalMu.Unlock()

	log.Infof("streamline: shutdown")
	log.Global().Stop(0)
	return nil
}

// requireInitialized returns ResultInitNotCalled wrapped as *Error when the
// instance has been shut down or never initialized -- the first check every
// host-facing entry point in this package performs.
func (inst *Instance) requireInitialized(op string) error {
	if !inst.initialized {
		return NewError(op, ResultInitNotCalled, nil)
	}
	return nil
}

// Current returns the process-wide Instance created by the most recent
// Init call, or nil if none is active. The host-facing C ABI is
// necessarily global (a single interposer per process); everything else
// in this package takes an explicit *Instance so tests can run several in
// parallel.
func Current() *Instance {
	globalMu.Lock()
	defer globalMu.Unlock()
	return global
}

// SetPreferences updates the stored preferences (render API, flags,
// callbacks) after Init, e.g. once the host learns its actual adapter.
func (inst *Instance) SetPreferences(p Preferences) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.prefs = p
}

// Parameters returns the process-wide parameters bus, the inter-plugin
// communication channel (NGXContext and similar).
func (inst *Instance) Parameters() *parambus.Bus { return inst.params }

// DumpWriter exposes the mini-dump writer so the evaluate call site can
// invoke it on an unhandled exception (see feature.go).
func (inst *Instance) DumpWriter() minidump.Writer { return inst.dumper }

// SetDumpWriter swaps the default no-op mini-dump writer for a real
// platform-specific one.
func (inst *Instance) SetDumpWriter(w minidump.Writer) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.dumper = w
}
