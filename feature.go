package streamline

import (
	"fmt"

	"github.com/sl-streamline/core/core"
	"github.com/sl-streamline/core/internal/log"
)

// Feature re-exports the frame-coordination-core's feature id type.
type Feature = core.Feature

// EventData is the common event record passed to a feature's begin/end
// callbacks: which viewport and frame this evaluate call is for. The
// feature resolves its own constants/tags from the Instance using these.
type EventData struct {
	Viewport core.Viewport
	Frame    uint32
}

// TagViewportHandle is the reserved TagType marking the inputs[] entry that
// carries this call's ViewportHandle. evaluateFeature takes no separate
// viewport argument -- per spec, viewport is just another inputs[] entry,
// same as any resource tag -- so plugin-assigned tag types must steer clear
// of this value. Resource.Native is unused on a TagViewportHandle entry;
// the viewport id lives in TagInput.Viewport instead.
const TagViewportHandle TagType = ^TagType(0)

// TagInput is one entry of the inputs[] array evaluateFeature receives: a
// "local" tag, valid only for this evaluate call, seeded into the tag store
// before the feature's begin/end run -- except for the one TagViewportHandle
// entry every inputs array must carry, which supplies the viewport instead
// of a resource tag.
type TagInput struct {
	Type     TagType
	Resource Resource
	Viewport core.Viewport // valid only when Type == TagViewportHandle
}

// FeatureHandlers is what the plugin manager registers for a feature id:
// the begin/end pair the design notes describe as a message-passing
// handler. begin does any lazy (re)creation; end records the feature's
// commands onto cmdBuffer.
type FeatureHandlers struct {
	Begin func(event EventData, cmdBuffer any) error
	End   func(event EventData, cmdBuffer any) error
}

// FeatureResolver looks up the handlers registered for a feature id. The
// plugin manager (package plugin) implements this against its load-ordered
// set of loaded plugins; this package depends only on the interface.
type FeatureResolver interface {
	Resolve(feature Feature) (FeatureHandlers, bool)
}

// SetFeatureResolver wires the plugin manager's dispatch table into this
// Instance. Must be called before EvaluateFeature; a plugin manager
// ordinarily calls this once after initializePlugins completes.
func (inst *Instance) SetFeatureResolver(r FeatureResolver) {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.resolver = r
}

// EvaluateFeature implements evaluateFeature(feature, frame, inputs, cmdBuffer):
// ViewportHandle is mandatory in inputs -- a missing entry is
// ResultMissingInputParameter, not a silent default-viewport fallback. It
// then seeds any remaining local tags from inputs with lifecycle
// OnlyValidNow, drives the (viewport, feature) state machine
// (Configured->Active on first call), and invokes the feature's begin/end
// pair with a common EventData. A panic inside begin/end is treated as the
// exception-handler path: it is recovered, a mini-dump is requested, and
// ResultExceptionHandler is returned rather than crashing the host.
func (inst *Instance) EvaluateFeature(feature Feature, frame uint32, inputs []TagInput, cmdBuffer any) (err error) {
	if err := inst.requireInitialized("evaluateFeature"); err != nil {
		return err
	}

	viewport, ok := viewportFromInputs(inputs)
	if !ok {
		return NewError("evaluateFeature", ResultMissingInputParameter, fmt.Errorf("inputs[] has no ViewportHandle entry"))
	}

	inst.mu.Lock()
	resolver := inst.resolver
	inst.mu.Unlock()
	if resolver == nil {
		return NewError("evaluateFeature", ResultFeatureMissing, nil)
	}
	handlers, ok := resolver.Resolve(feature)
	if !ok {
		return NewError("evaluateFeature", ResultFeatureMissing, nil)
	}

	for _, in := range inputs {
		if in.Type == TagViewportHandle {
			continue
		}
		if setErr := inst.tags.Set(viewport, in.Type, in.Resource, core.OnlyValidNow, cmdBuffer); setErr != nil {
			return NewError("evaluateFeature", ResultD3DAPI, setErr)
		}
	}

	state := inst.states.State(viewport, feature)
	if state == core.Configured {
		if _, transErr := inst.states.Apply(viewport, feature, core.TransitionFirstEvaluate); transErr != nil {
			return NewError("evaluateFeature", ResultInvalidIntegration, transErr)
		}
	} else if state == core.Unconfigured {
		return NewError("evaluateFeature", ResultInvalidIntegration, fmt.Errorf("feature %d on viewport %d was never configured", feature, viewport))
	}

	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("evaluateFeature(feature=%d, viewport=%d, frame=%d) panicked: %v", feature, viewport, frame, r)
			if !inst.reportError(viewport, ErrorFilterInternal, message) {
				log.Errorf("streamline: %s", message)
			}
			if path, id, dumpErr := inst.dumper.Write("", 0); dumpErr == nil {
				log.Errorf("streamline: wrote crash dump %s (id=%s)", path, id)
			}
			err = NewError("evaluateFeature", ResultExceptionHandler, fmt.Errorf("panic: %v", r))
		}
	}()

	event := EventData{Viewport: viewport, Frame: frame}
	if beginErr := handlers.Begin(event, cmdBuffer); beginErr != nil {
		if !inst.reportError(viewport, ErrorFilterInternal, beginErr.Error()) {
			log.Errorf("streamline: evaluateFeature begin failed: %v", beginErr)
		}
		return NewError("evaluateFeature", ResultNGXFailed, beginErr)
	}
	if endErr := handlers.End(event, cmdBuffer); endErr != nil {
		if !inst.reportError(viewport, ErrorFilterInternal, endErr.Error()) {
			log.Errorf("streamline: evaluateFeature end failed: %v", endErr)
		}
		return NewError("evaluateFeature", ResultNGXFailed, endErr)
	}
	return nil
}

// viewportFromInputs scans inputs for the mandatory TagViewportHandle entry.
func viewportFromInputs(inputs []TagInput) (core.Viewport, bool) {
	for _, in := range inputs {
		if in.Type == TagViewportHandle {
			return in.Viewport, true
		}
	}
	return 0, false
}
