package streamline

import (
	"errors"

	"github.com/sl-streamline/core/core"
)

// Constants re-exports the per-viewport-per-frame camera/jitter record.
type Constants = core.Constants

// SetConstants implements setConstants(consts, frame, viewport): recording
// common constants fails with ResultDuplicatedConstants if this exact
// (viewport, frame) pair was already set.
func (inst *Instance) SetConstants(viewport core.Viewport, frame uint32, c Constants) error {
	if err := inst.requireInitialized("setConstants"); err != nil {
		return err
	}
	if err := inst.constants.Set(viewport, frame, c); err != nil {
		if errors.Is(err, core.ErrDuplicatedConstants) {
			return NewError("setConstants", ResultDuplicatedConstants, err)
		}
		return NewError("setConstants", ResultD3DAPI, err)
	}
	return nil
}

// GetConstants resolves the constants half of get(event, &out), used by the
// plugin manager when dispatching evaluate to a feature.
func (inst *Instance) GetConstants(viewport core.Viewport, frame uint32) (Constants, error) {
	if err := inst.requireInitialized("getConstants"); err != nil {
		return Constants{}, err
	}
	c, err := inst.constants.Get(viewport, frame)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrConstantsNotFound):
			return Constants{}, NewError("getConstants", ResultNotFound, err)
		case errors.Is(err, core.ErrConstantsStale):
			return Constants{}, NewError("getConstants", ResultStale, err)
		default:
			return Constants{}, NewError("getConstants", ResultMissingConstants, err)
		}
	}
	return c, nil
}
