package streamline

import "github.com/sl-streamline/core/core"

// TagType, Lifecycle, Resource re-export the tag-store vocabulary so callers
// of this package never need to import package core directly for the
// common case.
type (
	TagType   = core.TagType
	Lifecycle = core.Lifecycle
	Resource  = core.Resource
)

const (
	OnlyValidNow       = core.OnlyValidNow
	ValidUntilEvaluate = core.ValidUntilEvaluate
	ValidUntilPresent  = core.ValidUntilPresent
)

// SetTag implements setTag(viewport, tags[], n, cmdBuffer) for one tag at a
// time; the host-facing ABI loops this over the tags array it received.
func (inst *Instance) SetTag(viewport core.Viewport, t TagType, res Resource, lifecycle Lifecycle, cmdBuffer any) error {
	if err := inst.requireInitialized("setTag"); err != nil {
		return err
	}
	if err := inst.tags.Set(viewport, t, res, lifecycle, cmdBuffer); err != nil {
		return NewError("setTag", ResultD3DAPI, err)
	}
	return nil
}

// GetTag resolves a tag query for a feature plugin, returning
// ResultNotFound if nothing was ever set for (viewport, t).
func (inst *Instance) GetTag(viewport core.Viewport, t TagType) (Resource, error) {
	if err := inst.requireInitialized("getTag"); err != nil {
		return Resource{}, err
	}
	res, ok := inst.tags.Get(viewport, t)
	if !ok {
		return Resource{}, NewError("getTag", ResultNotFound, nil)
	}
	return res, nil
}

// RequireTag implements required-tag registration: a feature calls this
// during its begin/end callbacks to declare it needs (viewport, t) to
// survive past lifecycle, which SetTag consults to decide whether to clone.
func (inst *Instance) RequireTag(viewport core.Viewport, t TagType, lifecycle Lifecycle) {
	inst.tags.RequireTag(viewport, t, lifecycle)
}
