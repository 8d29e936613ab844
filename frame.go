package streamline

import "github.com/sl-streamline/core/core"

// FrameToken re-exports the frame-coordination-core's opaque per-frame id.
type FrameToken = core.FrameToken

// GetNewFrameToken implements getNewFrameToken(*&out, frameIndex?): ring
// advance semantics are owned by core.FrameTokenRing, see its doc comment
// for the exact policy when frameIndex is supplied out of order.
func (inst *Instance) GetNewFrameToken(frameIndex *uint32) (*FrameToken, error) {
	if err := inst.requireInitialized("getNewFrameToken"); err != nil {
		return nil, err
	}
	return inst.frames.Get(frameIndex), nil
}
