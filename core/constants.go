package core

import (
	"errors"
	"sync"
)

// historyDepth bounds how many frames of constants a viewport retains: the
// current frame plus enough trailing history that a slightly-delayed
// evaluate can still resolve eStale rather than eNotFound.
const historyDepth = 3

// Constants is the per-viewport-per-frame record the host sets once before
// calling evaluate: camera matrices, jitter, motion-vector scale, clip
// planes, FOV, and the boolean flags the original design calls out
// (depth-inverted, camera-motion-included, mvecs-jittered, reset,
// orthographic). The concrete matrix/vector types are out of this module's
// scope (NGX/feature-plugin territory); they are carried as an opaque
// payload here.
type Constants struct {
	CameraViewToClip    [16]float32
	ClipToCameraView    [16]float32
	ClipToPrevClip      [16]float32
	PrevClipToClip      [16]float32
	JitterOffset        [2]float32
	MVecScale           [2]float32
	CameraPinholeOffset [2]float32
	CameraPos           [3]float32
	CameraUp            [3]float32
	CameraRight         [3]float32
	CameraFwd           [3]float32
	CameraNear          float32
	CameraFar           float32
	CameraFOV           float32
	CameraAspectRatio   float32

	DepthInverted         bool
	CameraMotionIncluded  bool
	MotionVectorsJittered bool
	Reset                 bool
	Orthographic          bool
}

var (
	// ErrDuplicatedConstants is returned by Set when constants were already
	// recorded for this exact (viewport, frame) pair.
	ErrDuplicatedConstants = errors.New("core: constants already set for this (viewport, frame)")
	// ErrConstantsNotFound is returned by Get when the host never set
	// constants for the requested (viewport, frame) pair.
	ErrConstantsNotFound = errors.New("core: no constants set for this (viewport, frame)")
	// ErrConstantsStale is returned by Get when the requested frame has
	// aged out of the store's history depth.
	ErrConstantsStale = errors.New("core: constants for this frame have been overwritten")
)

type constantsEntry struct {
	frame     uint32
	constants Constants
}

// ConstantsStore is the templated "viewport × frame" store from the design
// notes: fixed history depth per viewport, duplicate-set detection, and
// stale-read detection once a viewport's history has rolled past a frame.
type ConstantsStore struct {
	mu      sync.Mutex
	history map[Viewport][]constantsEntry // newest last, capped at historyDepth

	validated map[Viewport]bool // run-once camera sanity check, per viewport
	onInvalid func(viewport Viewport, reason string)
}

// NewConstantsStore creates an empty store. onInvalid, if non-nil, is called
// at most once per viewport the first time its constants look degenerate
// (a zero camera basis vector, or a non-positive FOV on a perspective
// camera; NaN values are not checked) -- mirroring the original's SL_RUN_ONCE warning
// rather than rejecting the Set outright.
func NewConstantsStore(onInvalid func(viewport Viewport, reason string)) *ConstantsStore {
	return &ConstantsStore{
		history:   make(map[Viewport][]constantsEntry),
		validated: make(map[Viewport]bool),
		onInvalid: onInvalid,
	}
}

// Set implements setConstants. A second Set for the same (viewport, frame)
// pair fails with ErrDuplicatedConstants regardless of whether the payload
// differs -- the invariant is on the pair, not the content.
func (s *ConstantsStore) Set(viewport Viewport, frame uint32, c Constants) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.history[viewport]
	for _, e := range entries {
		if e.frame == frame {
			return ErrDuplicatedConstants
		}
	}

	entries = append(entries, constantsEntry{frame: frame, constants: c})
	if len(entries) > historyDepth {
		entries = entries[len(entries)-historyDepth:]
	}
	s.history[viewport] = entries

	if !s.validated[viewport] {
		s.validated[viewport] = true
		if reason, bad := checkCameraBasis(c); bad && s.onInvalid != nil {
			s.onInvalid(viewport, reason)
		}
	}

	return nil
}

// checkCameraBasis runs the SL_RUN_ONCE-style sanity pass the original
// performs on the first constants set for a viewport: a zero-length camera
// basis vector or a non-positive FOV is almost always a caller bug (an
// uninitialized or transposed matrix), worth one warning, never worth
// failing the call over since degenerate constants are still usable as
// "something", just probably wrong.
func checkCameraBasis(c Constants) (reason string, bad bool) {
	zero := func(v [3]float32) bool { return v[0] == 0 && v[1] == 0 && v[2] == 0 }
	switch {
	case zero(c.CameraUp):
		return "camera up vector is zero", true
	case zero(c.CameraRight):
		return "camera right vector is zero", true
	case zero(c.CameraFwd):
		return "camera forward vector is zero", true
	case c.CameraFOV <= 0 && !c.Orthographic:
		return "camera FOV is non-positive for a perspective camera", true
	default:
		return "", false
	}
}

// Get implements the constants half of get(event, &out). newestFrame is the
// viewport's most recently set frame, used to distinguish "never set"
// (ErrConstantsNotFound) from "set, but has since aged out of history"
// (ErrConstantsStale).
func (s *ConstantsStore) Get(viewport Viewport, frame uint32) (Constants, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.history[viewport]
	if !ok || len(entries) == 0 {
		return Constants{}, ErrConstantsNotFound
	}
	for _, e := range entries {
		if e.frame == frame {
			return e.constants, nil
		}
	}

	newest := entries[len(entries)-1].frame
	if frame < newest {
		return Constants{}, ErrConstantsStale
	}
	return Constants{}, ErrConstantsNotFound
}

// Clear drops all stored constants for viewport, used when a viewport is
// torn down.
func (s *ConstantsStore) Clear(viewport Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, viewport)
}
