package core

import "testing"

func validConstants() Constants {
	return Constants{
		CameraUp:    [3]float32{0, 1, 0},
		CameraRight: [3]float32{1, 0, 0},
		CameraFwd:   [3]float32{0, 0, 1},
		CameraFOV:   60,
	}
}

func TestConstantsStoreSetGet(t *testing.T) {
	s := NewConstantsStore(nil)
	c := validConstants()
	c.CameraFOV = 75

	if err := s.Set(0, 5, c); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(0, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CameraFOV != 75 {
		t.Fatalf("got FOV %v, want 75", got.CameraFOV)
	}
}

func TestConstantsStoreDuplicateRejected(t *testing.T) {
	s := NewConstantsStore(nil)
	c := validConstants()

	if err := s.Set(0, 5, c); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if err := s.Set(0, 5, c); err != ErrDuplicatedConstants {
		t.Fatalf("second Set: got %v, want ErrDuplicatedConstants", err)
	}
}

func TestConstantsStoreNotFound(t *testing.T) {
	s := NewConstantsStore(nil)
	if _, err := s.Get(0, 5); err != ErrConstantsNotFound {
		t.Fatalf("got %v, want ErrConstantsNotFound", err)
	}
}

func TestConstantsStoreStaleAfterHistoryRolls(t *testing.T) {
	s := NewConstantsStore(nil)
	c := validConstants()

	for frame := uint32(0); frame < historyDepth+2; frame++ {
		if err := s.Set(0, frame, c); err != nil {
			t.Fatalf("Set(frame=%d): %v", frame, err)
		}
	}

	if _, err := s.Get(0, 0); err != ErrConstantsStale {
		t.Fatalf("got %v, want ErrConstantsStale", err)
	}

	newest := uint32(historyDepth + 1)
	if _, err := s.Get(0, newest); err != nil {
		t.Fatalf("Get(newest): %v", err)
	}
}

func TestConstantsStoreRunOnceValidation(t *testing.T) {
	var reasons []string
	s := NewConstantsStore(func(viewport Viewport, reason string) {
		reasons = append(reasons, reason)
	})

	bad := Constants{} // zero camera basis, zero FOV
	if err := s.Set(0, 1, bad); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(reasons) != 1 {
		t.Fatalf("got %d warnings, want 1", len(reasons))
	}

	// A second Set for the same viewport (different frame) must not
	// re-trigger the warning -- it is run-once per viewport.
	if err := s.Set(0, 2, bad); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(reasons) != 1 {
		t.Fatalf("got %d warnings after second Set, want still 1", len(reasons))
	}
}

func TestConstantsStoreClear(t *testing.T) {
	s := NewConstantsStore(nil)
	c := validConstants()
	_ = s.Set(0, 1, c)
	s.Clear(0)

	if _, err := s.Get(0, 1); err != ErrConstantsNotFound {
		t.Fatalf("got %v, want ErrConstantsNotFound after Clear", err)
	}
}
