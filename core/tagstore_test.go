package core

import "testing"

type fakeCloner struct {
	calls int
}

func (f *fakeCloner) Clone(src Resource, cmdBuffer any) (*Resource, error) {
	f.calls++
	clone := src
	clone.State = StateCopyDestination
	return &clone, nil
}

func TestTagStoreSetGetNoClone(t *testing.T) {
	s := NewTagStore(nil)
	res := Resource{Native: "tex0", Width: 1920, Height: 1080}

	if err := s.Set(0, TagType(1), res, ValidUntilPresent, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := s.Get(0, TagType(1))
	if !ok {
		t.Fatal("expected tag present")
	}
	if got.Native != "tex0" {
		t.Fatalf("got native %v, want tex0", got.Native)
	}
}

func TestTagStoreMissingTag(t *testing.T) {
	s := NewTagStore(nil)
	if _, ok := s.Get(0, TagType(1)); ok {
		t.Fatal("expected no tag")
	}
}

func TestTagStoreCloningWhenRequired(t *testing.T) {
	cloner := &fakeCloner{}
	s := NewTagStore(cloner)

	s.RequireTag(0, TagType(1), ValidUntilPresent)

	res := Resource{Native: "tex0"}
	if err := s.Set(0, TagType(1), res, OnlyValidNow, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cloner.calls != 1 {
		t.Fatalf("got %d clone calls, want 1", cloner.calls)
	}

	got, ok := s.Get(0, TagType(1))
	if !ok {
		t.Fatal("expected tag present")
	}
	if got.State != StateCopyDestination {
		t.Fatalf("expected the clone (state CopyDestination) to be returned, got state %v", got.State)
	}
}

func TestTagStoreNoCloneWhenNotRequired(t *testing.T) {
	cloner := &fakeCloner{}
	s := NewTagStore(cloner)

	res := Resource{Native: "tex0"}
	if err := s.Set(0, TagType(1), res, OnlyValidNow, nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cloner.calls != 0 {
		t.Fatalf("got %d clone calls, want 0 (nothing required this tag)", cloner.calls)
	}
}

func TestTagStoreClearViewport(t *testing.T) {
	s := NewTagStore(nil)
	_ = s.Set(0, TagType(1), Resource{}, ValidUntilPresent, nil)
	_ = s.Set(1, TagType(1), Resource{}, ValidUntilPresent, nil)

	s.ClearViewport(0)

	if _, ok := s.Get(0, TagType(1)); ok {
		t.Fatal("expected viewport 0 tag cleared")
	}
	if _, ok := s.Get(1, TagType(1)); !ok {
		t.Fatal("expected viewport 1 tag to remain")
	}
}
