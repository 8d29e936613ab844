package chi

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPoolAllocateMissCallsCreate(t *testing.T) {
	created := 0
	p := NewPool(func(desc Descriptor) (*Native, error) {
		created++
		return &Native{Descriptor: desc}, nil
	}, fixedClock(time.Unix(0, 0)))
	p.SetVRAMBudget(0, 0) // no budget set -> long wait, but free list empty so create fires immediately after one poll loop

	desc := Descriptor{Width: 64, Height: 64, NativeFormat: FormatRGBA8Unorm}
	n, err := p.Allocate(desc)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if n == nil || created != 1 {
		t.Fatalf("expected one create call, got %d", created)
	}
}

func TestPoolReleaseThenAllocateReusesEntry(t *testing.T) {
	created := 0
	p := NewPool(func(desc Descriptor) (*Native, error) {
		created++
		return &Native{Descriptor: desc}, nil
	}, fixedClock(time.Unix(0, 0)))

	desc := Descriptor{Width: 64, Height: 64, NativeFormat: FormatRGBA8Unorm}
	n, err := p.Allocate(desc)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	p.Release(n)

	n2, err := p.Allocate(desc)
	if err != nil {
		t.Fatalf("Allocate 2: %v", err)
	}
	if n2 != n {
		t.Fatal("expected the released resource to be reused, not recreated")
	}
	if created != 1 {
		t.Fatalf("expected exactly one create call, got %d", created)
	}
}

func TestPoolWaitHintShortUnderAmpleBudget(t *testing.T) {
	p := NewPool(nil, fixedClock(time.Unix(0, 0)))
	p.SetVRAMBudget(0, 1<<30)
	p.SetMaxQueueSize(64)

	desc := Descriptor{Width: 16, Height: 16, NativeFormat: FormatRGBA8Unorm}
	if got := p.waitHint(desc); got != waitHintShort {
		t.Fatalf("got %v, want short wait hint under ample budget", got)
	}
}

func TestPoolWaitHintLongWithoutBudget(t *testing.T) {
	p := NewPool(nil, fixedClock(time.Unix(0, 0)))
	desc := Descriptor{Width: 16, Height: 16, NativeFormat: FormatRGBA8Unorm}
	if got := p.waitHint(desc); got != waitHintLong {
		t.Fatalf("got %v, want long wait hint with no budget configured", got)
	}
}

func TestPoolCollectGarbageDestroysIdleEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	p := NewPool(func(desc Descriptor) (*Native, error) {
		return &Native{Descriptor: desc}, nil
	}, fixedClock(now))

	desc := Descriptor{Width: 8, Height: 8, NativeFormat: FormatRGBA8Unorm}
	n, _ := p.Allocate(desc)
	p.Release(n)

	var destroyed []*Native
	p.now = fixedClock(now.Add(time.Hour))
	if err := p.CollectGarbage(time.Minute, func(n *Native) error {
		destroyed = append(destroyed, n)
		return nil
	}); err != nil {
		t.Fatalf("CollectGarbage: %v", err)
	}
	if len(destroyed) != 1 {
		t.Fatalf("got %d destroyed, want 1", len(destroyed))
	}

	// The entry should no longer be available to Allocate.
	created := 0
	p2 := NewPool(func(desc Descriptor) (*Native, error) {
		created++
		return &Native{Descriptor: desc}, nil
	}, fixedClock(now))
	p2.free = p.free
	if _, err := p2.Allocate(desc); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if created != 1 {
		t.Fatal("expected a fresh create after garbage collection emptied the free list")
	}
}
