package noop

import (
	"testing"

	"github.com/sl-streamline/core/chi"
)

func TestNoopCreateAndDestroyBuffer(t *testing.T) {
	b := NewBackend()
	dev, err := b.NewDevice(nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	n, err := dev.CreateBuffer(chi.Descriptor{Width: 256})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := dev.DestroyResource(n); err != nil {
		t.Fatalf("DestroyResource: %v", err)
	}
}

func TestNoopDispatchRecorded(t *testing.T) {
	b := NewBackend()
	devIface, _ := b.NewDevice(nil)
	dev := devIface.(*device)

	if err := dev.Dispatch(1, nil, 4, 4, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	got := dev.Recorded()
	if len(got) != 1 || got[0].GroupsX != 4 {
		t.Fatalf("got %+v, want one recorded dispatch with GroupsX=4", got)
	}
}

func TestNoopTransitionResourcesAndReverse(t *testing.T) {
	b := NewBackend()
	devIface, _ := b.NewDevice(nil)
	dev := devIface.(*device)

	n := &chi.Native{Descriptor: chi.Descriptor{State: chi.StatePresent}}
	reverses, err := dev.TransitionResources(nil, []chi.TransitionTo{{Resource: n, Target: chi.StateCopyDestination}})
	if err != nil {
		t.Fatalf("TransitionResources: %v", err)
	}
	if n.Descriptor.State != chi.StateCopyDestination {
		t.Fatalf("got state %v, want StateCopyDestination", n.Descriptor.State)
	}
	if len(reverses) != 1 {
		t.Fatalf("got %d reverse transitions, want 1", len(reverses))
	}
	if err := reverses[0](nil, nil); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if n.Descriptor.State != chi.StatePresent {
		t.Fatalf("got state %v after reverse, want StatePresent", n.Descriptor.State)
	}
}

func TestNoopCopyResource(t *testing.T) {
	b := NewBackend()
	devIface, _ := b.NewDevice(nil)
	dev := devIface.(*device)

	src, _ := dev.CreateBuffer(chi.Descriptor{Width: 4})
	dst, _ := dev.CreateBuffer(chi.Descriptor{Width: 4})
	src.Handle.(*nativeResource).data = []byte{1, 2, 3, 4}

	if err := dev.CopyResource(nil, dst, src); err != nil {
		t.Fatalf("CopyResource: %v", err)
	}
	if got := dst.Handle.(*nativeResource).data; len(got) != 4 || got[0] != 1 {
		t.Fatalf("got %v, want copied source bytes", got)
	}
}

func TestNoopCommandListContextRing(t *testing.T) {
	b := NewBackend()
	devIface, _ := b.NewDevice(nil)
	dev := devIface.(*device)

	ctx, err := dev.NewCommandListContext("test", 3)
	if err != nil {
		t.Fatalf("NewCommandListContext: %v", err)
	}
	if _, err := ctx.BeginCommandList(); err != nil {
		t.Fatalf("BeginCommandList: %v", err)
	}
	if err := ctx.ExecuteCommandList(nil); err != nil {
		t.Fatalf("ExecuteCommandList: %v", err)
	}
	if err := ctx.WaitForCommandList(chi.WaitCurrent); err != nil {
		t.Fatalf("WaitForCommandList: %v", err)
	}
}
