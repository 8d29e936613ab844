//go:build windows

package d3d12

import (
	"testing"
	"time"
	"unsafe"

	"github.com/sl-streamline/core/chi"
)

type fakeNativeDevice struct{}

func (fakeNativeDevice) Pointer() unsafe.Pointer { return nil }

func TestAlign(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 256, 255: 256, 256: 256, 257: 512}
	for in, want := range cases {
		if got := align(in, 256); got != want {
			t.Errorf("align(%d,256) = %d, want %d", in, got, want)
		}
	}
}

func TestConstantRingAdvancesInstanceIndex(t *testing.T) {
	r := newConstantRing(64, 3)
	off0 := r.write([]byte("a"))
	off1 := r.write([]byte("b"))
	off2 := r.write([]byte("c"))
	off3 := r.write([]byte("d"))

	if off0 != 0 || off1 != r.stride || off2 != 2*r.stride {
		t.Fatalf("unexpected offsets: %d %d %d", off0, off1, off2)
	}
	if off3 != off0 {
		t.Fatalf("expected instance index to wrap back to 0, got offset %d", off3)
	}
}

func TestDispatchInternsRootSigAndPSO(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, err := b.NewDevice(nil)
	if err != nil {
		t.Fatalf("NewDevice: %v", err)
	}
	d := devIface.(*device)

	kernel := &chi.Kernel{Hash: 42}
	if err := d.BindKernel(1, kernel); err != nil {
		t.Fatalf("BindKernel: %v", err)
	}
	if err := d.Dispatch(1, nil, 1, 1, 1); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(d.rootSigs) != 1 || len(d.psoCache) != 1 {
		t.Fatalf("expected one interned root sig and PSO, got %d/%d", len(d.rootSigs), len(d.psoCache))
	}

	// A second dispatch with the same kernel and no new ranges should hit
	// the same interned entries, not create new ones.
	if err := d.Dispatch(1, nil, 1, 1, 1); err != nil {
		t.Fatalf("Dispatch 2: %v", err)
	}
	if len(d.rootSigs) != 1 || len(d.psoCache) != 1 {
		t.Fatalf("expected interning to dedupe, got %d/%d", len(d.rootSigs), len(d.psoCache))
	}
}

func TestTransitionResourcesReverts(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	n := &chi.Native{Descriptor: chi.Descriptor{State: chi.StatePresent}}
	reverses, err := d.TransitionResources(nil, []chi.TransitionTo{{Resource: n, Target: chi.StateCopyDestination}})
	if err != nil {
		t.Fatalf("TransitionResources: %v", err)
	}
	if n.Descriptor.State != chi.StateCopyDestination {
		t.Fatalf("got %v, want StateCopyDestination", n.Descriptor.State)
	}
	if err := reverses[0](nil, nil); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if n.Descriptor.State != chi.StatePresent {
		t.Fatalf("got %v after revert, want StatePresent", n.Descriptor.State)
	}
}

func TestCreateAssignsDistinctTrackerIndices(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	a, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopySource})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	b2, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopyDestination})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if a.TrackerIndex == b2.TrackerIndex {
		t.Fatalf("expected distinct tracker indices, both got %d", a.TrackerIndex)
	}

	if err := d.DestroyResource(a); err != nil {
		t.Fatalf("DestroyResource: %v", err)
	}
	c, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopySource})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if c.TrackerIndex != a.TrackerIndex {
		t.Fatalf("expected freed tracker index %d to be reused, got %d", a.TrackerIndex, c.TrackerIndex)
	}
}

func TestDestroyResourceIsIdempotent(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	a, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopySource})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if err := d.DestroyResource(a); err != nil {
		t.Fatalf("DestroyResource: %v", err)
	}
	// A second DestroyResource on the same Native must not free a's index
	// back onto the allocator's free list a second time.
	if err := d.DestroyResource(a); err != nil {
		t.Fatalf("second DestroyResource: %v", err)
	}

	c, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopySource})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	e, err := d.CreateBuffer(chi.Descriptor{State: chi.StateCopySource})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}
	if c.TrackerIndex == e.TrackerIndex {
		t.Fatalf("double-release of index %d let two live resources share it", a.TrackerIndex)
	}
}

func TestTransitionResourcesRejectsConflictingSameScopeUsage(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	n, err := d.CreateBuffer(chi.Descriptor{State: chi.StatePresent})
	if err != nil {
		t.Fatalf("CreateBuffer: %v", err)
	}

	// Requesting the same resource transition to two incompatible write
	// usages within one batch is a usage conflict the tracker must reject
	// before mutating any state.
	_, err = d.TransitionResources(nil, []chi.TransitionTo{
		{Resource: n, Target: chi.StateCopyDestination},
		{Resource: n, Target: chi.StateStorageRW},
	})
	if err == nil {
		t.Fatal("expected an error for conflicting same-scope usages, got nil")
	}
	if n.Descriptor.State != chi.StatePresent {
		t.Fatalf("state should be unchanged after a rejected transition batch, got %v", n.Descriptor.State)
	}
}

func TestWaitForCommandListReturnsOnceSlotCompletes(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	ctxIface, err := d.NewCommandListContext("test", 1)
	if err != nil {
		t.Fatalf("NewCommandListContext: %v", err)
	}
	ctx := ctxIface.(*commandListContext)

	if _, err := ctx.BeginCommandList(); err != nil {
		t.Fatalf("BeginCommandList: %v", err)
	}
	if err := ctx.ExecuteCommandList(&chi.SubmitInfo{}); err != nil {
		t.Fatalf("ExecuteCommandList: %v", err)
	}
	// Re-entering the same ring slot polls and marks the prior occupant
	// completed, same as the real fence-polling path would once the GPU
	// catches up.
	if _, err := ctx.BeginCommandList(); err != nil {
		t.Fatalf("BeginCommandList: %v", err)
	}

	start := time.Now()
	if err := ctx.WaitForCommandList(chi.WaitDefault); err != nil {
		t.Fatalf("WaitForCommandList: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= fenceWaitBound {
		t.Fatalf("expected an immediate return for a completed slot, took %s", elapsed)
	}
}

func TestWaitForCommandListTimesOutAndForceCompletes(t *testing.T) {
	b := NewBackend(fakeNativeDevice{})
	devIface, _ := b.NewDevice(nil)
	d := devIface.(*device)

	ctxIface, err := d.NewCommandListContext("test", 1)
	if err != nil {
		t.Fatalf("NewCommandListContext: %v", err)
	}
	ctx := ctxIface.(*commandListContext)

	// A single-slot ring with no BeginCommandList to re-poll it: the slot
	// stays uncompleted until the deadlock-breaker forces it.
	if err := ctx.ExecuteCommandList(&chi.SubmitInfo{}); err != nil {
		t.Fatalf("ExecuteCommandList: %v", err)
	}

	start := time.Now()
	err = ctx.WaitForCommandList(chi.WaitCurrent)
	elapsed := time.Since(start)
	if err == nil {
		t.Fatal("expected a timeout error for a slot that never completes")
	}
	if elapsed < fenceWaitBound {
		t.Fatalf("expected the wait to run the full bound before timing out, took %s", elapsed)
	}
	if elapsed > fenceWaitBound+200*time.Millisecond {
		t.Fatalf("expected the wait to honor the %s bound, took %s", fenceWaitBound, elapsed)
	}

	if !ctx.slots[0].completed {
		t.Fatal("expected the deadlock-breaker to force-complete the slot on timeout")
	}
}
