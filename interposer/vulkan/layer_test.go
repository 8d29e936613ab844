package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
)

var errPresentHook = errors.New("present hook failed")

// Table's PushState/PopState bookkeeping is tested directly against the
// bound-state map rather than through CmdBindPipeline/CmdBindDescriptorSets,
// since those forward to the real Vulkan loader and require a live device --
// out of scope for a unit test run without a GPU.

func TestTablePushPopStateRestoresBindings(t *testing.T) {
	table := NewTable(vk.Device(0))
	cmdBuf := vk.CommandBuffer(0)

	hostPipeline := vk.Pipeline(1)
	table.bound[cmdBuf] = BoundState{Pipeline: hostPipeline}

	table.PushState(cmdBuf)

	corePipeline := vk.Pipeline(2)
	table.bound[cmdBuf] = BoundState{Pipeline: corePipeline}

	if got := table.bound[cmdBuf].Pipeline; got != corePipeline {
		t.Fatalf("bound pipeline after core rebind = %v, want %v", got, corePipeline)
	}

	var restored BoundState
	restoredCalled := false
	table.PopState(cmdBuf, func(b BoundState) {
		restoredCalled = true
		restored = b
	})

	if !restoredCalled {
		t.Fatalf("PopState did not invoke rebind")
	}
	if restored.Pipeline != hostPipeline {
		t.Fatalf("restored Pipeline = %v, want %v", restored.Pipeline, hostPipeline)
	}
	if got := table.bound[cmdBuf].Pipeline; got != hostPipeline {
		t.Fatalf("bound pipeline after PopState = %v, want %v", got, hostPipeline)
	}
}

func TestTablePopStateWithEmptyStackIsNoop(t *testing.T) {
	table := NewTable(vk.Device(0))
	cmdBuf := vk.CommandBuffer(0)
	called := false
	table.PopState(cmdBuf, func(BoundState) { called = true })
	if called {
		t.Fatalf("PopState invoked rebind with no matching PushState")
	}
}

func TestQueuePresentKHRSkippedByHook(t *testing.T) {
	table := NewTable(vk.Device(0))
	called := false
	hooks := []PresentHook{
		func(info *vk.PresentInfo) (bool, error) { return true, nil },
	}
	// A hook reporting skip=true must prevent the real vk.QueuePresentKHR
	// call (there's no live queue/device in this test).
	result := table.QueuePresentKHR(vk.Queue(0), &vk.PresentInfo{}, hooks)
	if called {
		t.Fatalf("native present was reached despite a skipping hook")
	}
	if result != vk.Success {
		t.Fatalf("QueuePresentKHR() = %v, want vk.Success", result)
	}
}

func TestQueuePresentKHRPropagatesHookError(t *testing.T) {
	table := NewTable(vk.Device(0))
	wantErr := true
	hooks := []PresentHook{
		func(info *vk.PresentInfo) (bool, error) {
			if wantErr {
				return false, errPresentHook
			}
			return false, nil
		},
	}
	result := table.QueuePresentKHR(vk.Queue(0), &vk.PresentInfo{}, hooks)
	if result != vk.ErrorUnknown {
		t.Fatalf("QueuePresentKHR() = %v, want vk.ErrorUnknown", result)
	}
}
