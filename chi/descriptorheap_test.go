package chi

import "testing"

func TestDescriptorHeapFetchOrCreateCaches(t *testing.T) {
	calls := 0
	h := NewDescriptorHeap(0, func(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error) {
		calls++
		return uint32(calls), nil
	})

	res := &Native{}
	idx1, err := h.FetchOrCreate(res, 0, 1, false)
	if err != nil {
		t.Fatalf("FetchOrCreate: %v", err)
	}
	idx2, err := h.FetchOrCreate(res, 0, 1, false)
	if err != nil {
		t.Fatalf("FetchOrCreate: %v", err)
	}
	if idx1 != idx2 || calls != 1 {
		t.Fatalf("expected cache hit on second call, got calls=%d", calls)
	}
}

func TestDescriptorHeapDistinctMipRangesDontShare(t *testing.T) {
	calls := 0
	h := NewDescriptorHeap(0, func(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error) {
		calls++
		return uint32(calls), nil
	})
	res := &Native{}
	if _, err := h.FetchOrCreate(res, 0, 1, false); err != nil {
		t.Fatal(err)
	}
	if _, err := h.FetchOrCreate(res, 1, 1, false); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("got %d creates, want 2 for distinct mip ranges", calls)
	}
}

func TestDescriptorHeapInvalidate(t *testing.T) {
	calls := 0
	h := NewDescriptorHeap(0, func(res *Native, mipOffset, mipLevels uint32, rw bool) (uint32, error) {
		calls++
		return uint32(calls), nil
	})
	res := &Native{}
	if _, err := h.FetchOrCreate(res, 0, 1, false); err != nil {
		t.Fatal(err)
	}
	h.Invalidate(res)
	if _, err := h.FetchOrCreate(res, 0, 1, false); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("got %d creates, want recreate after invalidation", calls)
	}
}

func TestDescriptorHeapAllocateWrapsAtCapacity(t *testing.T) {
	h := NewDescriptorHeap(2, nil)
	if got := h.Allocate(); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if got := h.Allocate(); got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
	if got := h.Allocate(); got != 0 {
		t.Fatalf("got %d, want wraparound to 0", got)
	}
}

func TestDescriptorHeapClearsCacheAfterMaxDescriptors(t *testing.T) {
	h := NewDescriptorHeap(0, nil)

	for i := 0; i < MaxD3D12Descriptors; i++ {
		res := &Native{}
		if _, err := h.FetchOrCreate(res, 0, 1, false); err != nil {
			t.Fatalf("FetchOrCreate %d: %v", i, err)
		}
	}
	if len(h.cache) != MaxD3D12Descriptors {
		t.Fatalf("got %d cached entries, want %d before the wrap", len(h.cache), MaxD3D12Descriptors)
	}

	res := &Native{}
	if _, err := h.FetchOrCreate(res, 0, 1, false); err != nil {
		t.Fatalf("FetchOrCreate after wrap: %v", err)
	}
	if len(h.cache) != 1 {
		t.Fatalf("got %d cached entries, want 1 (cache cleared then repopulated) after the wrap", len(h.cache))
	}
	if h.created != 1 {
		t.Fatalf("got created=%d, want 1 after the wrap resets the counter", h.created)
	}
}
