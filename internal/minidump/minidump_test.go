package minidump

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestPathForShape(t *testing.T) {
	id := uuid.New()
	path := PathFor("/ProgramData/NVIDIA/Streamline", "game.exe", "abc1234", id)

	if !strings.Contains(path, "game.exe") {
		t.Fatalf("path %q missing exe component", path)
	}
	if !strings.Contains(path, id.String()) {
		t.Fatalf("path %q missing correlation id", path)
	}
	if !strings.HasSuffix(path, "sl-sha-abc1234.dmp") {
		t.Fatalf("path %q missing expected suffix", path)
	}
}

func TestNoopWriterReturnsID(t *testing.T) {
	w := Noop()
	path, id, err := w.Write("/tmp", DefaultType)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected non-nil correlation id")
	}
	if path == "" {
		t.Fatal("expected non-empty path")
	}
}

func TestDefaultTypeFlags(t *testing.T) {
	want := WithIndirectlyReferencedMemory | IgnoreInaccessibleMemory |
		WithHandleData | WithProcessThreadData | WithThreadInfo
	if DefaultType != want {
		t.Fatalf("got %v, want %v", DefaultType, want)
	}
}
