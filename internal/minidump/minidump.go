// Package minidump describes, but does not implement, the crash-dump writer
// the core invokes when an evaluate call raises an unhandled exception. The
// dump format and capture mechanism are platform SDK surface (DbgHelp's
// MiniDumpWriteDump on the real target) explicitly out of scope here; this
// package defines the interface the core consumes and a no-op default so
// the module is usable without a platform-specific writer wired in.
package minidump

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Type bitmask mirrors the dump content flags the design notes name:
// MiniDumpWithIndirectlyReferencedMemory | IgnoreInaccessibleMemory |
// WithHandleData | WithProcessThreadData | WithThreadInfo.
type Type uint32

const (
	WithIndirectlyReferencedMemory Type = 1 << iota
	IgnoreInaccessibleMemory
	WithHandleData
	WithProcessThreadData
	WithThreadInfo
)

// DefaultType is the flag combination the design notes specify for the
// exception handler's dump.
const DefaultType = WithIndirectlyReferencedMemory | IgnoreInaccessibleMemory |
	WithHandleData | WithProcessThreadData | WithThreadInfo

// Writer captures a crash dump of the current process.
type Writer interface {
	// Write captures a dump of kind typ to a path it chooses under root,
	// returning the path written and the correlation id used to name it.
	Write(root string, typ Type) (path string, id uuid.UUID, err error)
}

// PathFor builds the dump path the design notes describe:
// <root>/<exe>/<correlationID>/sl-sha-<gitSHA>.dmp, where correlationID is
// a fresh id minted per dump rather than a wall-clock microsecond count, so
// callers don't need Go's banned-in-this-module clock primitives to name a
// file uniquely.
func PathFor(root, exe, gitSHA string, id uuid.UUID) string {
	return filepath.Join(root, exe, id.String(), fmt.Sprintf("sl-sha-%s.dmp", gitSHA))
}

// noopWriter is the default Writer: it returns a path and a fresh id but
// writes no file and performs no platform capture. Real platform builds supply their own
// Writer (DbgHelp on Windows, a core(5)-based capture elsewhere) and pass it
// to the core at construction time.
type noopWriter struct{}

// Noop returns a Writer that performs no capture, for platforms or test
// builds with no dump backend wired in.
func Noop() Writer { return noopWriter{} }

func (noopWriter) Write(root string, typ Type) (string, uuid.UUID, error) {
	id := uuid.New()
	return PathFor(root, "unknown", "unknown", id), id, nil
}
