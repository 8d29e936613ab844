//go:build linux

package slthread

import "golang.org/x/sys/unix"

// CurrentThreadID returns the kernel thread id (gettid) of the calling OS
// thread. Callers that need this to stay stable across a call must pin the
// goroutine with runtime.LockOSThread first, e.g. by calling it from
// inside Worker.Call.
func CurrentThreadID() uint64 {
	return uint64(unix.Gettid())
}
