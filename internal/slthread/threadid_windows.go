//go:build windows

package slthread

import "golang.org/x/sys/windows"

// CurrentThreadID returns the Win32 thread id of the calling OS thread.
// Callers that need this to stay stable across a call must pin the
// goroutine with runtime.LockOSThread first.
func CurrentThreadID() uint64 {
	return uint64(windows.GetCurrentThreadId())
}
