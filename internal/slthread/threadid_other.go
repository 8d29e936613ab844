//go:build !linux && !windows

package slthread

import "runtime"

// CurrentThreadID is a best-effort stand-in on platforms with no portable
// kernel-thread-id syscall wired up here. It parses the calling goroutine's
// id out of its own stack dump header, stable only as long as the goroutine
// stays pinned to its OS thread (see CurrentThreadID's windows/linux variants
// for the real thing).
func CurrentThreadID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for _, b := range buf[len("goroutine "):n] {
		if b < '0' || b > '9' {
			break
		}
		id = id*10 + uint64(b-'0')
	}
	return id
}
