// Package log is the process-wide logger used by every other package in
// this module. It wraps github.com/charmbracelet/log with the deferred
// worker, thread-id tagging, and duplicate-line suppression the host-facing
// error taxonomy (see errors.go in the root package) assumes is already in place.
package log

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Level mirrors the preference the host passes to Init.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) toCharm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.FatalLevel + 1 // effectively silent
	}
}

// record is one queued log line, processed on the worker goroutine.
type record struct {
	level   log.Level
	caller  string
	thread  uint64
	message string
}

// Logger is the process-wide deferred logger.
//
// Calls from any goroutine push a record onto a bounded channel; a single
// worker goroutine (locked to its OS thread, mirroring the interposer's
// other thread-affine work) drains it so hot render-thread paths never
// block on console or file I/O.
type Logger struct {
	mu sync.Mutex

	base    *log.Logger
	level   Level
	verbose bool

	messageDelay time.Duration // duplicate-suppression window, 0 disables it
	lastSeen     map[string]time.Time

	callback func(level Level, msg string)

	queue chan record
	done  chan struct{}
	wg    sync.WaitGroup
}

var (
	globalMu sync.Mutex
	global   *Logger
)

// Preferences is the subset of host Preferences (see package root) relevant
// to logging configuration.
type Preferences struct {
	Level        Level
	Path         string // optional log file path; empty means stderr only
	Verbose      bool   // disables duplicate-line suppression per spec §7
	MessageDelay time.Duration
	Callback     func(level Level, msg string)
}

// Init configures (or reconfigures) the process-wide logger. Safe to call
// multiple times; a prior worker is stopped before the new one starts.
func Init(prefs Preferences) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if global != nil {
		global.Stop(5 * time.Second)
	}

	delay := prefs.MessageDelay
	if delay == 0 && !prefs.Verbose {
		delay = 5 * time.Second
	}
	if prefs.Verbose {
		delay = 0
	}

	var out *os.File = os.Stderr
	if prefs.Path != "" {
		if f, err := os.OpenFile(prefs.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}

	base := log.NewWithOptions(out, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "sl ",
	})
	base.SetLevel(prefs.Level.toCharm())

	l := &Logger{
		base:         base,
		level:        prefs.Level,
		verbose:      prefs.Verbose,
		messageDelay: delay,
		lastSeen:     make(map[string]time.Time),
		callback:     prefs.Callback,
		queue:        make(chan record, 1024),
		done:         make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run()

	global = l
	return l
}

// Global returns the process-wide logger, lazily creating a default one
// (info level, stderr, default dedup window) if Init was never called.
func Global() *Logger {
	globalMu.Lock()
	l := global
	globalMu.Unlock()
	if l != nil {
		return l
	}
	return Init(Preferences{Level: LevelInfo})
}

func (l *Logger) run() {
	defer l.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case r := <-l.queue:
			l.emit(r)
		case <-l.done:
			// Drain remaining queued records before exiting; shutdown flush
			// is unbounded per spec §5/§7.
			for {
				select {
				case r := <-l.queue:
					l.emit(r)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) emit(r record) {
	key := fmt.Sprintf("%d|%s|%s", r.level, r.caller, r.message)

	l.mu.Lock()
	if l.messageDelay > 0 {
		if last, ok := l.lastSeen[key]; ok && time.Since(last) < l.messageDelay {
			l.mu.Unlock()
			return
		}
	}
	l.lastSeen[key] = time.Now()
	l.mu.Unlock()

	logger := l.base.With("thread", r.thread, "at", r.caller)
	switch r.level {
	case log.DebugLevel:
		logger.Debug(r.message)
	case log.InfoLevel:
		logger.Info(r.message)
	case log.WarnLevel:
		logger.Warn(r.message)
	case log.ErrorLevel, log.FatalLevel:
		logger.Error(r.message)
	}

	if l.callback != nil {
		l.callback(fromCharm(r.level), r.message)
	}
}

func fromCharm(lv log.Level) Level {
	switch lv {
	case log.DebugLevel:
		return LevelDebug
	case log.InfoLevel:
		return LevelInfo
	case log.WarnLevel:
		return LevelWarn
	default:
		return LevelError
	}
}

func callerString(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// threadID is a best-effort stand-in for an OS thread id. Go exposes no
// portable syscall for the kernel thread id, so the calling goroutine's id
// (parsed out of its own stack dump header) is used instead -- stable for
// the lifetime of one log call and good enough to tell two concurrent
// callers apart in the log, which is all the spec's "thread id" tag needs.
func threadID() uint64 {
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

func (l *Logger) push(level log.Level, msg string) {
	select {
	case l.queue <- record{level: level, caller: callerString(3), thread: threadID(), message: msg}:
	default:
		// Queue full: drop rather than block the caller's render thread.
	}
}

func (l *Logger) Debugf(format string, args ...any) { l.push(log.DebugLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Infof(format string, args ...any)  { l.push(log.InfoLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Warnf(format string, args ...any)  { l.push(log.WarnLevel, fmt.Sprintf(format, args...)) }
func (l *Logger) Errorf(format string, args ...any) { l.push(log.ErrorLevel, fmt.Sprintf(format, args...)) }

// Stop flushes the queue (bounded by timeout, UINT_MAX/unbounded when
// timeout<=0) and stops the worker goroutine.
func (l *Logger) Stop(timeout time.Duration) {
	close(l.done)
	if timeout <= 0 {
		l.wg.Wait()
		return
	}
	doneCh := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(timeout):
	}
}

func Debugf(format string, args ...any) { Global().Debugf(format, args...) }
func Infof(format string, args ...any)  { Global().Infof(format, args...) }
func Warnf(format string, args ...any)  { Global().Warnf(format, args...) }
func Errorf(format string, args ...any) { Global().Errorf(format, args...) }
