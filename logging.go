package linkstart

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (lv Level) String() string {
	switch lv {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(lv))
}

// Logger is what the render context, the passes and the app write to. Debug
// output carries per-frame statistics and is off unless enabled.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes timestamped lines. Debug and info go to one sink,
// warnings and errors to the other.
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	return NewWriterLogger(prefix, debug, os.Stdout, os.Stderr)
}

func NewWriterLogger(prefix string, debug bool, out, errOut io.Writer) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(out, "", flags),
		err:    log.New(errOut, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) print(level Level, format string, args ...any) {
	if level == LevelDebug && !l.DebugEnabled() {
		return
	}
	line := level.String() + ": " + fmt.Sprintf(format, args...)
	if l.prefix != "" {
		line = "[" + l.prefix + "] " + line
	}
	if level >= LevelWarn {
		l.err.Print(line)
		return
	}
	l.out.Print(line)
}

func (l *DefaultLogger) Debugf(format string, args ...any) { l.print(LevelDebug, format, args...) }
func (l *DefaultLogger) Infof(format string, args ...any)  { l.print(LevelInfo, format, args...) }
func (l *DefaultLogger) Warnf(format string, args ...any)  { l.print(LevelWarn, format, args...) }
func (l *DefaultLogger) Errorf(format string, args ...any) { l.print(LevelError, format, args...) }

// FrameLogger passes everything through to Logger except warnings, which a
// render loop tends to repeat every frame. A warning whose format was printed
// less than Interval ago is dropped, and the number dropped is appended to
// the next one that gets through.
type FrameLogger struct {
	Logger
	Interval time.Duration

	mu      sync.Mutex
	now     func() time.Time
	last    map[string]time.Time
	dropped map[string]int
}

func NewFrameLogger(l Logger, interval time.Duration) *FrameLogger {
	return &FrameLogger{
		Logger:   OrNop(l),
		Interval: interval,
		now:      time.Now,
		last:     map[string]time.Time{},
		dropped:  map[string]int{},
	}
}

func (f *FrameLogger) Warnf(format string, args ...any) {
	f.mu.Lock()
	now := f.now()
	if last, ok := f.last[format]; ok && now.Sub(last) < f.Interval {
		f.dropped[format]++
		f.mu.Unlock()
		return
	}
	f.last[format] = now
	n := f.dropped[format]
	delete(f.dropped, format)
	f.mu.Unlock()

	if n > 0 {
		f.Logger.Warnf(format+" (%d more since last report)", append(args[:len(args):len(args)], n)...)
		return
	}
	f.Logger.Warnf(format, args...)
}

type nopLogger struct{}

func NewNopLogger() Logger                          { return nopLogger{} }
func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(enabled bool)             {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
