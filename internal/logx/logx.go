package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// Logger writes one key=value line per event. Loggers derived with With share
// the parent's output and lock.
type Logger struct {
	mu     *sync.Mutex
	min    Level
	inner  *log.Logger
	fields []string
	now    func() time.Time
}

func New(min Level) *Logger {
	return NewWriter(os.Stdout, min)
}

func NewWriter(w io.Writer, min Level) *Logger {
	return &Logger{
		mu:    &sync.Mutex{},
		min:   min,
		inner: log.New(w, "", 0),
		now:   time.Now,
	}
}

// ParseLevel maps LOG_LEVEL style strings onto a Level, defaulting to Info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// With returns a logger that prefixes every line with the given pairs.
func (l *Logger) With(kv ...any) *Logger {
	child := *l
	child.fields = append(append([]string(nil), l.fields...), pairs(kv)...)
	return &child
}

func (l *Logger) Enabled(level Level) bool { return level >= l.min }

func (l *Logger) Debug(msg string, kv ...any) { l.log(Debug, msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.log(Info, msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.log(Warn, msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.log(Error, msg, kv...) }

func (l *Logger) log(level Level, msg string, kv ...any) {
	if !l.Enabled(level) {
		return
	}

	parts := []string{
		l.now().UTC().Format(time.RFC3339),
		"level=" + strings.ToLower(level.String()),
		"msg=" + quote(msg),
	}
	parts = append(parts, l.fields...)
	parts = append(parts, pairs(kv)...)

	l.mu.Lock()
	l.inner.Println(strings.Join(parts, " "))
	l.mu.Unlock()
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// pairs renders kv as key=value tokens; a trailing odd key is dropped.
func pairs(kv []any) []string {
	out := make([]string, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		value := fmt.Sprint(kv[i+1])
		out = append(out, key+"="+quote(value))
	}
	return out
}

func quote(value string) string {
	if value == "" {
		return `""`
	}
	if strings.ContainsAny(value, " \t\n\"=") {
		return fmt.Sprintf("%q", value)
	}
	return value
}
