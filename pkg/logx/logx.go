package logx

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity that gets written
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Fields are structured key/value pairs attached to a log line
type Fields map[string]any

var (
	mu     sync.RWMutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar  *zap.SugaredLogger
	inited sync.Once
)

func base() *zap.SugaredLogger {
	inited.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if sugar == nil {
			sugar = build(os.Getenv("LOG_FORMAT"))
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func build(format string) *zap.SugaredLogger {
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json", "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = level
	cfg.DisableStacktrace = true
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetLevel changes the minimum level at runtime
func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		level.SetLevel(zapcore.DebugLevel)
	case LevelWarn:
		level.SetLevel(zapcore.WarnLevel)
	case LevelError:
		level.SetLevel(zapcore.ErrorLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetFormat rebuilds the logger with a "json" or "console" encoder
func SetFormat(format string) {
	inited.Do(func() {})
	mu.Lock()
	sugar = build(format)
	mu.Unlock()
}

// Sync flushes buffered entries
func Sync() {
	_ = base().Sync()
}

func Debug(args ...any)                 { base().Debug(args...) }
func Debugf(format string, args ...any) { base().Debugf(format, args...) }
func Info(args ...any)                  { base().Info(args...) }
func Infof(format string, args ...any)  { base().Infof(format, args...) }
func Warn(args ...any)                  { base().Warn(args...) }
func Warnf(format string, args ...any)  { base().Warnf(format, args...) }
func Error(args ...any)                 { base().Error(args...) }
func Errorf(format string, args ...any) { base().Errorf(format, args...) }
func Fatal(args ...any)                 { base().Fatal(args...) }
func Fatalf(format string, args ...any) { base().Fatalf(format, args...) }

// ============================================================================
// Entry
// ============================================================================

// Entry is a logger bound to a set of fields
type Entry struct {
	s *zap.SugaredLogger
}

// WithFields returns an entry that writes the given fields on every line
func WithFields(fields Fields) *Entry {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &Entry{s: base().With(kv...)}
}

// WithField is WithFields for a single pair
func WithField(key string, value any) *Entry {
	return &Entry{s: base().With(key, value)}
}

// WithFields adds more fields to an existing entry
func (e *Entry) WithFields(fields Fields) *Entry {
	kv := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	return &Entry{s: e.s.With(kv...)}
}

func (e *Entry) Debug(args ...any)                 { e.s.Debug(args...) }
func (e *Entry) Debugf(format string, args ...any) { e.s.Debugf(format, args...) }
func (e *Entry) Info(args ...any)                  { e.s.Info(args...) }
func (e *Entry) Infof(format string, args ...any)  { e.s.Infof(format, args...) }
func (e *Entry) Warn(args ...any)                  { e.s.Warn(args...) }
func (e *Entry) Warnf(format string, args ...any)  { e.s.Warnf(format, args...) }
func (e *Entry) Error(args ...any)                 { e.s.Error(args...) }
func (e *Entry) Errorf(format string, args ...any) { e.s.Errorf(format, args...) }
