// Package log provides structured logging for the loan default pipeline.
//
// Two entry points exist. GetLogger returns the global zerolog logger for
// call sites that build events fluently (logger.Error().Err(err).Msg(...)).
// GetLoggerWithName returns a Logger that accepts alternating key/value
// pairs and is what estimators and stages embed.
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Level is a logging severity.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Structured field keys shared across packages.
const (
	ComponentKey  = "component"
	ModelNameKey  = "model_name"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	StageKey      = "stage"
	PathKey       = "path"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	DurationMsKey = "duration_ms"
	PredsKey      = "predictions"
	IterationKey  = "iteration"

	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationResample  = "resample"

	PhaseTraining  = "training"
	PhaseInference = "inference"
)

// Logger is the key/value logging interface used by estimators.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Logger
}

// LoggerProvider hands out named loggers.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}

var (
	mu             sync.RWMutex
	globalLogger   zerolog.Logger
	globalProvider LoggerProvider
)

func init() {
	globalLogger = newZerolog(os.Stderr, LevelInfo)
	globalProvider = &zerologProvider{base: globalLogger}
}

// ToLogLevel parses a level name. Unknown names map to LevelInfo.
func ToLogLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "fatal":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newZerolog(w io.Writer, level Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: w != io.Writer(os.Stderr)}
	return zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()
}

// SetupLogger configures the global logger at the given level, writing to stderr.
func SetupLogger(level string) {
	SetOutput(os.Stderr, ToLogLevel(level))
}

// SetOutput redirects the global logger.
func SetOutput(w io.Writer, level Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLogger = newZerolog(w, level)
	globalProvider = &zerologProvider{base: globalLogger}
}

// NewZerologProvider creates a provider writing to stderr at the given level.
func NewZerologProvider(level Level) LoggerProvider {
	return &zerologProvider{base: newZerolog(os.Stderr, level)}
}

// SetProvider replaces the provider used by GetLoggerWithName.
func SetProvider(p LoggerProvider) {
	mu.Lock()
	defer mu.Unlock()
	globalProvider = p
}

// GetLogger returns the global zerolog logger.
func GetLogger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := globalLogger
	return &l
}

// GetLoggerWithName returns a key/value logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalProvider.GetLoggerWithName(name)
}

// LogError logs err with its full chain at error level.
func LogError(err error, msg string) {
	if err == nil {
		return
	}
	logger := GetLogger()
	logger.Error().Err(err).Msg(msg)
}

type zerologProvider struct {
	base zerolog.Logger
}

func (p *zerologProvider) GetLogger() Logger {
	return &zerologAdapter{l: p.base}
}

func (p *zerologProvider) GetLoggerWithName(name string) Logger {
	return &zerologAdapter{l: p.base.With().Str(ComponentKey, name).Logger()}
}

func (p *zerologProvider) SetLevel(level Level) {
	p.base = p.base.Level(level.zerolog())
}

type zerologAdapter struct {
	l zerolog.Logger
}

func (a *zerologAdapter) Debug(msg string, fields ...any) { a.emit(a.l.Debug(), msg, fields) }
func (a *zerologAdapter) Info(msg string, fields ...any)  { a.emit(a.l.Info(), msg, fields) }
func (a *zerologAdapter) Warn(msg string, fields ...any)  { a.emit(a.l.Warn(), msg, fields) }
func (a *zerologAdapter) Error(msg string, fields ...any) { a.emit(a.l.Error(), msg, fields) }

func (a *zerologAdapter) With(fields ...any) Logger {
	ctx := a.l.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(keyOf(fields[i]), fields[i+1])
	}
	return &zerologAdapter{l: ctx.Logger()}
}

func (a *zerologAdapter) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			e = e.Interface("extra", fields[i])
			break
		}
		if err, ok := fields[i+1].(error); ok {
			e = e.AnErr(keyOf(fields[i]), err)
			continue
		}
		e = e.Interface(keyOf(fields[i]), fields[i+1])
	}
	e.Msg(msg)
}

func keyOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "key"
}
