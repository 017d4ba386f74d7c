// Package logger owns the process-wide zap logger. Components take a named
// child with MustNamed; request-scoped code logs through logctx instead.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init replaces the root logger. Until it is called everything logs to a nop core.
func Init(cfg Config) error {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	var zc zap.Config
	switch cfg.Format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json", "":
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "time"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	Set(l)
	return nil
}

// Set swaps the root logger, mostly for tests.
func Set(l *zap.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

func Sync() error {
	return L().Sync()
}

// Logger is a named sugared logger.
type Logger struct {
	*zap.SugaredLogger
}

func MustNamed(name string) *Logger {
	return &Logger{SugaredLogger: L().WithOptions(zap.AddCallerSkip(-1)).Named(name).Sugar()}
}

// Reflect builds a field that serialises v with reflection.
func (l *Logger) Reflect(key string, v any) zap.Field {
	return zap.Reflect(key, v)
}

func (l *Logger) Unwrap() *zap.SugaredLogger {
	return l.SugaredLogger
}
