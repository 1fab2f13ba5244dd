package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type ctxKey struct{}

var (
	globalMx sync.RWMutex
	global   = zap.NewNop().Sugar()
)

// Init replaces the global logger. mode is "prod"/"production" or anything else for development.
func Init(mode string) error {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	globalMx.Lock()
	global = l.Sugar()
	globalMx.Unlock()
	return nil
}

func Sync() {
	_ = get().Sync()
}

// WithFields returns a context whose logger carries the given key/value pairs.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return context.WithValue(ctx, ctxKey{}, fromContext(ctx).With(keysAndValues...))
}

func get() *zap.SugaredLogger {
	globalMx.RLock()
	defer globalMx.RUnlock()
	return global
}

func fromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	return get()
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Debugf(format, args...)
}

func Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	fromContext(ctx).Infow(msg, keysAndValues...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Warnf(format, args...)
}

func Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	fromContext(ctx).Errorw(msg, keysAndValues...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Errorf(format, args...)
}

func Fatal(ctx context.Context, err error) {
	fromContext(ctx).Fatal(err)
}
