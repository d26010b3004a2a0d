package logger

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var once sync.Once

// Init configures the global zerolog logger exactly once.
// Call this in bootstrap before anything logs.
func Init(serviceName, level string) {
	once.Do(func() {
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil || level == "" {
			lvl = zerolog.InfoLevel
		}
		zerolog.TimeFieldFormat = time.RFC3339
		log.Logger = zerolog.New(os.Stdout).
			Level(lvl).
			With().
			Timestamp().
			Str("service", serviceName).
			Logger()
	})
}

// Ctx returns the logger attached to ctx, or the global logger when the
// context carries none. Mirrors zerolog's own Ctx but never returns a
// disabled logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// WithCtx attaches l to ctx so downstream code can retrieve it via Ctx.
func WithCtx(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
