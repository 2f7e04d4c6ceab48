package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	SampleN   int
	Component string
}

type ctxKey string

const (
	ctxReqIDKey      ctxKey = "request_id"
	ctxComponent     ctxKey = "component"
	ctxWorkItemKey   ctxKey = "work_item_id"
	ctxAOIKey        ctxKey = "aoi"
	ctxSourceFileKey ctxKey = "source_file"
)

func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return context.WithValue(ctx, ctxReqIDKey, reqID)
}

func WithComponent(ctx context.Context, component string) context.Context {
	if component == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxComponent, component)
}

// WithWorkItem scopes subsequent log lines to the dispatcher's current
// work item, so Received/Loading/Processing/Publishing/Acknowledged lines
// for the same item can be correlated.
func WithWorkItem(ctx context.Context, workItemID string) context.Context {
	if workItemID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxWorkItemKey, workItemID)
}

// WithAOI scopes subsequent log lines to the AOI (pk_and_model) an
// ADD/DELETE/COMPARE operation is acting on.
func WithAOI(ctx context.Context, aoi string) context.Context {
	if aoi == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxAOIKey, aoi)
}

// WithSourceFile scopes subsequent log lines to the payload object key a
// work item's rows were loaded from.
func WithSourceFile(ctx context.Context, sourceFile string) context.Context {
	if sourceFile == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxSourceFileKey, sourceFile)
}

func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func safeUint32(n int) uint32 {
	if n <= 0 {
		return 0
	}
	if n > int(math.MaxUint32) {
		return math.MaxUint32
	}
	return uint32(n)
}

func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	base := zerolog.New(out)

	if cfg.SampleN > 0 {
		n := safeUint32(cfg.SampleN)
		if n > 0 {
			base = base.Sample(&zerolog.BasicSampler{N: n})
		}
	}

	lvl := strings.ToLower(strings.TrimSpace(cfg.Level))
	switch lvl {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx := base.With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return ctx.Logger()
}

// returns a child logger with context fields applied
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	var base zerolog.Logger
	if parent == nil {
		base = zerolog.New(io.Discard)
	} else {
		base = *parent
	}
	w := base.With()
	if v := ctx.Value(ctxReqIDKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			w = w.Str("request_id", s)
		}
	}
	if v := ctx.Value(ctxComponent); v != nil {
		if s, ok := v.(string); ok && s != "" {
			w = w.Str("component", s)
		}
	}
	if v := ctx.Value(ctxWorkItemKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			w = w.Str("work_item_id", s)
		}
	}
	if v := ctx.Value(ctxAOIKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			w = w.Str("aoi", s)
		}
	}
	if v := ctx.Value(ctxSourceFileKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			w = w.Str("source_file", s)
		}
	}
	l := w.Logger()
	return &l
}
