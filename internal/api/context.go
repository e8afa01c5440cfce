package api

import (
	"context"
	"time"

	"github.com/terra-clan/compete-engine/internal/urgency"
)

type contextKey string

const nowContextKey contextKey = "request_now"

// NowFromContext returns the instant stamped on the request, or the clock's
// current time when none was stamped
func NowFromContext(ctx context.Context, fallback urgency.Clock) time.Time {
	if now, ok := ctx.Value(nowContextKey).(time.Time); ok {
		return now
	}
	return fallback.Now()
}

// ContextWithNow stamps an evaluation instant on ctx
func ContextWithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowContextKey, now)
}
