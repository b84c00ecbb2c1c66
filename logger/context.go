package logger

import (
	"context"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	sessionIDKey contextKey = "session_id"
	userIDKey    contextKey = "user_id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// FromContext returns an entry of base carrying request_id, session_id and user_id when present.
// A nil base falls back to the process logger.
func FromContext(ctx context.Context, base *logrus.Logger) *logrus.Entry {
	if base == nil {
		base = Get()
	}
	fields := logrus.Fields{}
	for _, k := range []contextKey{requestIDKey, sessionIDKey, userIDKey} {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			fields[string(k)] = v
		}
	}
	return base.WithFields(fields)
}
