package utils

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
)

// GetRequestIDFromContext returns the id chi's RequestID middleware stored on
// the request context.
func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id := middleware.GetReqID(ctx)
	return id, id != ""
}

// LogPrefix is prepended to handler log lines so they can be matched with the
// access log.
func LogPrefix(ctx context.Context) string {
	if id, ok := GetRequestIDFromContext(ctx); ok {
		return "[" + id + "] "
	}
	return ""
}
