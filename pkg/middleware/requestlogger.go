package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/QuaichGo/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, member_id,
// trace_id and span_id in the request context. Mount it after
// RequestLogging, Tracing and Auth so those fields are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := MemberIDFromContext(ctx); id != "" && logger.MemberIDFromContext(ctx) == "" {
				ctx = logger.WithMemberID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
