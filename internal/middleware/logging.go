package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// Client errors (invalid input, auth, busy) are logged at WARN, anything else
// that fails at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []any{
				"procedure", req.Spec().Procedure,
				"user_id", GetUserID(ctx),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			var connectErr *connect.Error
			switch {
			case err == nil:
				slog.Info("RPC ok", attrs...)
			case errors.As(err, &connectErr) && clientCode(connectErr.Code()):
				slog.Warn("RPC rejected", append(attrs, "code", connectErr.Code().String(), "error", connectErr.Message())...)
			default:
				slog.Error("RPC error", append(attrs, "code", connect.CodeOf(err).String(), "error", err)...)
			}

			return resp, err
		}
	}
}

func clientCode(code connect.Code) bool {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeUnauthenticated, connect.CodePermissionDenied,
		connect.CodeNotFound, connect.CodeResourceExhausted, connect.CodeCanceled:
		return true
	}
	return false
}
