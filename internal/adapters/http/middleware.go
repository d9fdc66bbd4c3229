package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/privacy-requests-service/internal/domain"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpLogger().ErrorContext(r.Context(), "panic recovered",
					"operation", "http_panic_recovery",
					"outcome", "failure",
					"request_id", requestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *statusRecorder) Write(payload []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(payload)
	r.bytes += n
	return n, err
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		statusCode := recorder.statusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		outcome := "success"
		if statusCode >= 400 {
			outcome = "failure"
		}

		fields := []any{
			"operation", "http_request",
			"outcome", outcome,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", statusCode,
			"bytes", recorder.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", requestIDFromContext(r.Context()),
		}
		switch {
		case statusCode >= 500:
			httpLogger().ErrorContext(r.Context(), "http request completed", fields...)
		case statusCode >= 400:
			httpLogger().WarnContext(r.Context(), "http request completed", fields...)
		default:
			httpLogger().InfoContext(r.Context(), "http request completed", fields...)
		}
	})
}

func requestIDFromContext(ctx context.Context) string {
	v := ctx.Value(ctxKeyRequestID)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func mapDomainError(err error) (int, string, string) {
	var srcErr *domain.SourceError
	if errors.As(err, &srcErr) {
		return http.StatusBadGateway, "SOURCE_FAILED", err.Error()
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusBadRequest, "STEP_OUT_OF_RANGE", err.Error()
	case errors.Is(err, domain.ErrTokenExpired):
		return http.StatusUnauthorized, "TOKEN_EXPIRED", "confirmation link expired"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "invalid confirmation token"
	case errors.Is(err, domain.ErrIllegalTransition):
		return http.StatusConflict, "ILLEGAL_TRANSITION", err.Error()
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrNotification):
		return http.StatusBadGateway, "NOTIFICATION_FAILED", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
