// Package accesslog registra uma linha estruturada (log/slog) por requisição.
package accesslog

import (
	"log/slog"
	"net/http"
	"time"

	"ip-api/middleware/clientip"

	"github.com/google/uuid"
)

// RequestIDHeader é reaproveitado quando o cliente/proxy já manda um id.
const RequestIDHeader = "X-Request-ID"

type Options struct {
	Logger   *slog.Logger
	ClientIP clientip.Extractor
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" || len(reqID) > 128 {
				reqID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, reqID)

			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			opts.Logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("uri", r.URL.RequestURI()),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.size),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("client_ip", opts.ClientIP.FromRequest(r)),
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}
