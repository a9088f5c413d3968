package middleware

import (
	"net/http"
	"time"

	"github.com/inkdraft/credits/internal/handlers/userctx"
)

type logger interface {
	Info(msg string, args ...any)
}

type logData struct {
	responseStatus int
	responseSize   int
}

type logWriter struct {
	http.ResponseWriter
	data logData
}

func (w *logWriter) Write(p []byte) (int, error) {
	size, err := w.ResponseWriter.Write(p)
	w.data.responseSize += size
	return size, err
}

func (w *logWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.data.responseStatus = statusCode
}

// LoggerMiddleware logs one line per request: method, uri, duration,
// status, size and the caller id when the request authenticated
func LoggerMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lw := &logWriter{
				ResponseWriter: w,
				data:           logData{responseStatus: http.StatusOK, responseSize: 0},
			}

			// Auth runs further down the chain, the record brings the
			// resolved caller back to this log line
			r = r.WithContext(userctx.WithRecord(r.Context()))

			next.ServeHTTP(lw, r)

			args := []any{
				"method", r.Method,
				"uri", r.RequestURI,
				"duration", time.Since(start),
				"status", lw.data.responseStatus,
				"size", lw.data.responseSize,
			}
			if caller, ok := userctx.Recorded(r.Context()); ok {
				args = append(args, "callerID", caller.ID)
			}

			l.Info("got HTTP request", args...)
		})
	}
}
