package rest_middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Logger logs every request once served, with its status and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
		if reqId := middleware.GetReqID(r.Context()); reqId != "" {
			entry = entry.WithField("request_id", reqId)
		}
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("rest: request served")
			return
		}
		entry.Debug("rest: request served")
	})
}

// Recoverer recovers from any panic occurred while serving a request and
// hands the response over to the given fallback handler.
func Recoverer(fallback http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithField("panic", rec).Errorf(
					"rest: recovered from panic while serving %s %s\n%s",
					r.Method, r.URL.Path, debug.Stack(),
				)
				fallback.ServeHTTP(w, r)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
