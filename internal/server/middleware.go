package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader carries the generated id back to the client.
const requestIDHeader = "X-Request-ID"

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// middleware applies request id, logging and panic recovery.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Websocket upgrades hijack the connection; wrapping the writer
		// breaks the upgrader.
		if r.URL.Path == "/ws/analyze" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic handling %s %s: %v", r.Method, r.URL.Path, err)
				s.writeError(rec, http.StatusInternalServerError, "internal server error")
			}
		}()

		start := time.Now()
		s.log.Request(r.Method, r.URL.Path, requestID)
		next.ServeHTTP(rec, r)
		s.log.Response(r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}
