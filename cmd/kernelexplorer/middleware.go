package main

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// requestLogger tags each request with a correlation ID and logs method,
// path, and outcome — the introspection server's analogue of the reference
// repo's explorer loggingMiddleware (cmd/explorer/middleware.go).
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		logrus.WithFields(logrus.Fields{"request_id": reqID, "method": r.Method, "path": r.URL.Path}).Info("request")
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}
