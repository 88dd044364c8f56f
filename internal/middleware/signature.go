// Package middleware provides HTTP middleware shared across handlers.
package middleware

import (
	"bytes"
	"io"
	"net/http"
)

// WebhookSignature returns middleware that validates a webhook signature
// header using the given verifier. The request body is restored for the next
// handler. A missing header or an invalid signature is rejected before the
// request reaches the agent loop.
func WebhookSignature(header string, verify func(body []byte, signature string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := r.Header.Get(header)
			if sig == "" {
				http.Error(w, header+" header missing", http.StatusBadRequest)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !verify(body, sig) {
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
