package middleware

import (
	"net/http"

	apperrors "dormly/pkg/errors"
)

// MaxRequestSize caps request bodies. A declared length over the cap is
// refused up front; a body that grows past it fails on read.
func MaxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				reject(w, http.StatusRequestEntityTooLarge, apperrors.CodeBadRequest, "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
