package http

import (
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// RequestLogger writes one logrus entry per request.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			entry := logger.FromContext(r.Context(), log).WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   ww.Status(),
				"bytes":    ww.BytesWritten(),
				"duration": time.Since(start).String(),
			})
			if ww.Status() >= http.StatusInternalServerError {
				entry.Warn("request failed")
				return
			}
			entry.Info("request handled")
		})
	}
}

// RequireCustomer guards cart calls made by the storefront scripts.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !sess.LoggedIn() {
			respondFailure(w, http.StatusUnauthorized, "Please login to add items to cart")
			return
		}
		if sess.IsAdmin() {
			respondFailure(w, http.StatusForbidden, "Admins cannot add items to cart")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireShopper guards the checkout pages.
func RequireShopper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !sess.LoggedIn() {
			redirect(w, r, "/auth/signin")
			return
		}
		if sess.IsAdmin() {
			respondFailure(w, http.StatusForbidden, "Admins cannot checkout")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccount sends anonymous visitors to the sign in page. The admin has
// no account document, so it is treated as anonymous here.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !sess.LoggedIn() || sess.IsAdmin() {
			redirect(w, r, "/auth/signin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !sess.LoggedIn() {
			respondError(w, http.StatusUnauthorized, "unauthorized", "login required")
			return
		}
		if !sess.IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
