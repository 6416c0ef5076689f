package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/service"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	accounts AccountService
	sessions *SessionManager
	timeout  time.Duration
	maxBody  int64
	log      logrus.FieldLogger
}

func NewAuthHandler(accounts AccountService, sessions *SessionManager, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type SignUpRequest struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirm-password"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" form:"email"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type AuthPage struct {
	Page    string `json:"page"`
	Success string `json:"success,omitempty"`
}

// Page serves the sign in, sign up and password reset forms to anonymous visitors.
func (h *AuthHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r.Context()).LoggedIn() {
			redirect(w, r, "/")
			return
		}
		respondJSON(w, http.StatusOK, AuthPage{Page: name})
	}
}

// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignInRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	identity, err := h.accounts.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		respondFormError(w, logger.FromContext(r.Context(), h.log), err)
		return
	}

	h.sessions.SignIn(w, r, sessionFrom(r.Context()), identity)
	if identity.IsAdmin {
		redirect(w, r, "/admin")
		return
	}
	redirect(w, r, "/")
}

// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SignUpRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	identity, err := h.accounts.SignUp(ctx, service.SignUpInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondFormError(w, logger.FromContext(r.Context(), h.log), err)
		return
	}

	h.sessions.SignIn(w, r, sessionFrom(r.Context()), identity)
	redirect(w, r, "/")
}

// POST /auth/forgot-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ResetPasswordRequest
	if err := bind(w, r, h.maxBody, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	if err := h.accounts.ResetPassword(ctx, req.Email, req.NewPassword, req.ConfirmPassword); err != nil {
		respondFormError(w, logger.FromContext(r.Context(), h.log), err)
		return
	}

	respondJSON(w, http.StatusOK, AuthPage{
		Page:    "forgot-password",
		Success: "Password reset successfully! You can now sign in with your new password.",
	})
}

// GET /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r, sessionFrom(r.Context()))
	redirect(w, r, "/")
}

// respondFormError answers a failed form post with 422 and a message the
// page can show. Unexpected failures are logged and replaced by a generic message.
func respondFormError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: verr.Message, Code: "validation_error", Details: verr.Field})
		return
	}
	if _, message, ok := userError(err); ok {
		respondError(w, http.StatusUnprocessableEntity, "rejected", message)
		return
	}
	log.WithError(err).Error("form submission failed")
	respondError(w, http.StatusInternalServerError, "internal_error", "An error occurred. Please try again.")
}

func identityOf(r *http.Request) *domain.Identity {
	return sessionFrom(r.Context()).Identity
}
