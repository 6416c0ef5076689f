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

type SettingsHandler struct {
	accounts AccountService
	sessions *SessionManager
	timeout  time.Duration
	maxBody  int64
	log      logrus.FieldLogger
}

func NewSettingsHandler(accounts AccountService, sessions *SessionManager, timeout time.Duration, maxBody int64, log logrus.FieldLogger) *SettingsHandler {
	return &SettingsHandler{
		accounts: accounts,
		sessions: sessions,
		timeout:  timeout,
		maxBody:  maxBody,
		log:      log,
	}
}

type ProfileRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

type PasswordRequest struct {
	CurrentPassword string `json:"currentPassword" form:"currentPassword"`
	NewPassword     string `json:"newPassword" form:"newPassword"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

type NotificationsRequest struct {
	MatchUpdates      bool `json:"matchUpdates" form:"matchUpdates"`
	NewsArticles      bool `json:"newsArticles" form:"newsArticles"`
	TournamentUpdates bool `json:"tournamentUpdates" form:"tournamentUpdates"`
	OrderUpdates      bool `json:"orderUpdates" form:"orderUpdates"`
}

type PreferencesRequest struct {
	Theme               string `json:"theme" form:"theme"`
	Language            string `json:"language" form:"language"`
	Timezone            string `json:"timezone" form:"timezone"`
	ShowFeaturedContent bool   `json:"showFeaturedContent" form:"showFeaturedContent"`
	AutoPlayVideos      bool   `json:"autoPlayVideos" form:"autoPlayVideos"`
}

type SettingsPage struct {
	Section string          `json:"section"`
	Account *domain.Account `json:"account"`
	Success string          `json:"success,omitempty"`
}

// Section renders one settings tab.
func (h *SettingsHandler) Section(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, name, "")
	}
}

func (h *SettingsHandler) render(w http.ResponseWriter, r *http.Request, section, success string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	account, err := h.accounts.Get(ctx, identityOf(r).ID)
	if err != nil {
		if !errors.Is(err, service.ErrAccountNotFound) {
			h.logger(r).WithError(err).Error("failed to load settings")
			redirect(w, r, "/")
			return
		}
		redirect(w, r, "/auth/signin")
		return
	}
	respondJSON(w, http.StatusOK, SettingsPage{Section: section, Account: account, Success: success})
}

// POST /settings/account
func (h *SettingsHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProfileRequest
	if !h.bind(w, r, &req) {
		return
	}

	sess := sessionFrom(r.Context())
	identity, err := h.accounts.UpdateProfile(ctx, sess.Identity.ID, req.Name, req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess.Identity = identity
	h.sessions.Save(r, sess)

	h.render(w, r, "account", "Account information updated successfully")
}

// POST /settings/password
func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PasswordRequest
	if !h.bind(w, r, &req) {
		return
	}

	err := h.accounts.ChangePassword(ctx, identityOf(r).ID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, "account", "Password changed successfully")
}

// POST /settings/notifications
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req NotificationsRequest
	if !h.bind(w, r, &req) {
		return
	}

	err := h.accounts.UpdateNotifications(ctx, identityOf(r).ID, domain.Notifications{
		MatchUpdates:      req.MatchUpdates,
		NewsArticles:      req.NewsArticles,
		TournamentUpdates: req.TournamentUpdates,
		OrderUpdates:      req.OrderUpdates,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, "notifications", "Notification settings updated successfully")
}

// POST /settings/preferences
func (h *SettingsHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PreferencesRequest
	if !h.bind(w, r, &req) {
		return
	}

	_, err := h.accounts.UpdatePreferences(ctx, identityOf(r).ID, service.PreferencesInput{
		Theme:               req.Theme,
		Language:            req.Language,
		Timezone:            req.Timezone,
		ShowFeaturedContent: req.ShowFeaturedContent,
		AutoPlayVideos:      req.AutoPlayVideos,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, "preferences", "Preferences updated successfully")
}

func (h *SettingsHandler) bind(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := bind(w, r, h.maxBody, dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

func (h *SettingsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrAccountNotFound) {
		redirect(w, r, "/auth/signin")
		return
	}
	respondFormError(w, h.logger(r), err)
}

func (h *SettingsHandler) logger(r *http.Request) logrus.FieldLogger {
	return logger.FromContext(r.Context(), h.log).WithField("account_id", identityOf(r).ID)
}
