package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/logger"
	"github.com/fjod/scoremash/internal/session"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type sessionKey struct{}

// SessionManager loads the browser session for every request and keeps the
// cookie pointing at it.
type SessionManager struct {
	store  session.Store
	cookie string
	ttl    time.Duration
	secure bool
	log    logrus.FieldLogger
}

func NewSessionManager(store session.Store, cookie string, ttl time.Duration, secure bool, log logrus.FieldLogger) *SessionManager {
	return &SessionManager{store: store, cookie: cookie, ttl: ttl, secure: secure, log: log}
}

func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		m.setCookie(w, sess.ID)
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionManager) load(r *http.Request) *domain.Session {
	c, err := r.Cookie(m.cookie)
	if err != nil || c.Value == "" {
		return session.New()
	}

	sess, err := m.store.Get(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			logger.FromContext(r.Context(), m.log).WithError(err).Warn("session lookup failed, starting a new one")
		}
		return session.New()
	}
	if err := m.store.Touch(r.Context(), sess.ID); err != nil {
		logger.FromContext(r.Context(), m.log).WithError(err).Warn("session touch failed")
	}
	return sess
}

func (m *SessionManager) setCookie(w http.ResponseWriter, id string) {
	m.dropCookie(w)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// dropCookie removes a session cookie queued earlier in the same response.
func (m *SessionManager) dropCookie(w http.ResponseWriter) {
	prefix := m.cookie + "="
	var kept []string
	for _, c := range w.Header().Values("Set-Cookie") {
		if !strings.HasPrefix(c, prefix) {
			kept = append(kept, c)
		}
	}
	w.Header().Del("Set-Cookie")
	for _, c := range kept {
		w.Header().Add("Set-Cookie", c)
	}
}

// Save persists the session. Failures are logged; the request carries on with
// the in-memory copy.
func (m *SessionManager) Save(r *http.Request, sess *domain.Session) {
	if err := m.store.Save(r.Context(), sess); err != nil {
		logger.FromContext(r.Context(), m.log).WithError(err).Error("failed to save session")
	}
}

// SignIn attaches identity to a fresh session id so a pre-login id cannot be reused.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, sess *domain.Session, identity *domain.Identity) {
	old := sess.ID
	sess.ID = session.New().ID
	sess.SignIn(identity)
	if err := m.store.Delete(r.Context(), old); err != nil {
		logger.FromContext(r.Context(), m.log).WithError(err).Warn("failed to drop pre-login session")
	}
	m.Save(r, sess)
	m.setCookie(w, sess.ID)
}

func (m *SessionManager) Destroy(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	if err := m.store.Delete(r.Context(), sess.ID); err != nil {
		logger.FromContext(r.Context(), m.log).WithError(err).Warn("failed to delete session")
	}
	m.dropCookie(w)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// sessionFrom returns the request's session. Handlers are always mounted
// behind SessionManager.Middleware.
func sessionFrom(ctx context.Context) *domain.Session {
	if s, ok := ctx.Value(sessionKey{}).(*domain.Session); ok {
		return s
	}
	return session.New()
}
