package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccount() *domain.Account {
	return &domain.Account{
		ID:            "u1",
		Name:          "Asha",
		Email:         "asha@example.com",
		Preferences:   domain.DefaultPreferences(),
		Notifications: domain.DefaultNotifications(),
	}
}

func TestSettings_RequiresAccount(t *testing.T) {
	ts := newTestServer(t)

	for _, sid := range []string{"", ts.admin(t)} {
		rec := ts.get("/settings", sid)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
	}

	// a session whose account disappeared
	rec := ts.get("/settings/preferences", ts.customer(t))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/signin", rec.Header().Get("Location"))
}

func TestSettings_Sections(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.account = testAccount()
	sid := ts.customer(t)

	for _, section := range []string{"notifications", "preferences", "help"} {
		rec := ts.get("/settings/"+section, sid)
		require.Equal(t, http.StatusOK, rec.Code)
		var page SettingsPage
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
		assert.Equal(t, section, page.Section)
		assert.Equal(t, "asha@example.com", page.Account.Email)
	}
}

func TestUpdateAccount_RefreshesIdentity(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.account = testAccount()
	sid := ts.customer(t)

	rec := ts.postForm("/settings/account", sid, url.Values{"name": {"Asha R"}, "email": {"asha.r@example.com"}})

	require.Equal(t, http.StatusOK, rec.Code)
	var page SettingsPage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	assert.Equal(t, "Account information updated successfully", page.Success)
	identity := ts.session(t, sid).Identity
	assert.Equal(t, "Asha R", identity.Name)
	assert.Equal(t, "asha.r@example.com", identity.Email)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.account = testAccount()
	ts.accounts.err = &service.ValidationError{Field: "currentPassword", Message: "Current password is incorrect"}

	rec := ts.postForm("/settings/password", ts.customer(t), url.Values{
		"currentPassword": {"x"},
		"newPassword":     {"secret2"},
		"confirmPassword": {"secret2"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Current password is incorrect", decodeError(t, rec).Error)
}

func TestUpdateNotifications_Checkboxes(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.account = testAccount()

	rec := ts.postForm("/settings/notifications", ts.customer(t), url.Values{
		"matchUpdates": {"on"},
		"orderUpdates": {"true"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Notifications{MatchUpdates: true, OrderUpdates: true}, ts.accounts.saved)
}

func TestUpdatePreferences(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.account = testAccount()
	sid := ts.customer(t)

	rec := ts.postJSON(t, "/settings/preferences", sid, map[string]interface{}{"theme": "dark", "autoPlayVideos": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.PreferencesInput{Theme: "dark", AutoPlayVideos: true}, ts.accounts.saved)

	ts.accounts.err = &service.ValidationError{Field: "theme", Message: "Invalid theme"}
	rec = ts.postForm("/settings/preferences", sid, url.Values{"theme": {"neon"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Invalid theme", decodeError(t, rec).Error)
}
