package domain

import "time"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageSpanish Language = "es"
)

type Timezone string

const (
	TimezoneIST Timezone = "IST"
	TimezoneUTC Timezone = "UTC"
	TimezoneEST Timezone = "EST"
)

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark || t == ThemeAuto }
func (l Language) Valid() bool { return l == LanguageEnglish || l == LanguageHindi || l == LanguageSpanish }
func (z Timezone) Valid() bool { return z == TimezoneIST || z == TimezoneUTC || z == TimezoneEST }

type Preferences struct {
	Theme               Theme    `bson:"theme" json:"theme"`
	Language            Language `bson:"language" json:"language"`
	Timezone            Timezone `bson:"timezone" json:"timezone"`
	ShowFeaturedContent bool     `bson:"show_featured_content" json:"showFeaturedContent"`
	AutoPlayVideos      bool     `bson:"auto_play_videos" json:"autoPlayVideos"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:               ThemeLight,
		Language:            LanguageEnglish,
		Timezone:            TimezoneIST,
		ShowFeaturedContent: true,
		AutoPlayVideos:      false,
	}
}

type Notifications struct {
	MatchUpdates      bool `bson:"match_updates" json:"matchUpdates"`
	NewsArticles      bool `bson:"news_articles" json:"newsArticles"`
	TournamentUpdates bool `bson:"tournament_updates" json:"tournamentUpdates"`
	OrderUpdates      bool `bson:"order_updates" json:"orderUpdates"`
}

func DefaultNotifications() Notifications {
	return Notifications{
		MatchUpdates:      true,
		NewsArticles:      true,
		TournamentUpdates: false,
		OrderUpdates:      true,
	}
}

type Account struct {
	ID            string        `bson:"_id" json:"id"`
	Name          string        `bson:"name" json:"name"`
	Email         string        `bson:"email" json:"email"`
	PasswordHash  string        `bson:"password_hash" json:"-"`
	Cart          Cart          `bson:"cart" json:"-"`
	Preferences   Preferences   `bson:"preferences" json:"preferences"`
	Notifications Notifications `bson:"notifications" json:"notifications"`
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt"`
}

// AdminID is the identity id given to the configured administrator.
const AdminID = "admin"

// Identity is the signed in principal kept in the session.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
}

func (a *Account) Identity() *Identity {
	return &Identity{ID: a.ID, Name: a.Name, Email: a.Email}
}

// DisplayName is used when the account writes a review.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
