package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/fjod/scoremash/internal/domain"
	"github.com/fjod/scoremash/internal/repository"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AdminCredentials struct {
	Email    string
	Password string
}

type AccountService struct {
	accounts repository.AccountRepository
	admin    AdminCredentials
	cost     int
	log      logrus.FieldLogger
}

func NewAccountService(accounts repository.AccountRepository, admin AdminCredentials, log logrus.FieldLogger) *AccountService {
	return &AccountService{
		accounts: accounts,
		admin:    admin,
		cost:     bcrypt.DefaultCost,
		log:      log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignIn checks the configured admin credentials first, then the account store.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.isAdmin(email, password) {
		return &domain.Identity{ID: domain.AdminID, Name: "Admin", Email: s.admin.Email, IsAdmin: true}, nil
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, errors.Wrap(err, "find account")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return account.Identity(), nil
}

func (s *AccountService) isAdmin(email, password string) bool {
	if s.admin.Password == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(normalizeEmail(s.admin.Email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return emailOK && passOK
}

type SignUpInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*domain.Identity, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if name == "" || email == "" || in.Password == "" {
		return nil, invalid("form", "All fields are required")
	}
	if err := checkNewPassword(in.Password, in.ConfirmPassword, "Passwords do not match"); err != nil {
		return nil, err
	}
	if email == normalizeEmail(s.admin.Email) {
		return nil, ErrEmailTaken
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Preferences:   domain.DefaultPreferences(),
		Notifications: domain.DefaultNotifications(),
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "create account")
	}

	s.log.WithField("account_id", account.ID).Info("account created")
	return account.Identity(), nil
}

func (s *AccountService) ResetPassword(ctx context.Context, email, password, confirm string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" || confirm == "" {
		return invalid("form", "All fields are required")
	}
	if err := checkNewPassword(password, confirm, "Passwords do not match"); err != nil {
		return err
	}

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		return invalid("email", "No account found with this email address")
	}
	if err != nil {
		return errors.Wrap(err, "find account")
	}

	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return errors.Wrap(s.accounts.UpdatePassword(ctx, account.ID, hash), "update password")
}

func (s *AccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.GetAccount(ctx, accountID)
}

// UpdateProfile changes name and email and returns the refreshed identity.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID, name, email string) (*domain.Identity, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, invalid("form", "Name and email are required")
	}

	err := s.accounts.UpdateProfile(ctx, accountID, name, email)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, invalid("email", "Email is already taken")
	}
	if err != nil {
		return nil, err
	}
	return &domain.Identity{ID: accountID, Name: name, Email: email}, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return invalid("form", "All password fields are required")
	}
	if err := checkNewPassword(next, confirm, "New passwords do not match"); err != nil {
		return err
	}

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)) != nil {
		return invalid("currentPassword", "Current password is incorrect")
	}

	hash, err := s.hash(next)
	if err != nil {
		return err
	}
	return errors.Wrap(s.accounts.UpdatePassword(ctx, accountID, hash), "update password")
}

func (s *AccountService) UpdateNotifications(ctx context.Context, accountID string, n domain.Notifications) error {
	return s.accounts.UpdateNotifications(ctx, accountID, n)
}

// PreferencesInput leaves a field unchanged when it is empty.
type PreferencesInput struct {
	Theme               string
	Language            string
	Timezone            string
	ShowFeaturedContent bool
	AutoPlayVideos      bool
}

func (s *AccountService) UpdatePreferences(ctx context.Context, accountID string, in PreferencesInput) (domain.Preferences, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domain.Preferences{}, err
	}

	prefs := account.Preferences
	if in.Theme != "" {
		if !domain.Theme(in.Theme).Valid() {
			return prefs, invalid("theme", "Invalid theme")
		}
		prefs.Theme = domain.Theme(in.Theme)
	}
	if in.Language != "" {
		if !domain.Language(in.Language).Valid() {
			return prefs, invalid("language", "Invalid language")
		}
		prefs.Language = domain.Language(in.Language)
	}
	if in.Timezone != "" {
		if !domain.Timezone(in.Timezone).Valid() {
			return prefs, invalid("timezone", "Invalid timezone")
		}
		prefs.Timezone = domain.Timezone(in.Timezone)
	}
	prefs.ShowFeaturedContent = in.ShowFeaturedContent
	prefs.AutoPlayVideos = in.AutoPlayVideos

	if err := s.accounts.UpdatePreferences(ctx, accountID, prefs); err != nil {
		return prefs, err
	}
	return prefs, nil
}

func (s *AccountService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}

func checkNewPassword(password, confirm, mismatch string) error {
	if password != confirm {
		return invalid("confirmPassword", mismatch)
	}
	if len(password) < minPasswordLength {
		return invalid("password", "Password must be at least 6 characters long")
	}
	return nil
}
