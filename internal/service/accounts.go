package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"komunitas/pendataan/internal/auth"
	"komunitas/pendataan/internal/model"
	"komunitas/pendataan/internal/submission"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const minPasswordLength = 8

type Session struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	Account     model.Account `json:"account"`
}

type Accounts struct {
	store  AccountStore
	secret string
	issuer string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func NewAccounts(store AccountStore, secret, issuer string, ttl time.Duration, logger *slog.Logger) *Accounts {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Accounts{
		store:  store,
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// Register creates a regular user account.
func (a *Accounts) Register(ctx context.Context, email, password string) (model.Account, error) {
	return a.create(ctx, email, password, model.RoleUser)
}

// CreateAdmin is used by the command line bootstrap.
func (a *Accounts) CreateAdmin(ctx context.Context, email, password string) (model.Account, error) {
	return a.create(ctx, email, password, model.RoleAdmin)
}

func (a *Accounts) create(ctx context.Context, email, password string, role model.Role) (model.Account, error) {
	email, err := validateCredentials(email, password)
	if err != nil {
		return model.Account{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.Account{}, err
	}
	account := model.Account{
		ID:           a.newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    a.now(),
	}
	if err := a.store.CreateAccount(ctx, account); err != nil {
		return model.Account{}, err
	}
	a.logger.Info("account created", "id", account.ID, "role", role)
	return account, nil
}

// Authenticate checks the password and issues an access token.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (Session, error) {
	account, err := a.store.GetAccountByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, model.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := auth.CheckPassword(account.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	token, err := auth.NewAccessToken(a.secret, a.issuer, a.ttl, auth.Claims{UserID: account.ID, Role: account.Role})
	if err != nil {
		return Session{}, err
	}
	return Session{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(a.ttl.Seconds()),
		Account:     account,
	}, nil
}

func (a *Accounts) Get(ctx context.Context, id string) (model.Account, error) {
	return a.store.GetAccount(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) (string, error) {
	email = normalizeEmail(email)
	var errs []submission.FieldError
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, submission.FieldError{Field: "email", Message: "Email tidak valid"})
	}
	if len(password) < minPasswordLength {
		errs = append(errs, submission.FieldError{Field: "password", Message: "Kata sandi minimal 8 karakter"})
	}
	if len(errs) > 0 {
		return "", &submission.ValidationError{Profile: "account", Errors: errs}
	}
	return email, nil
}
