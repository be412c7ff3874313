// Package auth is the authentication provider: email/password accounts and a
// per-connection Client that reports the current user to its subscribers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/deemkeen/stegogram/domain"
	"github.com/deemkeen/stegogram/util"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("email already in use")
	ErrUsernameInUse      = errors.New("username already taken")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidUsername    = errors.New("username must be 3-30 letters, digits or underscores")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrInvalidResetToken  = errors.New("reset code is invalid or expired")
	ErrClientClosed       = errors.New("auth client closed")
	ErrNotSignedIn        = errors.New("not signed in")
)

const (
	minPasswordLength = 6
	resetTokenBytes   = 16
	ResetTokenTTL     = time.Hour
)

// Store is the account storage the provider authenticates against.
type Store interface {
	CreateAccount(ctx context.Context, acc *domain.Account) error
	ReadAccById(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ReadAccByEmail(ctx context.Context, email string) (*domain.Account, error)
	ReadAccByUsername(ctx context.Context, username string) (*domain.Account, error)
	TouchSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
	CreatePasswordReset(ctx context.Context, r *domain.PasswordReset) error
	ResetPassword(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (uuid.UUID, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// Provisioner is run after a new account is stored and before its session is
// published, e.g. to create the user's profile record.
type Provisioner func(ctx context.Context, acc domain.Account) error

// Deprovisioner removes what a Provisioner created when an account is
// deleted.
type Deprovisioner func(ctx context.Context, accountID string) error

// ResetNotifier delivers a password reset code to the account owner.
type ResetNotifier func(ctx context.Context, acc domain.Account, token string) error

type Option func(*Client)

func WithProvisioner(p Provisioner) Option {
	return func(c *Client) { c.provision = p }
}

func WithDeprovisioner(d Deprovisioner) Option {
	return func(c *Client) { c.deprovision = d }
}

func WithResetNotifier(n ResetNotifier) Option {
	return func(c *Client) { c.notifyReset = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(c *Client) { c.hashCost = cost }
}

// Client is one connection's view of the provider. It holds the signed-in
// user (if any) and notifies subscribers of every change.
//
// Notifications are delivered serially and in order: emit holds deliverMu
// while calling listeners, so a listener must not call SignIn, SignOut or
// Invalidate synchronously.
type Client struct {
	store       Store
	log         *zap.Logger
	provision   Provisioner
	deprovision Deprovisioner
	notifyReset ResetNotifier
	now         func() time.Time
	hashCost    int

	deliverMu sync.Mutex

	mu        sync.Mutex
	current   domain.Session
	account   *domain.Account
	listeners map[uint64]func(domain.Session)
	nextID    uint64
	closed    bool
}

func NewClient(store Store, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		store:     store,
		log:       logger,
		now:       time.Now,
		hashCost:  bcrypt.DefaultCost,
		listeners: make(map[uint64]func(domain.Session)),
	}
	c.notifyReset = c.logResetToken
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers onChange and immediately delivers the current session.
// Every later change is delivered until the returned function is called. The
// returned function is idempotent.
func (c *Client) Subscribe(onChange func(domain.Session)) (func(), error) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	id := c.nextID
	c.nextID++
	c.listeners[id] = onChange
	current := c.current
	c.mu.Unlock()

	onChange(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}, nil
}

// CurrentUser returns the current session without subscribing.
func (c *Client) CurrentUser() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Account returns the signed-in account, or nil.
func (c *Client) Account() *domain.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.account == nil {
		return nil
	}
	acc := *c.account
	return &acc
}

func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	acc, err := c.store.ReadAccByEmail(ctx, util.NormalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NoSession, ErrInvalidCredentials
	}
	if err != nil {
		return domain.NoSession, fmt.Errorf("sign in: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return domain.NoSession, ErrInvalidCredentials
	}

	if err := c.store.TouchSignIn(ctx, acc.Id, c.now()); err != nil {
		c.log.Warn("could not record sign in", zap.String("account", acc.Id.String()), zap.Error(err))
	}

	s := domain.SignedIn(acc.Id.String())
	c.emit(s, acc)
	c.log.Info("signed in", zap.String("account", acc.Id.String()))
	return s, nil
}

func (c *Client) SignUp(ctx context.Context, email, username, password string) (domain.Session, error) {
	email = util.NormalizeEmail(email)
	username = util.NormalizeInput(username)

	if err := ValidateEmail(email); err != nil {
		return domain.NoSession, err
	}
	if err := ValidateUsername(username); err != nil {
		return domain.NoSession, err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.NoSession, err
	}

	switch _, err := c.store.ReadAccByUsername(ctx, username); {
	case err == nil:
		return domain.NoSession, ErrUsernameInUse
	case !errors.Is(err, domain.ErrNotFound):
		return domain.NoSession, fmt.Errorf("sign up: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.hashCost)
	if err != nil {
		return domain.NoSession, fmt.Errorf("hash password: %w", err)
	}

	acc := &domain.Account{Email: email, Username: username, PasswordHash: string(hash), CreatedAt: c.now()}
	if err := c.store.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.NoSession, ErrEmailInUse
		}
		return domain.NoSession, fmt.Errorf("sign up: %w", err)
	}

	if c.provision != nil {
		if err := c.provision(ctx, *acc); err != nil {
			c.log.Warn("provisioning new account failed", zap.String("account", acc.Id.String()), zap.Error(err))
		}
	}

	s := domain.SignedIn(acc.Id.String())
	c.emit(s, acc)
	c.log.Info("signed up", zap.String("account", acc.Id.String()))
	return s, nil
}

func (c *Client) SignOut() {
	c.emit(domain.NoSession, nil)
	c.log.Info("signed out")
}

// DeleteAccount permanently removes the signed-in account and ends the
// session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	s := c.CurrentUser()
	if s.IsNone() {
		return ErrNotSignedIn
	}

	id, err := uuid.Parse(s.UserID())
	if err != nil {
		c.Invalidate("malformed account id")
		return nil
	}

	if err := c.store.DeleteAccount(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}
	if c.deprovision != nil {
		if err := c.deprovision(ctx, id.String()); err != nil {
			c.log.Warn("removing profile of deleted account failed", zap.String("account", id.String()), zap.Error(err))
		}
	}

	c.Invalidate("account deleted")
	return nil
}

// Invalidate drops the session without user action, e.g. when the account
// has been removed.
func (c *Client) Invalidate(reason string) {
	c.emit(domain.NoSession, nil)
	c.log.Warn("session invalidated", zap.String("reason", reason))
}

// Refresh re-reads the signed-in account and invalidates the session when
// the account no longer exists.
func (c *Client) Refresh(ctx context.Context) error {
	s := c.CurrentUser()
	if s.IsNone() {
		return nil
	}

	id, err := uuid.Parse(s.UserID())
	if err != nil {
		c.Invalidate("malformed account id")
		return nil
	}

	acc, err := c.store.ReadAccById(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		c.Invalidate("account no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	c.mu.Lock()
	if c.current.Equal(s) {
		c.account = acc
	}
	c.mu.Unlock()
	return nil
}

// SendPasswordResetEmail issues a reset code for the account with the given
// email. Unknown addresses succeed silently.
func (c *Client) SendPasswordResetEmail(ctx context.Context, email string) error {
	email = util.NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return err
	}

	acc, err := c.store.ReadAccByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		c.log.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	token, err := util.RandomToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	now := c.now()
	reset := &domain.PasswordReset{
		AccountId: acc.Id,
		TokenHash: util.HashToken(token),
		ExpiresAt: now.Add(ResetTokenTTL),
		CreatedAt: now,
	}
	if err := c.store.CreatePasswordReset(ctx, reset); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}

	return c.notifyReset(ctx, *acc, token)
}

// ConfirmPasswordReset sets a new password using a reset code. It does not
// sign the user in.
func (c *Client) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), c.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	id, err := c.store.ResetPassword(ctx, util.HashToken(strings.TrimSpace(token)), string(hash), c.now())
	if errors.Is(err, domain.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("confirm password reset: %w", err)
	}

	c.log.Info("password reset", zap.String("account", id.String()))
	return nil
}

// Close drops all listeners. Later Subscribe calls fail with ErrClientClosed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.listeners = make(map[uint64]func(domain.Session))
}

func (c *Client) emit(s domain.Session, acc *domain.Account) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	c.current = s
	c.account = acc
	listeners := make([]func(domain.Session), 0, len(c.listeners))
	for id := uint64(0); id < c.nextID; id++ {
		if l, ok := c.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(s)
	}
}

func (c *Client) logResetToken(_ context.Context, acc domain.Account, token string) error {
	c.log.Info("password reset code issued",
		zap.String("account", acc.Id.String()),
		zap.String("email", acc.Email),
		zap.String("code", token))
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
