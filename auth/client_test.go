package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deemkeen/stegogram/auth"
	"github.com/deemkeen/stegogram/db"
	"github.com/deemkeen/stegogram/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu       sync.Mutex
	sessions []domain.Session
}

func (r *recorder) record(s domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *recorder) all() []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Session(nil), r.sessions...)
}

func newTestClient(t *testing.T, opts ...auth.Option) (*auth.Client, *db.DB) {
	t.Helper()
	store, err := db.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	opts = append([]auth.Option{auth.WithHashCost(bcrypt.MinCost)}, opts...)
	return auth.NewClient(store, zap.NewNop(), opts...), store
}

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	c, _ := newTestClient(t)
	rec := &recorder{}

	unsubscribe, err := c.Subscribe(rec.record)
	require.NoError(t, err)
	defer unsubscribe()

	got := rec.all()
	require.Len(t, got, 1)
	assert.True(t, got[0].IsNone())
}

func TestSignUpSignInSignOutNotifiesInOrder(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	rec := &recorder{}

	unsubscribe, err := c.Subscribe(rec.record)
	require.NoError(t, err)
	defer unsubscribe()

	s1, err := c.SignUp(ctx, "Alice@Example.com", "alice", "secret123")
	require.NoError(t, err)
	require.False(t, s1.IsNone())

	c.SignOut()

	s2, err := c.SignIn(ctx, "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, s1.Equal(s2), "same account should yield the same identity")

	got := rec.all()
	require.Len(t, got, 4)
	assert.True(t, got[0].IsNone())
	assert.True(t, got[1].Equal(s1))
	assert.True(t, got[2].IsNone())
	assert.True(t, got[3].Equal(s2))

	acc := c.Account()
	require.NotNil(t, acc)
	assert.Equal(t, "alice", acc.Username)
}

func TestSignInInvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	_, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)
	c.SignOut()

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "alice@example.com", "nope-nope"},
		{"unknown email", "bob@example.com", "secret123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := c.SignIn(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.True(t, s.IsNone())
			assert.True(t, c.CurrentUser().IsNone())
		})
	}
}

func TestSignUpValidation(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	tests := []struct {
		name, email, username, password string
		want                            error
	}{
		{"bad email", "not-an-email", "alice", "secret123", auth.ErrInvalidEmail},
		{"short username", "a@example.com", "al", "secret123", auth.ErrInvalidUsername},
		{"bad username chars", "a@example.com", "al ice", "secret123", auth.ErrInvalidUsername},
		{"weak password", "a@example.com", "alice", "12345", auth.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.SignUp(ctx, tt.email, tt.username, tt.password)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignUpDuplicate(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)

	_, err = c.SignUp(ctx, "alice@example.com", "alice2", "secret123")
	assert.ErrorIs(t, err, auth.ErrEmailInUse)

	_, err = c.SignUp(ctx, "other@example.com", "alice", "secret123")
	assert.ErrorIs(t, err, auth.ErrUsernameInUse)
	assert.True(t, c.CurrentUser().Equal(domain.SignedIn(c.Account().Id.String())))
	assert.Equal(t, "alice", c.Account().Username)
}

func TestSignUpRunsProvisionerBeforeNotifying(t *testing.T) {
	var order []string
	provision := func(ctx context.Context, acc domain.Account) error {
		order = append(order, "provision:"+acc.Username)
		return errors.New("profile store down")
	}
	c, _ := newTestClient(t, auth.WithProvisioner(provision))

	unsubscribe, err := c.Subscribe(func(s domain.Session) {
		if !s.IsNone() {
			order = append(order, "notify")
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	_, err = c.SignUp(context.Background(), "alice@example.com", "alice", "secret123")
	require.NoError(t, err, "a failing provisioner must not fail sign up")
	assert.Equal(t, []string{"provision:alice", "notify"}, order)
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	c, _ := newTestClient(t)
	rec := &recorder{}

	unsubscribe, err := c.Subscribe(rec.record)
	require.NoError(t, err)

	unsubscribe()
	unsubscribe()

	_, err = c.SignUp(context.Background(), "alice@example.com", "alice", "secret123")
	require.NoError(t, err)
	c.SignOut()

	assert.Len(t, rec.all(), 1, "only the initial notification should have been delivered")
}

func TestSubscribeAfterClose(t *testing.T) {
	c, _ := newTestClient(t)
	c.Close()

	_, err := c.Subscribe(func(domain.Session) {})
	assert.ErrorIs(t, err, auth.ErrClientClosed)
}

func TestPasswordResetFlow(t *testing.T) {
	var issued string
	notifier := func(ctx context.Context, acc domain.Account, token string) error {
		issued = token
		return nil
	}
	c, _ := newTestClient(t, auth.WithResetNotifier(notifier))
	ctx := context.Background()

	_, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)
	c.SignOut()

	require.NoError(t, c.SendPasswordResetEmail(ctx, "alice@example.com"))
	require.NotEmpty(t, issued)

	require.NoError(t, c.ConfirmPasswordReset(ctx, issued, "brand-new-pass"))
	assert.ErrorIs(t, c.ConfirmPasswordReset(ctx, issued, "another-pass"), auth.ErrInvalidResetToken)

	_, err = c.SignIn(ctx, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = c.SignIn(ctx, "alice@example.com", "brand-new-pass")
	assert.NoError(t, err)
}

func TestPasswordResetUnknownEmailSucceedsSilently(t *testing.T) {
	called := false
	c, _ := newTestClient(t, auth.WithResetNotifier(func(context.Context, domain.Account, string) error {
		called = true
		return nil
	}))

	assert.NoError(t, c.SendPasswordResetEmail(context.Background(), "ghost@example.com"))
	assert.False(t, called)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	var issued string
	c, _ := newTestClient(t,
		auth.WithClock(clock),
		auth.WithResetNotifier(func(_ context.Context, _ domain.Account, token string) error {
			issued = token
			return nil
		}))
	ctx := context.Background()

	_, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)
	require.NoError(t, c.SendPasswordResetEmail(ctx, "alice@example.com"))

	now = now.Add(auth.ResetTokenTTL + time.Second)
	assert.ErrorIs(t, c.ConfirmPasswordReset(ctx, issued, "brand-new-pass"), auth.ErrInvalidResetToken)
}

func TestRefreshInvalidatesDeletedAccount(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	rec := &recorder{}

	s, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)

	unsubscribe, err := c.Subscribe(rec.record)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, c.Refresh(ctx))
	assert.True(t, c.CurrentUser().Equal(s))

	require.NoError(t, store.DeleteAccount(ctx, c.Account().Id))
	require.NoError(t, c.Refresh(ctx))

	got := rec.all()
	require.Len(t, got, 2)
	assert.True(t, got[1].IsNone())
	assert.Nil(t, c.Account())
}

func TestDeleteAccountEndsSession(t *testing.T) {
	var deprovisioned []string
	c, store := newTestClient(t, auth.WithDeprovisioner(func(_ context.Context, id string) error {
		deprovisioned = append(deprovisioned, id)
		return errors.New("profile store down")
	}))
	ctx := context.Background()
	rec := &recorder{}

	_, err := c.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)
	id := c.Account().Id

	unsubscribe, err := c.Subscribe(rec.record)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, c.DeleteAccount(ctx))

	assert.True(t, c.CurrentUser().IsNone())
	assert.Equal(t, []string{id.String()}, deprovisioned)
	_, err = store.ReadAccById(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got := rec.all()
	require.Len(t, got, 2)
	assert.True(t, got[1].IsNone())

	_, err = c.SignIn(ctx, "alice@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestDeleteAccountRequiresSession(t *testing.T) {
	c, _ := newTestClient(t)
	assert.ErrorIs(t, c.DeleteAccount(context.Background()), auth.ErrNotSignedIn)
}
