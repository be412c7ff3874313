package middleware

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/deemkeen/stegogram/auth"
	"github.com/deemkeen/stegogram/db"
	"github.com/deemkeen/stegogram/nav"
	"github.com/deemkeen/stegogram/profile"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newServices(t *testing.T) (Services, *miniredis.Miniredis) {
	t.Helper()
	database, err := db.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return Services{
		Accounts: database,
		Profiles: profile.NewRedisStore(rdb),
		Logger:   zap.NewNop(),
		AuthOpts: []auth.Option{auth.WithHashCost(bcrypt.MinCost)},
	}, mr
}

func TestNewSessionModelStartsSignedOut(t *testing.T) {
	svc, _ := newServices(t)

	m, stop := NewSessionModel(svc, zap.NewNop(), 80, 24)
	defer stop()

	assert.Equal(t, nav.Login, m.Screen())
	assert.True(t, m.Session().IsNone())
}

func TestSessionStopIsIdempotent(t *testing.T) {
	svc, _ := newServices(t)

	_, stop := NewSessionModel(svc, zap.NewNop(), 80, 24)
	assert.NotPanics(t, func() {
		stop()
		stop()
	})
}

func TestSignUpProvisionsProfile(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	client := auth.NewClient(svc.Accounts, zap.NewNop(),
		auth.WithProvisioner(svc.Profiles.Provision),
		auth.WithDeprovisioner(svc.Profiles.Delete),
		auth.WithHashCost(bcrypt.MinCost))
	defer client.Close()

	s, err := client.SignUp(ctx, "alice@example.com", "alice", "secret123")
	require.NoError(t, err)

	raw, err := svc.Profiles.Get(ctx, s.UserID())
	require.NoError(t, err)
	assert.Equal(t, "alice", raw.Normalize().Username)

	require.NoError(t, client.DeleteAccount(ctx))
	_, err = svc.Profiles.Get(ctx, s.UserID())
	assert.ErrorIs(t, err, profile.ErrNotFound)
}
