// Package profile reads and writes user records in the remote profile store.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deemkeen/stegogram/domain"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("profile not found")
	ErrMalformedRecord = errors.New("profile record malformed")
	ErrNoSession       = errors.New("no signed-in user")
)

// DefaultFetchTimeout bounds a single profile read.
const DefaultFetchTimeout = 5 * time.Second

// Gateway is a keyed record store queried by user id.
type Gateway interface {
	Get(ctx context.Context, userID string) (domain.ProfileRecordRaw, error)
}

// Load performs the single profile read of a profile screen activation. It
// returns the record with defaults filled in, or an error and an empty
// record.
func Load(ctx context.Context, gw Gateway, s domain.Session, logger *zap.Logger) (domain.ProfileRecord, error) {
	id, ok := s.Identity()
	if !ok {
		return domain.EmptyProfile(), ErrNoSession
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultFetchTimeout)
	defer cancel()

	raw, err := gw.Get(ctx, id.ID)
	if err != nil {
		logger.Warn("failed to load profile", zap.String("user", id.ID), zap.Error(err))
		return domain.EmptyProfile(), fmt.Errorf("load profile %s: %w", id.ID, err)
	}
	return raw.Normalize(), nil
}
