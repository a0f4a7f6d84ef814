package domain

import (
	"context"
	"errors"
	"strings"
)

// Service is the boundary to the external identity store. The core never
// validates tokens; it only asks whether users exist and, during account
// transfers, deletes orphaned anonymous identities.
type Service interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Delete(ctx context.Context, userID string) error
}

var (
	ErrUserNotFound  = errors.New("user_not_found")
	ErrDeleteFailed  = errors.New("identity_delete_failed")
	ErrNotConfigured = errors.New("identity_not_configured")
)

const anonymousIDPrefix = "$RCAnonymousID:"

// IsAnonymousID reports whether the id belongs to an ephemeral identity
// minted by the billing provider before the user signed up.
func IsAnonymousID(userID string) bool {
	return strings.HasPrefix(strings.TrimSpace(userID), anonymousIDPrefix)
}
