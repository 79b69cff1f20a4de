package auth

import (
	"crypto/subtle"

	"hyperion/pkg/errors"
)

// Role names the privilege a capability grants
type Role string

const (
	// RoleManager authorizes option lifecycle operations (lock, unlock,
	// exercise, settlement transfers)
	RoleManager Role = "manager"

	// RoleAdmin authorizes pool route administration
	RoleAdmin Role = "admin"
)

// Capability is an unforgeable token of authority over one role
// Services check capabilities at each gated entry point instead of
// consulting ambient caller identity
type Capability struct {
	role  Role
	token string
}

// Keeper mints and verifies capabilities from configured shared secrets
type Keeper struct {
	secrets map[Role]string
}

// NewKeeper creates a keeper over the given role secrets
func NewKeeper(secrets map[Role]string) *Keeper {
	return &Keeper{secrets: secrets}
}

// Grant returns a capability for the role when the presented token matches
func (k *Keeper) Grant(role Role, token string) (Capability, error) {
	secret, ok := k.secrets[role]
	if !ok || secret == "" {
		return Capability{}, errors.Wrapf(errors.ErrUnauthorized, "role %s not configured", role)
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(token)) != 1 {
		return Capability{}, errors.Wrapf(errors.ErrUnauthorized, "bad token for role %s", role)
	}
	return Capability{role: role, token: token}, nil
}

// Verify checks that a capability carries the required role and a live secret
func (k *Keeper) Verify(c Capability, role Role) error {
	if c.role != role {
		return errors.Wrapf(errors.ErrUnauthorized, "capability role %s, need %s", c.role, role)
	}
	secret, ok := k.secrets[role]
	if !ok || subtle.ConstantTimeCompare([]byte(secret), []byte(c.token)) != 1 {
		return errors.Wrapf(errors.ErrUnauthorized, "stale capability for role %s", role)
	}
	return nil
}
