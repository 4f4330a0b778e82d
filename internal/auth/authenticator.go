package auth

import (
	"context"

	"github.com/google/uuid"

	"hearth/infrastructure"
	"hearth/internal/logging"
	"hearth/internal/user"
)

// Authenticator gates socket admission. Every failure mode collapses to
// infrastructure.ErrUnauthorized so the handshake response never reveals
// which check failed; the precise reason is logged at debug level only.
type Authenticator struct {
	tokens *Tokens
	users  user.Repository
}

func NewAuthenticator(tokens *Tokens, users user.Repository) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate verifies the bearer token, requires its subject to match the
// claimed user id, and resolves the full identity from the user store.
func (a *Authenticator) Authenticate(ctx context.Context, tokenString, claimedUserID string) (*user.User, error) {
	claimedID, err := uuid.Parse(claimedUserID)
	if err != nil {
		logging.Debug().Msg("handshake rejected: malformed user id")
		return nil, infrastructure.ErrUnauthorized
	}

	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		logging.Debug().Err(err).Msg("handshake rejected: token validation failed")
		return nil, infrastructure.ErrUnauthorized
	}

	if claims.UserID != claimedID {
		logging.Debug().Msg("handshake rejected: token subject mismatch")
		return nil, infrastructure.ErrUnauthorized
	}

	u, err := a.users.FindByID(ctx, claimedID)
	if err != nil {
		logging.Debug().Err(err).Msg("handshake rejected: identity lookup failed")
		return nil, infrastructure.ErrUnauthorized
	}
	return u, nil
}
