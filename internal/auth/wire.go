package auth

import (
	"github.com/google/wire"

	"hearth/config"
	"hearth/internal/user"
)

// ProvideTokens is a Wire provider function that creates the token issuer
func ProvideTokens(cfg *config.Config) *Tokens {
	return NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL)
}

// ProvideJSONHandler is a Wire provider function that creates the REST handler
func ProvideJSONHandler(cfg *config.Config, users user.Repository, tokens *Tokens) *JSONHandler {
	return NewJSONHandler(users, tokens, cfg.MinPasswordEntropy)
}

var Set = wire.NewSet(ProvideTokens, NewAuthenticator, ProvideJSONHandler)
