// Package auth provides identity providers and the bearer token
// source used by the backend client.
package auth

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"github.com/deepread-labs/deepread-core/internal/core/ports/driven"
	"github.com/deepread-labs/deepread-core/internal/logger"
)

// Config keys used by the stored identity provider.
const (
	keyUserID       = "auth.user_id"
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyTokenURL     = "auth.token_url"
	keyClientID     = "auth.client_id"
)

// Ensure providers implement the interface.
var (
	_ driven.IdentityProvider = (*StaticProvider)(nil)
	_ driven.IdentityProvider = (*StoredProvider)(nil)
)

// StaticProvider is a fixed identity, used for local development and
// single-user installs.
type StaticProvider struct {
	userID string
}

// NewStaticProvider creates an identity provider with a fixed user id.
func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{userID: userID}
}

// CurrentUserID returns the configured user id.
func (p *StaticProvider) CurrentUserID() string {
	return p.userID
}

// SignOut clears the identity.
func (p *StaticProvider) SignOut() error {
	p.userID = ""
	return nil
}

// StoredProvider reads the signed-in identity from the config store,
// where the sign-in flow persisted it.
type StoredProvider struct {
	config driven.ConfigStore
}

// NewStoredProvider creates an identity provider backed by the config
// store.
func NewStoredProvider(config driven.ConfigStore) *StoredProvider {
	return &StoredProvider{config: config}
}

// CurrentUserID returns the persisted user id, or "" when nobody is
// signed in.
func (p *StoredProvider) CurrentUserID() string {
	return p.config.GetString(keyUserID)
}

// SignOut clears the persisted identity and its tokens.
func (p *StoredProvider) SignOut() error {
	for _, key := range []string{keyUserID, keyAccessToken, keyRefreshToken} {
		if err := p.config.Set(key, ""); err != nil {
			return err
		}
	}
	logger.Info("signed out")
	return nil
}

// TokenSource builds the bearer token source for backend requests from
// the persisted credentials. With a refresh token and token endpoint
// configured, tokens refresh automatically; otherwise the stored
// access token is used as-is. Returns nil when no credentials are
// stored.
func TokenSource(ctx context.Context, config driven.ConfigStore) oauth2.TokenSource {
	access := config.GetString(keyAccessToken)
	refresh := config.GetString(keyRefreshToken)
	if access == "" && refresh == "" {
		return nil
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}

	tokenURL := config.GetString(keyTokenURL)
	if refresh == "" || tokenURL == "" {
		return oauth2.StaticTokenSource(token)
	}

	// Force the first use through the refresh flow when only a
	// refresh token is stored.
	if access == "" {
		token.Expiry = time.Now().Add(-time.Minute)
	}

	conf := &oauth2.Config{
		ClientID: config.GetString(keyClientID),
		Endpoint: oauth2.Endpoint{TokenURL: tokenURL},
	}
	return conf.TokenSource(ctx, token)
}
