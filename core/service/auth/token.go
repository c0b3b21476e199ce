package auth

import (
	"context"
	"time"

	"campaign_worker/core/domain"
	"campaign_worker/pkg/apperr"
	"campaign_worker/pkg/logger"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultExpiryBuffer is how long before the stated expiry a token is
// already treated as expired.
const DefaultExpiryBuffer = 5 * time.Minute

// fallbackLifetime is assumed when neither the caller nor the token
// endpoint supplies an expiry.
const fallbackLifetime = time.Hour

// TokenService validates and refreshes OAuth access tokens. It keeps no
// state between calls: every invocation re-evaluates expiry from the
// inputs given.
type TokenService struct {
	config *oauth2.Config
	buffer time.Duration
	log    *logger.Logger
}

func NewTokenService(clientID, clientSecret string, buffer time.Duration) *TokenService {
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}
	return &TokenService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		buffer: buffer,
		log:    logger.WithField("component", "token_service"),
	}
}

// IsExpired reports whether the token is expired or inside the buffer
// window at the given instant. A token without an expiry is treated as
// not expired.
func (s *TokenService) IsExpired(info domain.TokenInfo, now time.Time) bool {
	if info.Expiry.IsZero() {
		return false
	}
	return !now.Before(info.Expiry.Add(-s.buffer))
}

// GetValidAccessToken returns a token usable right now. An expiring token
// with a refresh token is exchanged at the OAuth endpoint; an expiring
// token without one is returned unchanged (the send will surface the
// failure). A refresh failure is fatal for the caller's current run.
func (s *TokenService) GetValidAccessToken(ctx context.Context, info domain.TokenInfo) (domain.TokenInfo, error) {
	now := time.Now()

	if !s.IsExpired(info, now) || info.RefreshToken == "" {
		if info.Expiry.IsZero() {
			info.Expiry = now.Add(fallbackLifetime)
		}
		return info, nil
	}

	// Force the refresh by handing oauth2 an already-expired token.
	stale := &oauth2.Token{
		AccessToken:  info.AccessToken,
		RefreshToken: info.RefreshToken,
		Expiry:       now.Add(-time.Minute),
	}

	fresh, err := s.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return domain.TokenInfo{}, apperr.TokenRefreshFailed(err)
	}
	if fresh.AccessToken == "" {
		return domain.TokenInfo{}, apperr.New(apperr.CodeTokenRefreshFailed, "token endpoint returned no access token", 0)
	}

	refreshed := domain.TokenInfo{
		AccessToken:  fresh.AccessToken,
		RefreshToken: info.RefreshToken,
		Expiry:       fresh.Expiry,
	}
	if fresh.RefreshToken != "" {
		refreshed.RefreshToken = fresh.RefreshToken
	}
	if refreshed.Expiry.IsZero() {
		refreshed.Expiry = now.Add(fallbackLifetime)
	}

	s.log.Debug("access token refreshed, new expiry %s", refreshed.Expiry.Format(time.RFC3339))
	return refreshed, nil
}
