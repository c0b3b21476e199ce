package domain

import "time"

// TokenInfo is the OAuth token triple carried by a job or poll iteration.
// Expiry is optional; a zero Expiry means the token is treated as not
// expired. The worker holds at most one live copy per run and never caches
// tokens across runs.
type TokenInfo struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
}
