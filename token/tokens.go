package token

import "golang.org/x/oauth2"

// AuthTokens is the credential pair returned by login and refresh.
type AuthTokens struct {
	// AccessToken is the short-lived bearer credential.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged at /auth/refresh for a new access token.
	// The refresh endpoint may omit it, in which case the stored one stays valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	// ExpiresIn is the access token lifetime in seconds. It is a hint; the
	// server enforces the real expiry.
	ExpiresIn int `json:"expires_in,omitempty"`
}

// Bearer wraps a raw access token so its SetAuthHeader can be used on a request.
func Bearer(accessToken string) *oauth2.Token {
	return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
}
