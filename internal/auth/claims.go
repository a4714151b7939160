package auth

import (
	"time"
)

// AccessClaims are the claims carried in a PASETO access token. v4.local
// tokens are encrypted, so nothing here is readable without the server key.
type AccessClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	IsRoot bool   `json:"is_root"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}

// ClientInfo is what a client reports about itself at login. It is stored on
// the Session so users can recognize and revoke individual devices.
type ClientInfo struct {
	ClientName    string `json:"client_name"`              // BookMemo Web, BookMemo Mobile
	ClientVersion string `json:"client_version,omitempty"` // 1.2.0
	DeviceName    string `json:"device_name,omitempty"`    // user-set, e.g. "Living room tablet"
	Platform      string `json:"platform,omitempty"`       // iOS, Android, Web, ...
}

// IsValid reports whether the client identified itself at all.
func (c ClientInfo) IsValid() bool {
	return c.ClientName != ""
}
