// internal/models/session.go
package models

import "time"

// Session is what a successful sign-in hands back to the client.
type Session struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	NamaLengkap string    `json:"nama_lengkap"`
	Role        string    `json:"role"`
	OPDID       *int64    `json:"opd_id,omitempty"`
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// IsExpired checks if the access token has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
