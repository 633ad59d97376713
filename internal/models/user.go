// internal/models/user.go
package models

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	NamaLengkap  string    `json:"nama_lengkap"`
	Role         string    `json:"role"`
	OPDID        *int64    `json:"opd_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
