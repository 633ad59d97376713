// internal/services/users/models.go
package users

import (
	"time"

	"jelita/internal/common/auth"
)

type SigninRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=100"`
	Email       string `json:"email" validate:"omitempty,email,max=255"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	NamaLengkap string `json:"nama_lengkap" validate:"max=255"`
	Role        string `json:"role" validate:"required"`
	OPDID       *int64 `json:"opd_id" validate:"omitempty,gt=0"`
}

type ValidateResult struct {
	Valid bool            `json:"valid"`
	User  *auth.Principal `json:"user"`
}

type SignoutResult struct {
	TokenRevoked bool      `json:"tokenRevoked"`
	LogoutAt     time.Time `json:"logoutAt"`
}

// RoleResult answers "what may this user do".
type RoleResult struct {
	ID       int64             `json:"id"`
	Username string            `json:"username"`
	Role     string            `json:"role"`
	OPDID    *int64            `json:"opd_id,omitempty"`
	Access   []auth.Capability `json:"access"`
}
