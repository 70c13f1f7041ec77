// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=1,max=128"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=8,max=128"`
}

type AdminResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

type LoginResponse struct {
	Admin     AdminResponse `json:"admin"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type SessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	AdminID       string    `json:"admin_id"`
	Username      string    `json:"username"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func ToAdminResponse(a *AdminAccount) AdminResponse {
	return AdminResponse{
		ID:          a.ID,
		Username:    a.Username,
		CreatedAt:   a.CreatedAt,
		LastLoginAt: a.LastLoginAt,
	}
}
