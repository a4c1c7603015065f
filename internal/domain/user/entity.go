// internal/domain/user/entity.go
package user

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// User is an operator account scoped to a company. Roles gate what
// collections actions the account may perform.
type User struct {
	ID           int64          `json:"id" db:"id"`
	CompanyID    int64          `json:"company_id" db:"company_id"`
	Email        string         `json:"email" db:"email"`
	PasswordHash string         `json:"-" db:"password_hash"`
	FullName     string         `json:"full_name" db:"full_name"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
	Active       bool           `json:"active" db:"active"`
	LastLoginAt  sql.NullTime   `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
