package domain

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleBroker   UserRole = "broker"
	RoleAdmin    UserRole = "admin"
)

// IsPrivileged reports whether the role already carries elevated access
// and therefore must never be promoted again.
func (r UserRole) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleBroker
}

type User struct {
	ID                    int64     `json:"id"`
	Email                 string    `json:"email"`
	PasswordHash          string    `json:"-"`
	Role                  UserRole  `json:"role"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone,omitempty"`
	ReferralCode          *string   `json:"referral_code,omitempty"`
	ReferredBy            *int64    `json:"referred_by,omitempty"`
	PasswordResetRequired bool      `json:"password_reset_required"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
