package auth

import "realestate/internal/domain"

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

type UserPublic struct {
	ID                    int64  `json:"id"`
	Role                  string `json:"role"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone,omitempty"`
	ReferralCode          string `json:"referral_code,omitempty"`
	PasswordResetRequired bool   `json:"password_reset_required"`
}

func toUserPublic(u *domain.User) UserPublic {
	out := UserPublic{
		ID:                    u.ID,
		Role:                  string(u.Role),
		Name:                  u.Name,
		Email:                 u.Email,
		Phone:                 u.Phone,
		PasswordResetRequired: u.PasswordResetRequired,
	}
	if u.ReferralCode != nil {
		out.ReferralCode = *u.ReferralCode
	}
	return out
}
