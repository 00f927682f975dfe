package brokerapp

import (
	"time"

	"realestate/internal/domain"
)

const dobLayout = "2006-01-02"

type SubmitApplicationRequest struct {
	FullName         string   `json:"full_name" binding:"required"`
	DateOfBirth      string   `json:"dob" binding:"required"`
	Phone            string   `json:"phone" binding:"required"`
	Email            string   `json:"email" binding:"required"`
	Experience       int      `json:"experience"`
	Locations        []string `json:"locations" binding:"required"`
	Message          string   `json:"message"`
	ReferralCodeUsed string   `json:"referral_code_used"`
}

// SubmitInput is the validated form of a submission. Only presence is
// checked; contents are taken as the applicant wrote them.
type SubmitInput struct {
	FullName         string `validate:"required"`
	DateOfBirth      time.Time
	Phone            string `validate:"required"`
	Email            string `validate:"required"`
	Experience       int
	Locations        []string `validate:"required,min=1"`
	Message          string
	ReferralCodeUsed string
}

type ApplicationDTO struct {
	ID               int64      `json:"id"`
	FullName         string     `json:"full_name"`
	DateOfBirth      string     `json:"dob"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`
	Experience       int        `json:"experience"`
	Locations        []string   `json:"locations"`
	Message          string     `json:"message,omitempty"`
	ReferralCodeUsed *string    `json:"referral_code_used,omitempty"`
	Status           string     `json:"status"`
	ResolvedBy       *int64     `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type AccountSummaryDTO struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Phone                 string `json:"phone,omitempty"`
	Role                  string `json:"role"`
	ReferralCode          string `json:"referral_code"`
	ReferredBy            *int64 `json:"referred_by,omitempty"`
	PasswordResetRequired bool   `json:"password_reset_required"`
}

type ApproveResponse struct {
	Message     string             `json:"message"`
	Outcome     string             `json:"outcome"`
	Application ApplicationDTO     `json:"application"`
	User        *AccountSummaryDTO `json:"user,omitempty"`
	// PasswordReset is returned once, for the admin to pass on to the new broker.
	PasswordReset *domain.PasswordReset `json:"password_reset,omitempty"`
}

func toApplicationDTO(a *domain.BrokerApplication) ApplicationDTO {
	return ApplicationDTO{
		ID:               a.ID,
		FullName:         a.FullName,
		DateOfBirth:      a.DateOfBirth.Format(dobLayout),
		Phone:            a.Phone,
		Email:            a.Email,
		Experience:       a.Experience,
		Locations:        a.Locations,
		Message:          a.Message,
		ReferralCodeUsed: a.ReferralCodeUsed,
		Status:           string(a.Status),
		ResolvedBy:       a.ResolvedBy,
		ResolvedAt:       a.ResolvedAt,
		CreatedAt:        a.CreatedAt,
	}
}

func toAccountSummary(u *domain.User) *AccountSummaryDTO {
	if u == nil {
		return nil
	}
	var code string
	if u.ReferralCode != nil {
		code = *u.ReferralCode
	}
	return &AccountSummaryDTO{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Phone:                 u.Phone,
		Role:                  string(u.Role),
		ReferralCode:          code,
		ReferredBy:            u.ReferredBy,
		PasswordResetRequired: u.PasswordResetRequired,
	}
}
