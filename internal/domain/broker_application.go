package domain

import "time"

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// BrokerApplication is a prospective broker's request for broker access.
// Status only moves forward: pending -> approved | rejected.
type BrokerApplication struct {
	ID               int64             `json:"id"`
	FullName         string            `json:"full_name"`
	DateOfBirth      time.Time         `json:"dob"`
	Phone            string            `json:"phone"`
	Email            string            `json:"email"`
	Experience       int               `json:"experience"`
	Locations        []string          `json:"locations"`
	Message          string            `json:"message,omitempty"`
	ReferralCodeUsed *string           `json:"referral_code_used,omitempty"`
	Status           ApplicationStatus `json:"status"`
	ResolvedBy       *int64            `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (a *BrokerApplication) IsPending() bool {
	return a.Status == ApplicationPending
}
