package broker

import (
	"context"
	"fmt"

	"realestate/internal/domain"
	"realestate/internal/repository"
)

const noReferralCode = "N/A"

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListReferredBy(ctx context.Context, referrerID int64) ([]domain.User, error)
}

type ReferredBroker struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Dashboard struct {
	ReferralCode    string           `json:"referral_code"`
	ReferredBrokers []ReferredBroker `json:"referred_brokers"`
	TotalReferrals  int              `json:"total_referrals"`
}

type Service struct {
	users UserReader
}

func NewService(users UserReader) *Service {
	return &Service{users: users}
}

// GetDashboard is only available to the broker it describes.
func (s *Service) GetDashboard(ctx context.Context, caller *domain.Caller, brokerID int64) (*Dashboard, error) {
	if caller == nil {
		return nil, ErrUnauthenticated
	}
	if caller.Role != domain.RoleBroker || caller.ID != brokerID {
		return nil, ErrForbidden
	}

	broker, err := s.users.GetByID(ctx, brokerID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load broker: %w", err)
	}

	referred, err := s.users.ListReferredBy(ctx, broker.ID)
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}

	out := &Dashboard{
		ReferralCode:    noReferralCode,
		ReferredBrokers: make([]ReferredBroker, 0, len(referred)),
	}
	if broker.ReferralCode != nil && *broker.ReferralCode != "" {
		out.ReferralCode = *broker.ReferralCode
	}
	for _, u := range referred {
		out.ReferredBrokers = append(out.ReferredBrokers, ReferredBroker{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	out.TotalReferrals = len(out.ReferredBrokers)

	return out, nil
}
