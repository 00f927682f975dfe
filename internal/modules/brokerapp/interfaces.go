package brokerapp

import (
	"context"

	"realestate/internal/domain"
)

type ApplicationRepository interface {
	Create(ctx context.Context, a *domain.BrokerApplication) error
	GetByID(ctx context.Context, id int64) (*domain.BrokerApplication, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.BrokerApplication, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.BrokerApplication, error)
	UpdateStatus(ctx context.Context, id int64, status domain.ApplicationStatus, resolvedBy int64) error
	Delete(ctx context.Context, id int64) error
}

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.User, error)
	ExistsByReferralCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
}

// TxManager runs fn in one storage transaction. Returning an error from fn
// rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(apps ApplicationRepository, users UserRepository) error) error
}

// EventPublisher receives application lifecycle events after they are committed.
type EventPublisher interface {
	PublishApplicationEvent(kind string, app *domain.BrokerApplication)
}

// PasswordResetIssuer hands out the one-time token an approval-created
// broker uses to set their first password.
type PasswordResetIssuer interface {
	IssuePasswordReset(ctx context.Context, userID int64) (*domain.PasswordReset, error)
}
