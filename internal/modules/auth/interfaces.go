package auth

import (
	"context"
	"time"

	"realestate/internal/domain"
)

// UserRepositoryInterface — only the methods auth service uses
type UserRepositoryInterface interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type PasswordResetRepositoryInterface interface {
	Replace(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) (int64, error)
}
