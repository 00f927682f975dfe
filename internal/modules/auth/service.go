package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"realestate/internal/domain"
	"realestate/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type jwtService interface {
	GenerateToken(userID int64, role string) (string, error)
}

// ResetConfig controls one-time password reset tokens.
type ResetConfig struct {
	Pepper string
	TTL    time.Duration
}

// Service contains all business logic for authentication
type Service struct {
	users      UserRepositoryInterface
	resets     PasswordResetRepositoryInterface
	jwt        jwtService
	resetCfg   ResetConfig
	bcryptCost int
	now        func() time.Time
}

type LoginResult struct {
	User        *domain.User
	AccessToken string
}

func NewService(users UserRepositoryInterface, resets PasswordResetRepositoryInterface, jwt jwtService, resetCfg ResetConfig) *Service {
	return &Service{
		users:      users,
		resets:     resets,
		jwt:        jwt,
		resetCfg:   resetCfg,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// Register creates a customer account. Broker accounts only come out of the
// application workflow.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := s.validateEmailUnique(ctx, req.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hashedPassword,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         domain.RoleCustomer,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	log.Printf("auth action=register user_id=%d", user.ID)

	user.PasswordHash = ""
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		log.Printf("auth action=login user_id=%d outcome=bad_password", user.ID)
		return nil, ErrInvalidCredentials
	}

	// accounts created by an approval carry an unknown placeholder secret
	if user.PasswordResetRequired {
		return nil, ErrPasswordResetRequired
	}

	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	return &LoginResult{User: user, AccessToken: token}, nil
}

// Me returns the caller's own account.
func (s *Service) Me(ctx context.Context, caller *domain.Caller) (*domain.User, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, caller.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.PasswordHash = ""
	return user, nil
}

// IssuePasswordReset creates a one-time reset token for userID, replacing any
// unused one. The raw token is returned once and only its hash is stored.
func (s *Service) IssuePasswordReset(ctx context.Context, userID int64) (*domain.PasswordReset, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	raw, hash, err := generateResetToken(s.resetCfg.Pepper)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.resetCfg.TTL).UTC()
	if err := s.resets.Replace(ctx, userID, hash, expiresAt); err != nil {
		return nil, err
	}

	log.Printf("auth action=issue_password_reset user_id=%d expires_at=%s", userID, expiresAt.Format(time.RFC3339))
	return &domain.PasswordReset{UserID: userID, Token: raw, ExpiresAt: expiresAt}, nil
}

// IssuePasswordResetFor is the admin-facing form of IssuePasswordReset.
func (s *Service) IssuePasswordResetFor(ctx context.Context, caller *domain.Caller, userID int64) (*domain.PasswordReset, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.IssuePasswordReset(ctx, userID)
}

// ResetPassword consumes a reset token and sets the new password. The
// account's reset flag is cleared in the same step.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return ErrInvalidResetToken
	}

	hashedPassword, err := s.hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	userID, err := s.resets.Consume(ctx, hashTokenWithPepper(token, s.resetCfg.Pepper), hashedPassword, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotUsable) {
			return ErrInvalidResetToken
		}
		return err
	}

	log.Printf("auth action=password_reset user_id=%d", userID)
	return nil
}

func (s *Service) validateEmailUnique(ctx context.Context, email string) error {
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func generateResetToken(pepper string) (raw string, hash string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	hash = hashTokenWithPepper(raw, pepper)
	return raw, hash, nil
}

func hashTokenWithPepper(raw, pepper string) string {
	sum := sha256.Sum256([]byte(raw + pepper))
	return hex.EncodeToString(sum[:])
}
