package repository

import (
	"context"
	"strings"
	"time"

	"realestate/internal/domain"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID                    int64     `gorm:"column:id;primaryKey"`
	Email                 string    `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash          string    `gorm:"column:password_hash;not null"`
	Role                  string    `gorm:"column:role;not null;default:customer"`
	Name                  string    `gorm:"column:name"`
	Phone                 *string   `gorm:"column:phone"`
	ReferralCode          *string   `gorm:"column:referral_code;uniqueIndex"`
	ReferredBy            *int64    `gorm:"column:referred_by;index"`
	PasswordResetRequired bool      `gorm:"column:password_reset_required;not null;default:false"`
	CreatedAt             time.Time `gorm:"column:created_at"`
	UpdatedAt             time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	var phone string
	if m.Phone != nil {
		phone = *m.Phone
	}

	return &domain.User{
		ID:                    m.ID,
		Email:                 m.Email,
		PasswordHash:          m.PasswordHash,
		Role:                  domain.UserRole(m.Role),
		Name:                  m.Name,
		Phone:                 phone,
		ReferralCode:          m.ReferralCode,
		ReferredBy:            m.ReferredBy,
		PasswordResetRequired: m.PasswordResetRequired,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	var phone *string
	if u.Phone != "" {
		v := u.Phone
		phone = &v
	}

	role := u.Role
	if role == "" {
		role = domain.RoleCustomer
	}

	return userModel{
		ID:                    u.ID,
		Email:                 normalizeEmail(u.Email),
		PasswordHash:          u.PasswordHash,
		Role:                  string(role),
		Name:                  u.Name,
		Phone:                 phone,
		ReferralCode:          u.ReferralCode,
		ReferredBy:            u.ReferredBy,
		PasswordResetRequired: u.PasswordResetRequired,
		CreatedAt:             u.CreatedAt,
		UpdatedAt:             u.UpdatedAt,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*u = *toDomainUser(m)
	return nil
}

// Update persists role, referrer, referral code and credential state.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	m := toUserModel(u)
	tx := r.db.WithContext(ctx).Save(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).
		Where("referral_code = ?", strings.TrimSpace(code)).
		First(&m)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) ExistsByReferralCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&userModel{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// ListReferredBy returns accounts whose referrer is referrerID, oldest first.
func (r *UserRepository) ListReferredBy(ctx context.Context, referrerID int64) ([]domain.User, error) {
	var rows []userModel
	if err := r.db.WithContext(ctx).
		Where("referred_by = ?", referrerID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		users = append(users, *toDomainUser(m))
	}
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
