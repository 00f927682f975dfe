package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// PasswordResetRepository stores hashed one-time password reset tokens.
type PasswordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

type passwordResetTokenModel struct {
	ID        int64      `gorm:"column:id;primaryKey"`
	UserID    int64      `gorm:"column:user_id;index;not null"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (passwordResetTokenModel) TableName() string { return "password_reset_tokens" }

// Replace stores a new token for userID and drops any unused one issued before.
func (r *PasswordResetRepository) Replace(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("user_id = ? AND used_at IS NULL", userID).
			Delete(&passwordResetTokenModel{}).Error; err != nil {
			return err
		}
		return tx.Create(&passwordResetTokenModel{
			UserID:    userID,
			TokenHash: tokenHash,
			ExpiresAt: expiresAt.UTC(),
		}).Error
	})
}

// Consume marks the token used, stores passwordHash on its account and
// clears the account's reset flag, all in one transaction. It returns the
// account ID, or ErrTokenNotUsable.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) (int64, error) {
	now = now.UTC()
	var userID int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t passwordResetTokenModel
		if err := tx.
			Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
			First(&t).Error; err != nil {
			if IsNotFound(err) {
				return ErrTokenNotUsable
			}
			return err
		}

		// a concurrent Consume of the same token updates zero rows here
		claim := tx.Model(&passwordResetTokenModel{}).
			Where("id = ? AND used_at IS NULL", t.ID).
			Update("used_at", now)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return ErrTokenNotUsable
		}

		res := tx.Model(&userModel{}).
			Where("id = ?", t.UserID).
			Updates(map[string]any{
				"password_hash":           passwordHash,
				"password_reset_required": false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenNotUsable
		}

		userID = t.UserID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// PurgeExpired deletes tokens that are used or past expiry.
func (r *PasswordResetRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ? OR used_at IS NOT NULL", now.UTC()).
		Delete(&passwordResetTokenModel{})
	return res.RowsAffected, res.Error
}
