package repository

import (
	"context"
	"strings"
	"time"

	"realestate/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BrokerApplicationRepository struct {
	db *gorm.DB
}

func NewBrokerApplicationRepository(db *gorm.DB) *BrokerApplicationRepository {
	return &BrokerApplicationRepository{db: db}
}

type brokerApplicationModel struct {
	ID               int64      `gorm:"column:id;primaryKey"`
	FullName         string     `gorm:"column:full_name;not null"`
	DateOfBirth      time.Time  `gorm:"column:dob;not null"`
	Phone            string     `gorm:"column:phone;not null"`
	Email            string     `gorm:"column:email;uniqueIndex;not null"`
	Experience       int        `gorm:"column:experience;not null;default:0"`
	Locations        []string   `gorm:"column:locations;serializer:json;type:text"`
	Message          string     `gorm:"column:message"`
	ReferralCodeUsed *string    `gorm:"column:referral_code_used"`
	Status           string     `gorm:"column:status;index;not null;default:pending"`
	ResolvedBy       *int64     `gorm:"column:resolved_by"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (brokerApplicationModel) TableName() string { return "broker_applications" }

func toDomainApplication(m brokerApplicationModel) *domain.BrokerApplication {
	locations := m.Locations
	if locations == nil {
		locations = []string{}
	}

	return &domain.BrokerApplication{
		ID:               m.ID,
		FullName:         m.FullName,
		DateOfBirth:      m.DateOfBirth,
		Phone:            m.Phone,
		Email:            m.Email,
		Experience:       m.Experience,
		Locations:        locations,
		Message:          m.Message,
		ReferralCodeUsed: m.ReferralCodeUsed,
		Status:           domain.ApplicationStatus(m.Status),
		ResolvedBy:       m.ResolvedBy,
		ResolvedAt:       m.ResolvedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toApplicationModel(a *domain.BrokerApplication) brokerApplicationModel {
	var code *string
	if a.ReferralCodeUsed != nil && strings.TrimSpace(*a.ReferralCodeUsed) != "" {
		v := strings.TrimSpace(*a.ReferralCodeUsed)
		code = &v
	}

	status := a.Status
	if status == "" {
		status = domain.ApplicationPending
	}

	return brokerApplicationModel{
		ID:               a.ID,
		FullName:         a.FullName,
		DateOfBirth:      a.DateOfBirth,
		Phone:            a.Phone,
		Email:            strings.TrimSpace(a.Email),
		Experience:       a.Experience,
		Locations:        a.Locations,
		Message:          a.Message,
		ReferralCodeUsed: code,
		Status:           string(status),
		ResolvedBy:       a.ResolvedBy,
		ResolvedAt:       a.ResolvedAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (r *BrokerApplicationRepository) Create(ctx context.Context, a *domain.BrokerApplication) error {
	m := toApplicationModel(a)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	*a = *toDomainApplication(m)
	return nil
}

func (r *BrokerApplicationRepository) GetByID(ctx context.Context, id int64) (*domain.BrokerApplication, error) {
	var m brokerApplicationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainApplication(m), nil
}

// GetByIDForUpdate locks the row for the rest of the surrounding transaction.
// SQLite has no row locks and the clause is dropped by its dialector.
func (r *BrokerApplicationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.BrokerApplication, error) {
	var m brokerApplicationModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&m, id).Error; err != nil {
		return nil, err
	}
	return toDomainApplication(m), nil
}

// ExistsByEmail matches the email exactly, case included.
func (r *BrokerApplicationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&brokerApplicationModel{}).
		Where("email = ?", strings.TrimSpace(email)).
		Count(&count).Error
	return count > 0, err
}

func (r *BrokerApplicationRepository) ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.BrokerApplication, error) {
	var rows []brokerApplicationModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	apps := make([]domain.BrokerApplication, 0, len(rows))
	for _, m := range rows {
		apps = append(apps, *toDomainApplication(m))
	}
	return apps, nil
}

// UpdateStatus records the adjudication. It returns gorm.ErrRecordNotFound
// when no row matched.
func (r *BrokerApplicationRepository) UpdateStatus(ctx context.Context, id int64, status domain.ApplicationStatus, resolvedBy int64) error {
	now := time.Now()
	tx := r.db.WithContext(ctx).
		Model(&brokerApplicationModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      string(status),
			"resolved_by": resolvedBy,
			"resolved_at": now,
			"updated_at":  now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the application permanently.
func (r *BrokerApplicationRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&brokerApplicationModel{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeResolvedBefore deletes approved and rejected applications resolved
// before cutoff. Pending applications are never touched.
func (r *BrokerApplicationRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).
		Where("status <> ? AND resolved_at IS NOT NULL AND resolved_at < ?", string(domain.ApplicationPending), cutoff).
		Delete(&brokerApplicationModel{})
	return tx.RowsAffected, tx.Error
}
