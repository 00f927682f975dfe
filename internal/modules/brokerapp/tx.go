package brokerapp

import (
	"context"

	"realestate/internal/repository"

	"gorm.io/gorm"
)

type gormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) WithinTx(ctx context.Context, fn func(apps ApplicationRepository, users UserRepository) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(
			repository.NewBrokerApplicationRepository(tx),
			repository.NewUserRepository(tx),
		)
	})
}
