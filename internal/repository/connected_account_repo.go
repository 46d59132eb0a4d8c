package repository

import (
	"gorm.io/gorm"

	"acmeramp/internal/models"
)

type ConnectedAccountRepository struct {
	db *gorm.DB
}

func NewConnectedAccountRepository(db *gorm.DB) *ConnectedAccountRepository {
	return &ConnectedAccountRepository{db: db}
}

func (r *ConnectedAccountRepository) GetByUserAddress(addr string) (*models.ConnectedAccount, error) {
	var a models.ConnectedAccount
	err := r.db.Where("user_address = ?", addr).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *ConnectedAccountRepository) Create(a *models.ConnectedAccount) error {
	return r.db.Create(a).Error
}

// UpdateStatus records the latest onboarding flags reported by the provider.
func (r *ConnectedAccountRepository) UpdateStatus(addr string, onboardingComplete, chargesEnabled, payoutsEnabled bool) error {
	return r.db.Model(&models.ConnectedAccount{}).
		Where("user_address = ?", addr).
		Updates(map[string]interface{}{
			"onboarding_complete": onboardingComplete,
			"charges_enabled":     chargesEnabled,
			"payouts_enabled":     payoutsEnabled,
		}).Error
}
