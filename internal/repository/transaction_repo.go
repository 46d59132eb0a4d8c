package repository

import (
	"time"

	"gorm.io/gorm"

	"acmeramp/internal/domain"
	"acmeramp/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(t *models.Transaction) error {
	return r.db.Create(t).Error
}

func (r *TransactionRepository) GetByID(id string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByPaymentIntentID(ref string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("payment_intent_id = ?", ref).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepository) GetByTransferTxHash(hash string) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.Where("transfer_tx_hash = ?", hash).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateFields applies a partial update to a single record.
func (r *TransactionRepository) UpdateFields(id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateIfStatus applies a conditional single-row update: fields land only if
// the stored status still equals expected. The affected count tells the
// caller whether it won the compare-and-swap.
func (r *TransactionRepository) UpdateIfStatus(id, expected string, fields map[string]interface{}) (int64, error) {
	fields["updated_at"] = time.Now()
	res := r.db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// ClaimPending atomically moves a record from pending to processing and
// reports how many rows were affected. Zero means a concurrent caller won the
// race; the loser must re-read the record and must not mint or burn.
func (r *TransactionRepository) ClaimPending(id string) (int64, error) {
	return r.UpdateIfStatus(id, domain.TxStatusPending, map[string]interface{}{
		"status": domain.TxStatusProcessing,
	})
}

// ListByUserAddress returns the address's records newest first, plus the
// total count for paging.
func (r *TransactionRepository) ListByUserAddress(addr string, limit, offset int) ([]models.Transaction, int64, error) {
	var txs []models.Transaction
	var total int64
	q := r.db.Model(&models.Transaction{}).Where("user_address = ?", addr)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&txs).Error
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}
