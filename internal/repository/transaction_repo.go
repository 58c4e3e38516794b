package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// GetByID fetches a single transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetAll returns all transactions ordered by date.
func (r *TransactionRepository) GetAll(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).Order("transaction_date ASC").Find(&txs).Error
	return txs, err
}

// GetWithoutAttachments returns transactions that have no attachment yet,
// the candidate set for batch auto-assignment.
func (r *TransactionRepository) GetWithoutAttachments(ctx context.Context) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM attachment_records a WHERE a.transaction_id = transactions.id)").
		Order("transaction_date ASC").
		Find(&txs).Error
	return txs, err
}
