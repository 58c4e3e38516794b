package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create persists one attachment. The unique (transaction_id, document_id)
// index decides races: the insert is a no-op on conflict and the loser gets
// ErrDuplicateAttachment.
func (r *AttachmentRepository) Create(ctx context.Context, rec *models.AttachmentRecord) error {
	return r.createIn(r.db.WithContext(ctx), rec)
}

// CreateAll persists a whole combination inside one database transaction.
// Any duplicate rolls back every insert (atomic assignment mode).
func (r *AttachmentRepository) CreateAll(ctx context.Context, recs []*models.AttachmentRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range recs {
			if err := r.createIn(tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AttachmentRepository) createIn(db *gorm.DB, rec *models.AttachmentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateAttachment
	}

	return db.Model(&models.Document{}).
		Where("id = ?", rec.DocumentID).
		Update("connected", true).Error
}

// Delete removes one attachment and clears the document's connected flag
// when no other attachment remains.
func (r *AttachmentRepository) Delete(ctx context.Context, transactionID, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("transaction_id = ? AND document_id = ?", transactionID, documentID).
			Delete(&models.AttachmentRecord{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		var remaining int64
		if err := tx.Model(&models.AttachmentRecord{}).
			Where("document_id = ?", documentID).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return tx.Model(&models.Document{}).
				Where("id = ?", documentID).
				Update("connected", false).Error
		}
		return nil
	})
}

// CountByTransaction returns how many documents are attached to a transaction.
func (r *AttachmentRepository) CountByTransaction(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AttachmentRecord{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count, err
}

// GetByTransaction lists the attachments of one transaction.
func (r *AttachmentRepository) GetByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.AttachmentRecord, error) {
	var recs []models.AttachmentRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&recs).Error
	return recs, err
}
