package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// GetByID fetches a single document.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetAll returns the full document pool.
func (r *DocumentRepository) GetAll(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&docs).Error
	return docs, err
}

// GetPool returns the candidate pool for matching, optionally restricted to
// unconnected documents (no attachment to any transaction).
func (r *DocumentRepository) GetPool(ctx context.Context, unconnectedOnly bool) ([]models.Document, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if unconnectedOnly {
		query = query.Where("connected = ?", false)
	}
	var docs []models.Document
	err := query.Find(&docs).Error
	return docs, err
}
