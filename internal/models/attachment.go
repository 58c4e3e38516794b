package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AttachmentRecord links a document to a transaction. It is the audit trail
// for both manual and automatic assignments. The composite unique index
// guarantees a (transaction, document) pair exists at most once.
type AttachmentRecord struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID `gorm:"index;uniqueIndex:idx_attachment_pair"`
	DocumentID    uuid.UUID `gorm:"uniqueIndex:idx_attachment_pair"`
	Automatic     bool
	ActorID       string
	Details       datatypes.JSON // score breakdown that justified an automatic assignment
	CreatedAt     time.Time
}
