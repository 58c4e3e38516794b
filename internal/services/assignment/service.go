package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/repository"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/matching"
)

// TransactionStore is the read side for transactions.
type TransactionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	GetWithoutAttachments(ctx context.Context) ([]models.Transaction, error)
}

// DocumentStore provides the candidate document pool.
type DocumentStore interface {
	GetPool(ctx context.Context, unconnectedOnly bool) ([]models.Document, error)
}

// AttachmentStore is the only mutating collaborator of the orchestrator.
type AttachmentStore interface {
	Create(ctx context.Context, rec *models.AttachmentRecord) error
	CreateAll(ctx context.Context, recs []*models.AttachmentRecord) error
	CountByTransaction(ctx context.Context, transactionID uuid.UUID) (int64, error)
}

// CombinationFinder searches document sets for one transaction. The
// orchestrator always uses the raw engine here, never the cache, so
// assignment decisions are never based on stale rankings.
type CombinationFinder interface {
	FindCombinations(ctx context.Context, tx *models.Transaction, pool []models.Document, unconnectedOnly bool) ([]matching.MultipleDocumentMatch, error)
}

// CacheInvalidator drops cached results for a transaction after a mutation.
type CacheInvalidator interface {
	InvalidateTransaction(txID uuid.UUID)
}

// Status is the terminal state of one transaction in an auto-assignment run.
type Status string

const (
	StatusAssigned Status = "assigned"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// AutoAssignResult summarizes an auto-assignment run. It is a plain value:
// partial failures land in Errors, the run itself never aborts.
type AutoAssignResult struct {
	TotalProcessed int      `json:"total_processed"`
	AssignedCount  int      `json:"assigned_count"`
	SkippedCount   int      `json:"skipped_count"`
	Errors         []string `json:"errors"`
}

// Service turns ranked combination candidates into persisted attachments.
type Service struct {
	transactions TransactionStore
	documents    DocumentStore
	attachments  AttachmentStore
	finder       CombinationFinder
	cache        CacheInvalidator
	cfg          *matching.Config
}

func NewService(
	transactions TransactionStore,
	documents DocumentStore,
	attachments AttachmentStore,
	finder CombinationFinder,
	cache CacheInvalidator,
	cfg *matching.Config,
) *Service {
	return &Service{
		transactions: transactions,
		documents:    documents,
		attachments:  attachments,
		finder:       finder,
		cache:        cache,
		cfg:          cfg,
	}
}

// AutoAssign processes a single transaction.
func (s *Service) AutoAssign(ctx context.Context, txID uuid.UUID, actor string) (*AutoAssignResult, error) {
	tx, err := s.transactions.GetByID(ctx, txID)
	if errors.Is(err, repository.ErrNotFound) {
		// NotFound on a single item is an empty result, not a failure.
		return &AutoAssignResult{Errors: []string{}}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &AutoAssignResult{Errors: []string{}}
	s.assignOne(ctx, tx, actor, result)
	return result, nil
}

// AutoAssignAll processes every transaction without attachments. One failing
// transaction never aborts the batch; its error is recorded and processing
// moves on. Cancellation is observed between transactions, so results
// computed so far stay valid.
func (s *Service) AutoAssignAll(ctx context.Context, actor string) (*AutoAssignResult, error) {
	txs, err := s.transactions.GetWithoutAttachments(ctx)
	if err != nil {
		return nil, err
	}

	result := &AutoAssignResult{Errors: []string{}}
	for i := range txs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		s.assignOne(ctx, &txs[i], actor, result)
	}
	return result, nil
}

// assignOne runs the per-transaction state machine
// (pending -> assigned | skipped | failed) and folds the outcome into result.
func (s *Service) assignOne(ctx context.Context, tx *models.Transaction, actor string, result *AutoAssignResult) {
	result.TotalProcessed++

	status, errMsg := s.processSafely(ctx, tx, actor)
	switch status {
	case StatusAssigned:
		result.AssignedCount++
		if errMsg != "" {
			// Assigned with a partial persistence failure: the kept
			// attachments stand, the per-document failures are reported.
			result.Errors = append(result.Errors, fmt.Sprintf("transaction %s: %s", tx.ID, errMsg))
		}
	case StatusSkipped:
		result.SkippedCount++
	case StatusFailed:
		result.SkippedCount++
		result.Errors = append(result.Errors, fmt.Sprintf("transaction %s: %s", tx.ID, errMsg))
	}
}

// processSafely converts panics during a single transaction's scoring or
// persistence into a failed status so the batch keeps going.
func (s *Service) processSafely(ctx context.Context, tx *models.Transaction, actor string) (status Status, errMsg string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("auto-assign panic for transaction %s: %v", tx.ID, r)
			status = StatusFailed
			errMsg = fmt.Sprintf("processing panic: %v", r)
		}
	}()
	return s.process(ctx, tx, actor)
}

func (s *Service) process(ctx context.Context, tx *models.Transaction, actor string) (Status, string) {
	attached, err := s.attachments.CountByTransaction(ctx, tx.ID)
	if err != nil {
		return StatusFailed, err.Error()
	}
	if attached > 0 {
		return StatusFailed, "already attached"
	}

	pool, err := s.documents.GetPool(ctx, true)
	if err != nil {
		return StatusFailed, err.Error()
	}

	combos, err := s.finder.FindCombinations(ctx, tx, pool, true)
	if err != nil {
		return StatusFailed, err.Error()
	}
	if len(combos) == 0 || combos[0].Score < s.cfg.AutoAssignThreshold {
		// Below the auto-assignment bar is a normal outcome, not an error.
		return StatusSkipped, ""
	}

	best := combos[0]
	records := make([]*models.AttachmentRecord, 0, len(best.Documents))
	details, _ := json.Marshal(best.Breakdown)
	for i := range best.Documents {
		records = append(records, &models.AttachmentRecord{
			ID:            uuid.New(),
			TransactionID: tx.ID,
			DocumentID:    best.Documents[i].ID,
			Automatic:     true,
			ActorID:       actor,
			Details:       details,
		})
	}

	assigned, failures := s.persist(ctx, records)
	if assigned == 0 {
		return StatusFailed, joinFailures(failures)
	}

	s.cache.InvalidateTransaction(tx.ID)
	if len(failures) > 0 {
		msg := fmt.Sprintf("%d of %d attachments persisted; %s",
			assigned, len(records), joinFailures(failures))
		log.Printf("auto-assign for transaction %s: %s", tx.ID, msg)
		return StatusAssigned, msg
	}
	return StatusAssigned, ""
}

// persist writes the combination's attachment records. In atomic mode the
// whole set succeeds or fails together; otherwise each document is attached
// independently and failures are collected.
func (s *Service) persist(ctx context.Context, records []*models.AttachmentRecord) (int, []string) {
	if s.cfg.AtomicAssignment {
		if err := s.attachments.CreateAll(ctx, records); err != nil {
			return 0, []string{err.Error()}
		}
		return len(records), nil
	}

	assigned := 0
	var failures []string
	for _, rec := range records {
		if err := s.attachments.Create(ctx, rec); err != nil {
			failures = append(failures, fmt.Sprintf("document %s: %v", rec.DocumentID, err))
			continue
		}
		assigned++
	}
	return assigned, failures
}

func joinFailures(failures []string) string {
	if len(failures) == 0 {
		return "no attachment persisted"
	}
	msg := failures[0]
	for _, f := range failures[1:] {
		msg += "; " + f
	}
	return msg
}
