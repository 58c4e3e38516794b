package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mathiasfritsch/TaxFiler-sub001/internal/models"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/repository"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/assignment"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/matching"
)

type MatchingHandler struct {
	matcher      matching.Matcher
	cache        *matching.Cache
	assigner     *assignment.Service
	transactions *repository.TransactionRepository
	documents    *repository.DocumentRepository
	attachments  *repository.AttachmentRepository
}

func NewMatchingHandler(
	matcher matching.Matcher,
	cache *matching.Cache,
	assigner *assignment.Service,
	transactions *repository.TransactionRepository,
	documents *repository.DocumentRepository,
	attachments *repository.AttachmentRepository,
) *MatchingHandler {
	return &MatchingHandler{
		matcher:      matcher,
		cache:        cache,
		assigner:     assigner,
		transactions: transactions,
		documents:    documents,
		attachments:  attachments,
	}
}

// GetMatches ranks candidate documents for one transaction.
func (h *MatchingHandler) GetMatches(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	unconnectedOnly := c.Query("unconnected") == "true"

	tx, err := h.transactions.GetByID(c.Request.Context(), txID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"matches": []matching.DocumentMatch{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.documents.GetPool(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.matcher.Rank(c.Request.Context(), tx, pool, unconnectedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// GetMatchesBatch ranks many transactions against one shared pool.
func (h *MatchingHandler) GetMatchesBatch(c *gin.Context) {
	var payload struct {
		TransactionIDs []string `json:"transaction_ids"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var txs []models.Transaction
	for _, raw := range payload.TransactionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID: " + raw})
			return
		}
		tx, err := h.transactions.GetByID(c.Request.Context(), id)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		txs = append(txs, *tx)
	}

	pool, err := h.documents.GetPool(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results, err := h.matcher.RankBatch(c.Request.Context(), txs, pool)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetCombinations searches multi-document matches for one transaction.
func (h *MatchingHandler) GetCombinations(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	// Combinations default to unconnected documents only: they exist to
	// propose new attachments, unlike single matches which also serve as a
	// review view over already-attached documents.
	unconnectedOnly := c.Query("unconnected") != "false"

	tx, err := h.transactions.GetByID(c.Request.Context(), txID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"combinations": []matching.MultipleDocumentMatch{}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pool, err := h.documents.GetPool(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	combos, err := h.matcher.FindCombinations(c.Request.Context(), tx, pool, unconnectedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"combinations": combos})
}

// AutoAssign runs auto-assignment for a single transaction.
func (h *MatchingHandler) AutoAssign(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	result, err := h.assigner.AutoAssign(c.Request.Context(), txID, c.GetHeader("X-Actor"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// AutoAssignAll runs auto-assignment over all unattached transactions.
func (h *MatchingHandler) AutoAssignAll(c *gin.Context) {
	result, err := h.assigner.AutoAssignAll(c.Request.Context(), c.GetHeader("X-Actor"))
	if err != nil && result == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Attach manually attaches a document to a transaction.
func (h *MatchingHandler) Attach(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		DocumentID string `json:"document_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document ID"})
		return
	}

	rec := &models.AttachmentRecord{
		TransactionID: txID,
		DocumentID:    docID,
		Automatic:     false,
		ActorID:       c.GetHeader("X-Actor"),
	}
	if err := h.attachments.Create(c.Request.Context(), rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttachment) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.cache.InvalidateTransaction(txID)
	c.JSON(http.StatusOK, gin.H{"message": "document attached", "attachment": rec})
}

// Detach removes an attachment.
func (h *MatchingHandler) Detach(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	docID, err := uuid.Parse(c.Param("documentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document ID"})
		return
	}

	if err := h.attachments.Delete(c.Request.Context(), txID, docID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.cache.InvalidateTransaction(txID)
	c.JSON(http.StatusOK, gin.H{"message": "document detached"})
}

// ListAttachments returns the attachments of one transaction.
func (h *MatchingHandler) ListAttachments(c *gin.Context) {
	txID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	recs, err := h.attachments.GetByTransaction(c.Request.Context(), txID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": recs})
}
