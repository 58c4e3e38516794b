package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "github.com/mathiasfritsch/TaxFiler-sub001/internal/handlers"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/repository"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/assignment"
	"github.com/mathiasfritsch/TaxFiler-sub001/internal/services/matching"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *matching.Config) error {
	transactionRepo := repository.NewTransactionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	engine, err := matching.NewEngine(cfg)
	if err != nil {
		return err
	}
	cache := matching.NewCache(engine)

	// The orchestrator searches through the raw engine: auto-assignment
	// must never act on stale cached rankings.
	assigner := assignment.NewService(
		transactionRepo,
		documentRepo,
		attachmentRepo,
		engine,
		cache,
		cfg,
	)

	matchingHandler := handler.NewMatchingHandler(
		cache,
		cache,
		assigner,
		transactionRepo,
		documentRepo,
		attachmentRepo,
	)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Transaction-level matching routes
	tx := api.Group("/transactions")
	tx.GET("/:id/matches", matchingHandler.GetMatches)
	tx.GET("/:id/combinations", matchingHandler.GetCombinations)
	tx.POST("/:id/auto-assign", matchingHandler.AutoAssign)
	tx.GET("/:id/attachments", matchingHandler.ListAttachments)
	tx.POST("/:id/attachments", matchingHandler.Attach)
	tx.DELETE("/:id/attachments/:documentId", matchingHandler.Detach)

	// Batch routes
	match := api.Group("/matching")
	match.POST("/rank-batch", matchingHandler.GetMatchesBatch)
	match.POST("/auto-assign", matchingHandler.AutoAssignAll)

	return nil
}
