package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"statement-reconciliation-backend/internal/config"
	handler "statement-reconciliation-backend/internal/handlers"
	service "statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/pkg/logger"
)

func RegisterRoutes(r *gin.Engine, reconService *service.ReconciliationService, log logger.Logger) {
	reconHandler := handler.NewReconciliationHandler(reconService, log)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	accounts := api.Group("/bank-accounts")
	accounts.GET("", reconHandler.ListBankAccounts)
	accounts.POST("", reconHandler.CreateBankAccount)

	statements := api.Group("/statements")
	statements.POST("/import", reconHandler.ImportStatement)
	statements.GET("/:id", reconHandler.GetImport)
	statements.GET("/:id/stats", reconHandler.GetImportStats)

	// Transaction-level routes
	tx := api.Group("/transactions")
	tx.GET("", reconHandler.ListTransactions)
	tx.GET("/:id/matches", reconHandler.ListMatches)

	matches := api.Group("/matches")
	matches.POST("/suggest", reconHandler.SuggestMatches)
	matches.POST("/suggestions", reconHandler.RecordSuggestion)
	matches.POST("/confirm", reconHandler.ConfirmMatch)
	matches.POST("/:id/reject", reconHandler.RejectMatch)

	// Invoice lookup for manual matching
	api.GET("/invoices", reconHandler.SearchInvoices)
}

// NewRouter builds the gin engine with CORS for the configured origins and every API route.
func NewRouter(cfg config.ServerConfig, reconService *service.ReconciliationService, log logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", handler.ActorHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterRoutes(r, reconService, log)
	return r
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debugf("request served")
	}
}
