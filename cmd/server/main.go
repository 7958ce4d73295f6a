package main

import (
	"os"

	"github.com/gin-gonic/gin"

	"statement-reconciliation-backend/internal/audit"
	"statement-reconciliation-backend/internal/config"
	"statement-reconciliation-backend/internal/routes"
	service "statement-reconciliation-backend/internal/services/reconciliation"
	"statement-reconciliation-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("RECON_CONFIG_FILE"))
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		logger.Errorf("Failed to build logger: %v", err)
		os.Exit(1)
	}
	logger.SetGlobalLogger(log)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		log.WithError(err).Errorf("Failed to connect to database")
		os.Exit(1)
	}
	if err := config.Migrate(db); err != nil {
		log.WithError(err).Errorf("Failed to migrate database")
		os.Exit(1)
	}

	if cfg.Log.Level != logger.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	sink := audit.NewGormSink(db, log)
	reconService := service.NewReconciliationService(db, cfg, sink, log)
	r := routes.NewRouter(cfg.Server, reconService, log)

	log.WithField("addr", cfg.Server.Addr).Infof("Starting reconciliation API")
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.WithError(err).Errorf("Server stopped")
		os.Exit(1)
	}
}
