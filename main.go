package main

import (
	"github.com/wfunc/quizserver/config"
	"github.com/wfunc/quizserver/logger"
	"github.com/wfunc/quizserver/monitor"
	"github.com/wfunc/quizserver/persistence"
	"github.com/wfunc/quizserver/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if cfg.Server.Development {
		logger.InitDevelopment()
	} else {
		logger.Init()
	}

	// Initialize vocabulary store (read-only content collaborator)
	var store persistence.VocabularyStore
	switch cfg.Database.Driver {
	case "pq":
		store, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		store, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()
	logger.Log.Info("Database connection successful.")

	// Metrics endpoint
	var mon *monitor.Monitor
	if cfg.Server.MetricsAddress != "" {
		mon = monitor.NewMonitor("quizserver")
		mon.StartServer(cfg.Server.MetricsAddress)
	}

	// Initialize and start the quiz server
	quizServer := server.NewQuizServer(cfg, store, mon)

	logger.Log.Infof("Starting quiz server on %s", cfg.Server.HTTPAddress)
	if err := quizServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
