package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/database"
	"github.com/localnerve/sheetsdb/internal/logger"
	"github.com/localnerve/sheetsdb/internal/server"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
)

// @title SheetsDB API
// @version 1.0.0
// @description REST collections over spreadsheet sheets, with per-sheet method gating and per-project authentication
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/sheetsdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

// @securityDefinitions.basic BasicAuth

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Connect to database (app pool)
	appDB, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to app database: %v", err)
	}
	defer database.Close(appDB)

	// Connect to database (user pool)
	userDB, err := database.ConnectUser(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to user database: %v", err)
	}
	defer database.Close(userDB)

	// Run auto-migrations
	if err := database.AutoMigrate(appDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Sheets backend
	store, err := sheets.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create sheets store: %v", err)
	}

	opts := server.Options{
		Config:    cfg,
		AppDB:     appDB,
		UserDB:    userDB,
		Store:     store,
		Metrics:   true,
		AccessLog: true,
	}
	// Authorizer is initialized on the first authenticated request
	if cfg.ManagementEnabled() {
		opts.Sessions = services.NewAuthorizerValidator(cfg)
	}

	app, err := server.New(opts)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	log.WithFields(log.Fields{
		"backend":  store.Backend(),
		"strategy": cfg.RowIDStrategy,
	}).Infof("Starting server on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Info("Server stopped")
}
