package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/utils"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Database     string            `json:"database"`
	Authorizer   string            `json:"authorizer"`
	Sheets       string            `json:"sheets"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Healthy reports whether every dependency checked out
func (r HealthCheckResult) Healthy() bool {
	return r.Status == "healthy"
}

func (r *HealthCheckResult) fail(component, message string, err error) {
	r.Status = "unhealthy"
	r.Details[component+"_error"] = err.Error()
	if r.ErrorMessage == "" {
		r.ErrorMessage = fmt.Sprintf("%s: %v", message, err)
	} else {
		r.ErrorMessage += fmt.Sprintf("; %s: %v", message, err)
	}
	log.WithField("component", component).Warnf("Health check failed - %s: %v", message, err)
}

// HealthCheck performs a comprehensive health check of the service
func HealthCheck(ctx context.Context, cfg *config.Config, db *gorm.DB, store sheets.Store) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}

	// Check database connectivity
	sqlDB, err := db.DB()
	if err != nil {
		result.Database = "error"
		result.fail("database", "Database connection error", err)
	} else if err := sqlDB.PingContext(ctx); err != nil {
		result.Database = "unreachable"
		result.fail("database", "Database ping failed", err)
	} else {
		result.Database = "ok"
		result.Details["database_type"] = cfg.DBType
		result.Details["database_name"] = cfg.DBAppDatabase
	}

	// Check Authorizer connectivity, when the management API uses it
	if !cfg.ManagementEnabled() {
		result.Authorizer = "disabled"
	} else if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		result.Authorizer = "unreachable"
		result.fail("authorizer", "Authorizer ping failed", err)
	} else {
		result.Authorizer = "ok"
		result.Details["authorizer_url"] = cfg.AuthzURL
	}

	// Check the sheets backend
	if store == nil {
		result.Sheets = "disabled"
	} else if err := store.Check(ctx); err != nil {
		result.Sheets = "unavailable"
		result.fail("sheets", "Sheets backend check failed", err)
	} else {
		result.Sheets = "ok"
		result.Details["sheets_backend"] = store.Backend()
	}

	if result.Healthy() {
		log.Debug("Health check passed - all systems operational")
	}

	return result
}
