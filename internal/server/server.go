// server.go
//
// A REST data service that exposes spreadsheet sheets as JSON collections
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of sheetsdb.
// sheetsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// sheetsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with sheetsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package server assembles the Fiber application.
package server

import (
	"context"
	"errors"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	_ "github.com/localnerve/sheetsdb/docs/api" // Swagger docs
	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/handlers"
	"github.com/localnerve/sheetsdb/internal/middleware"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/types"
	"github.com/localnerve/sheetsdb/internal/utils"
)

// Options holds the collaborators of the application
type Options struct {
	Config *config.Config
	// AppDB is the read/write pool of the management API
	AppDB *gorm.DB
	// UserDB is the pool the data API reads metadata with
	UserDB *gorm.DB
	Store  sheets.Store
	// Sessions validates management sessions. Nil leaves the management API unmounted.
	Sessions services.SessionValidator
	// Metrics mounts /metrics. Collectors register once per process.
	Metrics bool
	// AccessLog enables the request logger
	AccessLog bool
}

// New creates the Fiber application with every route mounted
func New(opts Options) (*fiber.App, error) {
	sheetService, err := services.NewSheetService(opts.Config, opts.UserDB, opts.Store)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	// Global middleware
	app.Use(recover.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Output: log.StandardLogger().Out,
		}))
	}
	app.Use(compress.New())

	// Prometheus metrics
	if opts.Metrics {
		prometheus := fiberprometheus.New("sheetsdb")
		prometheus.RegisterAt(app, "/metrics")
		app.Use(prometheus.Middleware)
	}

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
		defer cancel()

		result := services.HealthCheck(ctx, opts.Config, opts.AppDB, opts.Store)
		status := fiber.StatusOK
		if !result.Healthy() {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")

	// Data routes, readable from any origin
	data := api.Group("/v1", middleware.AllowAnyOrigin())
	sheetHandler := &handlers.SheetDataHandler{Service: sheetService}

	data.Options("/:projectId/:sheetName", middleware.Preflight)
	data.Get("/:projectId/:sheetName", sheetHandler.GetRows)
	data.Post("/:projectId/:sheetName", sheetHandler.AppendRows)
	data.Put("/:projectId/:sheetName", sheetHandler.UpdateRow)
	data.Delete("/:projectId/:sheetName", sheetHandler.DeleteRow)

	// Management routes (all require user authentication)
	if opts.Sessions != nil {
		projects := api.Group("/projects", middleware.AuthUser(opts.Sessions))
		projectHandler := &handlers.ProjectsHandler{DB: opts.AppDB, Store: opts.Store}

		projects.Post("/", projectHandler.CreateProject)
		projects.Get("/", projectHandler.ListProjects)
		projects.Get("/:projectId", projectHandler.GetProject)
		projects.Patch("/:projectId", projectHandler.RenameProject)
		projects.Delete("/:projectId", projectHandler.DeleteProject)
		projects.Get("/:projectId/endpoints", projectHandler.ListEndpoints)
		projects.Post("/:projectId/endpoints/sync", projectHandler.SyncEndpoints)
		projects.Patch("/:projectId/endpoints/:endpointId", projectHandler.ToggleEndpointMethod)
		projects.Get("/:projectId/auth", projectHandler.GetAuthConfig)
		projects.Put("/:projectId/auth", projectHandler.UpdateAuthConfig)
	} else {
		log.Warn("Management API disabled: AUTHZ_URL and AUTHZ_CLIENT_ID are not set")
	}

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.NotFoundResponse(c, "Resource Not Found")
	})

	return app, nil
}

// ErrorHandler handles errors globally
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	errorType := "unknown"

	var fe *fiber.Error
	if ce, ok := types.AsCustomError(err); ok {
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	} else if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.WithField("url", c.OriginalURL()).Errorf("Unhandled error: %v", err)
	}

	return utils.ErrorResponse(c, message, code, errorType)
}
