// data.go
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

package helpers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/database"
	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
)

// Verbs of the data API, in the order endpoints store them
var Verbs = []string{"GET", "POST", "PUT", "DELETE"}

// TestConfig returns a configuration for an in-process service over sqlite and the memory store
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:                 "0",
		DBType:               "sqlite",
		DBAppDatabase:        filepath.Join(t.TempDir(), "sheetsdb.db"),
		DBAppConnectionLimit: 4,
		DBConnectionLimit:    4,
		DBLogLevel:           "silent",
		SheetsBackend:        config.BackendMemory,
		StoreTimeout:         5 * time.Second,
		RowIDStrategy:        config.RowIDOffset,
		SerializeWrites:      true,
		LogLevel:             "warn",
		LogFormat:            "text",
	}
}

// SetupTestDB opens a migrated metadata database in the test's temp dir
func SetupTestDB(t *testing.T, cfg *config.Config) *gorm.DB {
	t.Helper()

	db, err := database.Connect(cfg)
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.AutoMigrate(db), "Failed to migrate test database")
	return db
}

// ProjectFixture describes a project to register over a store's sheets
type ProjectFixture struct {
	UserID        string
	Name          string
	SpreadsheetID string
	// Methods sets the exact enabled verbs of a sheet. Unlisted sheets keep GET only.
	Methods map[string][]string
	Auth    *services.AuthConfigInput
}

// SeedProject registers a project through the project service and applies the fixture's overrides
func SeedProject(t *testing.T, db *gorm.DB, store sheets.Store, f ProjectFixture) *models.Project {
	t.Helper()

	if f.UserID == "" {
		f.UserID = "user-1"
	}
	if f.Name == "" {
		f.Name = "Test project"
	}

	project, err := services.CreateProject(context.Background(), db, store, f.UserID, services.CreateProjectInput{
		Name:          f.Name,
		SpreadsheetID: f.SpreadsheetID,
	})
	require.NoError(t, err, "Failed to create project")

	for sheetName, verbs := range f.Methods {
		SetMethods(t, db, project, sheetName, verbs...)
	}

	if f.Auth != nil {
		_, err := services.UpdateProjectAuthConfig(db, f.UserID, project.ID, *f.Auth)
		require.NoError(t, err, "Failed to set project auth")
	}

	return project
}

// SetMethods enables exactly verbs on a project's sheet
func SetMethods(t *testing.T, db *gorm.DB, project *models.Project, sheetName string, verbs ...string) {
	t.Helper()

	endpoint, ok := lo.Find(project.Endpoints, func(e models.Endpoint) bool {
		return e.SheetName == sheetName
	})
	require.True(t, ok, "No endpoint for sheet %s", sheetName)

	for _, verb := range Verbs {
		enabled := lo.Contains(verbs, verb)
		_, err := services.ToggleEndpointMethod(db, project.UserID, project.ID, endpoint.ID, services.ToggleMethodInput{
			Method:  verb,
			Enabled: &enabled,
		})
		require.NoError(t, err, "Failed to toggle %s on %s", verb, sheetName)
	}
}

// PeopleGrid is a small sheet used across the data API tests
func PeopleGrid() sheets.Grid {
	return sheets.Grid{
		{"name", "age"},
		{"Alice", "30"},
		{"Bob", "25"},
	}
}
