// integration_test.go
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

package integration_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/database"
	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/server"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/tests/helpers"
)

// TestWithMariaDB runs the metadata layer against a real MariaDB container
func TestWithMariaDB(t *testing.T) {
	helpers.RequireDocker(t)
	runMetadataSuite(t)
}

// TestWithPostgreSQL runs the metadata layer against a real PostgreSQL container
func TestWithPostgreSQL(t *testing.T) {
	helpers.RequireDocker(t)

	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_IMAGE", "postgres:16")
	runMetadataSuite(t)
}

func runMetadataSuite(t *testing.T) {
	tc, err := helpers.CreateAllTestContainers(t, helpers.ContainerOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { tc.Terminate(t) })

	cfg := tc.Config()

	appDB, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(appDB) })

	userDB, err := database.ConnectUser(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(userDB) })

	store := sheets.NewMemoryStore()
	store.Put("ss-int", "People", helpers.PeopleGrid())
	store.Put("ss-int", "Orders", sheets.Grid{{"sku", "qty"}})

	project := helpers.SeedProject(t, appDB, store, helpers.ProjectFixture{
		UserID:        "owner",
		SpreadsheetID: "ss-int",
		Methods:       map[string][]string{"People": helpers.Verbs},
	})

	t.Run("UserPoolReadsMetadata", func(t *testing.T) {
		testUserPoolReadsMetadata(t, userDB, project)
	})

	t.Run("UserPoolCannotWrite", func(t *testing.T) {
		testUserPoolCannotWrite(t, userDB, project)
	})

	t.Run("DataAPI", func(t *testing.T) {
		testDataAPI(t, cfg, appDB, userDB, store, project)
	})

	t.Run("CascadeDelete", func(t *testing.T) {
		testCascadeDelete(t, appDB, project)
	})
}

func testUserPoolReadsMetadata(t *testing.T, userDB *gorm.DB, project *models.Project) {
	stored, err := services.GetProject(userDB, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "ss-int", stored.SpreadsheetID)

	endpoint, err := services.GetEndpoint(userDB, project.ID, "People")
	require.NoError(t, err)
	require.NotNil(t, endpoint)
	assert.True(t, endpoint.IsDeleteEnabled)

	orders, err := services.GetEndpoint(userDB, project.ID, "Orders")
	require.NoError(t, err)
	require.NotNil(t, orders)
	assert.True(t, orders.IsGetEnabled)
	assert.False(t, orders.IsPostEnabled)

	auth, err := services.GetProjectAuth(userDB, project.ID)
	require.NoError(t, err)
	require.NotNil(t, auth)
	assert.Equal(t, models.AuthNone, auth.AuthType)
}

func testUserPoolCannotWrite(t *testing.T, userDB *gorm.DB, project *models.Project) {
	err := userDB.Model(&models.Endpoint{}).
		Where("project_id = ?", project.ID).
		Update("is_post_enabled", false).Error
	assert.Error(t, err, "the data pool must not modify metadata")

	err = userDB.Create(&models.Project{UserID: "intruder", Name: "x", SpreadsheetID: "y"}).Error
	assert.Error(t, err)
}

func testDataAPI(t *testing.T, cfg *config.Config, appDB, userDB *gorm.DB, store *sheets.MemoryStore, project *models.Project) {
	app, err := server.New(server.Options{
		Config: cfg,
		AppDB:  appDB,
		UserDB: userDB,
		Store:  store,
	})
	require.NoError(t, err)

	path := "/api/v1/" + project.ID + "/People"

	records := helpers.Records(t, helpers.Do(t, app, helpers.Request{Method: "GET", Path: path}), "People")
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0]["name"])

	resp := helpers.Do(t, app, helpers.Request{Method: "POST", Path: path, Body: map[string]any{"name": "Carol", "age": 41}})
	helpers.AssertStatus(t, resp, http.StatusCreated)

	resp = helpers.Do(t, app, helpers.Request{Method: "POST", Path: "/api/v1/" + project.ID + "/Orders", Body: map[string]any{"sku": "A"}})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "POST method not allowed")

	resp = helpers.Do(t, app, helpers.Request{Method: "GET", Path: "/health"})
	helpers.AssertStatus(t, resp, http.StatusOK)

	records = helpers.Records(t, helpers.Do(t, app, helpers.Request{Method: "GET", Path: path}), "People")
	assert.Len(t, records, 3)
}

func testCascadeDelete(t *testing.T, appDB *gorm.DB, project *models.Project) {
	require.NoError(t, services.DeleteProject(appDB, "owner", project.ID))

	var endpoints int64
	require.NoError(t, appDB.WithContext(context.Background()).
		Model(&models.Endpoint{}).
		Where("project_id = ?", project.ID).
		Count(&endpoints).Error)
	assert.Zero(t, endpoints)
}
