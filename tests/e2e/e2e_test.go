// e2e_test.go
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

package e2e_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/database"
	"github.com/localnerve/sheetsdb/internal/server"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/tests/helpers"
)

const owner = "owner-session"

type sessions map[string]string

func (s sessions) ValidateSession(cookie string, _ []string, _ string) (*services.SessionUser, error) {
	if id, ok := s[cookie]; ok {
		return &services.SessionUser{ID: id}, nil
	}
	return nil, errors.New("invalid session")
}

type stack struct {
	app   *fiber.App
	db    *gorm.DB
	store *sheets.MemoryStore
}

// newStack assembles the whole service in process, the way cmd/server does
func newStack(t *testing.T, withSessions, withMetrics bool) *stack {
	t.Helper()

	cfg := helpers.TestConfig(t)
	appDB := helpers.SetupTestDB(t, cfg)
	userDB, err := database.ConnectUser(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(userDB) })

	store := sheets.NewMemoryStore()
	store.Put("ss-e2e", "Sheet1", sheets.Grid{
		{"name", "age"},
		{"Alice", "30"},
		{"Bob", ""},
	})

	opts := server.Options{
		Config:  cfg,
		AppDB:   appDB,
		UserDB:  userDB,
		Store:   sheets.Instrument(store),
		Metrics: withMetrics,
	}
	if withSessions {
		opts.Sessions = sessions{owner: "owner"}
	}

	app, err := server.New(opts)
	require.NoError(t, err)
	return &stack{app: app, db: appDB, store: store}
}

func cookie(session string) map[string]string {
	return map[string]string{"Cookie": "cookie_session=" + session}
}

// register creates the project through the management API and returns its data path
func (s *stack) register(t *testing.T) (projectID, endpointID string) {
	t.Helper()

	resp := helpers.Do(t, s.app, helpers.Request{
		Method:  "POST",
		Path:    "/api/projects",
		Body:    map[string]any{"name": "E2E", "spreadsheetId": "ss-e2e"},
		Headers: cookie(owner),
	})
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var project struct {
		ID        string `json:"id"`
		Endpoints []struct {
			ID        string `json:"id"`
			SheetName string `json:"sheetName"`
		} `json:"endpoints"`
	}
	helpers.ParseJSON(t, resp, &project)
	require.Len(t, project.Endpoints, 1)
	return project.ID, project.Endpoints[0].ID
}

func (s *stack) toggle(t *testing.T, projectID, endpointID, method string, enabled bool) {
	t.Helper()
	resp := helpers.Do(t, s.app, helpers.Request{
		Method:  "PATCH",
		Path:    "/api/projects/" + projectID + "/endpoints/" + endpointID,
		Body:    map[string]any{"method": method, "enabled": enabled},
		Headers: cookie(owner),
	})
	helpers.AssertStatus(t, resp, http.StatusOK)
}

func (s *stack) setAuth(t *testing.T, projectID string, body map[string]any) {
	t.Helper()
	resp := helpers.Do(t, s.app, helpers.Request{
		Method:  "PUT",
		Path:    "/api/projects/" + projectID + "/auth",
		Body:    body,
		Headers: cookie(owner),
	})
	helpers.AssertStatus(t, resp, http.StatusOK)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// TestSheetLifecycle walks a sheet through every data API verb
func TestSheetLifecycle(t *testing.T) {
	s := newStack(t, true, false)
	projectID, endpointID := s.register(t)
	path := "/api/v1/" + projectID + "/Sheet1"

	t.Run("GetDecodesRows", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: path})
		helpers.AssertStatus(t, resp, http.StatusOK)
		assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
		assert.JSONEq(t,
			`{"Sheet1":[{"id":2,"name":"Alice","age":30},{"id":3,"name":"Bob","age":""}]}`,
			readBody(t, resp))
	})

	t.Run("PostDisabledByDefault", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "POST", Path: path, Body: map[string]any{"name": "x"}})
		helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "POST method not allowed")
	})

	for _, method := range []string{"POST", "PUT", "DELETE"} {
		s.toggle(t, projectID, endpointID, method, true)
	}

	t.Run("PostAppendsRow", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "POST", Path: path, Body: `{"name":"Carol","age":"25"}`})
		helpers.AssertStatus(t, resp, http.StatusCreated)
		assert.JSONEq(t, `{"success":true,"data":{"name":"Carol","age":"25"}}`, readBody(t, resp))

		raw := s.store.Raw("ss-e2e", "Sheet1")
		require.Len(t, raw, 4)
		assert.Equal(t, []any{"Carol", float64(25)}, raw[3])
	})

	t.Run("PutUpdatesInPlace", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "PUT", Path: path, Body: `{"id":2,"name":"Alicia","age":31}`})
		helpers.AssertStatus(t, resp, http.StatusOK)

		records := helpers.Records(t, helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: path}), "Sheet1")
		assert.Equal(t, map[string]any{"id": float64(2), "name": "Alicia", "age": float64(31)}, records[0])
	})

	t.Run("DeleteClearsRow", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "DELETE", Path: path + "?id=3"})
		helpers.AssertStatus(t, resp, http.StatusOK)
		assert.JSONEq(t, `{"success":true}`, readBody(t, resp))

		records := helpers.Records(t, helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: path}), "Sheet1")
		for _, record := range records {
			assert.NotEqual(t, "Bob", record["name"])
		}
		assert.Equal(t, "Alicia", records[0]["name"])
		assert.Equal(t, "Carol", records[2]["name"])
		assert.Equal(t, float64(4), records[2]["id"])
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		before := s.store.Raw("ss-e2e", "Sheet1")
		resp := helpers.Do(t, s.app, helpers.Request{Method: "DELETE", Path: path + "?id=3"})
		helpers.AssertStatus(t, resp, http.StatusOK)
		assert.Equal(t, before, s.store.Raw("ss-e2e", "Sheet1"))
	})
}

// TestAuthorizationPrecedesMethodGate checks 401 wins over 405 and bearer matching
func TestAuthorizationPrecedesMethodGate(t *testing.T) {
	s := newStack(t, true, false)
	projectID, _ := s.register(t)
	path := "/api/v1/" + projectID + "/Sheet1"

	s.setAuth(t, projectID, map[string]any{"type": "bearer", "config": map[string]any{"token": "secret"}})

	// POST is disabled, but the credentials are checked first
	resp := helpers.Do(t, s.app, helpers.Request{
		Method:  "POST",
		Path:    path,
		Body:    map[string]any{"name": "x"},
		Headers: map[string]string{"Authorization": "Bearer wrong"},
	})
	helpers.AssertError(t, resp, http.StatusUnauthorized, "Unauthorized")
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))

	resp = helpers.Do(t, s.app, helpers.Request{
		Method:  "POST",
		Path:    path,
		Body:    map[string]any{"name": "x"},
		Headers: map[string]string{"Authorization": "Bearer secret"},
	})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "POST method not allowed")

	resp = helpers.Do(t, s.app, helpers.Request{
		Method:  "GET",
		Path:    path,
		Headers: map[string]string{"Authorization": "Bearer secret"},
	})
	assert.Len(t, helpers.Records(t, resp, "Sheet1"), 2)

	s.setAuth(t, projectID, map[string]any{"type": "none"})
	resp = helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: path})
	helpers.AssertStatus(t, resp, http.StatusOK)
}

func TestPreflightBypassesAuthorization(t *testing.T) {
	s := newStack(t, true, false)
	projectID, _ := s.register(t)
	s.setAuth(t, projectID, map[string]any{"type": "bearer", "config": map[string]any{"token": "secret"}})

	resp := helpers.Do(t, s.app, helpers.Request{Method: "OPTIONS", Path: "/api/v1/" + projectID + "/Sheet1"})
	helpers.AssertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "*", resp.Header.Get(fiber.HeaderAccessControlAllowOrigin))
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowMethods), "DELETE")
	assert.Contains(t, resp.Header.Get(fiber.HeaderAccessControlAllowHeaders), "Authorization")
}

func TestOperationalRoutes(t *testing.T) {
	s := newStack(t, false, true)

	t.Run("Health", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/health"})
		helpers.AssertStatus(t, resp, http.StatusOK)

		var result services.HealthCheckResult
		helpers.ParseJSON(t, resp, &result)
		assert.True(t, result.Healthy())
		assert.Equal(t, "memory", result.Details["sheets_backend"])
	})

	t.Run("Metrics", func(t *testing.T) {
		// one store read so the store collectors have samples
		project := helpers.SeedProject(t, s.db, s.store, helpers.ProjectFixture{SpreadsheetID: "ss-e2e"})
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/api/v1/" + project.ID + "/Sheet1"})
		helpers.AssertStatus(t, resp, http.StatusOK)

		resp = helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/metrics"})
		helpers.AssertStatus(t, resp, http.StatusOK)
		body := readBody(t, resp)
		assert.True(t, strings.Contains(body, `sheetsdb_store_operations_total{backend="memory",op="read_all",outcome="ok"}`),
			"expected store operation metrics")
	})

	t.Run("SwaggerUI", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/swagger/index.html"})
		helpers.AssertStatus(t, resp, http.StatusOK)
	})

	t.Run("ManagementDisabled", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/api/projects"})
		helpers.AssertError(t, resp, http.StatusNotFound, "Resource Not Found")
	})

	t.Run("UnknownRoute", func(t *testing.T) {
		resp := helpers.Do(t, s.app, helpers.Request{Method: "GET", Path: "/api/data/app"})
		helpers.AssertStatus(t, resp, http.StatusNotFound)

		var result map[string]any
		helpers.ParseJSON(t, resp, &result)
		assert.Equal(t, "/api/data/app", result["url"])
	})
}
