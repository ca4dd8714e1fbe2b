package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/sheetsdb/internal/handlers"
	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/server"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/tests/helpers"
)

const spreadsheetID = "ss-handlers"

type sheetFixture struct {
	app     *fiber.App
	store   *sheets.MemoryStore
	project *models.Project
}

// setupSheetApp registers a project over the given sheets and mounts the data routes
func setupSheetApp(t *testing.T, f helpers.ProjectFixture, grids map[string]sheets.Grid) *sheetFixture {
	t.Helper()

	cfg := helpers.TestConfig(t)
	db := helpers.SetupTestDB(t, cfg)

	store := sheets.NewMemoryStore()
	for name, grid := range grids {
		store.Put(spreadsheetID, name, grid)
	}

	f.SpreadsheetID = spreadsheetID
	project := helpers.SeedProject(t, db, store, f)

	svc, err := services.NewSheetService(cfg, db, store)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: server.ErrorHandler})
	h := &handlers.SheetDataHandler{Service: svc}
	app.Get("/api/v1/:projectId/:sheetName", h.GetRows)
	app.Post("/api/v1/:projectId/:sheetName", h.AppendRows)
	app.Put("/api/v1/:projectId/:sheetName", h.UpdateRow)
	app.Delete("/api/v1/:projectId/:sheetName", h.DeleteRow)

	return &sheetFixture{app: app, store: store, project: project}
}

func (f *sheetFixture) path(sheetName string) string {
	return "/api/v1/" + f.project.ID + "/" + sheetName
}

func allVerbs(sheetNames ...string) map[string][]string {
	methods := make(map[string][]string, len(sheetNames))
	for _, name := range sheetNames {
		methods[name] = helpers.Verbs
	}
	return methods
}

func TestGetRows(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	records := helpers.Records(t, resp, "Sheet1")

	require.Len(t, records, 2)
	assert.Equal(t, map[string]any{"id": float64(2), "name": "Alice", "age": float64(30)}, records[0])
	assert.Equal(t, map[string]any{"id": float64(3), "name": "Bob", "age": float64(25)}, records[1])
}

func TestGetRowsHeaderOnly(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{}, map[string]sheets.Grid{"Sheet1": {{"name", "age"}}})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	assert.Empty(t, helpers.Records(t, resp, "Sheet1"))
}

func TestGetRowsEscapedSheetName(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{}, map[string]sheets.Grid{"My Sheet": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("My%20Sheet")})
	assert.Len(t, helpers.Records(t, resp, "My Sheet"), 2)
}

func TestGetRowsProjectNotFound(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: "/api/v1/missing-project/Sheet1"})
	helpers.AssertError(t, resp, http.StatusNotFound, "Project not found")
}

func TestMethodNotAllowed(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{
		Methods: map[string][]string{"Sheet1": {"POST"}},
	}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "GET method not allowed")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: map[string]any{"id": 2}})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "PUT method not allowed")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "DELETE", Path: f.path("Sheet1") + "?id=2"})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "DELETE method not allowed")

	// the sheet was left untouched
	assert.Equal(t, helpers.PeopleGrid(), f.store.Raw(spreadsheetID, "Sheet1"))
}

func TestUnregisteredSheetIsNotAllowed(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Other")})
	helpers.AssertError(t, resp, http.StatusMethodNotAllowed, "GET method not allowed")
}

func TestBearerAuth(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{
		Auth: &services.AuthConfigInput{Type: models.AuthBearer, Config: models.AuthSettings{Token: "s3cret"}},
	}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	helpers.AssertError(t, resp, http.StatusUnauthorized, "Unauthorized")

	resp = helpers.Do(t, f.app, helpers.Request{
		Method:  "GET",
		Path:    f.path("Sheet1"),
		Headers: map[string]string{"Authorization": "Bearer wrong"},
	})
	helpers.AssertError(t, resp, http.StatusUnauthorized, "Unauthorized")

	resp = helpers.Do(t, f.app, helpers.Request{
		Method:  "GET",
		Path:    f.path("Sheet1"),
		Headers: map[string]string{"Authorization": "Bearer s3cret"},
	})
	assert.Len(t, helpers.Records(t, resp, "Sheet1"), 2)
}

func TestBasicAuth(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{
		Auth: &services.AuthConfigInput{
			Type:   models.AuthBasic,
			Config: models.AuthSettings{Username: "reader", Password: "pw"},
		},
	}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{
		Method:  "GET",
		Path:    f.path("Sheet1"),
		Headers: map[string]string{"Authorization": helpers.BasicAuth("reader", "nope")},
	})
	helpers.AssertError(t, resp, http.StatusUnauthorized, "Unauthorized")

	resp = helpers.Do(t, f.app, helpers.Request{
		Method:  "GET",
		Path:    f.path("Sheet1"),
		Headers: map[string]string{"Authorization": helpers.BasicAuth("reader", "pw")},
	})
	assert.Len(t, helpers.Records(t, resp, "Sheet1"), 2)
}

func TestAuthIsCheckedBeforeMethod(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{
		Methods: map[string][]string{"Sheet1": {}},
		Auth:    &services.AuthConfigInput{Type: models.AuthBearer, Config: models.AuthSettings{Token: "t"}},
	}, map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	helpers.AssertError(t, resp, http.StatusUnauthorized, "Unauthorized")
}

func TestAppendRows(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{
		Method: "POST",
		Path:   f.path("Sheet1"),
		Body:   map[string]any{"name": "Carol", "age": "41", "ignored": true},
	})
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var result map[string]any
	helpers.ParseJSON(t, resp, &result)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, map[string]any{"name": "Carol", "age": "41", "ignored": true}, result["data"])

	raw := f.store.Raw(spreadsheetID, "Sheet1")
	require.Len(t, raw, 4)
	assert.Equal(t, []any{"Carol", float64(41)}, raw[3])

	resp = helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	records := helpers.Records(t, resp, "Sheet1")
	require.Len(t, records, 3)
	assert.Equal(t, float64(4), records[2]["id"])
}

func TestAppendRowsWrappedArray(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{
		Method: "POST",
		Path:   f.path("Sheet1"),
		Body:   `{"Sheet1":[{"name":"Dan"},{"name":"Eve","age":19}]}`,
	})
	helpers.AssertStatus(t, resp, http.StatusCreated)

	var result map[string]any
	helpers.ParseJSON(t, resp, &result)
	assert.Len(t, result["data"], 2)

	raw := f.store.Raw(spreadsheetID, "Sheet1")
	require.Len(t, raw, 5)
	assert.Equal(t, []any{"Dan", ""}, raw[3])
	assert.Equal(t, []any{"Eve", float64(19)}, raw[4])
}

func TestAppendRowsErrors(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1", "Empty")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid(), "Empty": {}})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "POST", Path: f.path("Sheet1"), Body: "{not json"})
	helpers.AssertError(t, resp, http.StatusBadRequest, "Invalid JSON body")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "POST", Path: f.path("Sheet1"), Body: "[]"})
	helpers.AssertError(t, resp, http.StatusBadRequest, "No records to append")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "POST", Path: f.path("Empty"), Body: map[string]any{"name": "x"}})
	helpers.AssertError(t, resp, http.StatusBadRequest, "Sheet has no headers")

	assert.Len(t, f.store.Raw(spreadsheetID, "Sheet1"), 3)
}

func TestUpdateRow(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{
		Method: "PUT",
		Path:   f.path("Sheet1"),
		Body:   map[string]any{"id": 3, "name": "Bobby", "age": 26},
	})
	helpers.AssertStatus(t, resp, http.StatusOK)

	var result map[string]any
	helpers.ParseJSON(t, resp, &result)
	assert.Equal(t, true, result["success"])

	resp = helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	records := helpers.Records(t, resp, "Sheet1")
	require.Len(t, records, 2)
	assert.Equal(t, map[string]any{"id": float64(3), "name": "Bobby", "age": float64(26)}, records[1])
	assert.Equal(t, "Alice", records[0]["name"])
}

func TestUpdateRowStringID(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{
		Method: "PUT",
		Path:   f.path("Sheet1"),
		Body:   `{"Sheet1":{"id":"2","name":"Alicia"}}`,
	})
	helpers.AssertStatus(t, resp, http.StatusOK)

	raw := f.store.Raw(spreadsheetID, "Sheet1")
	assert.Equal(t, "Alicia", raw[1][0])
}

func TestUpdateRowErrors(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: map[string]any{"name": "x"}})
	helpers.AssertError(t, resp, http.StatusBadRequest, "ID is required")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: `[{"id":2,"name":"x"}]`})
	helpers.AssertError(t, resp, http.StatusBadRequest, "ID is required")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: map[string]any{"id": 1, "name": "x"}})
	helpers.AssertStatus(t, resp, http.StatusNotFound)

	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: map[string]any{"id": "2.5"}})
	helpers.AssertStatus(t, resp, http.StatusBadRequest)

	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: `{"id":0,"name":"x"}`})
	helpers.AssertError(t, resp, http.StatusBadRequest, "ID is required")

	// ids past the sheet row limit are rejected before the store is touched
	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: `{"id":3000000,"name":"x"}`})
	helpers.AssertStatus(t, resp, http.StatusNotFound)
	resp = helpers.Do(t, f.app, helpers.Request{Method: "PUT", Path: f.path("Sheet1"), Body: `{"id":9e18,"name":"x"}`})
	helpers.AssertStatus(t, resp, http.StatusNotFound)

	// the header row is never overwritten
	assert.Equal(t, helpers.PeopleGrid(), f.store.Raw(spreadsheetID, "Sheet1"))
}

func TestDeleteRow(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "DELETE", Path: f.path("Sheet1") + "?id=2"})
	helpers.AssertStatus(t, resp, http.StatusOK)

	var result map[string]any
	helpers.ParseJSON(t, resp, &result)
	assert.Equal(t, map[string]any{"success": true}, result)

	// the cleared row keeps its position so Bob keeps id 3
	resp = helpers.Do(t, f.app, helpers.Request{Method: "GET", Path: f.path("Sheet1")})
	records := helpers.Records(t, resp, "Sheet1")
	require.Len(t, records, 2)
	assert.Equal(t, map[string]any{"id": float64(2), "name": "", "age": ""}, records[0])
	assert.Equal(t, map[string]any{"id": float64(3), "name": "Bob", "age": float64(25)}, records[1])
}

func TestDeleteRowErrors(t *testing.T) {
	f := setupSheetApp(t, helpers.ProjectFixture{Methods: allVerbs("Sheet1")},
		map[string]sheets.Grid{"Sheet1": helpers.PeopleGrid()})

	resp := helpers.Do(t, f.app, helpers.Request{Method: "DELETE", Path: f.path("Sheet1")})
	helpers.AssertError(t, resp, http.StatusBadRequest, "ID is required")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "DELETE", Path: f.path("Sheet1") + "?id=%20"})
	helpers.AssertError(t, resp, http.StatusBadRequest, "ID is required")

	resp = helpers.Do(t, f.app, helpers.Request{Method: "DELETE", Path: f.path("Sheet1") + "?id=1"})
	helpers.AssertStatus(t, resp, http.StatusNotFound)

	assert.Equal(t, helpers.PeopleGrid(), f.store.Raw(spreadsheetID, "Sheet1"))
}
