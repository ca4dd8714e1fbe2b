// response.go
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
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Request describes one call made against an in-process fiber app
type Request struct {
	Method  string
	Path    string
	Body    any
	Headers map[string]string
}

// Do runs req through app.Test. Body values that are not strings or bytes are sent as JSON.
func Do(t *testing.T, app *fiber.App, req Request) *http.Response {
	t.Helper()

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	case []byte:
		body = bytes.NewReader(b)
	default:
		encoded, err := json.Marshal(b)
		require.NoError(t, err, "Failed to encode request body")
		body = bytes.NewReader(encoded)
	}

	r := httptest.NewRequest(req.Method, req.Path, body)
	if body != nil {
		r.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range req.Headers {
		r.Header.Set(k, v)
	}

	resp, err := app.Test(r, -1)
	require.NoError(t, err, "Failed to execute request")
	return resp
}

// BasicAuth builds a Basic Authorization header value
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// AssertStatus verifies the HTTP status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status")
}

// ParseJSON decodes the response body into the target
func ParseJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "Failed to read response body")
	defer resp.Body.Close()

	require.NoError(t, json.Unmarshal(body, target), "Failed to decode JSON. Body: %s", string(body))
}

// AssertError verifies status and the message carried by the error envelope
func AssertError(t *testing.T, resp *http.Response, status int, message string) {
	t.Helper()
	AssertStatus(t, resp, status)

	var envelope map[string]any
	ParseJSON(t, resp, &envelope)
	assert.Equal(t, message, envelope["error"])
	assert.Equal(t, false, envelope["ok"])
}

// Records extracts the sheet's records from a GET response
func Records(t *testing.T, resp *http.Response, sheetName string) []map[string]any {
	t.Helper()
	AssertStatus(t, resp, http.StatusOK)

	var collection map[string][]map[string]any
	ParseJSON(t, resp, &collection)
	records, ok := collection[sheetName]
	require.True(t, ok, "response is not keyed by %s", sheetName)
	return records
}
