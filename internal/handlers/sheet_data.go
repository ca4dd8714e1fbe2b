// sheet_data.go
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

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/utils"
)

// SheetDataHandler handles the data API routes
type SheetDataHandler struct {
	Service *services.SheetService
}

func sheetRequest(c *fiber.Ctx) services.Request {
	return services.Request{
		ProjectID:     pathParam(c, "projectId"),
		SheetName:     pathParam(c, "sheetName"),
		Authorization: c.Get(fiber.HeaderAuthorization),
	}
}

// GetRows handles GET /api/v1/:projectId/:sheetName
// @Summary Get sheet rows
// @Description Get every data row of a sheet as JSON records keyed by the sheet name
// @Tags SheetData
// @Produce json
// @Param projectId path string true "Project ID"
// @Param sheetName path string true "Sheet name"
// @Success 200 {object} map[string][]map[string]interface{}
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 405 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security BasicAuth
// @Security BearerAuth
// @Router /v1/{projectId}/{sheetName} [get]
func (h *SheetDataHandler) GetRows(c *fiber.Ctx) error {
	result, err := h.Service.Get(c.UserContext(), sheetRequest(c))
	if err != nil {
		return respondError(c, err, "getRows")
	}
	return utils.SuccessResponse(c, result, fiber.StatusOK)
}

// AppendRows handles POST /api/v1/:projectId/:sheetName
// @Summary Append rows
// @Description Append a record, or an array of records, to a sheet. The body may be wrapped in a key named after the sheet.
// @Tags SheetData
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param sheetName path string true "Sheet name"
// @Param body body map[string]interface{} true "Record or records"
// @Success 201 {object} utils.WriteResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 405 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security BasicAuth
// @Security BearerAuth
// @Router /v1/{projectId}/{sheetName} [post]
func (h *SheetDataHandler) AppendRows(c *fiber.Ctx) error {
	data, err := h.Service.Post(c.UserContext(), sheetRequest(c), c.Body())
	if err != nil {
		return respondError(c, err, "appendRows")
	}
	return utils.WriteSuccessResponse(c, fiber.StatusCreated, data)
}

// UpdateRow handles PUT /api/v1/:projectId/:sheetName
// @Summary Update a row
// @Description Overwrite the row identified by the body's id
// @Tags SheetData
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param sheetName path string true "Sheet name"
// @Param body body map[string]interface{} true "Record with id"
// @Success 200 {object} utils.WriteResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 405 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security BasicAuth
// @Security BearerAuth
// @Router /v1/{projectId}/{sheetName} [put]
func (h *SheetDataHandler) UpdateRow(c *fiber.Ctx) error {
	data, err := h.Service.Put(c.UserContext(), sheetRequest(c), c.Body())
	if err != nil {
		return respondError(c, err, "updateRow")
	}
	return utils.WriteSuccessResponse(c, fiber.StatusOK, data)
}

// DeleteRow handles DELETE /api/v1/:projectId/:sheetName?id=
// @Summary Delete a row
// @Description Clear the row identified by id. Rows below keep their ids.
// @Tags SheetData
// @Produce json
// @Param projectId path string true "Project ID"
// @Param sheetName path string true "Sheet name"
// @Param id query string true "Row ID"
// @Success 200 {object} utils.WriteResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 405 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security BasicAuth
// @Security BearerAuth
// @Router /v1/{projectId}/{sheetName} [delete]
func (h *SheetDataHandler) DeleteRow(c *fiber.Ctx) error {
	if err := h.Service.Delete(c.UserContext(), sheetRequest(c), c.Query("id")); err != nil {
		return respondError(c, err, "deleteRow")
	}
	return utils.WriteSuccessResponse(c, fiber.StatusOK, nil)
}
