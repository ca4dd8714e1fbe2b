// common.go
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
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/localnerve/sheetsdb/internal/types"
	"github.com/localnerve/sheetsdb/internal/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// pathParam returns a route parameter with percent-encoding removed
func pathParam(c *fiber.Ctx, key string) string {
	raw := c.Params(key)
	if value, err := url.PathUnescape(raw); err == nil {
		return value
	}
	return raw
}

// respondError renders err in the standard envelope. Errors that are not
// a CustomError are logged and reported as a generic 500.
func respondError(c *fiber.Ctx, err error, errorType string) error {
	if ce, ok := types.AsCustomError(err); ok {
		return utils.ErrorResponse(c, ce.Message, ce.Code, ce.Type)
	}

	log.WithFields(log.Fields{
		"method": c.Method(),
		"url":    c.OriginalURL(),
		"type":   errorType,
	}).Errorf("Request failed: %v", err)

	return utils.ErrorResponse(c, "Internal server error", fiber.StatusInternalServerError, errorType)
}

// parseAndValidate decodes a JSON body into in and validates its struct tags
func parseAndValidate(c *fiber.Ctx, in interface{}) error {
	if err := c.BodyParser(in); err != nil {
		return types.BadRequest("Invalid JSON body")
	}
	if err := validate.Struct(in); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return types.BadRequest("Invalid field: " + verrs[0].Field())
		}
		return types.BadRequest(err.Error())
	}
	return nil
}
