// sheet_service.go
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

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/config"
	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/transform"
	"github.com/localnerve/sheetsdb/internal/types"
)

// SheetService runs the data API verbs against a project's sheets
type SheetService struct {
	DB       *gorm.DB
	Store    sheets.Store
	Resolver *transform.Resolver
	Locks    *SheetLocks
	Timeout  time.Duration
}

// NewSheetService wires a service from the configuration
func NewSheetService(cfg *config.Config, db *gorm.DB, store sheets.Store) (*SheetService, error) {
	strategy, err := transform.ParseStrategy(cfg.RowIDStrategy)
	if err != nil {
		return nil, err
	}

	svc := &SheetService{
		DB:       db,
		Store:    store,
		Resolver: transform.NewResolver(strategy),
		Timeout:  cfg.StoreTimeout,
	}
	if cfg.SerializeWrites {
		svc.Locks = NewSheetLocks()
	}
	return svc, nil
}

// Request identifies the sheet a data API call targets
type Request struct {
	ProjectID     string
	SheetName     string
	Authorization string
}

// target is a gated request ready for store access
type target struct {
	ref     sheets.Ref
	project *models.Project
}

// gate authorizes the request, then loads the project and checks that verb is enabled
func (s *SheetService) gate(req Request, verb string) (*target, error) {
	auth, err := GetProjectAuth(s.DB, req.ProjectID)
	if err != nil {
		return nil, s.failure("auth", req, err, "Internal server error")
	}
	if !Authorize(auth, req.Authorization) {
		return nil, types.Unauthorized("Unauthorized")
	}

	project, err := GetProject(s.DB, req.ProjectID)
	if err != nil {
		if _, ok := types.AsCustomError(err); ok {
			return nil, err
		}
		return nil, s.failure("project", req, err, "Internal server error")
	}

	endpoint, err := GetEndpoint(s.DB, req.ProjectID, req.SheetName)
	if err != nil {
		return nil, s.failure("endpoint", req, err, "Internal server error")
	}
	if !CheckMethodEnabled(endpoint, verb) {
		return nil, types.MethodNotAllowed(fmt.Sprintf("%s method not allowed", verb))
	}

	return &target{
		ref: sheets.Ref{
			SpreadsheetID: project.SpreadsheetID,
			SheetName:     req.SheetName,
			Credential:    project.GoogleRefreshToken,
		},
		project: project,
	}, nil
}

func (s *SheetService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// failure logs the detail of an unexpected error and returns a generic 500
func (s *SheetService) failure(op string, req Request, err error, message string) error {
	log.WithFields(log.Fields{
		"project": req.ProjectID,
		"sheet":   req.SheetName,
		"op":      op,
	}).Errorf("%s: %v", message, err)
	return types.Internal(message)
}

// readHeaders reads the grid and requires a header row
func (s *SheetService) readHeaders(ctx context.Context, t *target, req Request, op, message string) (sheets.Grid, []string, error) {
	grid, err := s.Store.ReadAll(ctx, t.ref)
	if err != nil {
		return nil, nil, s.failure(op, req, err, message)
	}
	if len(grid) == 0 {
		return nil, nil, types.BadRequest("Sheet has no headers")
	}
	return grid, transform.ParseHeaders(grid[0]), nil
}

// Get returns the sheet as a collection keyed by the sheet name
func (s *SheetService) Get(ctx context.Context, req Request) (transform.Collection, error) {
	t, err := s.gate(req, "GET")
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	grid, err := s.Store.ReadAll(ctx, t.ref)
	if err != nil {
		return nil, s.failure("read", req, err, "Failed to fetch data")
	}

	return transform.Decode(grid, req.SheetName, s.Resolver.Strategy), nil
}

// Post appends the body's record, or records, and returns the unwrapped body
func (s *SheetService) Post(ctx context.Context, req Request, body []byte) (any, error) {
	t, err := s.gate(req, "POST")
	if err != nil {
		return nil, err
	}

	payload, err := transform.UnwrapBody(body, req.SheetName)
	if err != nil {
		return nil, err
	}
	if len(payload.Records.Items) == 0 {
		return nil, types.BadRequest("No records to append")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.Locks.Lock(t.ref.Key())
	defer unlock()

	_, headers, err := s.readHeaders(ctx, t, req, "read", "Failed to create row")
	if err != nil {
		return nil, err
	}

	rows := lo.Map(payload.Records.Items, func(record transform.Record, _ int) []any {
		return transform.Encode(record, headers)
	})
	if err := s.Store.Append(ctx, t.ref, rows); err != nil {
		return nil, s.failure("append", req, err, "Failed to create row")
	}

	return payload.Data(), nil
}

// Put overwrites the row identified by the body's id and returns the unwrapped body
func (s *SheetService) Put(ctx context.Context, req Request, body []byte) (any, error) {
	t, err := s.gate(req, "PUT")
	if err != nil {
		return nil, err
	}

	payload, err := transform.UnwrapBody(body, req.SheetName)
	if err != nil {
		return nil, err
	}
	if payload.ID.Empty() {
		return nil, types.BadRequest("ID is required")
	}
	record := payload.First()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.Locks.Lock(t.ref.Key())
	defer unlock()

	grid, headers, err := s.readHeaders(ctx, t, req, "read", "Failed to update row")
	if err != nil {
		return nil, err
	}

	row := transform.Encode(record, headers)
	pos, err := s.Resolver.Resolve(payload.ID.String(), grid)
	if err != nil {
		return nil, err
	}

	if err := s.Store.UpdateAt(ctx, t.ref, pos, row); err != nil {
		return nil, s.failure("update", req, err, "Failed to update row")
	}

	return payload.Data(), nil
}

// Delete clears the row identified by id. Rows below it keep their positions.
func (s *SheetService) Delete(ctx context.Context, req Request, id string) error {
	t, err := s.gate(req, "DELETE")
	if err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return types.BadRequest("ID is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	unlock := s.Locks.Lock(t.ref.Key())
	defer unlock()

	var grid sheets.Grid
	if s.Resolver.Strategy == transform.StrategyScan {
		grid, err = s.Store.ReadAll(ctx, t.ref)
		if err != nil {
			return s.failure("read", req, err, "Failed to delete row")
		}
	}

	pos, err := s.Resolver.Resolve(id, grid)
	if err != nil {
		return err
	}

	if err := s.Store.ClearAt(ctx, t.ref, pos); err != nil {
		return s.failure("clear", req, err, "Failed to delete row")
	}
	return nil
}
