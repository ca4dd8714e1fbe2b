// project_service.go
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
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"

	"github.com/localnerve/sheetsdb/internal/models"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/types"
)

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// CreateProjectInput registers a spreadsheet
type CreateProjectInput struct {
	Name           string `json:"name" validate:"required,max=255"`
	SpreadsheetURL string `json:"spreadsheetUrl" validate:"required_without=SpreadsheetID"`
	SpreadsheetID  string `json:"spreadsheetId" validate:"required_without=SpreadsheetURL"`
	RefreshToken   string `json:"refreshToken,omitempty"`
}

// RenameProjectInput changes a project's display name
type RenameProjectInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ToggleMethodInput enables or disables one method of an endpoint
type ToggleMethodInput struct {
	Method  string `json:"method" validate:"required"`
	Enabled *bool  `json:"enabled" validate:"required"`
}

// AuthConfigInput replaces a project's data API authentication
type AuthConfigInput struct {
	Type   string              `json:"type" validate:"required,oneof=none basic bearer"`
	Config models.AuthSettings `json:"config"`
}

// ExtractSpreadsheetID pulls the spreadsheet id out of a Google Sheets URL
func ExtractSpreadsheetID(spreadsheetURL string) string {
	m := spreadsheetURLPattern.FindStringSubmatch(spreadsheetURL)
	if m == nil {
		return ""
	}
	return m[1]
}

func silent(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{Logger: db.Logger.LogMode(logger.Silent)})
}

// GetProjectAuth returns the project's auth config, or nil when it has none
func GetProjectAuth(db *gorm.DB, projectID string) (*models.ProjectAuth, error) {
	var auth models.ProjectAuth
	err := silent(db).Where("project_id = ?", projectID).First(&auth).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &auth, nil
}

// GetProject loads a project by id
func GetProject(db *gorm.DB, projectID string) (*models.Project, error) {
	var project models.Project
	err := silent(db).Where("id = ?", projectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Project not found")
		}
		return nil, err
	}
	return &project, nil
}

// GetEndpoint returns the endpoint of a project's sheet, or nil when the sheet is not registered
func GetEndpoint(db *gorm.DB, projectID, sheetName string) (*models.Endpoint, error) {
	query := silent(db)
	if db.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_endpoints_project_sheet"))
	}

	var endpoint models.Endpoint
	err := query.Where("project_id = ? AND sheet_name = ?", projectID, sheetName).First(&endpoint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &endpoint, nil
}

// CreateProject registers a spreadsheet for a user. Every sheet found becomes
// an endpoint with only GET enabled, and the data API starts unauthenticated.
func CreateProject(ctx context.Context, db *gorm.DB, store sheets.Store, userID string, in CreateProjectInput) (*models.Project, error) {
	spreadsheetID := strings.TrimSpace(in.SpreadsheetID)
	if spreadsheetID == "" {
		spreadsheetID = ExtractSpreadsheetID(in.SpreadsheetURL)
	}
	if spreadsheetID == "" {
		return nil, types.BadRequest("Invalid Google Sheets URL")
	}

	sheetNames, err := store.SheetNames(ctx, spreadsheetID, in.RefreshToken)
	if err != nil {
		if errors.Is(err, sheets.ErrSpreadsheetNotFound) {
			return nil, types.BadRequest("Spreadsheet not found or not accessible")
		}
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}

	project := models.Project{
		UserID:             userID,
		Name:               strings.TrimSpace(in.Name),
		SpreadsheetID:      spreadsheetID,
		GoogleRefreshToken: in.RefreshToken,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		endpoints := lo.Map(lo.Uniq(sheetNames), func(name string, _ int) models.Endpoint {
			return models.NewEndpoint(project.ID, name)
		})
		if len(endpoints) > 0 {
			if err := tx.Create(&endpoints).Error; err != nil {
				return err
			}
		}
		project.Endpoints = endpoints

		auth := models.ProjectAuth{ProjectID: project.ID, AuthType: models.AuthNone}
		if err := tx.Create(&auth).Error; err != nil {
			return err
		}
		project.Auth = &auth

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return &project, nil
}

// ListProjects returns the user's projects, newest first
func ListProjects(db *gorm.DB, userID string) ([]models.Project, error) {
	var projects []models.Project
	err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&projects).Error
	return projects, err
}

// GetOwnedProject loads a project with its endpoints and auth, scoped to its owner
func GetOwnedProject(db *gorm.DB, userID, projectID string) (*models.Project, error) {
	var project models.Project
	err := silent(db).
		Preload("Endpoints", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("sheet_name ASC")
		}).
		Preload("Auth").
		Where("id = ? AND user_id = ?", projectID, userID).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NotFound("Project not found")
		}
		return nil, err
	}
	return &project, nil
}

// RenameProject updates a project's name
func RenameProject(db *gorm.DB, userID, projectID, name string) (*models.Project, error) {
	res := db.Model(&models.Project{}).
		Where("id = ? AND user_id = ?", projectID, userID).
		Update("name", strings.TrimSpace(name))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, types.NotFound("Project not found")
	}
	return GetOwnedProject(db, userID, projectID)
}

// DeleteProject removes a project with its endpoints and auth config
func DeleteProject(db *gorm.DB, userID, projectID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", projectID, userID).
			First(&project).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("Project not found")
			}
			return err
		}

		// Explicit deletes cover databases without foreign key enforcement
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Endpoint{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.ProjectAuth{}).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	})
}

// ListEndpoints returns a project's endpoints ordered by sheet name
func ListEndpoints(db *gorm.DB, userID, projectID string) ([]models.Endpoint, error) {
	project, err := GetOwnedProject(db, userID, projectID)
	if err != nil {
		return nil, err
	}
	if project.Endpoints == nil {
		return []models.Endpoint{}, nil
	}
	return project.Endpoints, nil
}

// ToggleEndpointMethod enables or disables one method of an endpoint
func ToggleEndpointMethod(db *gorm.DB, userID, projectID, endpointID string, in ToggleMethodInput) (*models.Endpoint, error) {
	column, ok := models.MethodColumn(in.Method)
	if !ok {
		return nil, types.BadRequest("Invalid method")
	}
	if in.Enabled == nil {
		return nil, types.BadRequest("enabled is required")
	}

	if _, err := GetOwnedProject(db, userID, projectID); err != nil {
		return nil, err
	}

	res := db.Model(&models.Endpoint{}).
		Where("id = ? AND project_id = ?", endpointID, projectID).
		Update(column, *in.Enabled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// the value may already be set, so confirm the endpoint exists
		var count int64
		if err := db.Model(&models.Endpoint{}).
			Where("id = ? AND project_id = ?", endpointID, projectID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, types.NotFound("Endpoint not found")
		}
	}

	var endpoint models.Endpoint
	if err := db.Where("id = ?", endpointID).First(&endpoint).Error; err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// SyncEndpoints adds endpoints for sheets created after registration.
// Existing endpoints keep their settings. The added endpoints are returned.
func SyncEndpoints(ctx context.Context, db *gorm.DB, store sheets.Store, userID, projectID string) ([]models.Endpoint, error) {
	project, err := GetOwnedProject(db, userID, projectID)
	if err != nil {
		return nil, err
	}

	sheetNames, err := store.SheetNames(ctx, project.SpreadsheetID, project.GoogleRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}

	known := lo.SliceToMap(project.Endpoints, func(e models.Endpoint) (string, struct{}) {
		return e.SheetName, struct{}{}
	})
	added := lo.FilterMap(lo.Uniq(sheetNames), func(name string, _ int) (models.Endpoint, bool) {
		_, exists := known[name]
		return models.NewEndpoint(project.ID, name), !exists
	})

	if len(added) > 0 {
		if err := db.WithContext(ctx).Create(&added).Error; err != nil {
			return nil, fmt.Errorf("failed to add endpoints: %w", err)
		}
	}
	return added, nil
}

// GetProjectAuthConfig returns the owner's view of a project's auth config
func GetProjectAuthConfig(db *gorm.DB, userID, projectID string) (*models.ProjectAuth, error) {
	if _, err := GetOwnedProject(db, userID, projectID); err != nil {
		return nil, err
	}

	auth, err := GetProjectAuth(db, projectID)
	if err != nil {
		return nil, err
	}
	if auth == nil {
		auth = &models.ProjectAuth{ProjectID: projectID, AuthType: models.AuthNone}
	}
	return auth, nil
}

// UpdateProjectAuthConfig upserts a project's auth config after checking the fields its type needs
func UpdateProjectAuthConfig(db *gorm.DB, userID, projectID string, in AuthConfigInput) (*models.ProjectAuth, error) {
	var settings models.AuthSettings
	switch in.Type {
	case models.AuthNone:
	case models.AuthBasic:
		if in.Config.Username == "" || in.Config.Password == "" {
			return nil, types.BadRequest("Basic auth requires username and password")
		}
		settings = models.AuthSettings{Username: in.Config.Username, Password: in.Config.Password}
	case models.AuthBearer:
		if in.Config.Token == "" {
			return nil, types.BadRequest("Bearer auth requires a token")
		}
		settings = models.AuthSettings{Token: in.Config.Token}
	default:
		return nil, types.BadRequest("Invalid auth type")
	}

	if _, err := GetOwnedProject(db, userID, projectID); err != nil {
		return nil, err
	}

	auth := models.ProjectAuth{ProjectID: projectID, AuthType: in.Type}
	if in.Type != models.AuthNone {
		config, err := models.NewJSON(settings)
		if err != nil {
			return nil, err
		}
		auth.AuthConfig = config
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"auth_type", "auth_config", "updated_at"}),
	}).Create(&auth).Error
	if err != nil {
		return nil, err
	}

	return GetProjectAuth(db, projectID)
}
