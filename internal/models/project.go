package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth types for ProjectAuth.AuthType
const (
	AuthNone   = "none"
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

// Project is a registered spreadsheet owned by a user
type Project struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	UserID             string    `gorm:"size:255;not null;index" json:"userId"`
	Name               string    `gorm:"size:255;not null" json:"name"`
	SpreadsheetID      string    `gorm:"size:255;not null" json:"spreadsheetId"`
	GoogleRefreshToken string    `gorm:"type:text" json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`

	Endpoints []Endpoint   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"endpoints,omitempty"`
	Auth      *ProjectAuth `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"auth,omitempty"`
}

// Endpoint holds the enabled methods of one sheet of a project
type Endpoint struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	ProjectID       string    `gorm:"size:36;not null;uniqueIndex:idx_endpoints_project_sheet" json:"projectId"`
	SheetName       string    `gorm:"size:255;not null;uniqueIndex:idx_endpoints_project_sheet" json:"sheetName"`
	IsGetEnabled    bool      `gorm:"not null" json:"isGetEnabled"`
	IsPostEnabled   bool      `gorm:"not null;default:false" json:"isPostEnabled"`
	IsPutEnabled    bool      `gorm:"not null;default:false" json:"isPutEnabled"`
	IsDeleteEnabled bool      `gorm:"not null;default:false" json:"isDeleteEnabled"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ProjectAuth is the authentication scheme of a project's data API
type ProjectAuth struct {
	ProjectID  string    `gorm:"primaryKey;size:36" json:"projectId"`
	AuthType   string    `gorm:"size:16;not null;default:none" json:"authType"`
	AuthConfig JSON      `json:"authConfig"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AuthSettings is the decoded auth_config payload
type AuthSettings struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// NewEndpoint creates the endpoint of a newly discovered sheet, with only GET enabled
func NewEndpoint(projectID, sheetName string) Endpoint {
	return Endpoint{
		ProjectID:    projectID,
		SheetName:    sheetName,
		IsGetEnabled: true,
	}
}

// TableName overrides the table name for Project
func (Project) TableName() string {
	return "projects"
}

// TableName overrides the table name for Endpoint
func (Endpoint) TableName() string {
	return "endpoints"
}

// TableName overrides the table name for ProjectAuth
func (ProjectAuth) TableName() string {
	return "project_auth"
}

// BeforeCreate assigns a uuid when none is set
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BeforeCreate assigns a uuid when none is set
func (e *Endpoint) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// MethodEnabled reports whether verb is enabled on the endpoint
func (e *Endpoint) MethodEnabled(verb string) bool {
	switch verb {
	case "GET":
		return e.IsGetEnabled
	case "POST":
		return e.IsPostEnabled
	case "PUT":
		return e.IsPutEnabled
	case "DELETE":
		return e.IsDeleteEnabled
	}
	return false
}

// MethodColumn maps a verb or flag name to its endpoints column
func MethodColumn(method string) (string, bool) {
	switch method {
	case "GET", "is_get_enabled":
		return "is_get_enabled", true
	case "POST", "is_post_enabled":
		return "is_post_enabled", true
	case "PUT", "is_put_enabled":
		return "is_put_enabled", true
	case "DELETE", "is_delete_enabled":
		return "is_delete_enabled", true
	}
	return "", false
}
