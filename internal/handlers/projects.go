package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/localnerve/sheetsdb/internal/middleware"
	"github.com/localnerve/sheetsdb/internal/services"
	"github.com/localnerve/sheetsdb/internal/sheets"
	"github.com/localnerve/sheetsdb/internal/utils"
)

// ProjectsHandler handles the management API routes
type ProjectsHandler struct {
	DB    *gorm.DB
	Store sheets.Store
}

// CreateProject handles POST /api/projects
// @Summary Register a spreadsheet
// @Description Create a project from a Google Sheets URL or id. Every sheet becomes an endpoint with GET enabled.
// @Tags Projects
// @Accept json
// @Produce json
// @Param body body services.CreateProjectInput true "Project"
// @Success 201 {object} models.Project
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects [post]
func (h *ProjectsHandler) CreateProject(c *fiber.Ctx) error {
	var in services.CreateProjectInput
	if err := parseAndValidate(c, &in); err != nil {
		return respondError(c, err, "createProject")
	}

	project, err := services.CreateProject(c.UserContext(), h.DB, h.Store, middleware.UserID(c), in)
	if err != nil {
		return respondError(c, err, "createProject")
	}
	return utils.SuccessResponse(c, project, fiber.StatusCreated)
}

// ListProjects handles GET /api/projects
// @Summary List projects
// @Tags Projects
// @Produce json
// @Success 200 {array} models.Project
// @Failure 403 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects [get]
func (h *ProjectsHandler) ListProjects(c *fiber.Ctx) error {
	projects, err := services.ListProjects(h.DB, middleware.UserID(c))
	if err != nil {
		return respondError(c, err, "listProjects")
	}
	return utils.SuccessResponse(c, projects, fiber.StatusOK)
}

// GetProject handles GET /api/projects/:projectId
// @Summary Get a project
// @Description Get a project with its endpoints and auth config
// @Tags Projects
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId} [get]
func (h *ProjectsHandler) GetProject(c *fiber.Ctx) error {
	project, err := services.GetOwnedProject(h.DB, middleware.UserID(c), c.Params("projectId"))
	if err != nil {
		return respondError(c, err, "getProject")
	}
	return utils.SuccessResponse(c, project, fiber.StatusOK)
}

// RenameProject handles PATCH /api/projects/:projectId
// @Summary Rename a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param body body services.RenameProjectInput true "Name"
// @Success 200 {object} models.Project
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId} [patch]
func (h *ProjectsHandler) RenameProject(c *fiber.Ctx) error {
	var in services.RenameProjectInput
	if err := parseAndValidate(c, &in); err != nil {
		return respondError(c, err, "renameProject")
	}

	project, err := services.RenameProject(h.DB, middleware.UserID(c), c.Params("projectId"), in.Name)
	if err != nil {
		return respondError(c, err, "renameProject")
	}
	return utils.SuccessResponse(c, project, fiber.StatusOK)
}

// DeleteProject handles DELETE /api/projects/:projectId
// @Summary Delete a project
// @Description Delete a project with its endpoints and auth config
// @Tags Projects
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} utils.WriteResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId} [delete]
func (h *ProjectsHandler) DeleteProject(c *fiber.Ctx) error {
	if err := services.DeleteProject(h.DB, middleware.UserID(c), c.Params("projectId")); err != nil {
		return respondError(c, err, "deleteProject")
	}
	return utils.WriteSuccessResponse(c, fiber.StatusOK, nil)
}

// ListEndpoints handles GET /api/projects/:projectId/endpoints
// @Summary List endpoints
// @Tags Endpoints
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {array} models.Endpoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId}/endpoints [get]
func (h *ProjectsHandler) ListEndpoints(c *fiber.Ctx) error {
	endpoints, err := services.ListEndpoints(h.DB, middleware.UserID(c), c.Params("projectId"))
	if err != nil {
		return respondError(c, err, "listEndpoints")
	}
	return utils.SuccessResponse(c, endpoints, fiber.StatusOK)
}

// ToggleEndpointMethod handles PATCH /api/projects/:projectId/endpoints/:endpointId
// @Summary Enable or disable an endpoint method
// @Tags Endpoints
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param endpointId path string true "Endpoint ID"
// @Param body body services.ToggleMethodInput true "Method and state"
// @Success 200 {object} models.Endpoint
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId}/endpoints/{endpointId} [patch]
func (h *ProjectsHandler) ToggleEndpointMethod(c *fiber.Ctx) error {
	var in services.ToggleMethodInput
	if err := parseAndValidate(c, &in); err != nil {
		return respondError(c, err, "toggleEndpointMethod")
	}

	endpoint, err := services.ToggleEndpointMethod(h.DB, middleware.UserID(c),
		c.Params("projectId"), c.Params("endpointId"), in)
	if err != nil {
		return respondError(c, err, "toggleEndpointMethod")
	}
	return utils.SuccessResponse(c, endpoint, fiber.StatusOK)
}

// SyncEndpoints handles POST /api/projects/:projectId/endpoints/sync
// @Summary Add endpoints for new sheets
// @Tags Endpoints
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {array} models.Endpoint
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId}/endpoints/sync [post]
func (h *ProjectsHandler) SyncEndpoints(c *fiber.Ctx) error {
	added, err := services.SyncEndpoints(c.UserContext(), h.DB, h.Store, middleware.UserID(c), c.Params("projectId"))
	if err != nil {
		return respondError(c, err, "syncEndpoints")
	}
	return utils.SuccessResponse(c, added, fiber.StatusOK)
}

// GetAuthConfig handles GET /api/projects/:projectId/auth
// @Summary Get data API authentication
// @Tags Auth
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} models.ProjectAuth
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId}/auth [get]
func (h *ProjectsHandler) GetAuthConfig(c *fiber.Ctx) error {
	auth, err := services.GetProjectAuthConfig(h.DB, middleware.UserID(c), c.Params("projectId"))
	if err != nil {
		return respondError(c, err, "getAuthConfig")
	}
	return utils.SuccessResponse(c, auth, fiber.StatusOK)
}

// UpdateAuthConfig handles PUT /api/projects/:projectId/auth
// @Summary Set data API authentication
// @Tags Auth
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param body body services.AuthConfigInput true "Auth type and settings"
// @Success 200 {object} models.ProjectAuth
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /projects/{projectId}/auth [put]
func (h *ProjectsHandler) UpdateAuthConfig(c *fiber.Ctx) error {
	var in services.AuthConfigInput
	if err := parseAndValidate(c, &in); err != nil {
		return respondError(c, err, "updateAuthConfig")
	}

	auth, err := services.UpdateProjectAuthConfig(h.DB, middleware.UserID(c), c.Params("projectId"), in)
	if err != nil {
		return respondError(c, err, "updateAuthConfig")
	}
	return utils.SuccessResponse(c, auth, fiber.StatusOK)
}
