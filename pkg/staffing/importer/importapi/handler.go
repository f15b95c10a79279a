package importapi

import (
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/Abraxas-365/talentledger/pkg/staffing/importer/importsrv"
	"github.com/gofiber/fiber/v2"
)

type ImportHandlers struct {
	service *importsrv.Service
}

func NewImportHandlers(service *importsrv.Service) *ImportHandlers {
	return &ImportHandlers{service: service}
}

func (h *ImportHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.AuthMiddleware) {
	imports := router.Group("/imports", authMiddleware.Authenticate())
	imports.Post("/stage", authMiddleware.RequireScope(scopes.ScopeImportsStage), h.Stage)
	imports.Post("/stage-file", authMiddleware.RequireScope(scopes.ScopeImportsStage), h.StageFile)
	imports.Post("/stage-inbox", authMiddleware.RequireScope(scopes.ScopeImportsStage), h.StageInbox)
	imports.Post("/consolidate", authMiddleware.RequireScope(scopes.ScopeImportsRun), h.Consolidate)
	imports.Get("/status", authMiddleware.RequireScope(scopes.ScopeImportsRead), h.Status)
}

type StageRequest struct {
	DataSource string              `json:"data_source"`
	Rows       []map[string]string `json:"rows"`
}

type StageFileRequest struct {
	Path string `json:"path"`
}

// Stage accepts rows pushed by the spreadsheet sync
func (h *ImportHandlers) Stage(c *fiber.Ctx) error {
	var req StageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	report, err := h.service.Stage(c.Context(), req.DataSource, req.Rows)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(report)
}

// StageFile stages one CSV export already uploaded to the file store
func (h *ImportHandlers) StageFile(c *fiber.Ctx) error {
	var req StageFileRequest
	if err := c.BodyParser(&req); err != nil || req.Path == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "path is required",
		})
	}

	report, err := h.service.StageFile(c.Context(), req.Path)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(report)
}

func (h *ImportHandlers) StageInbox(c *fiber.Ctx) error {
	report, err := h.service.StageInbox(c.Context())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(report)
}

// Consolidate runs consolidation over pending staged rows. An aborted run
// still returns its partial report next to the error.
func (h *ImportHandlers) Consolidate(c *fiber.Ctx) error {
	report, err := h.service.ConsolidatePending(c.Context())
	if err != nil {
		if report == nil {
			return err
		}
		logx.Errorf("consolidation aborted: %v", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}

func (h *ImportHandlers) Status(c *fiber.Ctx) error {
	status, err := h.service.SyncStatus(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(status)
}
