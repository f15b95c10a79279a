package assignmentapi

import (
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment"
	"github.com/Abraxas-365/talentledger/pkg/staffing/assignment/assignmentsrv"
	"github.com/gofiber/fiber/v2"
)

type AssignmentHandlers struct {
	engine *assignmentsrv.Engine
}

func NewAssignmentHandlers(engine *assignmentsrv.Engine) *AssignmentHandlers {
	return &AssignmentHandlers{engine: engine}
}

// RegisterRoutes mounts /assignments and /talents
func (h *AssignmentHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.AuthMiddleware) {
	assignments := router.Group("/assignments", authMiddleware.Authenticate())
	assignments.Get("/validate", authMiddleware.RequireScope(scopes.ScopeAssignmentsRead), h.Validate)
	assignments.Get("/integrity-log", authMiddleware.RequireScope(scopes.ScopeAssignmentsRead), h.IntegrityLog)
	assignments.Post("/reconcile", authMiddleware.RequireScope(scopes.ScopeAssignmentsReconcile), h.Reconcile)
	assignments.Post("/integrity-check", authMiddleware.RequireScope(scopes.ScopeAssignmentsReconcile), h.IntegrityCheck)
	assignments.Post("/", authMiddleware.RequireScope(scopes.ScopeAssignmentsWrite), h.Create)
	assignments.Get("/:id", authMiddleware.RequireScope(scopes.ScopeAssignmentsRead), h.Get)
	assignments.Put("/:id", authMiddleware.RequireScope(scopes.ScopeAssignmentsWrite), h.Update)
	assignments.Delete("/:id", authMiddleware.RequireScope(scopes.ScopeAssignmentsDelete), h.Delete)

	talents := router.Group("/talents", authMiddleware.Authenticate())
	talents.Get("/:id", authMiddleware.RequireScope(scopes.ScopeAssignmentsRead), h.GetTalent)
	talents.Post("/:id/sync", authMiddleware.RequireScope(scopes.ScopeAssignmentsReconcile), h.SyncTalent)
}

func (h *AssignmentHandlers) Create(c *fiber.Ctx) error {
	var req assignment.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	a, err := h.engine.Create(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

func (h *AssignmentHandlers) Get(c *fiber.Ctx) error {
	a, err := h.engine.Get(c.Context(), kernel.AssignmentID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *AssignmentHandlers) Update(c *fiber.Ctx) error {
	var req assignment.UpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	a, err := h.engine.Update(c.Context(), kernel.AssignmentID(c.Params("id")), req)
	if err != nil {
		return err
	}
	return c.JSON(a)
}

func (h *AssignmentHandlers) Delete(c *fiber.Ctx) error {
	if err := h.engine.Delete(c.Context(), kernel.AssignmentID(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Validate reports talents whose cached totals drifted from the ledger
func (h *AssignmentHandlers) Validate(c *fiber.Ctx) error {
	report, err := h.engine.Validate(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *AssignmentHandlers) Reconcile(c *fiber.Ctx) error {
	result, err := h.engine.ReconcileAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *AssignmentHandlers) IntegrityCheck(c *fiber.Ctx) error {
	report, err := h.engine.RunIntegrityCheck(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (h *AssignmentHandlers) IntegrityLog(c *fiber.Ctx) error {
	entries, err := h.engine.IntegrityLog(c.Context(), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *AssignmentHandlers) GetTalent(c *fiber.Ctx) error {
	t, items, err := h.engine.Talent(c.Context(), kernel.TalentID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"talent":      t,
		"assignments": items,
	})
}

// SyncTalent recomputes one talent's totals on demand
func (h *AssignmentHandlers) SyncTalent(c *fiber.Ctx) error {
	t, err := h.engine.OnAssignmentChanged(c.Context(), kernel.TalentID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(t)
}
