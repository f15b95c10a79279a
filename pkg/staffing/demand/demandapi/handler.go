package demandapi

import (
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand"
	"github.com/Abraxas-365/talentledger/pkg/staffing/demand/demandsrv"
	"github.com/gofiber/fiber/v2"
)

type DemandHandlers struct {
	reconciler *demandsrv.Reconciler
	candidates candidate.CandidateRepository
}

func NewDemandHandlers(reconciler *demandsrv.Reconciler, candidates candidate.CandidateRepository) *DemandHandlers {
	return &DemandHandlers{reconciler: reconciler, candidates: candidates}
}

// RegisterRoutes mounts /demand and /hires
func (h *DemandHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.AuthMiddleware) {
	d := router.Group("/demand", authMiddleware.Authenticate())
	d.Get("/open", authMiddleware.RequireScope(scopes.ScopeDemandRead), h.OpenDemand)

	hires := router.Group("/hires", authMiddleware.Authenticate())
	hires.Post("/", authMiddleware.RequireScope(scopes.ScopeHiresRun), h.Hire)
	hires.Post("/batch", authMiddleware.RequireScope(scopes.ScopeHiresRun), h.Batch)
}

func (h *DemandHandlers) OpenDemand(c *fiber.Ctx) error {
	clientID := kernel.ClientID(c.Query("client_id"))
	open, err := h.reconciler.OpenDemand(c.Context(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"client_id": clientID,
		"demand":    open,
		"count":     len(open),
	})
}

// Hire reconciles one hired candidate. Without an explicit client the
// candidate's own client reference is used.
func (h *DemandHandlers) Hire(c *fiber.Ctx) error {
	var req demand.HireRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.CandidateID.IsEmpty() {
		return demand.ErrCandidateRequired()
	}

	clientID := req.ClientID
	if clientID == nil {
		cand, err := h.candidates.FindByID(c.Context(), req.CandidateID)
		if err != nil {
			return err
		}
		if cand.ClientID == nil {
			return demand.ErrClientRequired().WithDetail("candidate_id", req.CandidateID.String())
		}
		clientID = cand.ClientID
	}

	result, err := h.reconciler.OnHire(c.Context(), req.CandidateID, *clientID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *DemandHandlers) Batch(c *fiber.Ctx) error {
	var req demand.BatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	result, err := h.reconciler.BatchProcess(c.Context(), req.ClientID)
	if err != nil {
		if result != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":  err.Error(),
				"result": result,
			})
		}
		return err
	}
	return c.JSON(result)
}
