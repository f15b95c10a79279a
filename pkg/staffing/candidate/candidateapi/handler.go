package candidateapi

import (
	"github.com/Abraxas-365/talentledger/pkg/iam/auth"
	"github.com/Abraxas-365/talentledger/pkg/iam/scopes"
	"github.com/Abraxas-365/talentledger/pkg/kernel"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate"
	"github.com/Abraxas-365/talentledger/pkg/staffing/candidate/candidatesrv"
	"github.com/gofiber/fiber/v2"
)

// CandidateHandlers exposes the candidate workflow over HTTP
type CandidateHandlers struct {
	service *candidatesrv.Service
}

func NewCandidateHandlers(service *candidatesrv.Service) *CandidateHandlers {
	return &CandidateHandlers{service: service}
}

// RegisterRoutes mounts /candidates and /clients
func (h *CandidateHandlers) RegisterRoutes(router fiber.Router, authMiddleware *auth.AuthMiddleware) {
	candidates := router.Group("/candidates", authMiddleware.Authenticate())
	candidates.Get("/", authMiddleware.RequireScope(scopes.ScopeCandidatesRead), h.ListCandidates)
	candidates.Get("/:id", authMiddleware.RequireScope(scopes.ScopeCandidatesRead), h.GetCandidate)
	candidates.Get("/:id/history", authMiddleware.RequireScope(scopes.ScopeCandidatesRead), h.GetHistory)
	candidates.Put("/:id/status", authMiddleware.RequireScope(scopes.ScopeCandidatesWrite), h.ChangeStatus)

	clients := router.Group("/clients", authMiddleware.Authenticate())
	clients.Get("/", authMiddleware.RequireScope(scopes.ScopeCandidatesRead), h.ListClients)
}

// ListCandidates lists candidates, optionally by status and client
func (h *CandidateHandlers) ListCandidates(c *fiber.Ctx) error {
	filter := candidate.ListFilter{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 100),
		Offset: c.QueryInt("offset", 0),
	}
	if clientID := c.Query("client_id"); clientID != "" {
		id := kernel.ClientID(clientID)
		filter.ClientID = &id
	}

	items, err := h.service.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"candidates": items,
		"count":      len(items),
	})
}

// GetCandidate returns one candidate
func (h *CandidateHandlers) GetCandidate(c *fiber.Ctx) error {
	item, err := h.service.Get(c.Context(), kernel.CandidateID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// GetHistory returns the status history of a candidate
func (h *CandidateHandlers) GetHistory(c *fiber.Ctx) error {
	changes, err := h.service.History(c.Context(), kernel.CandidateID(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"changes": changes})
}

// ChangeStatus updates the status and triggers hire reconciliation when due
func (h *CandidateHandlers) ChangeStatus(c *fiber.Ctx) error {
	authContext, ok := auth.GetAuthContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var req candidate.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.service.ChangeStatus(c.Context(), kernel.CandidateID(c.Params("id")), req, authContext.Actor())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// ListClients lists known clients
func (h *CandidateHandlers) ListClients(c *fiber.Ctx) error {
	clients, err := h.service.Clients(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clients": clients})
}
