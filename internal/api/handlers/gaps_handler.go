package handlers

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/storage/sqlite"
	"github.com/fieldmate/backend/pkg/logger"
)

// GapsHandler exposes the gap backlog for operators and the external
// reconciliation process.
type GapsHandler struct {
	store *sqlite.Client
}

func NewGapsHandler(store *sqlite.Client) *GapsHandler {
	return &GapsHandler{store: store}
}

// List handles GET /api/v1/gaps?resolved=true|false&limit=N.
func (h *GapsHandler) List(c *fiber.Ctx) error {
	var resolved *bool
	switch c.Query("resolved") {
	case "true":
		v := true
		resolved = &v
	case "false":
		v := false
		resolved = &v
	case "":
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "resolved must be true or false",
		})
	}

	limit := c.QueryInt("limit", 100)

	records, err := h.store.ListGaps(c.Context(), resolved, limit)
	if err != nil {
		logger.Error("Failed to list gaps", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list gaps",
		})
	}

	gaps := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		gaps = append(gaps, fiber.Map{
			"id":              r.ID,
			"fingerprint":     r.QueryFingerprint,
			"query_text":      r.QueryText,
			"vendor":          r.Vendor,
			"equipment":       r.Equipment,
			"symptom":         r.Symptom,
			"frequency":       r.Frequency,
			"priority":        r.Priority,
			"first_seen_at":   r.FirstSeenAt,
			"last_seen_at":    r.LastSeenAt,
			"resolved":        r.Resolved,
			"resolved_at":     r.ResolvedAt,
			"resolution_refs": r.ResolutionRefs,
		})
	}

	return c.JSON(fiber.Map{
		"gaps":  gaps,
		"count": len(gaps),
	})
}

// Get handles GET /api/v1/gaps/:id.
func (h *GapsHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")

	record, err := h.store.GetGapByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "gap not found",
			})
		}
		logger.Error("Failed to get gap", zap.String("gap_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to get gap",
		})
	}

	return c.JSON(record)
}

type resolveRequest struct {
	ResolutionRefs []string `json:"resolution_refs"`
}

// Resolve handles POST /api/v1/gaps/:id/resolve. Called by the knowledge
// reconciliation process once new content for the gap has been ingested.
func (h *GapsHandler) Resolve(c *fiber.Ctx) error {
	id := c.Params("id")

	var body resolveRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.store.MarkResolved(c.Context(), id, body.ResolutionRefs); err != nil {
		logger.Error("Failed to resolve gap", zap.String("gap_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to resolve gap",
		})
	}

	return c.JSON(fiber.Map{
		"status": "resolved",
		"id":     id,
	})
}
