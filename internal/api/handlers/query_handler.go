package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldmate/backend/internal/domain"
	"github.com/fieldmate/backend/internal/gap"
	"github.com/fieldmate/backend/internal/metrics"
	"github.com/fieldmate/backend/internal/router"
	"github.com/fieldmate/backend/pkg/logger"
	"github.com/fieldmate/backend/pkg/utils"
)

// ResponseCache is the slice of the cache the query handler uses. Any Get
// error counts as a miss.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type askRequest struct {
	Text        string              `json:"text"`
	Channel     string              `json:"channel"`
	UserID      string              `json:"user_id"`
	SafetyFlag  bool                `json:"safety_flag"`
	Attachments []attachmentPayload `json:"attachments"`
}

// QueryHandler exposes the router over HTTP.
type QueryHandler struct {
	router   *router.Router
	cache    ResponseCache
	cacheTTL time.Duration
}

func NewQueryHandler(r *router.Router, cache ResponseCache, cacheTTL time.Duration) *QueryHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &QueryHandler{
		router:   r,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Ask handles POST /api/v1/ask.
func (h *QueryHandler) Ask(c *fiber.Ctx) error {
	var body askRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if body.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text is required",
		})
	}

	req := domain.Request{
		ID:          uuid.New().String(),
		Text:        body.Text,
		Channel:     body.Channel,
		UserID:      body.UserID,
		SafetyFlag:  body.SafetyFlag,
		Attachments: toAttachments(body.Attachments),
		ReceivedAt:  time.Now(),
	}

	// Flagged requests and requests with attachments are never served from
	// cache: the cache key covers query text only.
	cacheKey := ""
	if h.cache != nil && !req.SafetyFlag && len(req.Attachments) == 0 {
		cacheKey = "responses:" + utils.HashString(gap.Normalize(req.Text))
		if cached, err := h.cache.Get(c.Context(), cacheKey); err == nil {
			var resp domain.Response
			if jsonErr := json.Unmarshal([]byte(cached), &resp); jsonErr == nil {
				metrics.CacheHits.WithLabelValues("hit").Inc()
				resp.ID = req.ID
				return c.JSON(resp)
			}
		}
		metrics.CacheHits.WithLabelValues("miss").Inc()
	}

	resp, err := h.router.Ask(c.Context(), req)
	if err != nil {
		if errors.Is(err, router.ErrEmptyQuery) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Routing failed", zap.String("request_id", req.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
		})
	}

	// Only direct answers are cacheable: they carry no per-request
	// enrichment and no escalation state worth replaying.
	if cacheKey != "" && resp.Route == "A" {
		if data, jsonErr := json.Marshal(resp); jsonErr == nil {
			if cacheErr := h.cache.Set(c.Context(), cacheKey, string(data), h.cacheTTL); cacheErr != nil {
				logger.Warn("Failed to cache response", zap.Error(cacheErr))
			}
		}
	}

	return c.JSON(resp)
}
