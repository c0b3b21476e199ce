// Package http exposes the worker's task-enqueue API.
package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"campaign_worker/internal/stream"
	"campaign_worker/pkg/logger"
)

// TaskHandler accepts task requests from the backend and enqueues them
// on the job streams. It never executes work inline.
type TaskHandler struct {
	producer *stream.Producer
	streams  *stream.RedisStream
	redis    *redis.Client
}

func NewTaskHandler(producer *stream.Producer, streams *stream.RedisStream, redisClient *redis.Client) *TaskHandler {
	return &TaskHandler{
		producer: producer,
		streams:  streams,
		redis:    redisClient,
	}
}

func (h *TaskHandler) Register(app *fiber.App) {
	app.Post("/tasks/send-campaign", h.SendCampaign)
	app.Post("/tasks/check-replies", h.CheckReplies)
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

type sendCampaignRequest struct {
	CampaignID      string `json:"campaign_id"`
	UserID          string `json:"user_id"`
	ContactSourceID string `json:"contact_source_id"`
	TemplateID      string `json:"template_id"`
	AccessToken     string `json:"access_token"`
	RefreshToken    string `json:"refresh_token"`
	TokenExpiry     string `json:"token_expiry"`
	BackendURL      string `json:"backend_url"`
}

// SendCampaign enqueues a campaign.send job.
func (h *TaskHandler) SendCampaign(c *fiber.Ctx) error {
	var req sendCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if req.CampaignID == "" || req.UserID == "" || req.TemplateID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "campaign_id, user_id and template_id are required",
		})
	}
	if req.AccessToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "access_token is required",
		})
	}
	if req.TokenExpiry != "" {
		if _, err := time.Parse(time.RFC3339, req.TokenExpiry); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "token_expiry must be RFC 3339",
			})
		}
	}

	id, err := h.producer.PublishCampaignSend(c.Context(), &stream.CampaignSendParams{
		CampaignID:      req.CampaignID,
		UserID:          req.UserID,
		ContactSourceID: req.ContactSourceID,
		TemplateID:      req.TemplateID,
		AccessToken:     req.AccessToken,
		RefreshToken:    req.RefreshToken,
		TokenExpiry:     req.TokenExpiry,
		BackendURL:      req.BackendURL,
	})
	if err != nil {
		logger.WithError(err).Error("failed to enqueue campaign.send")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "failed to enqueue job",
		})
	}

	logger.WithFields(map[string]any{
		"campaign_id": req.CampaignID,
		"user_id":     req.UserID,
	}).Info("campaign send queued as %s", id)

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": id,
		"status": "queued",
	})
}

type checkRepliesRequest struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenExpiry  string `json:"token_expiry"`
}

// CheckReplies enqueues a reply check, either for one user or a full
// sweep when no user is given.
func (h *TaskHandler) CheckReplies(c *fiber.Ctx) error {
	var req checkRepliesRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}

	if req.TokenExpiry != "" {
		if _, err := time.Parse(time.RFC3339, req.TokenExpiry); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "token_expiry must be RFC 3339",
			})
		}
	}

	var (
		id  string
		err error
	)
	if req.UserID != "" {
		id, err = h.producer.PublishReplyCheckUser(c.Context(), &stream.ReplyCheckParams{
			UserID:       req.UserID,
			AccessToken:  req.AccessToken,
			RefreshToken: req.RefreshToken,
			TokenExpiry:  req.TokenExpiry,
		})
	} else {
		id, err = h.producer.PublishReplyCheck(c.Context())
	}
	if err != nil {
		logger.WithError(err).Error("failed to enqueue reply check")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "failed to enqueue job",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id": id,
		"status": "queued",
	})
}

func (h *TaskHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports queue connectivity and backlog depth.
func (h *TaskHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]any)
	healthy := true

	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["redis"] = "healthy"
	}

	if healthy {
		if pending, err := h.streams.Pending(ctx); err == nil {
			checks["pending_jobs"] = pending
		}
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !healthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
