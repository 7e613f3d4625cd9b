package handlers

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/reelflow/reelflow/internal/queue"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/internal/transfer"
	"github.com/reelflow/reelflow/pkg/ratelimit"
)

type QueueHandler struct {
	qs          service.QueueService
	as          service.AssignerService
	limiter     *ratelimit.Limiter
	AsynqClient *asynq.Client
}

func NewQueueHandler(qs service.QueueService, as service.AssignerService, limiter *ratelimit.Limiter, asynqClient *asynq.Client) *QueueHandler {
	return &QueueHandler{
		qs:          qs,
		as:          as,
		limiter:     limiter,
		AsynqClient: asynqClient,
	}
}

// AssignVideo drops a video into the account's next open slot.
func (h *QueueHandler) AssignVideo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	result, err := h.as.AssignVideoToNextSlot(c.Context(), userID, &req)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *QueueHandler) ListQueue(c *fiber.Ctx) error {
	userID := GetUserID(c)
	status := c.Query("status")

	posts, err := h.qs.List(c.Context(), userID, status)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to list queued posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

// PreviewSlots returns the next open slot instants without occupying them.
func (h *QueueHandler) PreviewSlots(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("account_id", 0)
	count := c.QueryInt("count", 5)

	instants, err := h.as.PreviewUpcomingSlots(c.Context(), userID, int64(accountID), count)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"slots": instants,
	})
}

func (h *QueueHandler) ReorderQueue(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	if err := h.qs.Reorder(c.Context(), userID, &req); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) CancelPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.qs.Cancel(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) EditPost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var edit transfer.PostEdit
	if err := c.BodyParser(&edit); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	if err := h.qs.Edit(c.Context(), userID, &edit); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *QueueHandler) QueueStats(c *fiber.Ctx) error {
	userID := GetUserID(c)

	stats, err := h.qs.Stats(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to load queue stats",
		})
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}

// PublishNow pulls a queued post forward and hands it to the task queue so it
// doesn't wait for the next cycle tick. Rate limited per user.
func (h *QueueHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if !h.limiter.Allow(fmt.Sprintf("%d", userID)) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "too many publish requests, try again shortly",
		})
	}

	if err := h.qs.PublishNow(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	err := queue.EnqueuePublish(h.AsynqClient, queue.PublishPostPayload{PostID: int64(postID)})
	if err != nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "post will publish on the next cycle",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "post queued for immediate publish",
	})
}
