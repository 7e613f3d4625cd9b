package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/reelflow/reelflow/internal/service"
)

type VideoHandler struct {
	s service.VideoService
}

func NewVideoHandler(service service.VideoService) *VideoHandler {
	return &VideoHandler{s: service}
}

func (h *VideoHandler) UploadVideo(c *fiber.Ctx) error {
	userID := GetUserID(c)

	file, err := c.FormFile("file")
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "no video file attached",
		})
	}

	title := c.FormValue("title")
	transcript := c.FormValue("transcript")

	videoID, err := h.s.Upload(c.Context(), userID, title, transcript, file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id": videoID,
	})
}

func (h *VideoHandler) ListVideos(c *fiber.Ctx) error {
	userID := GetUserID(c)
	videoID := c.QueryInt("id", 0)

	if videoID != 0 {
		video, err := h.s.VideoInfo(c.Context(), int64(videoID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unable to load video",
			})
		}

		return c.Status(fiber.StatusOK).JSON(video)
	}

	videos, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to list videos",
		})
	}

	return c.Status(fiber.StatusOK).JSON(videos)
}
