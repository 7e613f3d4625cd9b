package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/internal/transfer"
)

type SlotHandler struct {
	s service.SlotService
}

func NewSlotHandler(service service.SlotService) *SlotHandler {
	return &SlotHandler{s: service}
}

func (h *SlotHandler) CreateSlot(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var sc transfer.SlotCreation
	if err := c.BodyParser(&sc); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	slotID, err := h.s.Create(c.Context(), userID, &sc)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id": slotID,
	})
}

func (h *SlotHandler) ListSlots(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("account_id", 0)

	slots, err := h.s.List(c.Context(), userID, int64(accountID))
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": "unable to list slots",
		})
	}

	return c.Status(fiber.StatusOK).JSON(slots)
}

func (h *SlotHandler) UpdateSlot(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var su transfer.SlotUpdate
	if err := c.BodyParser(&su); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	if err := h.s.Update(c.Context(), userID, &su); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *SlotHandler) RemoveSlot(c *fiber.Ctx) error {
	userID := GetUserID(c)
	slotID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(slotID)); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": "unable to remove slot",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// ApplyPreset replaces an account's whole slot set in one transaction.
func (h *SlotHandler) ApplyPreset(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var preset transfer.SlotPreset
	if err := c.BodyParser(&preset); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to parse request body",
		})
	}

	if err := h.s.ApplyPreset(c.Context(), userID, &preset); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
