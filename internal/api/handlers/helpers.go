package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// statusForError maps service sentinel errors onto HTTP statuses so handlers
// don't each repeat the switch.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrAccountNotFound),
		errors.Is(err, service.ErrPostNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrSlotOccupied),
		errors.Is(err, service.ErrVideoAlreadyQueued),
		errors.Is(err, repository.ErrDuplicateSlot):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrNoActiveSlots),
		errors.Is(err, service.ErrNoOpenSlot),
		errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrVideoNotReady),
		errors.Is(err, service.ErrPostNotEditable),
		errors.Is(err, service.ErrPostNotCancellable):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
