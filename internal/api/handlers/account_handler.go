package handlers

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/reelflow/reelflow/configs"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/pkg/utils"
)

type AccountHandler struct {
	s   service.AccountService
	ig  service.InstagramService
	cfg config.Config
}

func NewAccountHandler(s service.AccountService, ig service.InstagramService, cfg config.Config) *AccountHandler {
	return &AccountHandler{
		s:   s,
		ig:  ig,
		cfg: cfg,
	}
}

// ConnectInstagram starts the OAuth connect flow. The user's identity travels
// through the round trip as a short-lived JWT in the state parameter.
func (h *AccountHandler) ConnectInstagram(c *fiber.Ctx) error {
	userID := GetUserID(c)

	state, err := utils.GenerateToken(h.cfg.SecretKey, fmt.Sprintf("%d", userID), 10*time.Minute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unable to start connect flow",
		})
	}

	return c.Redirect(h.ig.GetAuthURL(state))
}

func (h *AccountHandler) CallbackHandler(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")

	claims, err := utils.ValidateToken(h.cfg.SecretKey, state)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unable to validate user",
		})
	}

	if err := h.ig.InstagramCallback(c.Context(), code, userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	redirectURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *AccountHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

// DisconnectAccount deactivates the account and cancels everything still
// waiting in its queue.
func (h *AccountHandler) DisconnectAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountId := c.QueryInt("id", 0)

	err := h.s.Disconnect(c.Context(), userID, int64(accountId))
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{
			"error": "unable to disconnect social account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
