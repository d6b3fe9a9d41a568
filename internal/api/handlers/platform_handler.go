package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialdeck/internal/service"
)

type PlatformHandler struct {
	ps service.PlatformService
}

func NewPlatformHandler(ps service.PlatformService) *PlatformHandler {
	return &PlatformHandler{ps: ps}
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.ps.List(c.Context(), userID)
	if err != nil {
		return fail(c, err, "Failed to fetch social accounts")
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	accountID := c.QueryInt("id", 0)

	if err := h.ps.Delete(c.Context(), userID, int64(accountID)); err != nil {
		return fail(c, err, "Unable to delete social account")
	}

	return c.SendStatus(fiber.StatusOK)
}
