package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilm27/linklater/internal/service"
)

type StatusHandler struct {
	s service.StatusService
}

func NewStatusHandler(s service.StatusService) *StatusHandler {
	return &StatusHandler{s: s}
}

func (h *StatusHandler) GetDispatchStatus(c *fiber.Ctx) error {
	status, err := h.s.DispatchStatus(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to load dispatch status",
		})
	}

	return c.Status(fiber.StatusOK).JSON(status)
}
