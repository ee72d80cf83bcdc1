package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilm27/linklater/internal/apperrors"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// errStatus maps validation failures to 400 and everything else to 500.
func errStatus(err error) int {
	if apperrors.IsValidation(err) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
