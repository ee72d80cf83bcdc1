package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/sahilm27/linklater/configs"
	job "github.com/sahilm27/linklater/internal/jobs"
)

// DispatchHandler is the external-trigger surface: a scheduler posts a
// window and gets back the run outcome.
type DispatchHandler struct {
	cfg config.Config
	job *job.DispatchJob
}

func NewDispatchHandler(cfg config.Config, j *job.DispatchJob) *DispatchHandler {
	return &DispatchHandler{cfg: cfg, job: j}
}

type dispatchRequest struct {
	MinuteStart string `json:"minute_start"`
	MinuteEnd   string `json:"minute_end"`
}

func (h *DispatchHandler) TriggerDispatch(c *fiber.Ctx) error {
	if h.cfg.DispatchSecret != "" && c.Get("X-Dispatch-Secret") != h.cfg.DispatchSecret {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	var windowStart, windowEnd time.Time
	if req.MinuteStart == "" || req.MinuteEnd == "" {
		windowStart, windowEnd = job.FallbackWindow()
	} else {
		var err error
		windowStart, err = time.Parse(time.RFC3339, req.MinuteStart)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid minute_start",
			})
		}
		windowEnd, err = time.Parse(time.RFC3339, req.MinuteEnd)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid minute_end",
			})
		}
	}

	run, err := h.job.Dispatch(c.Context(), windowStart, windowEnd)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(run)
}
