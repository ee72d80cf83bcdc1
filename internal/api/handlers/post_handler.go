package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/sahilm27/linklater/internal/queue"
	"github.com/sahilm27/linklater/internal/service"
	"github.com/sahilm27/linklater/internal/transfer"
)

type PostHandler struct {
	s           service.PostService
	pub         service.Publisher
	AsynqClient *asynq.Client
}

func NewPostHandler(s service.PostService, pub service.Publisher, asynqClient *asynq.Client) *PostHandler {
	return &PostHandler{s: s, pub: pub, AsynqClient: asynqClient}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		Body:         c.FormValue("body"),
		Visibility:   c.FormValue("visibility"),
		Status:       c.FormValue("status"),
		ScheduledFor: c.FormValue("scheduled_for"),
		IsRepost:     c.FormValue("is_repost") == "true",
		RepostOfURN:  c.FormValue("repost_of_urn"),
	}

	postID, publishNow, err := h.s.CreatePost(c.Context(), userID, pc, form.File["images"])
	if err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if publishNow {
		if err := queue.EnqueuePost(h.AsynqClient, queue.PublishPostPayload{PostID: postID}, 0); err != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"post_id": postID,
				"error":   "Error scheduling immediate publish",
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"message": "Post created successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		post, err := h.s.PostInfo(c.Context(), int64(postID), userID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}
		return c.Status(fiber.StatusOK).JSON(post)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) Reschedule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	scheduledFor, err := time.Parse(time.RFC3339, c.FormValue("scheduled_for"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid scheduled time",
		})
	}

	if err := h.s.Reschedule(c.Context(), userID, int64(postID), scheduledFor); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ConvertToDraft(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.ConvertToDraft(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// PublishNow is the interactive single-post publish path. It blocks on
// the LinkedIn call and persists any failure onto the post row.
func (h *PostHandler) PublishNow(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if _, err := h.s.PostInfo(c.Context(), int64(postID), userID); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.pub.HandlePost(c.Context(), int64(postID)); err != nil {
		return c.Status(errStatus(err)).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post published successfully",
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
