package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/queue"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	ps service.PublisherService
	q  queue.Enqueuer
}

func NewPostHandler(service service.PostService, publisher service.PublisherService, enqueuer queue.Enqueuer) *PostHandler {
	return &PostHandler{s: service, ps: publisher, q: enqueuer}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var body transfer.PostCreation
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.Create(c.Context(), userID, &body)
	if err != nil {
		return respondError(c, err, "Unable to create post")
	}

	h.schedule(post)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	filter := models.PostFilter{Status: models.PostStatus(c.Query("status"))}
	if p := c.Query("platform"); p != "" {
		platform, err := models.ParsePlatform(p)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		filter.Platform = platform
	}

	year, month := c.QueryInt("year", 0), c.QueryInt("month", 0)
	if year > 0 && month >= 1 && month <= 12 {
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		filter.From, filter.To = &from, &to
	}

	posts, err := h.s.List(c.Context(), userID, filter)
	if err != nil {
		return respondError(c, err, "Unable to list posts")
	}

	res := fiber.Map{"posts": posts}
	if c.QueryBool("stats") {
		stats, err := h.s.Stats(c.Context(), userID)
		if err != nil {
			return respondError(c, err, "Unable to get post stats")
		}
		res["stats"] = stats
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.Get(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Unable to get post")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) UpdatePost(c *fiber.Ctx) error {
	var body transfer.PostUpdate
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.Update(c.Context(), GetUserID(c), c.Params("id"), &body)
	if err != nil {
		return respondError(c, err, "Unable to update post")
	}

	h.schedule(post)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post": post,
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	err := h.s.Remove(c.Context(), GetUserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Unable to remove post")
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.s.Stats(c.Context(), GetUserID(c))
	if err != nil {
		return respondError(c, err, "Unable to get post stats")
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

// PublishPost publishes a post right away and reports per-platform errors.
func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	postID := c.Params("id")
	if _, err := h.s.Get(c.Context(), GetUserID(c), postID); err != nil {
		return respondError(c, err, "Unable to get post")
	}

	result, err := h.ps.PublishPost(c.Context(), postID)
	if err != nil {
		status := errorStatus(err)
		if status == fiber.StatusInternalServerError {
			slog.Error("publish failed", "post_id", postID, "error", err)
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(transfer.PublishResponse{
		Success:      result.AnySucceeded,
		AllSucceeded: result.AllSucceeded,
		Errors:       errs,
	})
}

func (h *PostHandler) schedule(post *transfer.PostDetail) {
	if post == nil || post.Status != models.PostStatusScheduled || post.ScheduledFor == nil {
		return
	}

	err := h.q.EnqueuePost(queue.SchedulePostPayload{PostID: post.ID, ScheduledFor: *post.ScheduledFor})
	if err != nil {
		// The cron sweep still picks the post up.
		slog.Error("error scheduling post", "post_id", post.ID, "error", err)
	}
}
