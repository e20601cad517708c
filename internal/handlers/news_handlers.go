package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
	"github.com/fathima-sithara/newsroom-service/internal/services"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

type newsReq struct {
	Title      string   `json:"title" validate:"required,min=3,max=200"`
	Summary    string   `json:"summary" validate:"max=500"`
	Body       string   `json:"body" validate:"required"`
	CategoryID string   `json:"categoryId" validate:"required,mongodb"`
	CoverImage string   `json:"coverImage" validate:"omitempty,url"`
	Tags       []string `json:"tags" validate:"max=20,dive,max=40"`
	Publish    bool     `json:"publish"`
}

type newsPatchReq struct {
	Title      *string   `json:"title" validate:"omitempty,min=3,max=200"`
	Summary    *string   `json:"summary" validate:"omitempty,max=500"`
	Body       *string   `json:"body" validate:"omitempty,min=1"`
	CategoryID *string   `json:"categoryId" validate:"omitempty,mongodb"`
	CoverImage *string   `json:"coverImage" validate:"omitempty,url"`
	Tags       *[]string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

func (r newsPatchReq) update() (repository.NewsUpdate, error) {
	u := repository.NewsUpdate{
		Title:      r.Title,
		Summary:    r.Summary,
		Body:       r.Body,
		CoverImage: r.CoverImage,
		Tags:       r.Tags,
	}
	if r.CategoryID != nil {
		id, err := primitive.ObjectIDFromHex(*r.CategoryID)
		if err != nil {
			return u, services.ErrInvalidInput
		}
		u.CategoryID = &id
	}
	return u, nil
}

// ListNews is the public listing of published posts. Filters: category
// (id), tag, q (title/summary search).
func (h *Handler) ListNews(c *fiber.Ctx) error {
	var f models.NewsFilter
	if cat := c.Query("category"); cat != "" {
		id, err := primitive.ObjectIDFromHex(cat)
		if err != nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "invalid category id")
		}
		f.CategoryID = id
	}
	f.Tag = c.Query("tag")
	f.Search = c.Query("q")

	page, limit := pageParams(c)
	res, err := h.news.ListPublished(c.UserContext(), f, page, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, res)
}

func (h *Handler) GetNewsBySlug(c *fiber.Ctx) error {
	n, err := h.news.GetBySlug(c.UserContext(), c.Params("slug"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, n)
}

func (h *Handler) ListMyNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	page, limit := pageParams(c)
	status := models.NewsStatus(c.Query("status"))
	if status != "" && status != models.NewsDraft && status != models.NewsPublished {
		return utils.JSONError(c, fiber.StatusBadRequest, "status must be draft or published")
	}
	res, err := h.news.ListMine(c.UserContext(), acc, status, page, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, res)
}

func (h *Handler) GetMyNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	n, err := h.news.Get(c.UserContext(), acc, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, n)
}

func (h *Handler) CreateNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	var req newsReq
	if done, err := bind(c, &req); done {
		return err
	}
	n, err := h.news.Create(c.UserContext(), acc, services.NewsInput{
		Title:      req.Title,
		Summary:    req.Summary,
		Body:       req.Body,
		CategoryID: req.CategoryID,
		CoverImage: req.CoverImage,
		Tags:       req.Tags,
		Publish:    req.Publish,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, n)
}

func (h *Handler) UpdateNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	var req newsPatchReq
	if done, err := bind(c, &req); done {
		return err
	}
	u, err := req.update()
	if err != nil {
		return h.respondError(c, err)
	}
	n, err := h.news.Update(c.UserContext(), acc, c.Params("id"), u)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, n)
}

func (h *Handler) PublishNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	n, err := h.news.Publish(c.UserContext(), acc, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, n)
}

func (h *Handler) UnpublishNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	n, err := h.news.Unpublish(c.UserContext(), acc, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, n)
}

func (h *Handler) DeleteNews(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	if err := h.news.Delete(c.UserContext(), acc, c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
