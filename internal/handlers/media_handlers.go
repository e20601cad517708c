package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

func (h *Handler) UploadMedia(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	name, contentType, data, done, err := h.readUpload(c)
	if done {
		return err
	}
	m, err := h.media.Upload(c.UserContext(), acc.ID.Hex(), name, contentType, data)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, m)
}

func (h *Handler) MediaURL(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	url, err := h.media.URL(c.UserContext(), acc, c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"url": url})
}

func (h *Handler) ListMyMedia(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	page, limit := pageParams(c)
	res, err := h.media.ListMine(c.UserContext(), acc.ID.Hex(), page, limit)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, res)
}

func (h *Handler) DeleteMedia(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	if err := h.media.Delete(c.UserContext(), acc, c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
