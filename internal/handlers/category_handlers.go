package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

type categoryReq struct {
	Name        string `json:"name" validate:"required,min=2,max=60"`
	Description string `json:"description" validate:"max=300"`
}

type categoryPatchReq struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=60"`
	Description *string `json:"description" validate:"omitempty,max=300"`
}

func (h *Handler) ListCategories(c *fiber.Ctx) error {
	cats, err := h.categories.List(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, cats)
}

func (h *Handler) GetCategory(c *fiber.Ctx) error {
	cat, err := h.categories.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, cat)
}

func (h *Handler) CreateCategory(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	var req categoryReq
	if done, err := bind(c, &req); done {
		return err
	}
	cat, err := h.categories.Create(c.UserContext(), req.Name, req.Description, acc.ID)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c *fiber.Ctx) error {
	var req categoryPatchReq
	if done, err := bind(c, &req); done {
		return err
	}
	cat, err := h.categories.Update(c.UserContext(), c.Params("id"), req.Name, req.Description)
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c *fiber.Ctx) error {
	if err := h.categories.Delete(c.UserContext(), c.Params("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
