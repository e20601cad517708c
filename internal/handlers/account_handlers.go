package handlers

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
	"github.com/fathima-sithara/newsroom-service/internal/services"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

type createAccountReq struct {
	Name     string `json:"name" validate:"required,min=2,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Bio      string `json:"bio" validate:"max=500"`
}

func (r createAccountReq) input() services.CreateAccountInput {
	return services.CreateAccountInput{Name: r.Name, Email: r.Email, Phone: r.Phone, Password: r.Password, Bio: r.Bio}
}

type updateProfileReq struct {
	Name  *string `json:"name" validate:"omitempty,min=2,max=80"`
	Phone *string `json:"phone" validate:"omitempty,phone"`
	Bio   *string `json:"bio" validate:"omitempty,max=500"`
}

type statusReq struct {
	IsActive   *bool `json:"isActive"`
	IsVerified *bool `json:"isVerified"`
}

type verifyEmailReq struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type resendReq struct {
	Email string `json:"email" validate:"required,email"`
}

// Register is reader self-registration. The account starts unverified.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req createAccountReq
	if done, err := bind(c, &req); done {
		return err
	}
	acc, err := h.accounts.Register(c.UserContext(), req.input())
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusCreated, fiber.Map{
		"account": acc.View(),
		"message": "verification code sent",
	})
}

func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyEmailReq
	if done, err := bind(c, &req); done {
		return err
	}
	if err := h.accounts.VerifyEmail(c.UserContext(), req.Email, req.Code); err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "email verified"})
}

func (h *Handler) ResendVerification(c *fiber.Ctx) error {
	var req resendReq
	if done, err := bind(c, &req); done {
		return err
	}
	if err := h.accounts.ResendVerification(c.UserContext(), req.Email); err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "verification code sent"})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	return utils.JSONSuccess(c, fiber.StatusOK, acc.View())
}

func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	var req updateProfileReq
	if done, err := bind(c, &req); done {
		return err
	}
	updated, err := h.accounts.UpdateProfile(c.UserContext(), acc.Role, acc.ID.Hex(), repository.AccountUpdate{
		Name: req.Name, Phone: req.Phone, Bio: req.Bio,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, updated.View())
}

// UpdateAvatar uploads an image and points the profile at it. Private
// buckets get the API path that resolves to a presigned URL.
func (h *Handler) UpdateAvatar(c *fiber.Ctx) error {
	acc, _ := middleware.CurrentAccount(c)
	name, contentType, data, done, err := h.readUpload(c)
	if done {
		return err
	}
	if !strings.HasPrefix(services.DetectType(contentType, data), "image/") {
		return utils.JSONError(c, fiber.StatusUnsupportedMediaType, "avatar must be an image")
	}

	m, err := h.media.Upload(c.UserContext(), acc.ID.Hex(), name, contentType, data)
	if err != nil {
		return h.respondError(c, err)
	}
	avatar := m.URL
	if avatar == "" {
		avatar = "/api/v1/media/" + m.ID + "/url"
	}
	updated, err := h.accounts.UpdateProfile(c.UserContext(), acc.Role, acc.ID.Hex(), repository.AccountUpdate{Avatar: &avatar})
	if err != nil {
		return h.respondError(c, err)
	}
	return utils.JSONSuccess(c, fiber.StatusOK, updated.View())
}

// readUpload reads the multipart "file" field, at most maxUpload+1 bytes so
// the service can reject oversize files.
func (h *Handler) readUpload(c *fiber.Ctx) (name, contentType string, data []byte, done bool, err error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, true, utils.JSONError(c, fiber.StatusBadRequest, "file field is required")
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		return "", "", nil, true, h.respondError(c, services.ErrFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, true, utils.JSONError(c, fiber.StatusBadRequest, "unreadable file")
	}
	defer f.Close()

	r := io.Reader(f)
	if h.maxUpload > 0 {
		r = io.LimitReader(f, h.maxUpload+1)
	}
	data, err = io.ReadAll(r)
	if err != nil {
		return "", "", nil, true, utils.JSONError(c, fiber.StatusBadRequest, "unreadable file")
	}
	return fh.Filename, fh.Header.Get(fiber.HeaderContentType), data, false, nil
}

// The handlers below are the admin surface over one account kind.

func (h *Handler) ListAccounts(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, limit := pageParams(c)
		res, err := h.accounts.List(c.UserContext(), role, page, limit, c.Query("q"))
		if err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, res)
	}
}

func (h *Handler) CreateAccount(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createAccountReq
		if done, err := bind(c, &req); done {
			return err
		}
		acc, err := h.accounts.Create(c.UserContext(), role, req.input())
		if err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusCreated, acc.View())
	}
}

func (h *Handler) GetAccount(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, err := h.accounts.Get(c.UserContext(), role, c.Params("id"))
		if err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, acc.View())
	}
}

func (h *Handler) UpdateAccount(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req updateProfileReq
		if done, err := bind(c, &req); done {
			return err
		}
		acc, err := h.accounts.UpdateProfile(c.UserContext(), role, c.Params("id"), repository.AccountUpdate{
			Name: req.Name, Phone: req.Phone, Bio: req.Bio,
		})
		if err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, acc.View())
	}
}

func (h *Handler) SetAccountStatus(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req statusReq
		if done, err := bind(c, &req); done {
			return err
		}
		if req.IsActive == nil && req.IsVerified == nil {
			return utils.JSONError(c, fiber.StatusBadRequest, "isActive or isVerified is required")
		}
		acc, err := h.accounts.SetStatus(c.UserContext(), role, c.Params("id"), req.IsActive, req.IsVerified)
		if err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, acc.View())
	}
}

func (h *Handler) UnlockAccount(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := h.accounts.Unlock(c.UserContext(), role, c.Params("id")); err != nil {
			return h.respondError(c, err)
		}
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "account unlocked"})
	}
}

func (h *Handler) DeleteAccount(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if acc, _ := middleware.CurrentAccount(c); acc != nil && acc.Role == role && acc.ID.Hex() == c.Params("id") {
			return utils.JSONError(c, fiber.StatusBadRequest, "cannot delete your own account")
		}
		if err := h.accounts.Delete(c.UserContext(), role, c.Params("id")); err != nil {
			return h.respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
