package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

// RolePath is the URL segment for an account kind: admins, authors, users.
func RolePath(role models.Role) string { return string(role) + "s" }

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates against the role's store. Unknown email and wrong
// password produce the same response.
func (h *Handler) Login(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, ok := h.gates[role]
		if !ok {
			return utils.JSONError(c, fiber.StatusNotFound, "not found")
		}
		var req loginReq
		if done, err := bind(c, &req); done {
			return err
		}

		res, err := g.Login(c.UserContext(), req.Email, req.Password, c.Get(fiber.HeaderUserAgent), c.IP())
		if err != nil {
			outcome, status, msg := loginFailure(err)
			h.metrics.Login(string(role), outcome)
			if status == fiber.StatusInternalServerError {
				h.log.Error("login failed", zap.String("role", string(role)), zap.Error(err))
			}
			return utils.JSONError(c, status, msg)
		}
		h.metrics.Login(string(role), "ok")
		h.setSession(c, role, res.Tokens)
		return utils.JSONSuccess(c, fiber.StatusOK, res)
	}
}

func loginFailure(err error) (outcome string, status int, msg string) {
	switch {
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid", fiber.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, auth.ErrAccountLocked):
		return "locked", fiber.StatusLocked, "account locked, try again later"
	case errors.Is(err, auth.ErrAccountInactive):
		return "inactive", fiber.StatusForbidden, "account is deactivated"
	case errors.Is(err, auth.ErrAccountUnverified):
		return "unverified", fiber.StatusForbidden, "account is not verified"
	}
	return "error", fiber.StatusInternalServerError, "internal server error"
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the session. The token is read from the refresh cookie,
// or from the body for clients without cookie support.
func (h *Handler) Refresh(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, ok := h.gates[role]
		if !ok {
			return utils.JSONError(c, fiber.StatusNotFound, "not found")
		}
		token := c.Cookies(middleware.RefreshCookie)
		if token == "" {
			var req refreshReq
			_ = c.BodyParser(&req)
			token = req.RefreshToken
		}
		if token == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing refresh token")
		}

		pair, err := g.Refresh(c.UserContext(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountInactive):
				return utils.JSONError(c, fiber.StatusForbidden, "account is deactivated")
			case errors.Is(err, auth.ErrAccountUnverified):
				return utils.JSONError(c, fiber.StatusForbidden, "account is not verified")
			case errors.Is(err, auth.ErrTokenExpired),
				errors.Is(err, auth.ErrTokenMalformed),
				errors.Is(err, auth.ErrTokenSignatureInvalid),
				errors.Is(err, auth.ErrTokenRevoked),
				errors.Is(err, auth.ErrNotFound):
				h.clearSession(c, role)
				return utils.JSONError(c, fiber.StatusUnauthorized, "invalid refresh token")
			}
			h.log.Error("refresh failed", zap.String("role", string(role)), zap.Error(err))
			return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
		}
		h.setSession(c, role, pair)
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"tokens": pair})
	}
}

func (h *Handler) Logout(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, ok := h.gates[role]
		acc, authed := middleware.CurrentAccount(c)
		if !ok || !authed {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
		}
		if err := g.Logout(c.UserContext(), acc.ID); err != nil && !errors.Is(err, auth.ErrNotFound) {
			h.log.Error("logout failed", zap.String("account_id", acc.ID.Hex()), zap.Error(err))
			return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
		}
		h.clearSession(c, role)
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
	}
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// ChangePassword ends the session; the caller must log in again.
func (h *Handler) ChangePassword(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g, ok := h.gates[role]
		acc, authed := middleware.CurrentAccount(c)
		if !ok || !authed {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
		}
		var req changePasswordReq
		if done, err := bind(c, &req); done {
			return err
		}
		err := g.ChangePassword(c.UserContext(), acc.ID, req.CurrentPassword, req.NewPassword)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrInvalidCredentials):
			return utils.JSONError(c, fiber.StatusBadRequest, "current password is incorrect")
		case errors.Is(err, auth.ErrNotFound):
			return utils.JSONError(c, fiber.StatusUnauthorized, "invalid token")
		default:
			h.log.Error("change password failed", zap.String("account_id", acc.ID.Hex()), zap.Error(err))
			return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
		}
		h.clearSession(c, role)
		return utils.JSONSuccess(c, fiber.StatusOK, fiber.Map{"message": "password changed, please log in again"})
	}
}

func (h *Handler) setSession(c *fiber.Ctx, role models.Role, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   h.cookies.Domain,
		Expires:  pair.AccessExpiresAt,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:     middleware.RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     refreshPath(role),
		Domain:   h.cookies.Domain,
		Expires:  pair.RefreshExpiresAt,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *Handler) clearSession(c *fiber.Ctx, role models.Role) {
	past := time.Unix(0, 0)
	for name, path := range map[string]string{
		middleware.AccessCookie:  "/",
		middleware.RefreshCookie: refreshPath(role),
	} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			Domain:   h.cookies.Domain,
			Expires:  past,
			Secure:   h.cookies.Secure,
			HTTPOnly: true,
		})
	}
}

// refreshPath scopes the refresh cookie to the role's auth routes.
func refreshPath(role models.Role) string {
	return "/api/v1/" + RolePath(role) + "/auth"
}
