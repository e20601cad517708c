package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	accountKey = "account"
)

// Authorizer resolves an access token to its account.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*models.Account, error)
}

// Authenticate accepts a Bearer header or the access cookie and stores
// the resolved account in the request locals.
func Authenticate(a Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			token = c.Cookies(AccessCookie)
		}
		if token == "" {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
		}

		acc, err := a.Authorize(c.UserContext(), token)
		if err != nil {
			status, msg := authFailure(err)
			return utils.JSONError(c, status, msg)
		}
		c.Locals(accountKey, acc)
		return c.Next()
	}
}

func BearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func authFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return fiber.StatusUnauthorized, "token expired"
	case errors.Is(err, auth.ErrPasswordChangedSinceIssue):
		return fiber.StatusUnauthorized, "password changed, please log in again"
	case errors.Is(err, auth.ErrTokenMissing),
		errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenSignatureInvalid),
		errors.Is(err, auth.ErrNotFound):
		return fiber.StatusUnauthorized, "invalid token"
	case errors.Is(err, auth.ErrAccountInactive):
		return fiber.StatusForbidden, "account is inactive"
	}
	return fiber.StatusInternalServerError, "authorization failed"
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		acc, ok := CurrentAccount(c)
		if !ok {
			return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
		}
		for _, r := range roles {
			if acc.Role == r {
				return c.Next()
			}
		}
		return utils.JSONError(c, fiber.StatusForbidden, "forbidden")
	}
}

func CurrentAccount(c *fiber.Ctx) (*models.Account, bool) {
	acc, ok := c.Locals(accountKey).(*models.Account)
	return acc, ok && acc != nil
}
