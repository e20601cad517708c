package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fathima-sithara/newsroom-service/internal/handlers"
	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/models"
)

// Setup mounts the API under /api/v1. loginLimit guards the login routes;
// pass nil to disable it.
func Setup(app *fiber.App, h *handlers.Handler, authz middleware.Authorizer, loginLimit fiber.Handler) {
	authed := middleware.Authenticate(authz)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	editors := middleware.RequireRoles(models.RoleAdmin, models.RoleAuthor)
	if loginLimit == nil {
		loginLimit = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1")

	for _, role := range models.Roles {
		kind := api.Group("/" + handlers.RolePath(role))

		a := kind.Group("/auth")
		a.Post("/login", loginLimit, h.Login(role))
		a.Post("/refresh", h.Refresh(role))
		a.Post("/logout", authed, middleware.RequireRoles(role), h.Logout(role))
		a.Post("/change-password", authed, middleware.RequireRoles(role), h.ChangePassword(role))

		if role == models.RoleUser {
			kind.Post("/register", loginLimit, h.Register)
			kind.Post("/verify-email", h.VerifyEmail)
			kind.Post("/resend-verification", loginLimit, h.ResendVerification)
		}

		kind.Get("/", authed, adminOnly, h.ListAccounts(role))
		kind.Post("/", authed, adminOnly, h.CreateAccount(role))
		kind.Get("/:id", authed, adminOnly, h.GetAccount(role))
		kind.Patch("/:id", authed, adminOnly, h.UpdateAccount(role))
		kind.Patch("/:id/status", authed, adminOnly, h.SetAccountStatus(role))
		kind.Post("/:id/unlock", authed, adminOnly, h.UnlockAccount(role))
		kind.Delete("/:id", authed, adminOnly, h.DeleteAccount(role))
	}

	me := api.Group("/me", authed)
	me.Get("/", h.Me)
	me.Patch("/", h.UpdateMe)
	me.Put("/avatar", h.UpdateAvatar)

	cats := api.Group("/categories")
	cats.Get("/", h.ListCategories)
	cats.Get("/:id", h.GetCategory)
	cats.Post("/", authed, adminOnly, h.CreateCategory)
	cats.Patch("/:id", authed, adminOnly, h.UpdateCategory)
	cats.Delete("/:id", authed, adminOnly, h.DeleteCategory)

	news := api.Group("/news")
	news.Get("/", h.ListNews)
	news.Get("/mine", authed, editors, h.ListMyNews)
	news.Get("/mine/:id", authed, editors, h.GetMyNews)
	news.Get("/:slug", h.GetNewsBySlug)
	news.Post("/", authed, editors, h.CreateNews)
	news.Patch("/:id", authed, editors, h.UpdateNews)
	news.Delete("/:id", authed, editors, h.DeleteNews)
	news.Post("/:id/publish", authed, editors, h.PublishNews)
	news.Post("/:id/unpublish", authed, editors, h.UnpublishNews)

	media := api.Group("/media", authed)
	media.Post("/", h.UploadMedia)
	media.Get("/", h.ListMyMedia)
	media.Get("/:id/url", h.MediaURL)
	media.Delete("/:id", h.DeleteMedia)
}
