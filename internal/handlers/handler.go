package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
	"github.com/fathima-sithara/newsroom-service/internal/services"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

// Authenticator is the login surface of one account kind. *auth.Gate
// implements it.
type Authenticator interface {
	Login(ctx context.Context, email, password, device, ip string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, token string) (*auth.TokenPair, error)
	Logout(ctx context.Context, accountID primitive.ObjectID) error
	ChangePassword(ctx context.Context, accountID primitive.ObjectID, current, next string) error
}

type AccountService interface {
	Create(ctx context.Context, role models.Role, in services.CreateAccountInput) (*models.Account, error)
	Register(ctx context.Context, in services.CreateAccountInput) (*models.Account, error)
	ResendVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, email, code string) error
	Get(ctx context.Context, role models.Role, id string) (*models.Account, error)
	List(ctx context.Context, role models.Role, page, limit int, search string) (*models.Page[models.AccountView], error)
	UpdateProfile(ctx context.Context, role models.Role, id string, u repository.AccountUpdate) (*models.Account, error)
	SetStatus(ctx context.Context, role models.Role, id string, isActive, isVerified *bool) (*models.Account, error)
	Unlock(ctx context.Context, role models.Role, id string) error
	Delete(ctx context.Context, role models.Role, id string) error
}

type CategoryService interface {
	Create(ctx context.Context, name, description string, createdBy primitive.ObjectID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Update(ctx context.Context, id string, name, description *string) (*models.Category, error)
	Delete(ctx context.Context, id string) error
}

type NewsService interface {
	Create(ctx context.Context, actor *models.Account, in services.NewsInput) (*models.News, error)
	Get(ctx context.Context, actor *models.Account, id string) (*models.News, error)
	GetBySlug(ctx context.Context, slug string) (*models.News, error)
	ListPublished(ctx context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error)
	ListMine(ctx context.Context, actor *models.Account, status models.NewsStatus, page, limit int) (*models.Page[models.News], error)
	Update(ctx context.Context, actor *models.Account, id string, u repository.NewsUpdate) (*models.News, error)
	Publish(ctx context.Context, actor *models.Account, id string) (*models.News, error)
	Unpublish(ctx context.Context, actor *models.Account, id string) (*models.News, error)
	Delete(ctx context.Context, actor *models.Account, id string) error
}

type MediaService interface {
	Upload(ctx context.Context, ownerID, filename, contentType string, data []byte) (*models.Media, error)
	URL(ctx context.Context, actor *models.Account, id string) (string, error)
	ListMine(ctx context.Context, ownerID string, page, limit int) (*models.Page[models.Media], error)
	Delete(ctx context.Context, actor *models.Account, id string) error
}

type CookieOptions struct {
	Secure bool
	Domain string
}

type Handler struct {
	gates      map[models.Role]Authenticator
	accounts   AccountService
	categories CategoryService
	news       NewsService
	media      MediaService
	cookies    CookieOptions
	maxUpload  int64
	metrics    *metrics.Metrics
	log        *zap.Logger
}

type Deps struct {
	Gates      map[models.Role]Authenticator
	Accounts   AccountService
	Categories CategoryService
	News       NewsService
	Media      MediaService
	Cookies    CookieOptions
	MaxUpload  int64
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		gates:      d.Gates,
		accounts:   d.Accounts,
		categories: d.Categories,
		news:       d.News,
		media:      d.Media,
		cookies:    d.Cookies,
		maxUpload:  d.MaxUpload,
		metrics:    d.Metrics,
		log:        log,
	}
}

// Health is the liveness probe used by Consul.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
}

// respondError maps service errors to status codes. Anything unknown is
// logged and reported as a 500 without detail.
func (h *Handler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.JSONError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrAlreadyExists):
		return utils.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrForbidden):
		return utils.JSONError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrInvalidInput):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidVerificationCode):
		return utils.JSONError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAlreadyVerified), errors.Is(err, services.ErrCategoryInUse):
		return utils.JSONError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUnsupportedMedia):
		return utils.JSONError(c, fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, services.ErrFileTooLarge):
		return utils.JSONError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrStorageUnavailable):
		return utils.JSONError(c, fiber.StatusServiceUnavailable, err.Error())
	}
	h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return utils.JSONError(c, fiber.StatusInternalServerError, "internal server error")
}

// bind parses and validates the body into dst. When it reports done the
// error response has already been written.
func bind(c *fiber.Ctx, dst interface{}) (done bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return true, utils.JSONError(c, fiber.StatusBadRequest, "invalid body")
	}
	if err := utils.Validate(dst); err != nil {
		return true, utils.JSONValidation(c, err)
	}
	return false, nil
}

func pageParams(c *fiber.Ctx) (int, int) {
	return c.QueryInt("page", 1), c.QueryInt("limit", repository.DefaultPageSize)
}
