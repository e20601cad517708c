package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

var (
	ErrAlreadyExists           = errors.New("resource with this email, phone or slug already exists")
	ErrNotFound                = errors.New("resource not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidVerificationCode = errors.New("invalid or expired verification code")
	ErrAlreadyVerified         = errors.New("account already verified")
	ErrCategoryInUse           = errors.New("category still has news")
	ErrUnsupportedMedia        = errors.New("unsupported media type")
	ErrFileTooLarge            = errors.New("file too large")
	ErrStorageUnavailable      = errors.New("media storage unavailable")
)

// AccountRepo is the per-kind account persistence used outside the login
// path.
type AccountRepo interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, page, limit int, search string) (*models.Page[models.Account], error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, u repository.AccountUpdate) (*models.Account, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, isActive, isVerified *bool) (*models.Account, error)
	ResetLockout(ctx context.Context, id primitive.ObjectID) error
	MarkVerified(ctx context.Context, email string) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

type CodeStore interface {
	SetVerifyCode(ctx context.Context, email, code string, ttl time.Duration) error
	CheckVerifyCode(ctx context.Context, email, code string) error
}

type CategoryRepo interface {
	Create(ctx context.Context, c *models.Category) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, name, slug, description *string) (*models.Category, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
}

type NewsRepo interface {
	Create(ctx context.Context, n *models.News) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.News, error)
	ViewPublished(ctx context.Context, slug string) (*models.News, error)
	IncrementViews(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error)
	Update(ctx context.Context, id primitive.ObjectID, u repository.NewsUpdate) (*models.News, error)
	Publish(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.News, error)
	Unpublish(ctx context.Context, id primitive.ObjectID) (*models.News, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error)
}

type NewsCache interface {
	GetNews(ctx context.Context, slug string) (*models.News, error)
	SetNews(ctx context.Context, n *models.News, ttl time.Duration) error
	InvalidateNews(ctx context.Context, slugs ...string) error
}

type MediaRepo interface {
	Insert(ctx context.Context, m *models.Media) error
	GetByID(ctx context.Context, id string) (*models.Media, error)
	ListByOwner(ctx context.Context, ownerID string, page, limit int) (*models.Page[models.Media], error)
	Delete(ctx context.Context, id string) error
}

type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// mapRepoErr converts repository sentinels to service sentinels.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrAlreadyExists
	}
	return err
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return id, nil
}
