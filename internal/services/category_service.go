package services

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

type CategoryService struct {
	repo CategoryRepo
	news NewsRepo
}

func NewCategoryService(repo CategoryRepo, news NewsRepo) *CategoryService {
	return &CategoryService{repo: repo, news: news}
}

func (s *CategoryService) Create(ctx context.Context, name, description string, createdBy primitive.ObjectID) (*models.Category, error) {
	name = strings.TrimSpace(name)
	slug := Slugify(name)
	if slug == "" {
		return nil, ErrInvalidInput
	}
	c := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(description),
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, mapRepoErr(err)
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.repo.List(ctx)
}

// Get accepts an id or a slug.
func (s *CategoryService) Get(ctx context.Context, idOrSlug string) (*models.Category, error) {
	if oid, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		c, err := s.repo.FindByID(ctx, oid)
		return c, mapRepoErr(err)
	}
	c, err := s.repo.FindBySlug(ctx, idOrSlug)
	return c, mapRepoErr(err)
}

// Update renames a category; the slug follows the name.
func (s *CategoryService) Update(ctx context.Context, id string, name, description *string) (*models.Category, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var slug *string
	if name != nil {
		n := strings.TrimSpace(*name)
		sl := Slugify(n)
		if sl == "" {
			return nil, ErrInvalidInput
		}
		name, slug = &n, &sl
	}
	c, err := s.repo.Update(ctx, oid, name, slug, description)
	return c, mapRepoErr(err)
}

// Delete refuses while live news still reference the category.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	n, err := s.news.CountByCategory(ctx, oid)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrCategoryInUse
	}
	return mapRepoErr(s.repo.SoftDelete(ctx, oid))
}
