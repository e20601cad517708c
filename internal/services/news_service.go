package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/events"
	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

type NewsInput struct {
	Title      string
	Summary    string
	Body       string
	CategoryID string
	CoverImage string
	Tags       []string
	Publish    bool
}

type NewsService struct {
	repo       NewsRepo
	categories CategoryRepo
	cache      NewsCache
	cacheTTL   time.Duration
	events     events.Publisher
	topic      string
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

func NewNewsService(
	repo NewsRepo,
	categories CategoryRepo,
	cache NewsCache,
	cacheTTL time.Duration,
	publisher events.Publisher,
	topic string,
	m *metrics.Metrics,
	log *zap.Logger,
) *NewsService {
	return &NewsService{
		repo:       repo,
		categories: categories,
		cache:      cache,
		cacheTTL:   cacheTTL,
		events:     publisher,
		topic:      topic,
		metrics:    m,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// canWrite reports whether actor may create news at all.
func canWrite(actor *models.Account) bool {
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleAuthor
}

// canEdit lets admins edit any post and authors only their own.
func canEdit(actor *models.Account, n *models.News) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RoleAuthor && n.AuthorID == actor.ID
}

func (s *NewsService) Create(ctx context.Context, actor *models.Account, in NewsInput) (*models.News, error) {
	if !canWrite(actor) {
		return nil, ErrForbidden
	}
	catID, err := s.checkCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	slug := Slugify(title)
	if slug == "" {
		return nil, fmt.Errorf("%w: title has no usable characters", ErrInvalidInput)
	}

	n := &models.News{
		Title:      title,
		Slug:       slug,
		Summary:    strings.TrimSpace(in.Summary),
		Body:       in.Body,
		CategoryID: catID,
		AuthorID:   actor.ID,
		AuthorRole: actor.Role,
		CoverImage: in.CoverImage,
		Tags:       normalizeTags(in.Tags),
		Status:     models.NewsDraft,
	}
	err = s.repo.Create(ctx, n)
	if errors.Is(err, repository.ErrDuplicate) {
		// same title as an existing post: retry once with a random suffix
		n.ID = primitive.NilObjectID
		n.Slug = slug + "-" + uuid.NewString()[:8]
		err = s.repo.Create(ctx, n)
	}
	if err != nil {
		return nil, mapRepoErr(err)
	}

	if in.Publish {
		return s.publish(ctx, n.ID)
	}
	return n, nil
}

func (s *NewsService) checkCategory(ctx context.Context, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: invalid category id", ErrInvalidInput)
	}
	if _, err := s.categories.FindByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return primitive.NilObjectID, fmt.Errorf("%w: unknown category", ErrInvalidInput)
		}
		return primitive.NilObjectID, err
	}
	return id, nil
}

// Get returns a post by id for its editors, drafts included.
func (s *NewsService) Get(ctx context.Context, actor *models.Account, id string) (*models.News, error) {
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, n) {
		return nil, ErrForbidden
	}
	return n, nil
}

// GetBySlug serves a published post and counts the view. Cache hits bump
// the stored counter without refreshing the cached copy, so the views
// returned from cache lag by at most one TTL.
func (s *NewsService) GetBySlug(ctx context.Context, slug string) (*models.News, error) {
	if n, err := s.cache.GetNews(ctx, slug); err != nil {
		s.log.Warn("news cache read failed", zap.String("slug", slug), zap.Error(err))
	} else if n != nil {
		s.metrics.CacheLookup(true)
		if err := s.repo.IncrementViews(ctx, n.ID); err != nil {
			s.log.Warn("failed to count view", zap.String("slug", slug), zap.Error(err))
		}
		n.Views++
		return n, nil
	}
	s.metrics.CacheLookup(false)

	n, err := s.repo.ViewPublished(ctx, slug)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if err := s.cache.SetNews(ctx, n, s.cacheTTL); err != nil {
		s.log.Warn("news cache write failed", zap.String("slug", slug), zap.Error(err))
	}
	return n, nil
}

// ListPublished is the public listing; the status filter is forced.
func (s *NewsService) ListPublished(ctx context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error) {
	f.Status = models.NewsPublished
	f.AuthorID = primitive.NilObjectID
	return s.repo.List(ctx, f, page, limit)
}

// ListMine lists the actor's own posts in any status.
func (s *NewsService) ListMine(ctx context.Context, actor *models.Account, status models.NewsStatus, page, limit int) (*models.Page[models.News], error) {
	if !canWrite(actor) {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx, models.NewsFilter{AuthorID: actor.ID, Status: status}, page, limit)
}

func (s *NewsService) Update(ctx context.Context, actor *models.Account, id string, u repository.NewsUpdate) (*models.News, error) {
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if Slugify(t) == "" {
			return nil, fmt.Errorf("%w: title has no usable characters", ErrInvalidInput)
		}
		u.Title = &t
	}
	if u.Tags != nil {
		tags := normalizeTags(*u.Tags)
		u.Tags = &tags
	}
	if u.CategoryID != nil {
		if _, err := s.checkCategory(ctx, u.CategoryID.Hex()); err != nil {
			return nil, err
		}
	}
	// the slug is the public URL and stays fixed once created
	u.Slug = nil

	updated, err := s.repo.Update(ctx, n.ID, u)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.invalidate(ctx, n.Slug)
	return updated, nil
}

func (s *NewsService) Publish(ctx context.Context, actor *models.Account, id string) (*models.News, error) {
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, n.ID)
}

func (s *NewsService) publish(ctx context.Context, id primitive.ObjectID) (*models.News, error) {
	n, err := s.repo.Publish(ctx, id, s.now())
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.invalidate(ctx, n.Slug)

	ev := events.Event{
		Type: events.NewsPublished,
		Key:  n.ID.Hex(),
		Data: map[string]any{
			"id":          n.ID.Hex(),
			"slug":        n.Slug,
			"title":       n.Title,
			"authorId":    n.AuthorID.Hex(),
			"categoryId":  n.CategoryID.Hex(),
			"publishedAt": n.PublishedAt,
		},
	}
	if err := s.events.Publish(ctx, s.topic, ev); err != nil {
		s.log.Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
	}
	return n, nil
}

func (s *NewsService) Unpublish(ctx context.Context, actor *models.Account, id string) (*models.News, error) {
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.Unpublish(ctx, n.ID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.invalidate(ctx, n.Slug)
	return out, nil
}

func (s *NewsService) Delete(ctx context.Context, actor *models.Account, id string) error {
	n, err := s.editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, n.ID); err != nil {
		return mapRepoErr(err)
	}
	s.invalidate(ctx, n.Slug)
	return nil
}

func (s *NewsService) editable(ctx context.Context, actor *models.Account, id string) (*models.News, error) {
	if !canWrite(actor) {
		return nil, ErrForbidden
	}
	n, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(actor, n) {
		return nil, ErrForbidden
	}
	return n, nil
}

func (s *NewsService) load(ctx context.Context, id string) (*models.News, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.FindByID(ctx, oid)
	return n, mapRepoErr(err)
}

func (s *NewsService) invalidate(ctx context.Context, slug string) {
	if err := s.cache.InvalidateNews(ctx, slug); err != nil {
		s.log.Warn("news cache invalidate failed", zap.String("slug", slug), zap.Error(err))
	}
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
