package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/handlers"
	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
	"github.com/fathima-sithara/newsroom-service/internal/routes"
	"github.com/fathima-sithara/newsroom-service/internal/services"
)

// tokenAuthorizer maps literal bearer tokens to accounts.
type tokenAuthorizer map[string]*models.Account

func (a tokenAuthorizer) Authorize(_ context.Context, token string) (*models.Account, error) {
	acc, ok := a[token]
	if !ok {
		return nil, auth.ErrTokenMalformed
	}
	return acc, nil
}

type stubGate struct {
	mu           sync.Mutex
	loginErr     error
	refreshErr   error
	changeErr    error
	account      *models.Account
	loggedOut    []primitive.ObjectID
	refreshedTok string
}

func (g *stubGate) pair() *auth.TokenPair {
	now := time.Now()
	return &auth.TokenPair{
		AccessToken:      "access-" + g.account.ID.Hex(),
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshToken:     "refresh-" + g.account.ID.Hex(),
		RefreshExpiresAt: now.Add(24 * time.Hour),
	}
}

func (g *stubGate) Login(_ context.Context, email, password, _, _ string) (*auth.LoginResult, error) {
	if g.loginErr != nil {
		return nil, g.loginErr
	}
	return &auth.LoginResult{Account: g.account.View(), Tokens: g.pair()}, nil
}

func (g *stubGate) Refresh(_ context.Context, token string) (*auth.TokenPair, error) {
	g.mu.Lock()
	g.refreshedTok = token
	g.mu.Unlock()
	if g.refreshErr != nil {
		return nil, g.refreshErr
	}
	return g.pair(), nil
}

func (g *stubGate) Logout(_ context.Context, id primitive.ObjectID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loggedOut = append(g.loggedOut, id)
	return nil
}

func (g *stubGate) ChangePassword(context.Context, primitive.ObjectID, string, string) error {
	return g.changeErr
}

type stubAccounts struct {
	err        error
	registered []services.CreateAccountInput
	profile    repository.AccountUpdate
	accounts   map[string]*models.Account
}

func (s *stubAccounts) find(id string) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubAccounts) Create(_ context.Context, role models.Role, in services.CreateAccountInput) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Account{ID: primitive.NewObjectID(), Role: role, Name: in.Name, Email: in.Email, IsActive: true, IsVerified: true}, nil
}

func (s *stubAccounts) Register(_ context.Context, in services.CreateAccountInput) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.registered = append(s.registered, in)
	return &models.Account{ID: primitive.NewObjectID(), Role: models.RoleUser, Name: in.Name, Email: in.Email, Password: "hash", IsActive: true}, nil
}

func (s *stubAccounts) ResendVerification(context.Context, string) error { return s.err }
func (s *stubAccounts) VerifyEmail(context.Context, string, string) error { return s.err }

func (s *stubAccounts) Get(_ context.Context, _ models.Role, id string) (*models.Account, error) {
	return s.find(id)
}

func (s *stubAccounts) List(_ context.Context, _ models.Role, page, limit int, _ string) (*models.Page[models.AccountView], error) {
	if s.err != nil {
		return nil, s.err
	}
	items := make([]models.AccountView, 0, len(s.accounts))
	for _, a := range s.accounts {
		items = append(items, a.View())
	}
	return &models.Page[models.AccountView]{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (s *stubAccounts) UpdateProfile(_ context.Context, _ models.Role, id string, u repository.AccountUpdate) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	s.profile = u
	cp := *a
	if u.Name != nil {
		cp.Name = *u.Name
	}
	if u.Avatar != nil {
		cp.Avatar = *u.Avatar
	}
	return &cp, nil
}

func (s *stubAccounts) SetStatus(_ context.Context, _ models.Role, id string, active, _ *bool) (*models.Account, error) {
	a, err := s.find(id)
	if err != nil {
		return nil, err
	}
	cp := *a
	if active != nil {
		cp.IsActive = *active
	}
	return &cp, nil
}

func (s *stubAccounts) Unlock(_ context.Context, _ models.Role, id string) error {
	_, err := s.find(id)
	return err
}

func (s *stubAccounts) Delete(_ context.Context, _ models.Role, id string) error {
	_, err := s.find(id)
	return err
}

type stubCategories struct{ err error }

func (s *stubCategories) Create(_ context.Context, name, desc string, by primitive.ObjectID) (*models.Category, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Category{ID: primitive.NewObjectID(), Name: name, Slug: services.Slugify(name), Description: desc, CreatedBy: by}, nil
}
func (s *stubCategories) List(context.Context) ([]models.Category, error) {
	return []models.Category{{Name: "Tech", Slug: "tech"}}, s.err
}
func (s *stubCategories) Get(context.Context, string) (*models.Category, error) {
	return nil, services.ErrNotFound
}
func (s *stubCategories) Update(context.Context, string, *string, *string) (*models.Category, error) {
	return nil, s.err
}
func (s *stubCategories) Delete(context.Context, string) error { return s.err }

type stubNews struct {
	err       error
	filter    models.NewsFilter
	input     services.NewsInput
	update    repository.NewsUpdate
	lastActor *models.Account
}

func (s *stubNews) Create(_ context.Context, actor *models.Account, in services.NewsInput) (*models.News, error) {
	s.lastActor, s.input = actor, in
	if s.err != nil {
		return nil, s.err
	}
	return &models.News{ID: primitive.NewObjectID(), Title: in.Title, Slug: services.Slugify(in.Title), AuthorID: actor.ID}, nil
}
func (s *stubNews) Get(_ context.Context, actor *models.Account, _ string) (*models.News, error) {
	s.lastActor = actor
	return nil, s.err
}
func (s *stubNews) GetBySlug(_ context.Context, slug string) (*models.News, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.News{Slug: slug, Status: models.NewsPublished, Views: 1}, nil
}
func (s *stubNews) ListPublished(_ context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error) {
	s.filter = f
	return &models.Page[models.News]{Items: []models.News{}, Page: page, Limit: limit}, s.err
}
func (s *stubNews) ListMine(_ context.Context, actor *models.Account, status models.NewsStatus, page, limit int) (*models.Page[models.News], error) {
	s.lastActor = actor
	s.filter = models.NewsFilter{Status: status}
	return &models.Page[models.News]{Items: []models.News{}, Page: page, Limit: limit}, s.err
}
func (s *stubNews) Update(_ context.Context, actor *models.Account, _ string, u repository.NewsUpdate) (*models.News, error) {
	s.lastActor, s.update = actor, u
	if s.err != nil {
		return nil, s.err
	}
	return &models.News{}, nil
}
func (s *stubNews) Publish(_ context.Context, actor *models.Account, _ string) (*models.News, error) {
	s.lastActor = actor
	if s.err != nil {
		return nil, s.err
	}
	return &models.News{Status: models.NewsPublished}, nil
}
func (s *stubNews) Unpublish(_ context.Context, actor *models.Account, _ string) (*models.News, error) {
	s.lastActor = actor
	return &models.News{Status: models.NewsDraft}, s.err
}
func (s *stubNews) Delete(_ context.Context, actor *models.Account, _ string) error {
	s.lastActor = actor
	return s.err
}

type stubMedia struct {
	err       error
	uploaded  []string
	url       string
	publicURL string
	urlActor  *models.Account
}

func (s *stubMedia) Upload(_ context.Context, owner, name, ct string, data []byte) (*models.Media, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.uploaded = append(s.uploaded, name)
	return &models.Media{ID: "m1", OwnerID: owner, Key: owner + "/" + name, URL: s.publicURL, ContentType: ct, Size: int64(len(data))}, nil
}
func (s *stubMedia) URL(_ context.Context, actor *models.Account, _ string) (string, error) {
	s.urlActor = actor
	return s.url, s.err
}
func (s *stubMedia) ListMine(_ context.Context, _ string, page, limit int) (*models.Page[models.Media], error) {
	return &models.Page[models.Media]{Items: []models.Media{}, Page: page, Limit: limit}, s.err
}
func (s *stubMedia) Delete(context.Context, *models.Account, string) error { return s.err }

type fixture struct {
	app        *fiber.App
	gates      map[models.Role]*stubGate
	accounts   *stubAccounts
	categories *stubCategories
	news       *stubNews
	media      *stubMedia
	metrics    *metrics.Metrics
	admin      *models.Account
	author     *models.Account
	user       *models.Account
}

// Bearer tokens understood by the fixture's authorizer.
const (
	adminToken  = "admin-token"
	authorToken = "author-token"
	userToken   = "user-token"
)

func newFixture() *fixture {
	f := &fixture{
		gates:      map[models.Role]*stubGate{},
		categories: &stubCategories{},
		news:       &stubNews{},
		media:      &stubMedia{url: "https://signed.example/x"},
		metrics:    metrics.New(nil),
		admin:      &models.Account{ID: primitive.NewObjectID(), Role: models.RoleAdmin, Email: "admin@example.com", IsActive: true, IsVerified: true},
		author:     &models.Account{ID: primitive.NewObjectID(), Role: models.RoleAuthor, Email: "author@example.com", IsActive: true, IsVerified: true},
		user:       &models.Account{ID: primitive.NewObjectID(), Role: models.RoleUser, Email: "user@example.com", Password: "secret-hash", IsActive: true, IsVerified: true},
	}
	f.accounts = &stubAccounts{accounts: map[string]*models.Account{
		f.admin.ID.Hex():  f.admin,
		f.author.ID.Hex(): f.author,
		f.user.ID.Hex():   f.user,
	}}

	gates := map[models.Role]handlers.Authenticator{}
	for _, acc := range []*models.Account{f.admin, f.author, f.user} {
		g := &stubGate{account: acc}
		f.gates[acc.Role] = g
		gates[acc.Role] = g
	}

	h := handlers.NewHandler(handlers.Deps{
		Gates:      gates,
		Accounts:   f.accounts,
		Categories: f.categories,
		News:       f.news,
		Media:      f.media,
		MaxUpload:  1 << 20,
		Metrics:    f.metrics,
		Logger:     zap.NewNop(),
	})
	f.app = fiber.New()
	routes.Setup(f.app, h, tokenAuthorizer{
		adminToken:  f.admin,
		authorToken: f.author,
		userToken:   f.user,
	}, nil)
	return f
}
