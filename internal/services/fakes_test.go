package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/newsroom-service/internal/cache"
	"github.com/fathima-sithara/newsroom-service/internal/events"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

type stubHasher struct{}

func (stubHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }
func (stubHasher) Verify(p, d string) bool       { return d == "hashed:"+p }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) ofType(typ string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type memCodes struct {
	codes map[string]string
}

func newMemCodes() *memCodes { return &memCodes{codes: map[string]string{}} }

func (m *memCodes) SetVerifyCode(_ context.Context, email, code string, _ time.Duration) error {
	m.codes[email] = code
	return nil
}

func (m *memCodes) CheckVerifyCode(_ context.Context, email, code string) error {
	if c, ok := m.codes[email]; ok && c == code {
		delete(m.codes, email)
		return nil
	}
	return cache.ErrCodeMismatch
}

type memAccounts struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Account
	role models.Role
}

func newMemAccounts(role models.Role) *memAccounts {
	return &memAccounts{byID: map[primitive.ObjectID]*models.Account{}, role: role}
}

func (m *memAccounts) Create(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == a.Email || (a.Phone != "" && x.Phone == a.Phone) {
			return repository.ErrDuplicate
		}
	}
	a.ID = primitive.NewObjectID()
	a.Role = m.role
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAccounts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email && !a.IsDeleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAccounts) List(_ context.Context, page, limit int, search string) (*models.Page[models.Account], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, limit = repository.Normalize(page, limit)
	var items []models.Account
	for _, a := range m.byID {
		if a.IsDeleted {
			continue
		}
		if search != "" && !strings.Contains(a.Email, search) && !strings.Contains(a.Name, search) {
			continue
		}
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Email < items[j].Email })
	return &models.Page[models.Account]{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (m *memAccounts) live(id primitive.ObjectID) (*models.Account, error) {
	a, ok := m.byID[id]
	if !ok || a.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) UpdateProfile(_ context.Context, id primitive.ObjectID, u repository.AccountUpdate) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.live(id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Phone != nil {
		a.Phone = *u.Phone
	}
	if u.Bio != nil {
		a.Bio = *u.Bio
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) SetStatus(_ context.Context, id primitive.ObjectID, active, verified *bool) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.live(id)
	if err != nil {
		return nil, err
	}
	if active != nil {
		a.IsActive = *active
	}
	if verified != nil {
		a.IsVerified = *verified
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) ResetLockout(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.live(id)
	if err != nil {
		return err
	}
	a.LoginAttempts = 0
	a.LockUntil = nil
	return nil
}

func (m *memAccounts) MarkVerified(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email && !a.IsDeleted {
			a.IsVerified = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memAccounts) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.live(id)
	if err != nil {
		return err
	}
	a.IsDeleted = true
	a.RefreshToken = ""
	return nil
}

type memCategories struct {
	byID map[primitive.ObjectID]*models.Category
}

func newMemCategories(cats ...*models.Category) *memCategories {
	m := &memCategories{byID: map[primitive.ObjectID]*models.Category{}}
	for _, c := range cats {
		m.byID[c.ID] = c
	}
	return m
}

func (m *memCategories) Create(_ context.Context, c *models.Category) error {
	for _, x := range m.byID {
		if x.Slug == c.Slug || x.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	c.ID = primitive.NewObjectID()
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCategories) FindByID(_ context.Context, id primitive.ObjectID) (*models.Category, error) {
	c, ok := m.byID[id]
	if !ok || c.IsDeleted {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCategories) FindBySlug(_ context.Context, slug string) (*models.Category, error) {
	for _, c := range m.byID {
		if c.Slug == slug && !c.IsDeleted {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCategories) List(context.Context) ([]models.Category, error) {
	out := []models.Category{}
	for _, c := range m.byID {
		if !c.IsDeleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCategories) Update(_ context.Context, id primitive.ObjectID, name, slug, desc *string) (*models.Category, error) {
	c, ok := m.byID[id]
	if !ok || c.IsDeleted {
		return nil, repository.ErrNotFound
	}
	if name != nil {
		c.Name = *name
	}
	if slug != nil {
		c.Slug = *slug
	}
	if desc != nil {
		c.Description = *desc
	}
	cp := *c
	return &cp, nil
}

func (m *memCategories) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	c, ok := m.byID[id]
	if !ok || c.IsDeleted {
		return repository.ErrNotFound
	}
	c.IsDeleted = true
	return nil
}

type memNews struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.News
}

func newMemNews() *memNews { return &memNews{byID: map[primitive.ObjectID]*models.News{}} }

func (m *memNews) Create(_ context.Context, n *models.News) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Slug == n.Slug {
			return repository.ErrDuplicate
		}
	}
	n.ID = primitive.NewObjectID()
	cp := *n
	m.byID[n.ID] = &cp
	return nil
}

func (m *memNews) get(id primitive.ObjectID) (*models.News, error) {
	n, ok := m.byID[id]
	if !ok || n.IsDeleted {
		return nil, repository.ErrNotFound
	}
	return n, nil
}

func (m *memNews) FindByID(_ context.Context, id primitive.ObjectID) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(id)
	if err != nil {
		return nil, err
	}
	cp := *n
	return &cp, nil
}

func (m *memNews) ViewPublished(_ context.Context, slug string) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.byID {
		if n.Slug == slug && n.Status == models.NewsPublished && !n.IsDeleted {
			n.Views++
			cp := *n
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memNews) IncrementViews(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.byID[id]; ok {
		n.Views++
	}
	return nil
}

func (m *memNews) List(_ context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, limit = repository.Normalize(page, limit)
	var items []models.News
	for _, n := range m.byID {
		if n.IsDeleted {
			continue
		}
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		if !f.AuthorID.IsZero() && n.AuthorID != f.AuthorID {
			continue
		}
		if !f.CategoryID.IsZero() && n.CategoryID != f.CategoryID {
			continue
		}
		items = append(items, *n)
	}
	return &models.Page[models.News]{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (m *memNews) Update(_ context.Context, id primitive.ObjectID, u repository.NewsUpdate) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Slug != nil {
		n.Slug = *u.Slug
	}
	if u.Body != nil {
		n.Body = *u.Body
	}
	if u.Summary != nil {
		n.Summary = *u.Summary
	}
	if u.CategoryID != nil {
		n.CategoryID = *u.CategoryID
	}
	if u.Tags != nil {
		n.Tags = *u.Tags
	}
	cp := *n
	return &cp, nil
}

func (m *memNews) Publish(_ context.Context, id primitive.ObjectID, at time.Time) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if n.Status != models.NewsPublished {
		n.Status = models.NewsPublished
		n.PublishedAt = &at
	}
	cp := *n
	return &cp, nil
}

func (m *memNews) Unpublish(_ context.Context, id primitive.ObjectID) (*models.News, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(id)
	if err != nil {
		return nil, err
	}
	n.Status = models.NewsDraft
	n.PublishedAt = nil
	cp := *n
	return &cp, nil
}

func (m *memNews) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.get(id)
	if err != nil {
		return err
	}
	n.IsDeleted = true
	return nil
}

func (m *memNews) CountByCategory(_ context.Context, cat primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.byID {
		if n.CategoryID == cat && !n.IsDeleted {
			c++
		}
	}
	return c, nil
}

type memNewsCache struct {
	entries     map[string]models.News
	invalidated []string
}

func newMemNewsCache() *memNewsCache { return &memNewsCache{entries: map[string]models.News{}} }

func (c *memNewsCache) GetNews(_ context.Context, slug string) (*models.News, error) {
	n, ok := c.entries[slug]
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (c *memNewsCache) SetNews(_ context.Context, n *models.News, _ time.Duration) error {
	c.entries[n.Slug] = *n
	return nil
}

func (c *memNewsCache) InvalidateNews(_ context.Context, slugs ...string) error {
	for _, s := range slugs {
		delete(c.entries, s)
		c.invalidated = append(c.invalidated, s)
	}
	return nil
}

type memMedia struct {
	byID      map[string]*models.Media
	insertErr error
}

func newMemMedia() *memMedia { return &memMedia{byID: map[string]*models.Media{}} }

func (m *memMedia) Insert(_ context.Context, x *models.Media) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	cp := *x
	m.byID[x.ID] = &cp
	return nil
}

func (m *memMedia) GetByID(_ context.Context, id string) (*models.Media, error) {
	x, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *x
	return &cp, nil
}

func (m *memMedia) ListByOwner(_ context.Context, owner string, page, limit int) (*models.Page[models.Media], error) {
	var items []models.Media
	for _, x := range m.byID {
		if x.OwnerID == owner {
			items = append(items, *x)
		}
	}
	return &models.Page[models.Media]{Items: items, Total: int64(len(items)), Page: page, Limit: limit}, nil
}

func (m *memMedia) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memObjects struct {
	objects map[string][]byte
	types   map[string]string
	public  bool
	err     error
}

func newMemObjects(public bool) *memObjects {
	return &memObjects{objects: map[string][]byte{}, types: map[string]string{}, public: public}
}

func (o *memObjects) Put(_ context.Context, key, ct string, data []byte) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	o.objects[key] = data
	o.types[key] = ct
	if o.public {
		return "https://cdn.example/" + key, nil
	}
	return "", nil
}

func (o *memObjects) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key + "?ttl=" + ttl.String(), nil
}

func (o *memObjects) Delete(_ context.Context, key string) error {
	delete(o.objects, key)
	return nil
}

func (m *memAccounts) with(id primitive.ObjectID, fn func(a *models.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	return nil
}
