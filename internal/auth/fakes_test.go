package auth

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// plainHasher stores "hashed:" + plaintext so tests avoid bcrypt cost.
type plainHasher struct {
	verifyCalls atomic.Int64
}

func (h *plainHasher) Hash(p string) (string, error) { return "hashed:" + p, nil }

func (h *plainHasher) Verify(p, digest string) bool {
	h.verifyCalls.Add(1)
	return digest != "" && digest == "hashed:"+p
}

type memStore struct {
	mu       sync.Mutex
	accounts map[primitive.ObjectID]*models.Account
}

func newMemStore(accounts ...*models.Account) *memStore {
	s := &memStore{accounts: map[primitive.ObjectID]*models.Account{}}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) get(id primitive.ObjectID) *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.accounts[id]
	return &cp
}

func (s *memStore) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) && !a.IsDeleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) with(id primitive.ObjectID, fn func(a *models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(a)
	return nil
}

func (s *memStore) IncrementLoginAttempts(_ context.Context, id primitive.ObjectID) (int, error) {
	var n int
	err := s.with(id, func(a *models.Account) {
		a.LoginAttempts++
		n = a.LoginAttempts
	})
	return n, err
}

func (s *memStore) RestartLoginAttempts(_ context.Context, id primitive.ObjectID, now time.Time) (int, error) {
	var n int
	err := s.with(id, func(a *models.Account) {
		if a.LockUntil != nil && !a.LockUntil.After(now) {
			a.LoginAttempts = 1
			a.LockUntil = nil
		} else {
			a.LoginAttempts++
		}
		n = a.LoginAttempts
	})
	return n, err
}

func (s *memStore) SetLock(_ context.Context, id primitive.ObjectID, until time.Time) error {
	return s.with(id, func(a *models.Account) { a.LockUntil = &until })
}

func (s *memStore) ResetLockout(_ context.Context, id primitive.ObjectID) error {
	return s.with(id, func(a *models.Account) {
		a.LoginAttempts = 0
		a.LockUntil = nil
	})
}

func (s *memStore) RecordLogin(_ context.Context, id primitive.ObjectID, e models.LoginEntry, hash string) error {
	return s.with(id, func(a *models.Account) {
		a.LoginAttempts = 0
		a.LockUntil = nil
		a.RefreshToken = hash
		at := e.At
		a.LastActive = &at
		a.LoginHistory = append(a.LoginHistory, e)
	})
}

func (s *memStore) SetRefreshToken(_ context.Context, id primitive.ObjectID, hash string, last time.Time) error {
	return s.with(id, func(a *models.Account) {
		a.RefreshToken = hash
		a.LastActive = &last
	})
}

func (s *memStore) SetPassword(_ context.Context, id primitive.ObjectID, hash string, at time.Time) error {
	return s.with(id, func(a *models.Account) {
		a.Password = hash
		a.PasswordChangedAt = at
		a.RefreshToken = ""
	})
}

func liveAccount(role models.Role, email, password string, created time.Time) *models.Account {
	return &models.Account{
		ID:                primitive.NewObjectID(),
		Role:              role,
		Email:             email,
		Password:          "hashed:" + password,
		PasswordChangedAt: created,
		IsActive:          true,
		IsVerified:        true,
		CreatedAt:         created,
	}
}
