package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/auth"
	"github.com/fathima-sithara/newsroom-service/internal/cache"
	"github.com/fathima-sithara/newsroom-service/internal/events"
	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

const verifyCodeDigits = 6

type CreateAccountInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Bio      string
}

// AccountService manages admins, authors and users outside of login.
type AccountService struct {
	repos   map[models.Role]AccountRepo
	hasher  auth.PasswordHasher
	codes   CodeStore
	events  events.Publisher
	topic   string
	codeTTL time.Duration
	log     *zap.Logger
}

func NewAccountService(
	repos map[models.Role]AccountRepo,
	hasher auth.PasswordHasher,
	codes CodeStore,
	publisher events.Publisher,
	topic string,
	codeTTL time.Duration,
	log *zap.Logger,
) *AccountService {
	return &AccountService{
		repos:   repos,
		hasher:  hasher,
		codes:   codes,
		events:  publisher,
		topic:   topic,
		codeTTL: codeTTL,
		log:     log,
	}
}

func (s *AccountService) repo(role models.Role) (AccountRepo, error) {
	r, ok := s.repos[role]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Create is the administrative path: the account starts active and
// verified.
func (s *AccountService) Create(ctx context.Context, role models.Role, in CreateAccountInput) (*models.Account, error) {
	return s.create(ctx, role, in, true)
}

func (s *AccountService) create(ctx context.Context, role models.Role, in CreateAccountInput, verified bool) (*models.Account, error) {
	repo, err := s.repo(role)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &models.Account{
		Name:       strings.TrimSpace(in.Name),
		Email:      auth.NormalizeEmail(in.Email),
		Phone:      strings.TrimSpace(in.Phone),
		Bio:        in.Bio,
		Password:   hash,
		IsActive:   true,
		IsVerified: verified,
	}
	if err := repo.Create(ctx, a); err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

// Register self-registers a reader. The account stays unverified until
// VerifyEmail succeeds with the code published in the
// account.verification_requested event.
func (s *AccountService) Register(ctx context.Context, in CreateAccountInput) (*models.Account, error) {
	a, err := s.create(ctx, models.RoleUser, in, false)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.AccountRegistered, a.ID.Hex(), map[string]any{
		"accountId": a.ID.Hex(),
		"email":     a.Email,
		"role":      a.Role,
	})
	if err := s.sendCode(ctx, a); err != nil {
		// the account exists; the reader can ask for a new code
		s.log.Warn("failed to issue verification code", zap.String("email", a.Email), zap.Error(err))
	}
	return a, nil
}

// ResendVerification issues a fresh code for an unverified reader.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	repo, err := s.repo(models.RoleUser)
	if err != nil {
		return err
	}
	a, err := repo.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return mapRepoErr(err)
	}
	if a.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendCode(ctx, a)
}

func (s *AccountService) sendCode(ctx context.Context, a *models.Account) error {
	code, err := generateCode(verifyCodeDigits)
	if err != nil {
		return err
	}
	if err := s.codes.SetVerifyCode(ctx, a.Email, code, s.codeTTL); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	s.publish(ctx, events.VerificationRequested, a.ID.Hex(), map[string]any{
		"accountId": a.ID.Hex(),
		"email":     a.Email,
		"name":      a.Name,
		"code":      code,
		"expiresAt": time.Now().UTC().Add(s.codeTTL),
	})
	return nil
}

func (s *AccountService) VerifyEmail(ctx context.Context, email, code string) error {
	email = auth.NormalizeEmail(email)
	if err := s.codes.CheckVerifyCode(ctx, email, strings.TrimSpace(code)); err != nil {
		if errors.Is(err, cache.ErrCodeMismatch) {
			return ErrInvalidVerificationCode
		}
		return err
	}
	repo, err := s.repo(models.RoleUser)
	if err != nil {
		return err
	}
	return mapRepoErr(repo.MarkVerified(ctx, email))
}

func (s *AccountService) Get(ctx context.Context, role models.Role, id string) (*models.Account, error) {
	repo, err := s.repo(role)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := repo.FindByID(ctx, oid)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if a.IsDeleted {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, role models.Role, page, limit int, search string) (*models.Page[models.AccountView], error) {
	repo, err := s.repo(role)
	if err != nil {
		return nil, err
	}
	res, err := repo.List(ctx, page, limit, strings.TrimSpace(search))
	if err != nil {
		return nil, err
	}
	views := make([]models.AccountView, 0, len(res.Items))
	for i := range res.Items {
		views = append(views, res.Items[i].View())
	}
	return &models.Page[models.AccountView]{Items: views, Total: res.Total, Page: res.Page, Limit: res.Limit}, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, role models.Role, id string, u repository.AccountUpdate) (*models.Account, error) {
	repo, err := s.repo(role)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	a, err := repo.UpdateProfile(ctx, oid, u)
	return a, mapRepoErr(err)
}

func (s *AccountService) SetStatus(ctx context.Context, role models.Role, id string, isActive, isVerified *bool) (*models.Account, error) {
	repo, err := s.repo(role)
	if err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	a, err := repo.SetStatus(ctx, oid, isActive, isVerified)
	return a, mapRepoErr(err)
}

// Unlock clears a lockout before it expires.
func (s *AccountService) Unlock(ctx context.Context, role models.Role, id string) error {
	repo, err := s.repo(role)
	if err != nil {
		return err
	}
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return mapRepoErr(repo.ResetLockout(ctx, oid))
}

func (s *AccountService) Delete(ctx context.Context, role models.Role, id string) error {
	repo, err := s.repo(role)
	if err != nil {
		return err
	}
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	return mapRepoErr(repo.SoftDelete(ctx, oid))
}

func (s *AccountService) publish(ctx context.Context, typ, key string, data any) {
	if err := s.events.Publish(ctx, s.topic, events.Event{Type: typ, Key: key, Data: data}); err != nil {
		s.log.Warn("event publish failed", zap.String("type", typ), zap.Error(err))
	}
}

func generateCode(digits int) (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < digits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
