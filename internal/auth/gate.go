package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/models"
	"github.com/fathima-sithara/newsroom-service/internal/repository"
)

// AccountStore is the persistence the gate needs. Counter and lock
// updates are single atomic operations in the store, never
// read-modify-write in the gate.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	IncrementLoginAttempts(ctx context.Context, id primitive.ObjectID) (int, error)
	// RestartLoginAttempts sets the counter to 1 and clears an expired
	// lock, returning the resulting count.
	RestartLoginAttempts(ctx context.Context, id primitive.ObjectID, now time.Time) (int, error)
	SetLock(ctx context.Context, id primitive.ObjectID, until time.Time) error
	ResetLockout(ctx context.Context, id primitive.ObjectID) error
	// RecordLogin appends the history entry, zeroes the lockout fields,
	// stores the refresh token hash and stamps lastActive in one update.
	RecordLogin(ctx context.Context, id primitive.ObjectID, entry models.LoginEntry, refreshHash string) error
	SetRefreshToken(ctx context.Context, id primitive.ObjectID, refreshHash string, lastActive time.Time) error
	SetPassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error
}

type LoginResult struct {
	Account models.AccountView `json:"account"`
	Tokens  *TokenPair         `json:"tokens"`
}

// Gate authenticates one account kind against its store.
type Gate struct {
	role   models.Role
	store  AccountStore
	hasher PasswordHasher
	issuer *TokenIssuer
	policy LockoutPolicy
	clock  Clock
	log    *zap.Logger
	// unknown is a digest of a random secret, verified against when the
	// email is not registered.
	unknown string
}

func NewGate(role models.Role, store AccountStore, hasher PasswordHasher, issuer *TokenIssuer, policy LockoutPolicy, clock Clock, log *zap.Logger) *Gate {
	if clock == nil {
		clock = RealClock()
	}
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gate{
		role:   role,
		store:  store,
		hasher: hasher,
		issuer: issuer,
		policy: policy,
		clock:  clock,
		log:    log.With(zap.String("role", string(role))),
	}
	digest, err := hasher.Hash(uuid.NewString())
	if err != nil {
		g.log.Error("failed to build placeholder digest", zap.Error(err))
	}
	g.unknown = digest
	return g
}

func (g *Gate) Role() models.Role { return g.role }

// Login checks, in order: account exists, not locked, password verifies,
// active, verified. The first failure wins.
func (g *Gate) Login(ctx context.Context, email, password, device, ip string) (*LoginResult, error) {
	acc, err := g.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// unknown emails pay the same hash cost as a wrong password
			g.hasher.Verify(password, g.unknown)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	now := g.clock.Now()
	if g.policy.IsLocked(acc, now) {
		return nil, ErrAccountLocked
	}

	if !g.hasher.Verify(password, acc.Password) {
		if err := g.recordFailure(ctx, acc, now); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if !acc.IsActive {
		return nil, ErrAccountInactive
	}
	if !acc.IsVerified {
		return nil, ErrAccountUnverified
	}

	pair, err := g.issuer.Issue(acc)
	if err != nil {
		return nil, err
	}
	entry := models.LoginEntry{Device: device, IP: ip, At: now}
	if err := g.store.RecordLogin(ctx, acc.ID, entry, HashToken(pair.RefreshToken)); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	acc.LoginAttempts = 0
	acc.LockUntil = nil
	acc.LastActive = &now
	acc.LoginHistory = append(acc.LoginHistory, entry)

	return &LoginResult{Account: acc.View(), Tokens: pair}, nil
}

func (g *Gate) recordFailure(ctx context.Context, acc *models.Account, now time.Time) error {
	var (
		attempts int
		err      error
	)
	if g.policy.LockExpired(acc, now) {
		attempts, err = g.store.RestartLoginAttempts(ctx, acc.ID, now)
	} else {
		attempts, err = g.store.IncrementLoginAttempts(ctx, acc.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to record failed login: %w", err)
	}
	acc.LoginAttempts = attempts

	if g.policy.ShouldLock(attempts) {
		until := g.policy.LockUntil(now)
		if err := g.store.SetLock(ctx, acc.ID, until); err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		acc.LockUntil = &until
		g.log.Warn("account locked",
			zap.String("account_id", acc.ID.Hex()),
			zap.Int("attempts", attempts),
			zap.Time("until", until),
		)
	}
	return nil
}

// Authorize resolves an access token to its live, active account. It
// never mutates state.
func (g *Gate) Authorize(ctx context.Context, token string) (*models.Account, error) {
	claims, err := g.issuer.Verify(strings.TrimSpace(token), AccessToken)
	if err != nil {
		return nil, err
	}
	if claims.Role != g.role {
		return nil, ErrTokenMalformed
	}
	return g.authorizeClaims(ctx, claims)
}

func (g *Gate) authorizeClaims(ctx context.Context, claims *Claims) (*models.Account, error) {
	acc, err := g.load(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if issuedBefore(claims.IssuedAt.Time, acc.PasswordChangedAt) {
		return nil, ErrPasswordChangedSinceIssue
	}
	if !acc.IsActive {
		return nil, ErrAccountInactive
	}
	return acc, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token
// must match the stored hash, and is replaced by the new one.
func (g *Gate) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	token = strings.TrimSpace(token)
	claims, err := g.issuer.Verify(token, RefreshToken)
	if err != nil {
		return nil, err
	}
	acc, err := g.load(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}
	if !tokenMatches(token, acc.RefreshToken) {
		g.log.Warn("refresh token mismatch", zap.String("account_id", acc.ID.Hex()))
		return nil, ErrTokenRevoked
	}
	if !acc.IsActive {
		return nil, ErrAccountInactive
	}
	if !acc.IsVerified {
		return nil, ErrAccountUnverified
	}

	pair, err := g.issuer.Issue(acc)
	if err != nil {
		return nil, err
	}
	if err := g.store.SetRefreshToken(ctx, acc.ID, HashToken(pair.RefreshToken), g.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return pair, nil
}

// Logout clears the stored refresh token. Logging out twice is fine.
func (g *Gate) Logout(ctx context.Context, accountID primitive.ObjectID) error {
	if err := g.store.SetRefreshToken(ctx, accountID, "", g.clock.Now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// ends the current session. Access tokens issued before the change stop
// authorizing.
func (g *Gate) ChangePassword(ctx context.Context, accountID primitive.ObjectID, current, next string) error {
	acc, err := g.load(ctx, accountID.Hex())
	if err != nil {
		return err
	}
	if !g.hasher.Verify(current, acc.Password) {
		return ErrInvalidCredentials
	}
	hash, err := g.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := g.store.SetPassword(ctx, acc.ID, hash, g.clock.Now()); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}
	return nil
}

func (g *Gate) load(ctx context.Context, hexID string) (*models.Account, error) {
	id, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return nil, ErrTokenMalformed
	}
	acc, err := g.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if acc.IsDeleted {
		return nil, ErrNotFound
	}
	return acc, nil
}

// issuedBefore compares at the token's one-second resolution, so a token
// minted in the same second as the change still passes.
func issuedBefore(iat, changedAt time.Time) bool {
	if changedAt.IsZero() {
		return false
	}
	return iat.Unix() < changedAt.Unix()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Directory routes an access token to the gate for the role it carries.
type Directory struct {
	issuer *TokenIssuer
	gates  map[models.Role]*Gate
}

func NewDirectory(issuer *TokenIssuer, gates ...*Gate) *Directory {
	d := &Directory{issuer: issuer, gates: make(map[models.Role]*Gate, len(gates))}
	for _, g := range gates {
		d.gates[g.role] = g
	}
	return d
}

func (d *Directory) Gate(role models.Role) (*Gate, bool) {
	g, ok := d.gates[role]
	return g, ok
}

func (d *Directory) Authorize(ctx context.Context, token string) (*models.Account, error) {
	claims, err := d.issuer.Verify(strings.TrimSpace(token), AccessToken)
	if err != nil {
		return nil, err
	}
	g, ok := d.gates[claims.Role]
	if !ok {
		return nil, ErrTokenMalformed
	}
	return g.authorizeClaims(ctx, claims)
}
