package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Claims is the payload of both token kinds. Refresh tokens carry only
// the account id.
type Claims struct {
	AccountID string      `json:"accountId"`
	Email     string      `json:"email,omitempty"`
	Role      models.Role `json:"role,omitempty"`
	Kind      TokenKind   `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

type TokenConfig struct {
	Issuer        string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer signs and verifies HS256 tokens. Access and refresh tokens
// use separate secrets so one kind can never pass as the other.
type TokenIssuer struct {
	issuer        string
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         Clock
}

func NewTokenIssuer(cfg TokenConfig, clock Clock) (*TokenIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if clock == nil {
		clock = RealClock()
	}
	return &TokenIssuer{
		issuer:        cfg.Issuer,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		clock:         clock,
	}, nil
}

// Issue mints an access and a refresh token for the account.
func (t *TokenIssuer) Issue(a *models.Account) (*TokenPair, error) {
	access, accessExp, err := t.IssueAccess(a)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := t.IssueRefresh(a)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) IssueAccess(a *models.Account) (string, time.Time, error) {
	claims := t.claims(a.ID.Hex(), AccessToken, t.accessTTL)
	claims.Email = a.Email
	claims.Role = a.Role
	return t.sign(claims, t.accessSecret)
}

func (t *TokenIssuer) IssueRefresh(a *models.Account) (string, time.Time, error) {
	return t.sign(t.claims(a.ID.Hex(), RefreshToken, t.refreshTTL), t.refreshSecret)
}

func (t *TokenIssuer) claims(accountID string, kind TokenKind, ttl time.Duration) *Claims {
	now := t.clock.Now()
	return &Claims{
		AccountID: accountID,
		Kind:      kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
}

func (t *TokenIssuer) sign(c *Claims, secret []byte) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", c.Kind, err)
	}
	return signed, c.ExpiresAt.Time, nil
}

// Verify checks signature, expiry and kind. It never touches the store.
func (t *TokenIssuer) Verify(tokenStr string, kind TokenKind) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}
	secret := t.accessSecret
	if kind == RefreshToken {
		secret = t.refreshSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}
	if claims.Kind != kind || claims.AccountID == "" || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// HashToken returns the hex SHA-256 of a token. Only the hash of a refresh
// token is persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func tokenMatches(token, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(storedHash)) == 1
}
