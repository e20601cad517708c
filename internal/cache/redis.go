package cache

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

// ErrCodeMismatch is returned when a verification code is wrong or expired.
var ErrCodeMismatch = errors.New("verification code mismatch")

// maxCodeAttempts bounds guesses per issued code.
const maxCodeAttempts = 5

type Client struct {
	Cli    *redis.Client
	prefix string
}

func New(rdb *redis.Client, prefix string) *Client {
	return &Client{Cli: rdb, prefix: prefix}
}

func (c *Client) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// GetNews returns the cached published post for slug. A miss is (nil, nil).
func (c *Client) GetNews(ctx context.Context, slug string) (*models.News, error) {
	b, err := c.Cli.Get(ctx, c.key("news", slug)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var n models.News
	if err := json.Unmarshal(b, &n); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.Cli.Del(ctx, c.key("news", slug)).Err()
		return nil, nil
	}
	return &n, nil
}

func (c *Client) SetNews(ctx context.Context, n *models.News, ttl time.Duration) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal news: %w", err)
	}
	return c.Cli.Set(ctx, c.key("news", n.Slug), b, ttl).Err()
}

func (c *Client) InvalidateNews(ctx context.Context, slugs ...string) error {
	if len(slugs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, c.key("news", s))
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Cli.Del(ctx, keys...).Err()
}

// SetVerifyCode stores a code for email, replacing any previous one and
// resetting its attempt counter.
func (c *Client) SetVerifyCode(ctx context.Context, email, code string, ttl time.Duration) error {
	pipe := c.Cli.TxPipeline()
	pipe.Set(ctx, c.key("verify", email), code, ttl)
	pipe.Del(ctx, c.key("verify", email, "attempts"))
	_, err := pipe.Exec(ctx)
	return err
}

// CheckVerifyCode consumes the code on a match. After maxCodeAttempts
// wrong guesses the code is discarded.
func (c *Client) CheckVerifyCode(ctx context.Context, email, code string) error {
	codeKey := c.key("verify", email)
	attemptsKey := c.key("verify", email, "attempts")

	stored, err := c.Cli.Get(ctx, codeKey).Result()
	if err == redis.Nil {
		return ErrCodeMismatch
	}
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1 {
		return c.Cli.Del(ctx, codeKey, attemptsKey).Err()
	}

	n, err := c.Cli.Incr(ctx, attemptsKey).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		if ttl, err := c.Cli.TTL(ctx, codeKey).Result(); err == nil && ttl > 0 {
			c.Cli.Expire(ctx, attemptsKey, ttl)
		}
	}
	if n >= maxCodeAttempts {
		c.Cli.Del(ctx, codeKey, attemptsKey)
	}
	return ErrCodeMismatch
}

// Allow implements a fixed-window counter: the first hit in a window sets
// its expiry, and hits beyond limit are refused.
func (c *Client) Allow(ctx context.Context, bucket string, limit int, window time.Duration) (bool, error) {
	k := c.key("rl", bucket)
	n, err := c.Cli.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.Cli.Expire(ctx, k, window)
	}
	return n <= int64(limit), nil
}

func (c *Client) Close() error {
	return c.Cli.Close()
}
