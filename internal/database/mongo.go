package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectMongo dials and pings Mongo, retrying with exponential backoff
// until maxWait elapses. The returned client must be disconnected by the
// caller.
func ConnectMongo(ctx context.Context, uri, dbName string, maxWait time.Duration, logger *zap.Logger) (*mongo.Database, *mongo.Client, error) {
	var client *mongo.Client

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(attemptCtx, options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := c.Ping(attemptCtx, nil); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	notify := func(err error, wait time.Duration) {
		logger.Warn("mongo not ready, retrying", zap.Error(err), zap.Duration("in", wait))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	logger.Info("MongoDB connected successfully", zap.String("database", dbName))
	return client.Database(dbName), client, nil
}
