package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

type MediaRepository struct {
	col *mongo.Collection
}

func NewMediaRepository(db *mongo.Database, collection string) *MediaRepository {
	return &MediaRepository{col: db.Collection(collection)}
}

func (r *MediaRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

func (r *MediaRepository) Insert(ctx context.Context, m *models.Media) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, m)
	return mapWriteErr(err)
}

func (r *MediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	var m models.Media
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, mapFindErr(err)
	}
	return &m, nil
}

func (r *MediaRepository) ListByOwner(ctx context.Context, ownerID string, page, limit int) (*models.Page[models.Media], error) {
	page, limit = Normalize(page, limit)
	filter := bson.M{"ownerId": ownerID}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	cur, err := r.col.Find(ctx, filter, findPage(page, limit, "createdAt"))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]models.Media, 0, limit)
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return &models.Page[models.Media]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
