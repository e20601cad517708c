package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

type CategoryRepository struct {
	col *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database, collection string) *CategoryRepository {
	return &CategoryRepository{col: db.Collection(collection)}
}

func (r *CategoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, categoryIndexes())
	return err
}

// categoryIndexes keeps name and slug unique among live categories only,
// so a soft-deleted category frees both for reuse.
func categoryIndexes() []mongo.IndexModel {
	live := bson.M{"isDeleted": false}
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetName("slug_live").SetUnique(true).SetPartialFilterExpression(live)},
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("name_live").SetUnique(true).SetPartialFilterExpression(live)},
	}
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, c)
	return mapWriteErr(err)
}

func (r *CategoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"_id": id, "isDeleted": false})
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	return r.findOne(ctx, bson.M{"slug": slug, "isDeleted": false})
}

func (r *CategoryRepository) findOne(ctx context.Context, filter bson.M) (*models.Category, error) {
	var c models.Category
	if err := r.col.FindOne(ctx, filter).Decode(&c); err != nil {
		return nil, mapFindErr(err)
	}
	return &c, nil
}

// List returns live categories sorted by name.
func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	cur, err := r.col.Find(ctx, bson.M{"isDeleted": false}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the non-nil fields.
func (r *CategoryRepository) Update(ctx context.Context, id primitive.ObjectID, name, slug, description *string) (*models.Category, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if name != nil {
		set["name"] = *name
	}
	if slug != nil {
		set["slug"] = *slug
	}
	if description != nil {
		set["description"] = *description
	}
	var c models.Category
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return nil, mapWriteErr(mapFindErr(err))
	}
	return &c, nil
}

func (r *CategoryRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
