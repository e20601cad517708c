package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

type NewsRepository struct {
	col *mongo.Collection
}

func NewNewsRepository(db *mongo.Database, collection string) *NewsRepository {
	return &NewsRepository{col: db.Collection(collection)}
}

func (r *NewsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "publishedAt", Value: -1}}},
		{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "categoryId", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	return err
}

func (r *NewsRepository) Create(ctx context.Context, n *models.News) error {
	now := time.Now().UTC()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.Status == "" {
		n.Status = models.NewsDraft
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, n)
	return mapWriteErr(err)
}

func (r *NewsRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.News, error) {
	var n models.News
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "isDeleted": false}).Decode(&n); err != nil {
		return nil, mapFindErr(err)
	}
	return &n, nil
}

// ViewPublished loads a published post by slug and bumps its view counter
// in the same operation.
func (r *NewsRepository) ViewPublished(ctx context.Context, slug string) (*models.News, error) {
	var n models.News
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"slug": slug, "status": models.NewsPublished, "isDeleted": false},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &n, nil
}

// IncrementViews bumps the counter for a post served from cache.
func (r *NewsRepository) IncrementViews(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
	return err
}

func (r *NewsRepository) List(ctx context.Context, f models.NewsFilter, page, limit int) (*models.Page[models.News], error) {
	page, limit = Normalize(page, limit)
	filter := newsFilter(f)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortField := "createdAt"
	if f.Status == models.NewsPublished {
		sortField = "publishedAt"
	}
	cur, err := r.col.Find(ctx, filter, findPage(page, limit, sortField))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]models.News, 0, limit)
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return &models.Page[models.News]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func newsFilter(f models.NewsFilter) bson.M {
	filter := bson.M{"isDeleted": false}
	if !f.CategoryID.IsZero() {
		filter["categoryId"] = f.CategoryID
	}
	if !f.AuthorID.IsZero() {
		filter["authorId"] = f.AuthorID
	}
	if f.Tag != "" {
		filter["tags"] = f.Tag
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"title": rx}, bson.M{"summary": rx}}
	}
	return filter
}

// NewsUpdate lists the editable fields; nil means unchanged.
type NewsUpdate struct {
	Title      *string
	Slug       *string
	Summary    *string
	Body       *string
	CategoryID *primitive.ObjectID
	CoverImage *string
	Tags       *[]string
}

func (r *NewsRepository) Update(ctx context.Context, id primitive.ObjectID, u NewsUpdate) (*models.News, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Slug != nil {
		set["slug"] = *u.Slug
	}
	if u.Summary != nil {
		set["summary"] = *u.Summary
	}
	if u.Body != nil {
		set["body"] = *u.Body
	}
	if u.CategoryID != nil {
		set["categoryId"] = *u.CategoryID
	}
	if u.CoverImage != nil {
		set["coverImage"] = *u.CoverImage
	}
	if u.Tags != nil {
		set["tags"] = *u.Tags
	}
	return r.findAndUpdate(ctx, id, bson.M{"$set": set})
}

// Publish moves a draft to published. Publishing twice keeps the first
// publishedAt.
func (r *NewsRepository) Publish(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.News, error) {
	var n models.News
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isDeleted": false, "status": bson.M{"$ne": models.NewsPublished}},
		bson.M{"$set": bson.M{"status": models.NewsPublished, "publishedAt": at, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err == nil {
		return &n, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *NewsRepository) Unpublish(ctx context.Context, id primitive.ObjectID) (*models.News, error) {
	return r.findAndUpdate(ctx, id, bson.M{
		"$set":   bson.M{"status": models.NewsDraft, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"publishedAt": ""},
	})
}

func (r *NewsRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
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

// CountByCategory reports live posts in a category, used before deleting it.
func (r *NewsRepository) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"categoryId": categoryID, "isDeleted": false})
}

func (r *NewsRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.News, error) {
	var n models.News
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isDeleted": false},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		return nil, mapWriteErr(mapFindErr(err))
	}
	return &n, nil
}
