package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/newsroom-service/internal/models"
)

// AccountRepository stores one account kind in its own collection.
type AccountRepository struct {
	col  *mongo.Collection
	role models.Role
}

func NewAccountRepository(db *mongo.Database, collection string, role models.Role) *AccountRepository {
	return &AccountRepository{col: db.Collection(collection), role: role}
}

func (r *AccountRepository) Role() models.Role { return r.role }

func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (r *AccountRepository) Create(ctx context.Context, a *models.Account) error {
	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	a.Role = r.role
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.PasswordChangedAt.IsZero() {
		a.PasswordChangedAt = now
	}
	_, err := r.col.InsertOne(ctx, a)
	return mapWriteErr(err)
}

// FindByEmail ignores soft-deleted accounts.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.col.FindOne(ctx, bson.M{"email": email, "isDeleted": false}).Decode(&a)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &a, nil
}

// FindByID returns the account even when soft-deleted; callers check
// IsDeleted.
func (r *AccountRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	var a models.Account
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &a, nil
}

func (r *AccountRepository) List(ctx context.Context, page, limit int, search string) (*models.Page[models.Account], error) {
	page, limit = Normalize(page, limit)
	filter := bson.M{"isDeleted": false}
	if search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{bson.M{"name": rx}, bson.M{"email": rx}}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, err
	}
	cur, err := r.col.Find(ctx, filter, findPage(page, limit, "createdAt"))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	items := make([]models.Account, 0, limit)
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return &models.Page[models.Account]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (r *AccountRepository) IncrementLoginAttempts(ctx context.Context, id primitive.ObjectID) (int, error) {
	return r.counterUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"loginAttempts": 1}})
}

// RestartLoginAttempts only matches while the stored lock is expired. If a
// concurrent request already restarted the window the plain increment is
// applied instead.
func (r *AccountRepository) RestartLoginAttempts(ctx context.Context, id primitive.ObjectID, now time.Time) (int, error) {
	filter := bson.M{"_id": id, "lockUntil": bson.M{"$lte": now}}
	update := bson.M{"$set": bson.M{"loginAttempts": 1, "lockUntil": nil}}
	n, err := r.counterUpdate(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return r.IncrementLoginAttempts(ctx, id)
	}
	return n, err
}

func (r *AccountRepository) counterUpdate(ctx context.Context, filter, update bson.M) (int, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"loginAttempts": 1})
	var out struct {
		LoginAttempts int `bson:"loginAttempts"`
	}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return 0, mapFindErr(err)
	}
	return out.LoginAttempts, nil
}

func (r *AccountRepository) SetLock(ctx context.Context, id primitive.ObjectID, until time.Time) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"lockUntil": until}})
}

func (r *AccountRepository) ResetLockout(ctx context.Context, id primitive.ObjectID) error {
	return r.updateByID(ctx, id, bson.M{"$set": bson.M{"loginAttempts": 0, "lockUntil": nil}})
}

func (r *AccountRepository) RecordLogin(ctx context.Context, id primitive.ObjectID, entry models.LoginEntry, refreshHash string) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{"loginHistory": entry},
		"$set": bson.M{
			"loginAttempts": 0,
			"lockUntil":     nil,
			"refreshToken":  refreshHash,
			"lastActive":    entry.At,
		},
	})
}

// SetRefreshToken stores the hash, or removes it when hash is empty.
func (r *AccountRepository) SetRefreshToken(ctx context.Context, id primitive.ObjectID, refreshHash string, lastActive time.Time) error {
	update := bson.M{"$set": bson.M{"lastActive": lastActive}}
	if refreshHash == "" {
		update["$unset"] = bson.M{"refreshToken": ""}
	} else {
		update["$set"].(bson.M)["refreshToken"] = refreshHash
	}
	return r.updateByID(ctx, id, update)
}

func (r *AccountRepository) SetPassword(ctx context.Context, id primitive.ObjectID, hash string, changedAt time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "passwordChangedAt": changedAt, "updatedAt": changedAt},
		"$unset": bson.M{"refreshToken": ""},
	})
}

// AccountUpdate lists the profile fields a caller may change. Nil fields
// are left alone.
type AccountUpdate struct {
	Name   *string
	Phone  *string
	Bio    *string
	Avatar *string
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, u AccountUpdate) (*models.Account, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Bio != nil {
		set["bio"] = *u.Bio
	}
	if u.Avatar != nil {
		set["avatar"] = *u.Avatar
	}
	return r.findAndSet(ctx, id, set)
}

func (r *AccountRepository) SetStatus(ctx context.Context, id primitive.ObjectID, isActive, isVerified *bool) (*models.Account, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if isActive != nil {
		set["isActive"] = *isActive
	}
	if isVerified != nil {
		set["isVerified"] = *isVerified
	}
	return r.findAndSet(ctx, id, set)
}

func (r *AccountRepository) MarkVerified(ctx context.Context, email string) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"email": email, "isDeleted": false},
		bson.M{"$set": bson.M{"isVerified": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete flags the account and drops its session. Deleting an already
// deleted account reports ErrNotFound.
func (r *AccountRepository) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{
			"$set":   bson.M{"isDeleted": true, "deletedAt": now, "updatedAt": now},
			"$unset": bson.M{"refreshToken": ""},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Account, error) {
	var a models.Account
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "isDeleted": false},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		return nil, mapWriteErr(mapFindErr(err))
	}
	return &a, nil
}

func (r *AccountRepository) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.col.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", r.role, id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
