package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NewsStatus string

const (
	NewsDraft     NewsStatus = "draft"
	NewsPublished NewsStatus = "published"
)

type News struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Summary     string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Body        string             `bson:"body" json:"body"`
	CategoryID  primitive.ObjectID `bson:"categoryId" json:"categoryId"`
	AuthorID    primitive.ObjectID `bson:"authorId" json:"authorId"`
	AuthorRole  Role               `bson:"authorRole" json:"authorRole"`
	CoverImage  string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	Status      NewsStatus         `bson:"status" json:"status"`
	PublishedAt *time.Time         `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
	Views       int64              `bson:"views" json:"views"`
	IsDeleted   bool               `bson:"isDeleted" json:"-"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// NewsFilter narrows a news listing. Zero fields are ignored.
type NewsFilter struct {
	CategoryID primitive.ObjectID
	AuthorID   primitive.ObjectID
	Tag        string
	Status     NewsStatus
	Search     string
}
