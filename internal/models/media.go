package models

import "time"

type Media struct {
	ID          string    `bson:"_id" json:"id"`
	OwnerID     string    `bson:"ownerId" json:"ownerId"`
	Key         string    `bson:"key" json:"key"` // S3 object key
	URL         string    `bson:"url" json:"url"` // empty unless the bucket is public
	Thumbnail   string    `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Type        string    `bson:"type" json:"type"` // image|file
	Size        int64     `bson:"size" json:"size"`
	ContentType string    `bson:"contentType" json:"contentType"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
