package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Community post tags
const (
	TagAlert  = "Alert"
	TagEvent  = "Event"
	TagUpdate = "Update"
	TagNews   = "News"
	TagNotice = "Notice"
)

func IsValidPostTag(tag string) bool {
	switch tag {
	case TagAlert, TagEvent, TagUpdate, TagNews, TagNotice:
		return true
	}
	return false
}

type CommunityPost struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title      string             `bson:"title" json:"title"`
	Content    string             `bson:"content" json:"content"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
	Author     primitive.ObjectID `bson:"author" json:"author"`
	AuthorName string             `bson:"authorName" json:"authorName"`
	Role       string             `bson:"role" json:"role"`
	Tag        string             `bson:"tag" json:"tag"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Note is a citizen's personal dated reminder.
type Note struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Content   string             `bson:"content" json:"content"`
	Date      time.Time          `bson:"date" json:"date"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
