package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationInfo      = "info"
	NotificationSuccess   = "success"
	NotificationWarning   = "warning"
	NotificationError     = "error"
	NotificationEmergency = "Emergency"
)

// IsValidNotificationType reports whether t is a known notification type.
func IsValidNotificationType(t string) bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError, NotificationEmergency:
		return true
	}
	return false
}

// Notification is delivered either to one user (UserID) or to every member of a role
// (RecipientRole). UserID wins when both are set.
type Notification struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	UserID        *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	RecipientRole string              `bson:"recipientRole,omitempty" json:"recipientRole,omitempty"`
	Message       string              `bson:"message" json:"message"`
	Type          string              `bson:"type" json:"type"`
	IsRead        bool                `bson:"isRead" json:"isRead"`
	Link          string              `bson:"link,omitempty" json:"link,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// NotificationTarget addresses a notification to a user or a role.
type NotificationTarget struct {
	UserID *primitive.ObjectID
	Role   string
}

func ToUser(id primitive.ObjectID) NotificationTarget {
	return NotificationTarget{UserID: &id}
}

func ToRole(role string) NotificationTarget {
	return NotificationTarget{Role: role}
}

// NotificationPage is the payload of the notifications listing.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unreadCount"`
}
