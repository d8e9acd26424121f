// Package store persists complaints, notifications, users, community posts and notes.
// Two implementations exist: MongoDB for deployments and an in-memory one for tests
// and local demos (STORAGE_DRIVER=memory).
package store

import (
	"context"
	"errors"
	"time"

	"civicconnect/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicateKey is returned when a unique field (complaintId, userEmail) collides.
var ErrDuplicateKey = errors.New("duplicate key")

// Collection names
const (
	ComplaintsCollection     = "complaints"
	NotificationsCollection  = "notifications"
	UsersCollection          = "users"
	CommunityPostsCollection = "community_posts"
	NotesCollection          = "notes"
)

// Complaint sort orders
const (
	SortNewest       = "newest"
	SortAIPriority   = "ai_priority"
	SortResolvedDate = "resolved_date"
)

// ComplaintFilter narrows complaint listings and aggregations. Zero values match all.
type ComplaintFilter struct {
	UserID     *primitive.ObjectID
	Department string
	Status     string
	SortBy     string
	Limit      int64
}

type ComplaintStore interface {
	// Insert stores a new complaint, setting its ID and version.
	Insert(ctx context.Context, c *models.Complaint) error
	// Get resolves either a complaintId or a hex storage id.
	Get(ctx context.Context, id string) (*models.Complaint, error)
	// Update replaces the stored document if its version still equals c.Version and
	// increments c.Version. A stale version yields domain.ErrConflict.
	Update(ctx context.Context, c *models.Complaint) error
	List(ctx context.Context, f ComplaintFilter) ([]models.Complaint, error)
	// Stats computes the dashboard aggregate in a single pass.
	Stats(ctx context.Context, f ComplaintFilter) (*models.AuthorityStats, error)
	UserStats(ctx context.Context, userID primitive.ObjectID) (*models.UserStats, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ExistsByMediaHash(ctx context.Context, hash string) (bool, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	Get(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	// ListFor returns notifications addressed to the user or, without a user, to role.
	ListFor(ctx context.Context, userID primitive.ObjectID, role string, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	Insert(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type PostStore interface {
	Insert(ctx context.Context, p *models.CommunityPost) error
	List(ctx context.Context, limit int64) ([]models.CommunityPost, error)
}

type NoteStore interface {
	Insert(ctx context.Context, n *models.Note) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error)
	// Delete removes a note owned by userID; anything else is domain.ErrNotFound.
	Delete(ctx context.Context, id, userID primitive.ObjectID) error
}

// Store bundles every repository the services need.
type Store struct {
	Complaints    ComplaintStore
	Notifications NotificationStore
	Users         UserStore
	Posts         PostStore
	Notes         NoteStore
}
