package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/websocket"
	"civicconnect/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultNotificationLimit = 50

// Publisher pushes realtime events. The websocket hub implements it.
type Publisher interface {
	EmitToUser(userID, event string, payload interface{}) int
	EmitToRole(role, event string, payload interface{}) int
}

type NotificationService struct {
	store     store.NotificationStore
	publisher Publisher
	limit     int64
}

// NewNotificationService creates the dispatcher. publisher may be nil, in which case
// notifications are only persisted.
func NewNotificationService(s store.NotificationStore, publisher Publisher, limit int) *NotificationService {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return &NotificationService{store: s, publisher: publisher, limit: int64(limit)}
}

// Notify persists a notification and then pushes it to the recipient's room. Push
// failures never fail the call.
func (s *NotificationService) Notify(ctx context.Context, target models.NotificationTarget, message, notificationType, link string) (*models.Notification, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.NewValidationError("message", "This field is required")
	}
	if target.UserID == nil && target.Role == "" {
		return nil, domain.NewValidationError("recipient", "A user or a role is required")
	}
	if notificationType == "" {
		notificationType = models.NotificationInfo
	}
	if !models.IsValidNotificationType(notificationType) {
		return nil, domain.NewValidationError("type", "Type must be one of: info, success, warning, error, Emergency")
	}

	now := time.Now()
	n := &models.Notification{
		UserID:    target.UserID,
		Message:   message,
		Type:      notificationType,
		Link:      link,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if target.UserID == nil {
		n.RecipientRole = target.Role
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.store.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}

	s.push(n)
	return n, nil
}

func (s *NotificationService) push(n *models.Notification) {
	if s.publisher == nil {
		return
	}

	var delivered int
	switch {
	case n.UserID != nil:
		delivered = s.publisher.EmitToUser(n.UserID.Hex(), websocket.EventNotification, n)
	case n.RecipientRole == models.RoleAuthority:
		delivered = s.publisher.EmitToRole(n.RecipientRole, websocket.EventAuthorityNotification, n)
	default:
		delivered = s.publisher.EmitToRole(n.RecipientRole, websocket.EventNotification, n)
	}

	logger.WithFields(map[string]interface{}{
		"notification_id": n.ID.Hex(),
		"role":            n.RecipientRole,
		"delivered":       delivered,
	}).Debug("Notification pushed")
}

// List returns the actor's own notifications plus those addressed to the actor's role.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, limit int) (*models.NotificationPage, error) {
	l := s.limit
	if limit > 0 && int64(limit) < l {
		l = int64(limit)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	items, err := s.store.ListFor(ctx, actor.ID, actor.Role, l)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.store.CountUnread(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("count unread notifications: %w", err)
	}

	return &models.NotificationPage{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead marks one of the actor's own notifications as read. Role-wide
// notifications have no owner and cannot be marked.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.NotFound("notification")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := s.store.Get(ctx, oid)
	if err != nil {
		return nil, err
	}
	if n.UserID == nil || *n.UserID != actor.ID {
		return nil, domain.Forbidden("notification belongs to another recipient")
	}
	if n.IsRead {
		return n, nil
	}

	if err := s.store.MarkRead(ctx, oid); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	n.IsRead = true
	return n, nil
}
