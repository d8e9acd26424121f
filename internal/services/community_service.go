package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/media"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"
	"civicconnect/internal/websocket"
	"civicconnect/pkg/logger"
)

const defaultPostLimit = 100

type CommunityService struct {
	posts     store.PostStore
	media     MediaStore
	notifier  *NotificationService
	publisher Publisher
}

func NewCommunityService(posts store.PostStore, mediaStore MediaStore, notifier *NotificationService, publisher Publisher) *CommunityService {
	return &CommunityService{posts: posts, media: mediaStore, notifier: notifier, publisher: publisher}
}

type CreatePostInput struct {
	Title   string        `json:"title" validate:"required,max=200"`
	Content string        `json:"content" validate:"required,max=5000"`
	Tag     string        `json:"tag" validate:"required,post_tag"`
	Image   *media.Upload `json:"image"`
}

// List returns community posts, newest first.
func (s *CommunityService) List(ctx context.Context) ([]models.CommunityPost, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	posts, err := s.posts.List(ctx, defaultPostLimit)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []models.CommunityPost{}
	}
	return posts, nil
}

// Create publishes a post. Alert posts are also pushed to every connected citizen
// and persisted as a Citizen-role emergency notification.
func (s *CommunityService) Create(ctx context.Context, actor models.Actor, in CreatePostInput) (*models.CommunityPost, error) {
	if !actor.IsAuthority() {
		return nil, domain.Forbidden("only authorities can publish community posts")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if in.Tag == "" {
		in.Tag = models.TagUpdate
	}
	if in.Image != nil && len(in.Image.Data) == 0 {
		in.Image = nil
	}
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	now := time.Now()
	post := &models.CommunityPost{
		Title:      in.Title,
		Content:    in.Content,
		Author:     actor.ID,
		AuthorName: actor.Name,
		Role:       actor.Role,
		Tag:        in.Tag,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var saved *media.Saved
	if in.Image != nil {
		var err error
		saved, err = s.media.Save(media.KindPost, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("store post image: %w", err)
		}
		post.Image = saved.URL
	}

	insertCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.posts.Insert(insertCtx, post); err != nil {
		if saved != nil {
			if rmErr := s.media.Remove(saved); rmErr != nil {
				logger.WithError(rmErr).Warn("Failed to remove orphaned post image")
			}
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	logger.LogUserAction(actor.ID.Hex(), "community_post_created", map[string]interface{}{
		"post_id": post.ID.Hex(),
		"tag":     post.Tag,
	})

	if post.Tag == models.TagAlert {
		s.alert(ctx, post)
	}
	return post, nil
}

func (s *CommunityService) alert(ctx context.Context, post *models.CommunityPost) {
	if s.publisher != nil {
		s.publisher.EmitToRole(models.RoleCitizen, websocket.EventNewAlert, post)
	}
	if s.notifier == nil {
		return
	}
	message := "Alert: " + post.Title
	if _, err := s.notifier.Notify(ctx, models.ToRole(models.RoleCitizen), message, models.NotificationEmergency, "/community"); err != nil {
		logger.LogError(err, "alert notification", map[string]interface{}{"post_id": post.ID.Hex()})
	}
}
