package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoNotifications struct {
	coll *mongo.Collection
}

func (s *mongoNotifications) Insert(ctx context.Context, n *models.Notification) error {
	n.ID = primitive.NilObjectID
	res, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoNotifications) Get(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("notification")
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

func (s *mongoNotifications) ListFor(ctx context.Context, userID primitive.ObjectID, role string, limit int64) ([]models.Notification, error) {
	or := bson.A{bson.M{"userId": userID}}
	if role != "" {
		or = append(or, bson.M{"recipientRole": role, "userId": bson.M{"$exists": false}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.coll.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Notification, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return out, nil
}

func (s *mongoNotifications) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (s *mongoNotifications) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("notification")
	}
	return nil
}

type mongoUsers struct {
	coll *mongo.Collection
}

func (s *mongoUsers) Insert(ctx context.Context, u *models.User) error {
	u.ID = primitive.NilObjectID
	res, err := s.coll.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("user")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *mongoUsers) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *mongoUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"userEmail": strings.ToLower(strings.TrimSpace(email))})
}

func (s *mongoUsers) UpdateLastLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastLogin": at, "updatedAt": at}},
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

type mongoPosts struct {
	coll *mongo.Collection
}

func (s *mongoPosts) Insert(ctx context.Context, p *models.CommunityPost) error {
	p.ID = primitive.NilObjectID
	res, err := s.coll.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert community post: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoPosts) List(ctx context.Context, limit int64) ([]models.CommunityPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list community posts: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.CommunityPost, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode community posts: %w", err)
	}
	return out, nil
}

type mongoNotes struct {
	coll *mongo.Collection
}

func (s *mongoNotes) Insert(ctx context.Context, n *models.Note) error {
	n.ID = primitive.NilObjectID
	res, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	n.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *mongoNotes) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Note, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer cursor.Close(ctx)

	out := make([]models.Note, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notes: %w", err)
	}
	return out, nil
}

func (s *mongoNotes) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFound("note")
	}
	return nil
}
