package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"civicconnect/internal/domain"
	"civicconnect/internal/models"
	"civicconnect/internal/store"
	"civicconnect/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NoteService struct {
	notes store.NoteStore
}

func NewNoteService(notes store.NoteStore) *NoteService {
	return &NoteService{notes: notes}
}

type AddNoteInput struct {
	Content string     `json:"content" validate:"required,max=2000"`
	Date    *time.Time `json:"date" validate:"required"`
}

func (s *NoteService) Add(ctx context.Context, actor models.Actor, in AddNoteInput) (*models.Note, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	n := &models.Note{
		UserID:    actor.ID,
		Content:   in.Content,
		Date:      *in.Date,
		CreatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := s.notes.Insert(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

// List returns the actor's notes ordered by date.
func (s *NoteService) List(ctx context.Context, actor models.Actor) ([]models.Note, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	notes, err := s.notes.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Delete removes one of the actor's notes. Notes of other users look missing.
func (s *NoteService) Delete(ctx context.Context, actor models.Actor, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.NotFound("note")
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return s.notes.Delete(ctx, oid, actor.ID)
}
