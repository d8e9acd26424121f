package services

import (
	"context"
	"fmt"

	"civicconnect/internal/models"
	"civicconnect/internal/store"
)

const defaultLeaderboardSize = 10

type UserService struct {
	complaints      store.ComplaintStore
	users           store.UserStore
	leaderboardSize int
}

func NewUserService(complaints store.ComplaintStore, users store.UserStore, leaderboardSize int) *UserService {
	if leaderboardSize <= 0 {
		leaderboardSize = defaultLeaderboardSize
	}
	return &UserService{complaints: complaints, users: users, leaderboardSize: leaderboardSize}
}

// Profile returns the stored account of actor.
func (s *UserService) Profile(ctx context.Context, actor models.Actor) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.users.GetByID(ctx, actor.ID)
}

// Leaderboard ranks citizens by impact points.
func (s *UserService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	entries, err := s.complaints.Leaderboard(ctx, s.leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}

// Stats summarises the actor's complaints.
func (s *UserService) Stats(ctx context.Context, actor models.Actor) (*models.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	stats, err := s.complaints.UserStats(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}
