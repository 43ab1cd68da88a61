package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

// CreateGoal stores a new goal in the user's partition.
func (s *Store) CreateGoal(ctx context.Context, userID string, goal *domain.GoalItem) error {
	if err := s.Goals.Create(ctx, userID, goal.ID, goal); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

// GetGoal retrieves a goal by id.
func (s *Store) GetGoal(ctx context.Context, userID, goalID string) (*domain.GoalItem, error) {
	goal, err := s.Goals.Get(ctx, userID, goalID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrGoalNotFound
	}
	return goal, err
}

// DeleteGoal removes a goal. Missing goals are not an error.
func (s *Store) DeleteGoal(ctx context.Context, userID, goalID string) error {
	return s.Goals.Delete(ctx, userID, goalID)
}

// ListGoals returns every goal of the user.
func (s *Store) ListGoals(ctx context.Context, userID string) ([]*domain.GoalItem, error) {
	goals, err := s.Goals.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}
