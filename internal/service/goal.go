package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
	"github.com/pagetrack/pagetrack-server/internal/id"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

// BookStateSetter moves a book to another reading state.
type BookStateSetter interface {
	SetState(ctx context.Context, userID, bookID string, state domain.ReadingState) (*domain.Book, error)
}

// GoalInput holds the fields of a new goal. An empty description becomes
// domain.FinishBookDescription.
type GoalInput struct {
	Description    string
	DeadlineMillis int64
	ChangeState    bool
	NewState       *domain.ReadingState
	BookID         string
}

// GoalView is a goal with its overdue flag computed at read time.
type GoalView struct {
	*domain.GoalItem
	Overdue bool `json:"overdue"`
}

// CompletedGoal reports what completing a goal did.
type CompletedGoal struct {
	Goal         *domain.GoalItem `json:"goal"`
	StateApplied bool             `json:"stateApplied"`
}

// GoalService runs the goal lifecycle: create, complete, discard.
type GoalService struct {
	store     *store.Store
	books     BookStateSetter
	validator *validation.Validator
	clock     clock.Clock
	logger    *slog.Logger
}

// NewGoalService creates a new goal service.
func NewGoalService(
	store *store.Store,
	books BookStateSetter,
	validator *validation.Validator,
	clk clock.Clock,
	logger *slog.Logger,
) *GoalService {
	return &GoalService{
		store:     store,
		books:     books,
		validator: validator,
		clock:     clk,
		logger:    logger,
	}
}

// CreateGoal validates a goal, copies the book's name and image onto it and stores it.
func (s *GoalService) CreateGoal(ctx context.Context, userID string, in GoalInput) (*GoalView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	goal := &domain.GoalItem{
		Description:    strings.TrimSpace(in.Description),
		DeadlineMillis: in.DeadlineMillis,
		ChangeState:    in.ChangeState,
		BookID:         in.BookID,
	}
	if goal.Description == "" {
		goal.Description = domain.FinishBookDescription
	}
	if in.ChangeState {
		if in.NewState == nil {
			return nil, domainerrors.ValidationWithDetails("validation failed",
				map[string]string{"newState": "is required when changeState is set"})
		}
		state := *in.NewState
		goal.NewState = &state
	}
	if err := s.validator.Validate(goal); err != nil {
		return nil, err
	}

	book, err := s.store.GetBook(ctx, userID, goal.BookID)
	if err != nil {
		return nil, err
	}
	goal.BookName = book.Name
	goal.BookImageURL = book.ImageURL

	goalID, err := id.Generate("goal")
	if err != nil {
		return nil, fmt.Errorf("generate goal ID: %w", err)
	}
	goal.ID = goalID

	if err := s.store.CreateGoal(ctx, userID, goal); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	s.logger.Info("goal created",
		"goal_id", goal.ID,
		"book_id", goal.BookID,
		"user_id", userID,
		"change_state", goal.ChangeState)

	return s.view(goal), nil
}

// ListGoals returns the user's goals ordered by deadline.
func (s *GoalService) ListGoals(ctx context.Context, userID string) ([]GoalView, error) {
	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(goals, func(a, b *domain.GoalItem) int {
		return cmp.Or(
			cmp.Compare(a.DeadlineMillis, b.DeadlineMillis),
			cmp.Compare(a.ID, b.ID),
		)
	})

	views := make([]GoalView, 0, len(goals))
	for _, goal := range goals {
		views = append(views, *s.view(goal))
	}
	return views, nil
}

// CompleteGoal applies the goal's target state to its book, if it has one,
// and removes the goal. A failed state change is logged and does not keep the goal.
func (s *GoalService) CompleteGoal(ctx context.Context, userID, goalID string) (*CompletedGoal, error) {
	goal, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	result := &CompletedGoal{Goal: goal}
	if state, ok := goal.TargetState(); ok {
		if _, err := s.books.SetState(ctx, userID, goal.BookID, state); err != nil {
			s.logger.Error("failed to apply goal state to book",
				"goal_id", goalID,
				"book_id", goal.BookID,
				"state", state,
				"error", err)
		} else {
			result.StateApplied = true
		}
	}

	if err := s.store.DeleteGoal(ctx, userID, goalID); err != nil {
		return nil, fmt.Errorf("delete completed goal: %w", err)
	}

	s.logger.Info("goal completed",
		"goal_id", goalID,
		"user_id", userID,
		"state_applied", result.StateApplied)

	return result, nil
}

// DiscardGoal removes a goal without touching its book. It backs both
// "failed" and plain deletion.
func (s *GoalService) DiscardGoal(ctx context.Context, userID, goalID string) error {
	if _, err := s.store.GetGoal(ctx, userID, goalID); err != nil {
		return err
	}

	if err := s.store.DeleteGoal(ctx, userID, goalID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}

	s.logger.Info("goal discarded", "goal_id", goalID, "user_id", userID)
	return nil
}

func (s *GoalService) view(goal *domain.GoalItem) *GoalView {
	return &GoalView{GoalItem: goal, Overdue: goal.Overdue(s.clock.Now())}
}
