package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/service"
)

func (s *Server) registerGoalRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGoals",
		Method:      http.MethodGet,
		Path:        "/api/v1/goals",
		Summary:     "List goals",
		Description: "Returns the reader's goals ordered by deadline, flagging overdue ones",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleListGoals))

	huma.Register(s.api, huma.Operation{
		OperationID:   "createGoal",
		Method:        http.MethodPost,
		Path:          "/api/v1/goals",
		Summary:       "Create goal",
		Description:   "Stores a deadline-bound goal for a book",
		Tags:          []string{"Goals"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, mapErrors(s.handleCreateGoal))

	huma.Register(s.api, huma.Operation{
		OperationID: "completeGoal",
		Method:      http.MethodPost,
		Path:        "/api/v1/goals/{id}/complete",
		Summary:     "Complete goal",
		Description: "Applies the goal's target reading state to its book, if any, and removes the goal",
		Tags:        []string{"Goals"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleCompleteGoal))

	huma.Register(s.api, huma.Operation{
		OperationID:   "failGoal",
		Method:        http.MethodPost,
		Path:          "/api/v1/goals/{id}/fail",
		Summary:       "Fail goal",
		Description:   "Removes the goal without touching its book",
		Tags:          []string{"Goals"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, mapErrors(s.handleDiscardGoal))

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteGoal",
		Method:        http.MethodDelete,
		Path:          "/api/v1/goals/{id}",
		Summary:       "Delete goal",
		Description:   "Removes the goal without touching its book",
		Tags:          []string{"Goals"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, mapErrors(s.handleDiscardGoal))
}

// === DTOs ===

// GoalResponse contains goal data in API responses.
type GoalResponse struct {
	ID             string               `json:"id" doc:"Goal ID"`
	Description    string               `json:"description" doc:"What the reader intends to do"`
	DeadlineMillis int64                `json:"deadlineMillis" doc:"Deadline in Unix milliseconds"`
	ChangeState    bool                 `json:"changeState" doc:"Whether completion changes the book's state"`
	NewState       *domain.ReadingState `json:"newState,omitempty" doc:"State applied on completion"`
	BookID         string               `json:"bookId" doc:"Book the goal is about"`
	BookName       string               `json:"bookName" doc:"Book name when the goal was created"`
	BookImageURL   string               `json:"bookImageUrl" doc:"Book cover URL when the goal was created"`
	Overdue        bool                 `json:"overdue" doc:"Whether the deadline has passed"`
}

func newGoalResponse(g *domain.GoalItem, overdue bool) GoalResponse {
	return GoalResponse{
		ID:             g.ID,
		Description:    g.Description,
		DeadlineMillis: g.DeadlineMillis,
		ChangeState:    g.ChangeState,
		NewState:       g.NewState,
		BookID:         g.BookID,
		BookName:       g.BookName,
		BookImageURL:   g.BookImageURL,
		Overdue:        overdue,
	}
}

// ListGoalsResponse contains a list of goals.
type ListGoalsResponse struct {
	Goals []GoalResponse `json:"goals" doc:"Goals ordered by deadline"`
}

// ListGoalsOutput wraps the list goals response for Huma.
type ListGoalsOutput struct {
	Body ListGoalsResponse
}

// CreateGoalRequest is the request body for creating a goal.
type CreateGoalRequest struct {
	Description    string  `json:"description,omitempty" doc:"Defaults to \"Finish the book\""`
	DeadlineMillis int64   `json:"deadlineMillis" doc:"Deadline in Unix milliseconds"`
	ChangeState    bool    `json:"changeState,omitempty" doc:"Change the book's state on completion"`
	NewState       *string `json:"newState,omitempty" doc:"Required when changeState is set"`
	BookID         string  `json:"bookId" doc:"Book the goal is about"`
}

// CreateGoalInput wraps the create goal request for Huma.
type CreateGoalInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateGoalRequest
}

// GoalOutput wraps a single goal for Huma.
type GoalOutput struct {
	Body GoalResponse
}

// GoalIDInput addresses one goal.
type GoalIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Goal ID"`
}

// CompleteGoalResponse reports what completing a goal did.
type CompleteGoalResponse struct {
	Goal         GoalResponse `json:"goal" doc:"The removed goal"`
	StateApplied bool         `json:"stateApplied" doc:"Whether the book's state was changed"`
}

// CompleteGoalOutput wraps the completion result for Huma.
type CompleteGoalOutput struct {
	Body CompleteGoalResponse
}

// === Handlers ===

func (s *Server) handleListGoals(ctx context.Context, input *AuthHeaderInput) (*ListGoalsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	goals, err := s.services.Goal.ListGoals(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	resp := make([]GoalResponse, len(goals))
	for i, g := range goals {
		resp[i] = newGoalResponse(g.GoalItem, g.Overdue)
	}

	return &ListGoalsOutput{Body: ListGoalsResponse{Goals: resp}}, nil
}

func (s *Server) handleCreateGoal(ctx context.Context, input *CreateGoalInput) (*GoalOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	in := service.GoalInput{
		Description:    input.Body.Description,
		DeadlineMillis: input.Body.DeadlineMillis,
		ChangeState:    input.Body.ChangeState,
		BookID:         input.Body.BookID,
	}
	if input.Body.NewState != nil {
		state := domain.ReadingState(*input.Body.NewState)
		in.NewState = &state
	}

	view, err := s.services.Goal.CreateGoal(ctx, identity.UserID, in)
	if err != nil {
		return nil, err
	}

	return &GoalOutput{Body: newGoalResponse(view.GoalItem, view.Overdue)}, nil
}

func (s *Server) handleCompleteGoal(ctx context.Context, input *GoalIDInput) (*CompleteGoalOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Goal.CompleteGoal(ctx, identity.UserID, input.ID)
	if err != nil {
		return nil, err
	}

	return &CompleteGoalOutput{Body: CompleteGoalResponse{
		Goal:         newGoalResponse(result.Goal, false),
		StateApplied: result.StateApplied,
	}}, nil
}

func (s *Server) handleDiscardGoal(ctx context.Context, input *GoalIDInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Goal.DiscardGoal(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
