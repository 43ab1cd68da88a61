package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/timer"
)

func (s *Server) registerTimerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getTimer",
		Method:      http.MethodGet,
		Path:        "/api/v1/timer",
		Summary:     "Countdown status",
		Description: "Returns the state and remaining time of the countdown",
		Tags:        []string{"Timer"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleGetTimer))

	huma.Register(s.api, huma.Operation{
		OperationID: "startTimer",
		Method:      http.MethodPost,
		Path:        "/api/v1/timer",
		Summary:     "Start countdown",
		Description: "Starts a countdown, replacing any countdown in progress. Ticks are published on the stream.",
		Tags:        []string{"Timer"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleStartTimer))

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelTimer",
		Method:      http.MethodDelete,
		Path:        "/api/v1/timer",
		Summary:     "Cancel countdown",
		Description: "Stops a running countdown without notifying",
		Tags:        []string{"Timer"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleCancelTimer))

	huma.Register(s.api, huma.Operation{
		OperationID: "stopTimerSound",
		Method:      http.MethodPost,
		Path:        "/api/v1/timer/stop-sound",
		Summary:     "Stop alert sound",
		Description: "Silences a finished countdown and ends the run",
		Tags:        []string{"Timer"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleStopTimerSound))
}

// === DTOs ===

// TimerOutput wraps a countdown snapshot for Huma.
type TimerOutput struct {
	Body timer.Status
}

// StartTimerRequest is the request body for starting a countdown.
type StartTimerRequest struct {
	DurationMillis int64 `json:"durationMillis" doc:"Countdown length in milliseconds; must be positive"`
}

// StartTimerInput wraps the start request for Huma.
type StartTimerInput struct {
	Authorization string `header:"Authorization"`
	Body          StartTimerRequest
}

// === Handlers ===

func (s *Server) handleGetTimer(ctx context.Context, input *AuthHeaderInput) (*TimerOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}
	return &TimerOutput{Body: s.services.Timer.Status()}, nil
}

func (s *Server) handleStartTimer(ctx context.Context, input *StartTimerInput) (*TimerOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	status, err := s.services.Timer.Start(input.Body.DurationMillis)
	if err != nil {
		return nil, err
	}
	return &TimerOutput{Body: status}, nil
}

func (s *Server) handleCancelTimer(ctx context.Context, input *AuthHeaderInput) (*TimerOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	status, err := s.services.Timer.Cancel()
	if err != nil {
		return nil, err
	}
	return &TimerOutput{Body: status}, nil
}

func (s *Server) handleStopTimerSound(ctx context.Context, input *AuthHeaderInput) (*TimerOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	status, err := s.services.Timer.StopSound()
	if err != nil {
		return nil, err
	}
	return &TimerOutput{Body: status}, nil
}
