package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/alarm"
	"github.com/pagetrack/pagetrack-server/internal/permission"
)

func (s *Server) registerSystemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getPermissions",
		Method:      http.MethodGet,
		Path:        "/api/v1/system/permissions",
		Summary:     "Get permissions",
		Description: "Returns whether exact alarms and notifications are currently allowed",
		Tags:        []string{"System"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleGetPermissions))

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePermissions",
		Method:      http.MethodPut,
		Path:        "/api/v1/system/permissions",
		Summary:     "Update permissions",
		Description: "Grants or revokes runtime capabilities. Omitted fields keep their value.",
		Tags:        []string{"System"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleUpdatePermissions))

	huma.Register(s.api, huma.Operation{
		OperationID: "reconcileAlarms",
		Method:      http.MethodPost,
		Path:        "/api/v1/system/reconcile",
		Summary:     "Reconcile alarms",
		Description: "Deletes the caller's expired alarms and re-arms the rest, as done for every user at startup",
		Tags:        []string{"System"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleReconcile))
}

// === DTOs ===

// PermissionsOutput wraps the capability snapshot for Huma.
type PermissionsOutput struct {
	Body permission.State
}

// UpdatePermissionsRequest is the request body for changing capabilities.
type UpdatePermissionsRequest struct {
	ExactAlarms   *bool `json:"exactAlarms,omitempty" doc:"Allow exact alarm wake-ups"`
	Notifications *bool `json:"notifications,omitempty" doc:"Allow posting notifications"`
}

// UpdatePermissionsInput wraps the update request for Huma.
type UpdatePermissionsInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdatePermissionsRequest
}

// ReconcileOutput wraps a reconciliation summary for Huma.
type ReconcileOutput struct {
	Body alarm.Result
}

// === Handlers ===

func (s *Server) handleGetPermissions(ctx context.Context, input *AuthHeaderInput) (*PermissionsOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}
	return &PermissionsOutput{Body: s.services.Permissions.Snapshot()}, nil
}

func (s *Server) handleUpdatePermissions(ctx context.Context, input *UpdatePermissionsInput) (*PermissionsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if v := input.Body.ExactAlarms; v != nil {
		s.services.Permissions.Grant(permission.ExactAlarms, *v)
	}
	if v := input.Body.Notifications; v != nil {
		s.services.Permissions.Grant(permission.Notifications, *v)
	}

	state := s.services.Permissions.Snapshot()
	s.logger.Info("permissions updated",
		"user_id", identity.UserID,
		"exact_alarms", state.ExactAlarms,
		"notifications", state.Notifications)

	return &PermissionsOutput{Body: state}, nil
}

func (s *Server) handleReconcile(ctx context.Context, input *AuthHeaderInput) (*ReconcileOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Reconciler.Reconcile(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &ReconcileOutput{Body: result}, nil
}
