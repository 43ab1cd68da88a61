package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/service"
)

func (s *Server) registerAlarmRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAlarms",
		Method:      http.MethodGet,
		Path:        "/api/v1/alarms",
		Summary:     "List alarms",
		Description: "Returns the reader's alarms ordered by deadline",
		Tags:        []string{"Alarms"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleListAlarms))

	huma.Register(s.api, huma.Operation{
		OperationID:   "createAlarm",
		Method:        http.MethodPost,
		Path:          "/api/v1/alarms",
		Summary:       "Create alarm",
		Description:   "Stores an alarm for a book and arms a one-shot wake-up at its deadline",
		Tags:          []string{"Alarms"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, mapErrors(s.handleCreateAlarm))

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteAlarm",
		Method:        http.MethodDelete,
		Path:          "/api/v1/alarms/{id}",
		Summary:       "Delete alarm",
		Description:   "Cancels the alarm's wake-up and deletes it",
		Tags:          []string{"Alarms"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, mapErrors(s.handleDeleteAlarm))
}

// === DTOs ===

// AlarmResponse contains alarm data in API responses.
type AlarmResponse struct {
	AlarmID        string `json:"alarmId" doc:"Alarm ID"`
	BookID         string `json:"bookId" doc:"Book the alarm is about"`
	BookName       string `json:"bookName" doc:"Book name when the alarm was created"`
	BookImageURL   string `json:"bookImageUrl" doc:"Book cover URL when the alarm was created"`
	DeadlineMillis int64  `json:"deadlineMillis" doc:"Deadline in Unix milliseconds"`
	Message        string `json:"message" doc:"Reminder text"`
	Scheduled      bool   `json:"scheduled" doc:"Whether a wake-up is armed"`
}

func newAlarmResponse(v service.AlarmView) AlarmResponse {
	return AlarmResponse{
		AlarmID:        v.AlarmID,
		BookID:         v.BookID,
		BookName:       v.BookName,
		BookImageURL:   v.BookImageURL,
		DeadlineMillis: v.DeadlineMillis,
		Message:        v.Message,
		Scheduled:      v.Scheduled,
	}
}

// ListAlarmsResponse contains a list of alarms.
type ListAlarmsResponse struct {
	Alarms []AlarmResponse `json:"alarms" doc:"Alarms ordered by deadline"`
}

// ListAlarmsOutput wraps the list alarms response for Huma.
type ListAlarmsOutput struct {
	Body ListAlarmsResponse
}

// CreateAlarmRequest is the request body for creating an alarm.
type CreateAlarmRequest struct {
	AlarmID        string `json:"alarmId,omitempty" doc:"Client-chosen ID; a UUID is generated when empty"`
	BookID         string `json:"bookId" doc:"Book the alarm is about"`
	DeadlineMillis int64  `json:"deadlineMillis" doc:"Deadline in Unix milliseconds; must be in the future"`
	Message        string `json:"message,omitempty" doc:"Reminder text"`
}

// CreateAlarmInput wraps the create alarm request for Huma.
type CreateAlarmInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateAlarmRequest
}

// AlarmOutput wraps a single alarm for Huma.
type AlarmOutput struct {
	Body AlarmResponse
}

// DeleteAlarmInput addresses one alarm.
type DeleteAlarmInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Alarm ID"`
}

// === Handlers ===

func (s *Server) handleListAlarms(ctx context.Context, input *AuthHeaderInput) (*ListAlarmsOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	alarms, err := s.services.Alarm.ListAlarms(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	resp := make([]AlarmResponse, len(alarms))
	for i, a := range alarms {
		resp[i] = newAlarmResponse(a)
	}

	return &ListAlarmsOutput{Body: ListAlarmsResponse{Alarms: resp}}, nil
}

func (s *Server) handleCreateAlarm(ctx context.Context, input *CreateAlarmInput) (*AlarmOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Alarm.CreateAlarm(ctx, identity.UserID, service.AlarmInput{
		AlarmID:        input.Body.AlarmID,
		BookID:         input.Body.BookID,
		DeadlineMillis: input.Body.DeadlineMillis,
		Message:        input.Body.Message,
	})
	if err != nil {
		return nil, err
	}

	return &AlarmOutput{Body: newAlarmResponse(*view)}, nil
}

func (s *Server) handleDeleteAlarm(ctx context.Context, input *DeleteAlarmInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Alarm.DeleteAlarm(ctx, identity.UserID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
