package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const (
	heartbeatInterval = 30 * time.Second
	writeWindow       = 60 * time.Second
)

// Authenticator resolves the user an incoming stream request belongs to.
type Authenticator func(r *http.Request) (userID string, err error)

// WatchFunc streams a user's document changes to emit until ctx ends.
type WatchFunc func(ctx context.Context, userID string, emit func(Event)) error

// Handler serves GET /api/v1/stream.
type Handler struct {
	manager      *Manager
	authenticate Authenticator
	watch        WatchFunc
	logger       *slog.Logger
}

// NewHandler creates a stream Handler. watch may be nil.
func NewHandler(manager *Manager, authenticate Authenticator, watch WatchFunc, logger *slog.Logger) *Handler {
	return &Handler{
		manager:      manager,
		authenticate: authenticate,
		watch:        watch,
		logger:       logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, err := h.authenticate(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Context().Err() != nil {
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		h.logger.Error("stream flush unsupported", slog.String("error", err.Error()))
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sub, err := h.manager.Subscribe(userID)
	if err != nil {
		h.logger.Error("open stream", slog.String("error", err.Error()))
		http.Error(w, "Failed to establish connection", http.StatusInternalServerError)
		return
	}
	defer h.manager.Unsubscribe(sub.ID)

	log := h.logger.With(slog.String("subscriber_id", sub.ID), slog.String("user_id", userID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if h.watch != nil {
		go func() {
			if err := h.watch(ctx, userID, func(e Event) { h.manager.SendTo(sub.ID, e) }); err != nil {
				log.Warn("document watch ended", slog.String("error", err.Error()))
			}
		}()
	}

	hello := map[string]string{"subscriberId": sub.ID, "userId": userID}
	if err := h.write(w, rc, "connected", hello); err != nil {
		log.Warn("stream greeting failed", slog.String("error", err.Error()))
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		var (
			name    string
			payload any
		)

		select {
		case event, ok := <-sub.Events:
			if !ok {
				log.Info("stream closed by manager")
				return
			}
			name, payload = string(event.Type), event
		case <-heartbeat.C:
			beat := NewHeartbeatEvent()
			name, payload = string(beat.Type), beat
		case <-sub.Done:
			log.Info("stream closed by manager")
			return
		case <-ctx.Done():
			log.Debug("stream client went away")
			return
		}

		if err := h.write(w, rc, name, payload); err != nil {
			log.Info("stream write failed", slog.String("event", name), slog.String("error", err.Error()))
			return
		}
	}
}

// write emits one "event:"/"data:" frame, flushes it and extends the write
// deadline past the next heartbeat.
func (h *Handler) write(w http.ResponseWriter, rc *http.ResponseController, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	// Recorders and some proxies do not support deadlines.
	if err := rc.SetWriteDeadline(time.Now().Add(writeWindow)); err != nil {
		h.logger.Debug("set write deadline", slog.String("error", err.Error()))
	}
	return nil
}
