package api

import (
	"context"

	"github.com/pagetrack/pagetrack-server/internal/sse"
	"github.com/pagetrack/pagetrack-server/internal/store"
)

// watchDocuments forwards committed changes of the user's documents to one
// stream client as document.changed events.
func (s *Server) watchDocuments(ctx context.Context, userID string, emit func(sse.Event)) error {
	return s.store.Watch(ctx, userID, func(c store.Change) error {
		event := sse.NewEvent(sse.EventDocumentChanged, c)
		event.UserID = userID
		emit(event)
		return nil
	})
}
