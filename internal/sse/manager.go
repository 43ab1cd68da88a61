package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagetrack/pagetrack-server/internal/id"
)

const (
	queueSize        = 1000
	subscriberBuffer = 100
)

// Subscriber is one open event stream of a signed-in user.
type Subscriber struct {
	ConnectedAt time.Time
	Events      chan Event
	Done        chan struct{}
	ID          string
	UserID      string
}

// Manager routes published events to the open streams of each user.
//
// Events without a UserID are device-wide (notifications, timer) and reach
// every stream. The last timer state is retained and replayed to new
// subscribers so a client attaching mid-countdown sees where it stands.
type Manager struct {
	logger *slog.Logger
	queue  chan Event
	pump   sync.WaitGroup

	mu         sync.RWMutex
	streams    map[string]map[string]*Subscriber // userID -> subscriberID -> stream
	owners     map[string]string                 // subscriberID -> userID
	timerState *Event
	closed     bool
}

// NewManager creates a Manager. Call Start to begin delivering events.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:  logger,
		queue:   make(chan Event, queueSize),
		streams: make(map[string]map[string]*Subscriber),
		owners:  make(map[string]string),
	}
}

// Start delivers queued events until ctx is cancelled or the queue is closed.
func (m *Manager) Start(ctx context.Context) {
	m.pump.Add(1)
	defer m.pump.Done()

	m.logger.Info("event stream manager started")
	for {
		select {
		case event, ok := <-m.queue:
			if !ok {
				return
			}
			m.deliver(event)
		case <-ctx.Done():
			m.logger.Info("event stream manager stopped")
			m.closeStreams()
			return
		}
	}
}

// Shutdown refuses new events, delivers what is queued and closes every stream.
// Calling it more than once is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	pending := len(m.queue)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for event := range m.queue {
			m.deliver(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("event queue not drained before deadline", slog.Int("pending", pending))
	}

	m.pump.Wait()
	m.closeStreams()
	return nil
}

// Emit queues an event. It never blocks; a full queue or a closed manager
// drops the event.
func (m *Manager) Emit(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}

	select {
	case m.queue <- event:
	default:
		m.logger.Error("event queue full, dropping event", slog.String("event_type", string(event.Type)))
	}
}

// EmitToUser queues an event for the streams of one user.
func (m *Manager) EmitToUser(userID string, event Event) {
	event.UserID = userID
	m.Emit(event)
}

// Subscribe opens a stream for userID. The retained timer state, if any, is
// the first event on it.
func (m *Manager) Subscribe(userID string) (*Subscriber, error) {
	subID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}

	sub := &Subscriber{
		ID:          subID,
		UserID:      userID,
		Events:      make(chan Event, subscriberBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	if m.timerState != nil {
		sub.Events <- *m.timerState
	}
	if m.streams[userID] == nil {
		m.streams[userID] = make(map[string]*Subscriber)
	}
	m.streams[userID][subID] = sub
	m.owners[subID] = userID
	open := len(m.owners)
	m.mu.Unlock()

	m.logger.Info("stream opened",
		slog.String("subscriber_id", subID),
		slog.String("user_id", userID),
		slog.Int("open_streams", open))
	return sub, nil
}

// Unsubscribe closes a stream. Unknown ids are ignored.
func (m *Manager) Unsubscribe(subID string) {
	m.mu.Lock()
	userID, ok := m.owners[subID]
	if !ok {
		m.mu.Unlock()
		return
	}
	sub := m.streams[userID][subID]
	m.removeLocked(userID, subID)
	open := len(m.owners)
	m.mu.Unlock()

	m.logger.Info("stream closed",
		slog.String("subscriber_id", subID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)),
		slog.Int("open_streams", open))
}

// SendTo delivers an event to one stream, skipping the queue. It reports false
// when the stream is gone or its buffer is full.
func (m *Manager) SendTo(subID string, event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	userID, ok := m.owners[subID]
	if !ok {
		return false
	}
	return m.offer(m.streams[userID][subID], event)
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.owners)
}

// deliver hands an event to every stream it addresses.
func (m *Manager) deliver(event Event) {
	if event.Type == EventTimerState && event.UserID == "" {
		m.mu.Lock()
		retained := event
		m.timerState = &retained
		m.mu.Unlock()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var delivered, dropped int
	for userID, subs := range m.streams {
		if event.UserID != "" && event.UserID != userID {
			continue
		}
		for _, sub := range subs {
			if m.offer(sub, event) {
				delivered++
			} else {
				dropped++
			}
		}
	}

	m.logger.Debug("event delivered",
		slog.String("event_type", string(event.Type)),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// offer is a non-blocking send. Callers hold m.mu.
func (m *Manager) offer(sub *Subscriber, event Event) bool {
	select {
	case sub.Events <- event:
		return true
	default:
		m.logger.Warn("stream buffer full, dropping event",
			slog.String("subscriber_id", sub.ID),
			slog.String("event_type", string(event.Type)))
		return false
	}
}

func (m *Manager) removeLocked(userID, subID string) {
	sub := m.streams[userID][subID]
	close(sub.Done)
	close(sub.Events)
	delete(m.streams[userID], subID)
	if len(m.streams[userID]) == 0 {
		delete(m.streams, userID)
	}
	delete(m.owners, subID)
}

func (m *Manager) closeStreams() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for subID, userID := range m.owners {
		m.removeLocked(userID, subID)
	}
}
