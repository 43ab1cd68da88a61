package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/media/images"
	"github.com/pagetrack/pagetrack-server/internal/search"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

const testUser = "user-1"

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type testServices struct {
	store     *store.Store
	index     *search.SearchIndex
	covers    *images.Covers
	coverDir  *images.Storage
	clock     *clock.Fake
	scheduler *recordingScheduler
	books     *BookService
	alarms    *AlarmService
	goals     *GoalService
}

func setupServices(t *testing.T) *testServices {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	s, err := store.New("", logger, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	index, err := search.NewSearchIndex(search.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	coverDir, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)
	covers := images.NewCovers(coverDir, "http://localhost:8080", logger)

	v := validation.New()
	clk := clock.NewFake(testStart)
	scheduler := newRecordingScheduler()

	books := NewBookService(s, index, covers, v, logger)

	return &testServices{
		store:     s,
		index:     index,
		covers:    covers,
		coverDir:  coverDir,
		clock:     clk,
		scheduler: scheduler,
		books:     books,
		alarms:    NewAlarmService(s, scheduler, v, clk, logger),
		goals:     NewGoalService(s, books, v, clk, logger),
	}
}

func (ts *testServices) createBook(t *testing.T, name string, state domain.ReadingState) *domain.Book {
	t.Helper()
	book, err := ts.books.CreateBook(context.Background(), testUser, BookInput{
		Name:      name,
		Author:    "Frank Herbert",
		Genre:     domain.GenreScienceFiction,
		Situation: state,
		PageCount: 412,
	})
	require.NoError(t, err)
	return book
}

// recordingScheduler is an AlarmScheduler that only remembers what it was asked.
// Entries are keyed "userID/alarmID".
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[string]*domain.AlarmItem
	cancelled []string
	deny      bool
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{scheduled: map[string]*domain.AlarmItem{}}
}

func wakeupKey(userID, alarmID string) string {
	return userID + "/" + alarmID
}

func (r *recordingScheduler) Schedule(userID string, alarm *domain.AlarmItem) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deny {
		return false
	}
	r.scheduled[wakeupKey(userID, alarm.AlarmID)] = alarm
	return true
}

func (r *recordingScheduler) Cancel(userID, alarmID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := wakeupKey(userID, alarmID)
	delete(r.scheduled, key)
	r.cancelled = append(r.cancelled, key)
}

func (r *recordingScheduler) IsScheduled(userID, alarmID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.scheduled[wakeupKey(userID, alarmID)]
	return ok
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 24, 36))
	for y := range 36 {
		for x := range 24 {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 7), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
