// Package main provides a tool to seed the database with demo reading data.
//
// It creates an anonymous reader with a shelf of books, a few goals and
// alarms spread around the current time, so overdue goals and expired alarms
// show up on the next start.
//
// Usage:
//
//	DATA_PATH=~/PageTrack/data go run ./cmd/seed
//	DATA_PATH=~/PageTrack/data go run ./cmd/seed --readers 3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/pagetrack/pagetrack-server/internal/clock"
	"github.com/pagetrack/pagetrack-server/internal/domain"
	"github.com/pagetrack/pagetrack-server/internal/id"
	"github.com/pagetrack/pagetrack-server/internal/search"
	"github.com/pagetrack/pagetrack-server/internal/service"
	"github.com/pagetrack/pagetrack-server/internal/store"
	"github.com/pagetrack/pagetrack-server/internal/validation"
)

var readers = flag.Int("readers", 1, "Number of anonymous readers to create")

var shelf = []service.BookInput{
	{Name: "Dune", Author: "Frank Herbert", Genre: domain.GenreScienceFiction, PageCount: 412},
	{Name: "The Left Hand of Darkness", Author: "Ursula K. Le Guin", Genre: domain.GenreScienceFiction, PageCount: 304},
	{Name: "The Name of the Wind", Author: "Patrick Rothfuss", Genre: domain.GenreFantasy, PageCount: 662},
	{Name: "The Hound of the Baskervilles", Author: "Arthur Conan Doyle", Genre: domain.GenreMystery, PageCount: 256},
	{Name: "Pride and Prejudice", Author: "Jane Austen", Genre: domain.GenreRomance, PageCount: 432},
	{Name: "Thinking, Fast and Slow", Author: "Daniel Kahneman", Genre: domain.GenreNonfiction, PageCount: 499},
	{Name: "Beloved", Author: "Toni Morrison", Genre: domain.GenreFiction, PageCount: 324},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/PageTrack/data")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	s, err := store.New(filepath.Join(dataPath, "db"), logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	index, err := search.NewSearchIndex(search.Options{DataPath: dataPath, Logger: logger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	// Covers are not seeded.
	books := service.NewBookService(s, index, nil, validation.New(), logger)
	goals := service.NewGoalService(s, books, validation.New(), clock.Real{}, logger)

	ctx := context.Background()
	now := time.Now()

	for range *readers {
		userID := id.NewClientID()
		if err := s.CreateUser(ctx, &domain.User{ID: userID, Anonymous: true, CreatedAt: now}); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}

		fmt.Printf("Reader %s\n", userID)

		var created []*domain.Book
		for _, in := range shelf {
			in.Situation = domain.ReadingStates[rand.IntN(len(domain.ReadingStates))]
			book, err := books.CreateBook(ctx, userID, in)
			if err != nil {
				log.Fatalf("Failed to create book %q: %v", in.Name, err)
			}
			created = append(created, book)
			fmt.Printf("  book  %-32s %s\n", book.Name, book.Situation)
		}

		// Deadlines from a day ago to a week ahead.
		for i, book := range created[:3] {
			deadline := now.Add(time.Duration(i*84-24) * time.Hour)
			read := domain.StateRead

			goal, err := goals.CreateGoal(ctx, userID, service.GoalInput{
				DeadlineMillis: deadline.UnixMilli(),
				ChangeState:    i%2 == 0,
				NewState:       &read,
				BookID:         book.ID,
			})
			if err != nil {
				log.Fatalf("Failed to create goal: %v", err)
			}
			fmt.Printf("  goal  %-32s overdue=%t\n", goal.BookName, goal.Overdue)
		}

		// Alarms are written directly: one already expired, two pending.
		for i, book := range created[:3] {
			alarm := &domain.AlarmItem{
				AlarmID:        id.NewClientID(),
				BookID:         book.ID,
				BookName:       book.Name,
				BookImageURL:   book.ImageURL,
				DeadlineMillis: now.Add(time.Duration(i*30-10) * time.Minute).UnixMilli(),
				Message:        "time to read",
			}
			if err := s.PutAlarm(ctx, userID, alarm); err != nil {
				log.Fatalf("Failed to create alarm: %v", err)
			}
			fmt.Printf("  alarm %-32s %s\n", alarm.BookName, alarm.Deadline().Format(time.Kitchen))
		}
		fmt.Println()
	}

	fmt.Println("Seeding complete. Alarms of every seeded reader are re-armed at the next")
	fmt.Println("server start; expired ones are deleted.")
}
