package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pagetrack/pagetrack-server/internal/domain"
)

type partitionStats struct {
	books, alarms, goals int
	expiredAlarms        int
	overdueGoals         int
}

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = os.ExpandEnv("$HOME/PageTrack/data/db")
	}

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	now := time.Now()
	users := 0
	partitions := make(map[string]*partitionStats)

	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			if strings.HasPrefix(key, "user:") {
				users++
				continue
			}

			// u:{userID}:{collection}:{docID}
			rest, ok := strings.CutPrefix(key, "u:")
			if !ok {
				continue
			}
			parts := strings.SplitN(rest, ":", 3)
			if len(parts) != 3 {
				continue
			}
			userID, collection := parts[0], parts[1]

			stats := partitions[userID]
			if stats == nil {
				stats = &partitionStats{}
				partitions[userID] = stats
			}

			err := item.Value(func(val []byte) error {
				switch collection {
				case "books":
					stats.books++
				case "alarms":
					var alarm domain.AlarmItem
					if err := json.Unmarshal(val, &alarm); err != nil {
						return err
					}
					stats.alarms++
					if !alarm.Deadline().After(now) {
						stats.expiredAlarms++
					}
				case "goals":
					var goal domain.GoalItem
					if err := json.Unmarshal(val, &goal); err != nil {
						return err
					}
					stats.goals++
					if goal.Overdue(now) {
						stats.overdueGoals++
					}
				}
				return nil
			})
			if err != nil {
				log.Printf("Error reading %s: %v", key, err)
			}
		}
		return nil
	})

	if err != nil {
		log.Fatalf("Error iterating database: %v", err)
	}

	userIDs := make([]string, 0, len(partitions))
	for id := range partitions {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	for _, id := range userIDs {
		s := partitions[id]
		fmt.Printf("User: %s\n", id)
		fmt.Printf("  Books: %d\n", s.books)
		fmt.Printf("  Alarms: %d (%d expired)\n", s.alarms, s.expiredAlarms)
		fmt.Printf("  Goals: %d (%d overdue)\n", s.goals, s.overdueGoals)
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Users: %d\n", users)
	fmt.Printf("Partitions with documents: %d\n", len(partitions))
}
