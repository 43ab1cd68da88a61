package domain

import "time"

// User owns a partition of books, alarms and goals.
type User struct {
	ID        string    `json:"id"`
	Anonymous bool      `json:"anonymous"`
	CreatedAt time.Time `json:"createdAt"`
}
