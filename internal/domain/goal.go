package domain

import "time"

// FinishBookDescription is the canned goal description offered by clients.
const FinishBookDescription = "Finish the book"

// GoalItem is a deadline-bound intention about a book. When ChangeState is set,
// completing the goal moves the book to NewState.
type GoalItem struct {
	ID             string        `json:"id"`
	Description    string        `json:"description" validate:"required,max=500"`
	DeadlineMillis int64         `json:"deadlineMillis" validate:"gt=0"`
	ChangeState    bool          `json:"changeState"`
	NewState       *ReadingState `json:"newState,omitempty" validate:"omitempty,reading_state"`
	BookID         string        `json:"bookId" validate:"required"`
	BookName       string        `json:"bookName"`
	BookImageURL   string        `json:"bookImageUrl"`
}

// Deadline returns the deadline as a time.
func (g *GoalItem) Deadline() time.Time {
	return time.UnixMilli(g.DeadlineMillis)
}

// Overdue reports whether the deadline has passed. It is a display flag only.
func (g *GoalItem) Overdue(now time.Time) bool {
	return g.DeadlineMillis < now.UnixMilli()
}

// TargetState returns the state completion should apply, if any.
func (g *GoalItem) TargetState() (ReadingState, bool) {
	if !g.ChangeState || g.NewState == nil {
		return "", false
	}
	return *g.NewState, true
}
