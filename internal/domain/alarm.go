package domain

import "time"

// AlarmItem is a reminder tied to a book that fires once at its deadline.
// AlarmID is chosen by the client and doubles as the scheduler's wake key.
// Book fields are copied at creation and are not refreshed when the book changes.
type AlarmItem struct {
	AlarmID        string `json:"alarmId" validate:"required"`
	BookID         string `json:"bookId" validate:"required"`
	BookName       string `json:"bookName"`
	BookImageURL   string `json:"bookImageUrl"`
	DeadlineMillis int64  `json:"deadlineMillis" validate:"gt=0"`
	Message        string `json:"message" validate:"max=500"`
}

// Deadline returns the deadline as a time.
func (a *AlarmItem) Deadline() time.Time {
	return time.UnixMilli(a.DeadlineMillis)
}

// Expired reports whether the deadline is strictly before now.
func (a *AlarmItem) Expired(now time.Time) bool {
	return a.DeadlineMillis < now.UnixMilli()
}

// FormattedMessage is the text shown when the alarm fires.
func (a *AlarmItem) FormattedMessage() string {
	return a.BookName + ": " + a.Message
}
