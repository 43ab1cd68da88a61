// Package permission holds the runtime capabilities the scheduler and the
// notification surface depend on. Either may be revoked at any time.
package permission

import "sync/atomic"

// Capability names a runtime permission.
type Capability string

const (
	ExactAlarms   Capability = "exact_alarms"
	Notifications Capability = "notifications"
)

// State is a snapshot of every capability.
type State struct {
	ExactAlarms   bool `json:"exactAlarms"`
	Notifications bool `json:"notifications"`
}

// Set tracks the current capability state. The zero value denies everything.
type Set struct {
	exactAlarms   atomic.Bool
	notifications atomic.Bool
}

// NewSet returns a Set initialised from s.
func NewSet(s State) *Set {
	p := &Set{}
	p.Apply(s)
	return p
}

// Allowed reports whether c is currently granted.
func (p *Set) Allowed(c Capability) bool {
	switch c {
	case ExactAlarms:
		return p.exactAlarms.Load()
	case Notifications:
		return p.notifications.Load()
	default:
		return false
	}
}

// CanScheduleExact reports whether exact wake-ups may be armed.
func (p *Set) CanScheduleExact() bool { return p.exactAlarms.Load() }

// CanNotify reports whether notifications may be posted.
func (p *Set) CanNotify() bool { return p.notifications.Load() }

// Grant or revoke a single capability.
func (p *Set) Grant(c Capability, granted bool) {
	switch c {
	case ExactAlarms:
		p.exactAlarms.Store(granted)
	case Notifications:
		p.notifications.Store(granted)
	}
}

// Apply replaces every capability with s.
func (p *Set) Apply(s State) {
	p.exactAlarms.Store(s.ExactAlarms)
	p.notifications.Store(s.Notifications)
}

// Snapshot returns the current state.
func (p *Set) Snapshot() State {
	return State{
		ExactAlarms:   p.exactAlarms.Load(),
		Notifications: p.notifications.Load(),
	}
}
