package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_ZeroValueDenies(t *testing.T) {
	var p Set
	assert.False(t, p.CanNotify())
	assert.False(t, p.CanScheduleExact())
	assert.False(t, p.Allowed("camera"))
}

func TestSet_GrantAndSnapshot(t *testing.T) {
	p := NewSet(State{ExactAlarms: true})
	assert.True(t, p.Allowed(ExactAlarms))
	assert.False(t, p.Allowed(Notifications))

	p.Grant(Notifications, true)
	p.Grant(ExactAlarms, false)
	assert.Equal(t, State{ExactAlarms: false, Notifications: true}, p.Snapshot())

	p.Apply(State{ExactAlarms: true, Notifications: true})
	assert.True(t, p.CanScheduleExact())
	assert.True(t, p.CanNotify())
}
