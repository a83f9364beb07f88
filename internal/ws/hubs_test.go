package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func receive(t *testing.T, ch <-chan []byte) ([]byte, bool) {
	t.Helper()
	select {
	case msg, ok := <-ch:
		return msg, ok
	case <-time.After(time.Second):
		return nil, false
	}
}

func TestAttendanceHubScopesByClass(t *testing.T) {
	hub := NewAttendanceHub(zap.NewNop())
	done := make(chan struct{})
	defer close(done)
	go hub.Run(done)

	classA, classB := "class-a", "class-b"
	admin := newDashboardClient(hub, nil, nil, true)
	guru := newDashboardClient(hub, nil, map[string]struct{}{classA: {}}, false)
	hub.register <- admin
	hub.register <- guru

	hub.Broadcast(Event{Type: EventAttendanceUpdated, ClassID: &classB, StudentID: "s1", Status: "hadir"})
	hub.Broadcast(Event{Type: EventAttendanceUpdated, ClassID: &classA, StudentID: "s2", Status: "izin"})

	msg, ok := receive(t, admin.send)
	require.True(t, ok)
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "s1", ev.StudentID)

	msg, ok = receive(t, admin.send)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "s2", ev.StudentID)

	msg, ok = receive(t, guru.send)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "s2", ev.StudentID)
	assert.Equal(t, "izin", ev.Status)
	assert.False(t, ev.At.IsZero())
}

func TestStudentHubReplacesConnection(t *testing.T) {
	hub := NewStudentHub(zap.NewNop())
	done := make(chan struct{})
	defer close(done)
	go hub.Run(done)

	first := newStudentClient(hub, nil, "user-1")
	second := newStudentClient(hub, nil, "user-1")
	hub.register <- first
	hub.register <- second

	_, ok := receive(t, first.send)
	assert.False(t, ok, "replaced client channel should be closed")

	hub.Notify("user-1", StudentMessage{Type: EventAttendanceVerified, Status: "hadir"})
	hub.Notify("user-2", StudentMessage{Type: EventAttendanceVerified, Status: "alpha"})

	msg, ok := receive(t, second.send)
	require.True(t, ok)
	var m StudentMessage
	require.NoError(t, json.Unmarshal(msg, &m))
	assert.Equal(t, "hadir", m.Status)
}

func TestNilHubsAreNoops(t *testing.T) {
	var a *AttendanceHub
	var s *StudentHub
	assert.NotPanics(t, func() {
		a.Broadcast(Event{Type: EventAttendanceUpdated})
		s.Notify("x", StudentMessage{Type: EventAttendanceVerified})
	})
}
