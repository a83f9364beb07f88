package ws

import (
	"time"

	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

type Hubs struct {
	Attendance *AttendanceHub
	Student    *StudentHub
}

func NewHubs(log *zap.Logger) *Hubs {
	return &Hubs{
		Attendance: NewAttendanceHub(log),
		Student:    NewStudentHub(log),
	}
}

// Run starts both hub loops; they stop when done is closed.
func (h *Hubs) Run(done <-chan struct{}) {
	go h.Attendance.Run(done)
	go h.Student.Run(done)
}
