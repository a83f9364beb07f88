package controllers

import (
	"go.uber.org/zap"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

// publishAttendance pushes rec to the dashboards and, once the status is
// final, to the student's own socket.
func (d Deps) publishAttendance(rec *models.Attendance) {
	if d.Hubs == nil || rec == nil {
		return
	}
	d.Hubs.Attendance.Broadcast(ws.Event{
		Type:      ws.EventAttendanceUpdated,
		ClassID:   rec.ClassIDRef,
		StudentID: rec.StudentIDRef,
		Date:      rec.Date,
		Status:    rec.Status,
		Data:      attendanceJSON(*rec),
	})
	if !attendance.IsFinal(rec.Status) {
		return
	}
	d.notifyStudent(rec.StudentIDRef, ws.StudentMessage{
		Type:   ws.EventAttendanceVerified,
		Date:   rec.Date,
		Status: rec.Status,
	})
}

func (d Deps) publishLeave(eventType string, lr *models.LeaveRequest, classID *string) {
	if d.Hubs == nil || lr == nil {
		return
	}
	d.Hubs.Attendance.Broadcast(ws.Event{
		Type:      eventType,
		ClassID:   classID,
		StudentID: lr.StudentIDRef,
		Status:    lr.Status,
		Data:      leaveJSON(*lr),
	})
	if eventType == ws.EventLeaveDecided {
		d.notifyStudent(lr.StudentIDRef, ws.StudentMessage{
			Type:    ws.EventLeaveDecided,
			Date:    lr.StartDate,
			Status:  lr.Status,
			Message: lr.RejectReason,
			Data:    leaveJSON(*lr),
		})
	}
}

func (d Deps) notifyStudent(studentID string, msg ws.StudentMessage) {
	var st models.Student
	if err := d.DB.Select("id", "user_id_ref").Where("id = ?", studentID).First(&st).Error; err != nil {
		d.logger().Warn("notify student", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if st.UserIDRef == nil {
		return
	}
	d.Hubs.Student.Notify(*st.UserIDRef, msg)
}
