package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

func userJSON(u models.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"user_id":       u.ID,
		"full_name":     u.FullName,
		"email":         u.Email,
		"role":          u.Role,
		"active":        u.Active,
		"last_login_at": u.LastLoginAt,
		"created_at":    u.CreatedAt,
		"updated_at":    u.UpdatedAt,
	}
}

func teacherJSON(t models.Teacher) gin.H {
	return gin.H{
		"id":         t.ID,
		"user_id":    t.UserIDRef,
		"nip":        t.NIP,
		"full_name":  t.FullName,
		"gender":     t.Gender,
		"phone":      t.Phone,
		"address":    t.Address,
		"subject":    t.Subject,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}

func studentJSON(s models.Student) gin.H {
	return gin.H{
		"id":           s.ID,
		"user_id":      s.UserIDRef,
		"nis":          s.NIS,
		"nisn":         s.NISN,
		"full_name":    s.FullName,
		"gender":       s.Gender,
		"birth_date":   s.BirthDate,
		"phone":        s.Phone,
		"address":      s.Address,
		"parent_name":  s.ParentName,
		"parent_phone": s.ParentPhone,
		"class_id":     s.ClassIDRef,
		"active":       s.Active,
		"created_at":   s.CreatedAt,
		"updated_at":   s.UpdatedAt,
	}
}

func classJSON(cl models.Class) gin.H {
	return gin.H{
		"id":                  cl.ID,
		"name":                cl.Name,
		"grade":               cl.Grade,
		"major_id":            cl.MajorIDRef,
		"academic_year":       cl.AcademicYear,
		"homeroom_teacher_id": cl.HomeroomTeacherIDRef,
		"active":              cl.Active,
		"created_at":          cl.CreatedAt,
		"updated_at":          cl.UpdatedAt,
	}
}

func attendanceJSON(a models.Attendance) gin.H {
	return gin.H{
		"id":               a.ID,
		"student_id":       a.StudentIDRef,
		"class_id":         a.ClassIDRef,
		"date":             a.Date,
		"status":           a.Status,
		"check_in_at":      a.CheckInAt,
		"check_out_at":     a.CheckOutAt,
		"late":             a.Late,
		"notes":            a.Notes,
		"recorded_by":      a.RecordedBy,
		"verified_by":      a.VerifiedBy,
		"verified_at":      a.VerifiedAt,
		"leave_request_id": a.LeaveRequestIDRef,
		"created_at":       a.CreatedAt,
		"updated_at":       a.UpdatedAt,
	}
}

func leaveJSON(l models.LeaveRequest) gin.H {
	return gin.H{
		"id":             l.ID,
		"student_id":     l.StudentIDRef,
		"type":           l.Type,
		"start_date":     l.StartDate,
		"end_date":       l.EndDate,
		"reason":         l.Reason,
		"attachment_url": l.AttachmentURL,
		"status":         l.Status,
		"approver_id":    l.ApproverIDRef,
		"decided_at":     l.DecidedAt,
		"reject_reason":  l.RejectReason,
		"created_at":     l.CreatedAt,
		"updated_at":     l.UpdatedAt,
	}
}
