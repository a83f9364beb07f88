package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/reports"
)

type ReportController struct {
	Deps
}

// Summary returns today's dashboard counters for the caller.
func (rc *ReportController) Summary(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	out, err := rc.summaryFor(user)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// summaryFor builds the counters: the whole school for admin, the managed
// classes for guru, and the student's own month for siswa.
func (d Deps) summaryFor(user models.User) (gin.H, error) {
	p := d.policy()
	today := p.Today(d.now())

	if user.Role == models.RoleSiswa {
		st, err := d.studentOf(d.DB, user)
		if err != nil {
			return nil, err
		}
		var recs []models.Attendance
		if err := d.DB.Where("student_id_ref = ? AND date BETWEEN ? AND ?", st.ID, today[:8]+"01", today).
			Find(&recs).Error; err != nil {
			return nil, err
		}
		var todayStatus any
		for _, r := range recs {
			if r.Date == today {
				todayStatus = r.Status
			}
		}
		var pending int64
		if err := d.DB.Model(&models.LeaveRequest{}).
			Where("student_id_ref = ? AND status = ?", st.ID, attendance.LeavePending).
			Count(&pending).Error; err != nil {
			return nil, err
		}
		rows, _ := reports.Build([]reports.StudentInfo{{ID: st.ID}}, entriesOf(recs))
		return gin.H{
			"date":                   today,
			"school_day":             p.IsSchoolDay(today),
			"today_status":           todayStatus,
			"month":                  reports.Summary(entriesOf(recs)),
			"attendance_rate":        rows[0].Rate,
			"pending_leave_requests": pending,
		}, nil
	}

	ids, all, err := d.ClassScope(user)
	if err != nil {
		return nil, err
	}
	students := d.DB.Model(&models.Student{}).Where("active = ?", true)
	todayQ := d.DB.Model(&models.Attendance{}).Where("date = ?", today)
	classes := d.DB.Model(&models.Class{}).Where("active = ?", true)
	if !all {
		students = students.Where("class_id_ref IN ?", ids)
		todayQ = todayQ.Where("class_id_ref IN ?", ids)
		classes = classes.Where("id IN ?", ids)
	}

	var studentCount, classCount int64
	if err := students.Count(&studentCount).Error; err != nil {
		return nil, err
	}
	if err := classes.Count(&classCount).Error; err != nil {
		return nil, err
	}
	var recs []models.Attendance
	if err := todayQ.Select("student_id_ref", "status", "late").Find(&recs).Error; err != nil {
		return nil, err
	}
	pendingLeave, err := pendingLeaveCount(d, user)
	if err != nil {
		return nil, err
	}
	late := 0
	for _, r := range recs {
		if r.Late {
			late++
		}
	}
	unrecorded := int(studentCount) - len(recs)
	if unrecorded < 0 {
		unrecorded = 0
	}
	out := gin.H{
		"date":                   today,
		"school_day":             p.IsSchoolDay(today),
		"today":                  reports.Summary(entriesOf(recs)),
		"late_today":             late,
		"unrecorded_today":       unrecorded,
		"students":               studentCount,
		"classes":                classCount,
		"pending_leave_requests": pendingLeave,
	}
	if all {
		var teacherCount int64
		if err := d.DB.Model(&models.Teacher{}).Count(&teacherCount).Error; err != nil {
			return nil, err
		}
		out["teachers"] = teacherCount
	}
	return out, nil
}

// buildReport aggregates start..end (default month to date) for the
// students the caller may see, narrowed by class_id and student_id.
func (rc *ReportController) buildReport(c *gin.Context) (reports.Report, error) {
	user, _ := middleware.CurrentUser(c)
	p := rc.policy()
	now := rc.now()
	today := p.Today(now)
	start, end, err := dateRange(c, p, today[:8]+"01", today)
	if err != nil {
		return reports.Report{}, err
	}
	classID := strings.TrimSpace(c.Query("class_id"))
	studentID := strings.TrimSpace(c.Query("student_id"))

	q := rc.DB.Table("students AS s").
		Select("s.id AS id, s.nis AS nis, s.full_name AS full_name, COALESCE(k.name, '') AS class_name").
		Joins("LEFT JOIN classes k ON k.id = s.class_id_ref")
	className := ""
	switch user.Role {
	case models.RoleSiswa:
		st, err := rc.studentOf(rc.DB, user)
		if err != nil {
			return reports.Report{}, err
		}
		q = q.Where("s.id = ?", st.ID)
	default:
		ids, all, err := rc.ClassScope(user)
		if err != nil {
			return reports.Report{}, err
		}
		if classID != "" {
			if err := rc.requireClass(user, classID); err != nil {
				return reports.Report{}, err
			}
			var cl models.Class
			if err := rc.DB.Where("id = ?", classID).First(&cl).Error; err != nil {
				return reports.Report{}, err
			}
			className = cl.Name
			q = q.Where("s.class_id_ref = ?", classID)
		} else if !all {
			if len(ids) == 0 {
				return reports.Report{}, errors.Wrap(errForbidden, "no classes assigned")
			}
			q = q.Where("s.class_id_ref IN ?", ids)
		}
		if studentID != "" {
			q = q.Where("s.id = ?", studentID)
		} else {
			q = q.Where("s.active = ?", true)
		}
	}

	var students []reports.StudentInfo
	if err := q.Scan(&students).Error; err != nil {
		return reports.Report{}, err
	}
	var entries []reports.Entry
	if len(students) > 0 {
		ids := make([]string, 0, len(students))
		for _, s := range students {
			ids = append(ids, s.ID)
		}
		if err := rc.DB.Model(&models.Attendance{}).
			Select("student_id_ref AS student_id, status, late").
			Where("student_id_ref IN ? AND date BETWEEN ? AND ?", ids, start, end).
			Scan(&entries).Error; err != nil {
			return reports.Report{}, err
		}
	}
	rows, totals := reports.Build(students, entries)
	return reports.Report{
		SchoolName:  rc.schoolName(),
		Title:       "Rekap Absensi Siswa",
		Start:       start,
		End:         end,
		ClassName:   className,
		Rows:        rows,
		Totals:      totals,
		GeneratedAt: now.In(p.Location),
	}, nil
}

// Generate returns the recap as JSON.
func (rc *ReportController) Generate(c *gin.Context) {
	rep, err := rc.buildReport(c)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Export renders the recap as format=pdf|xlsx|csv.
func (rc *ReportController) Export(c *gin.Context) {
	format, err := reports.ParseFormat(c.DefaultQuery("format", "xlsx"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rep, err := rc.buildReport(c)
	if err != nil {
		rc.respondError(c, err)
		return
	}
	c.Header("Content-Type", format.ContentType())
	c.Header("Content-Disposition", `attachment; filename="`+format.Filename(rep)+`"`)
	c.Status(http.StatusOK)
	if err := reports.Write(c.Writer, format, rep); err != nil {
		rc.logger().Error("report export failed", zap.String("format", string(format)), zap.Error(err))
	}
}

