package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/reports"
)

// currentStudent resolves the siswa profile of the caller.
func (ac *AttendanceController) currentStudent(c *gin.Context) (*models.Student, bool) {
	user, _ := middleware.CurrentUser(c)
	st, err := ac.studentOf(ac.DB, user)
	if err != nil {
		ac.respondError(c, err)
		return nil, false
	}
	if !st.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "student is inactive"})
		return nil, false
	}
	return st, true
}

// activeCodes returns today's unrevoked, unexpired codes of a class.
func (d Deps) activeCodes(classID, date string, now time.Time) ([]models.CheckinCode, error) {
	var codes []models.CheckinCode
	err := d.DB.Where("class_id_ref = ? AND date = ? AND revoked_at IS NULL AND expires_at > ?", classID, date, now.UTC()).
		Find(&codes).Error
	return codes, err
}

// checkCode passes when the class has no active code or code matches one.
func (ac *AttendanceController) checkCode(classID, date, code string, now time.Time) error {
	codes, err := ac.activeCodes(classID, date, now)
	if err != nil {
		return err
	}
	if len(codes) == 0 {
		return nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, cc := range codes {
		if cc.Code == code {
			return nil
		}
	}
	return errCheckinCode
}

type checkInRequest struct {
	Code  string `json:"code"`
	Notes string `json:"notes"`
}

// CheckIn opens today's row as pending.
func (ac *AttendanceController) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	st, ok := ac.currentStudent(c)
	if !ok {
		return
	}
	if st.ClassIDRef == nil {
		badRequest(c, "student is not assigned to a class")
		return
	}
	p := ac.policy()
	now := ac.now()
	date := p.Today(now)
	if !p.IsSchoolDay(date) {
		ac.respondError(c, attendance.ErrNotSchoolDay)
		return
	}
	if err := ac.checkCode(*st.ClassIDRef, date, req.Code, now); err != nil {
		ac.respondError(c, err)
		return
	}

	var saved *models.Attendance
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Attendance
		var cur *models.Attendance
		err := tx.Where("student_id_ref = ? AND date = ?", st.ID, date).First(&existing).Error
		switch {
		case err == nil:
			cur = &existing
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		rec, err := attendance.CheckIn(p, cur, st.ID, st.ClassIDRef, now)
		if err != nil {
			return err
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			rec.Notes = notes
		}
		if cur == nil {
			err = tx.Create(rec).Error
		} else {
			err = tx.Save(rec).Error
		}
		if database.IsUniqueViolation(err) {
			return attendance.ErrAlreadyCheckedIn
		}
		saved = rec
		return err
	})
	if err != nil {
		ac.respondError(c, err)
		return
	}
	ac.publishAttendance(saved)
	c.JSON(http.StatusCreated, attendanceJSON(*saved))
}

// CheckOut stamps the check-out time on today's row.
func (ac *AttendanceController) CheckOut(c *gin.Context) {
	st, ok := ac.currentStudent(c)
	if !ok {
		return
	}
	p := ac.policy()
	now := ac.now()
	var rec *models.Attendance
	var existing models.Attendance
	err := ac.DB.Where("student_id_ref = ? AND date = ?", st.ID, p.Today(now)).First(&existing).Error
	switch {
	case err == nil:
		rec = &existing
	case !errors.Is(err, gorm.ErrRecordNotFound):
		ac.respondError(c, err)
		return
	}
	if err := attendance.CheckOut(p, rec, now); err != nil {
		ac.respondError(c, err)
		return
	}
	// Guard against a concurrent check-out.
	res := ac.DB.Model(&models.Attendance{}).
		Where("id = ? AND check_out_at IS NULL", rec.ID).
		Update("check_out_at", rec.CheckOutAt)
	if res.Error != nil {
		ac.respondError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		ac.respondError(c, attendance.ErrAlreadyCheckedOut)
		return
	}
	ac.publishAttendance(rec)
	c.JSON(http.StatusOK, attendanceJSON(*rec))
}

// Today reports the caller's row for today and the check-in window.
func (ac *AttendanceController) Today(c *gin.Context) {
	st, ok := ac.currentStudent(c)
	if !ok {
		return
	}
	p := ac.policy()
	now := ac.now()
	date := p.Today(now)

	var record any
	var rec models.Attendance
	if err := ac.DB.Where("student_id_ref = ? AND date = ?", st.ID, date).First(&rec).Error; err == nil {
		record = attendanceJSON(rec)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		ac.respondError(c, err)
		return
	}
	codeRequired := false
	if st.ClassIDRef != nil {
		codes, err := ac.activeCodes(*st.ClassIDRef, date, now)
		if err != nil {
			ac.respondError(c, err)
			return
		}
		codeRequired = len(codes) > 0
	}
	c.JSON(http.StatusOK, gin.H{
		"date":              date,
		"school_day":        p.IsSchoolDay(date),
		"late_after":        p.LateAfter.String(),
		"checkout_earliest": p.CheckoutEarliest.String(),
		"code_required":     codeRequired,
		"attendance":        record,
	})
}

// MyHistory lists the caller's rows in start..end (default: this month
// up to today) with per-status counts.
func (ac *AttendanceController) MyHistory(c *gin.Context) {
	st, ok := ac.currentStudent(c)
	if !ok {
		return
	}
	p := ac.policy()
	today := p.Today(ac.now())
	monthStart := today[:8] + "01"
	start, end, err := dateRange(c, p, monthStart, today)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	statuses, err := statusFilter(c.Query("status"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	q := ac.DB.Where("student_id_ref = ? AND date BETWEEN ? AND ?", st.ID, start, end)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var recs []models.Attendance
	if err := q.Order("date DESC").Find(&recs).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(recs))
	for _, r := range recs {
		out = append(out, attendanceJSON(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"data":    out,
		"summary": reports.Summary(entriesOf(recs)),
		"meta":    gin.H{"start": start, "end": end, "total": len(out)},
	})
}

// Calendar returns one entry per day of month=YYYY-MM (default current
// month); days without a row have a null status.
func (ac *AttendanceController) Calendar(c *gin.Context) {
	st, ok := ac.currentStudent(c)
	if !ok {
		return
	}
	p := ac.policy()
	month := strings.TrimSpace(c.Query("month"))
	if month == "" {
		month = p.Today(ac.now())[:7]
	}
	start, end, err := attendance.MonthRange(month, p.Location)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	days, err := attendance.DateRange(start, end, p.Location)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	var recs []models.Attendance
	if err := ac.DB.Where("student_id_ref = ? AND date BETWEEN ? AND ?", st.ID, start, end).Find(&recs).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	byDate := make(map[string]models.Attendance, len(recs))
	for _, r := range recs {
		byDate[r.Date] = r
	}

	out := make([]gin.H, 0, len(days))
	for _, d := range days {
		entry := gin.H{
			"date":         d,
			"school_day":   p.IsSchoolDay(d),
			"status":       nil,
			"late":         false,
			"check_in_at":  nil,
			"check_out_at": nil,
		}
		if r, ok := byDate[d]; ok {
			entry["id"] = r.ID
			entry["status"] = r.Status
			entry["late"] = r.Late
			entry["check_in_at"] = r.CheckInAt
			entry["check_out_at"] = r.CheckOutAt
			entry["notes"] = r.Notes
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{
		"month":   month,
		"days":    out,
		"summary": reports.Summary(entriesOf(recs)),
	})
}
