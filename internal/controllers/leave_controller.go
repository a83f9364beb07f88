package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

type LeaveController struct {
	Deps
}

type submitLeaveRequest struct {
	Type          string `json:"type" binding:"required"`
	StartDate     string `json:"start_date" binding:"required,ymd"`
	EndDate       string `json:"end_date" binding:"required,ymd"`
	Reason        string `json:"reason" binding:"required"`
	AttachmentURL string `json:"attachment_url" binding:"omitempty,url"`
}

var leaveSorts = map[string]string{
	"created_at": "leave_requests.created_at",
	"start_date": "leave_requests.start_date",
	"status":     "leave_requests.status",
}

// Submit files a leave request for the calling student.
func (lc *LeaveController) Submit(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req submitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := lc.studentOf(lc.DB, user)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	p := lc.policy()
	typ, err := attendance.ValidateLeave(p, req.Type, req.StartDate, req.EndDate, req.Reason, lc.now())
	if err != nil {
		lc.respondError(c, err)
		return
	}
	lr := models.LeaveRequest{
		StudentIDRef:  st.ID,
		Type:          typ,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Reason:        strings.TrimSpace(req.Reason),
		AttachmentURL: strings.TrimSpace(req.AttachmentURL),
		Status:        attendance.LeavePending,
	}
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LeaveRequest{}).
			Where("student_id_ref = ? AND status IN ?", st.ID, []string{attendance.LeavePending, attendance.LeaveApproved}).
			Where("start_date <= ? AND end_date >= ?", lr.EndDate, lr.StartDate).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return attendance.ErrLeaveOverlap
		}
		return tx.Create(&lr).Error
	})
	if err != nil {
		lc.respondError(c, err)
		return
	}
	lc.publishLeave(ws.EventLeaveSubmitted, &lr, st.ClassIDRef)
	c.JSON(http.StatusCreated, leaveJSON(lr))
}

// ListMine lists the caller's own requests, newest first.
func (lc *LeaveController) ListMine(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	st, err := lc.studentOf(lc.DB, user)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	lq := parseListQuery(c, 20, leaveSorts, "created_at")
	status := strings.TrimSpace(strings.ToLower(c.Query("status")))
	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Where("student_id_ref = ?", st.ID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}
	var total int64
	if err := filter(lc.DB.Model(&models.LeaveRequest{})).Count(&total).Error; err != nil {
		lc.respondError(c, err)
		return
	}
	var items []models.LeaveRequest
	if err := lq.page(filter(lc.DB.Model(&models.LeaveRequest{}))).Find(&items).Error; err != nil {
		lc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, lr := range items {
		out = append(out, leaveJSON(lr))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": lq.meta(total)})
}

// Cancel withdraws one of the caller's pending requests.
func (lc *LeaveController) Cancel(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	st, err := lc.studentOf(lc.DB, user)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	var lr models.LeaveRequest
	if err := lc.DB.Where("id = ? AND student_id_ref = ?", c.Param("id"), st.ID).First(&lr).Error; err != nil {
		notFound(c, "leave request")
		return
	}
	if lr.Status != attendance.LeavePending {
		lc.respondError(c, attendance.ErrLeaveNotPending)
		return
	}
	if err := lc.DB.Delete(&lr).Error; err != nil {
		lc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cancelled"})
}

// scoped restricts a leave_requests query joined with students to the
// caller's classes. ok=false means the caller manages no class.
func (lc *LeaveController) scoped(user models.User) (func(*gorm.DB) *gorm.DB, bool, error) {
	ids, all, err := lc.ClassScope(user)
	if err != nil {
		return nil, false, err
	}
	if all {
		return func(q *gorm.DB) *gorm.DB { return q }, true, nil
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return func(q *gorm.DB) *gorm.DB { return q.Where("s.class_id_ref IN ?", ids) }, true, nil
}

// List shows requests of the caller's students. Filters: status, type,
// class_id, student_id, start/end (overlapping the range), q.
func (lc *LeaveController) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	lq := parseListQuery(c, 20, leaveSorts, "created_at")
	scope, ok, err := lc.scoped(user)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{"data": []any{}, "meta": lq.meta(0)})
		return
	}
	status := strings.TrimSpace(strings.ToLower(c.Query("status")))
	typ := attendance.NormalizeStatus(c.Query("type"))
	classID := strings.TrimSpace(c.Query("class_id"))
	studentID := strings.TrimSpace(c.Query("student_id"))
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))

	filter := func(q *gorm.DB) *gorm.DB {
		q = scope(q.Joins("JOIN students s ON s.id = leave_requests.student_id_ref"))
		if status != "" {
			q = q.Where("leave_requests.status = ?", status)
		}
		if typ != "" {
			q = q.Where("leave_requests.type = ?", typ)
		}
		if classID != "" {
			q = q.Where("s.class_id_ref = ?", classID)
		}
		if studentID != "" {
			q = q.Where("leave_requests.student_id_ref = ?", studentID)
		}
		if start != "" {
			q = q.Where("leave_requests.end_date >= ?", start)
		}
		if end != "" {
			q = q.Where("leave_requests.start_date <= ?", end)
		}
		if lq.Q != "" {
			q = q.Where("LOWER(s.full_name) LIKE ? OR LOWER(s.nis) LIKE ?", lq.like(), lq.like())
		}
		return q
	}

	var total int64
	if err := filter(lc.DB.Model(&models.LeaveRequest{})).Count(&total).Error; err != nil {
		lc.respondError(c, err)
		return
	}
	type row struct {
		models.LeaveRequest
		FullName   string
		NIS        string
		ClassIDRef *string
	}
	var rows []row
	if err := lq.page(filter(lc.DB.Model(&models.LeaveRequest{}))).
		Select("leave_requests.*, s.full_name AS full_name, s.nis AS nis, s.class_id_ref AS class_id_ref").
		Scan(&rows).Error; err != nil {
		lc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		entry := leaveJSON(r.LeaveRequest)
		entry["full_name"] = r.FullName
		entry["nis"] = r.NIS
		entry["class_id"] = r.ClassIDRef
		out = append(out, entry)
	}
	meta := lq.meta(total)
	if status != "" {
		meta["status"] = status
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

// PendingCount feeds the dashboard badge.
func (lc *LeaveController) PendingCount(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	n, err := lc.pendingLeaveCount(user)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": n})
}

func (lc *LeaveController) pendingLeaveCount(user models.User) (int64, error) {
	return pendingLeaveCount(lc.Deps, user)
}

func pendingLeaveCount(d Deps, user models.User) (int64, error) {
	ids, all, err := d.ClassScope(user)
	if err != nil {
		return 0, err
	}
	if !all && len(ids) == 0 {
		return 0, nil
	}
	q := d.DB.Model(&models.LeaveRequest{}).
		Joins("JOIN students s ON s.id = leave_requests.student_id_ref").
		Where("leave_requests.status = ?", attendance.LeavePending)
	if !all {
		q = q.Where("s.class_id_ref IN ?", ids)
	}
	var n int64
	err = q.Count(&n).Error
	return n, err
}

type decideRequest struct {
	Reason       string `json:"reason"`
	RejectReason string `json:"reject_reason"`
}

func (r decideRequest) reason() string {
	if strings.TrimSpace(r.RejectReason) != "" {
		return r.RejectReason
	}
	return r.Reason
}

// Approve marks the request approved and writes izin/sakit rows for each
// school day in range, all in one transaction.
func (lc *LeaveController) Approve(c *gin.Context) {
	lc.decide(c, true)
}

// Reject needs a reason.
func (lc *LeaveController) Reject(c *gin.Context) {
	lc.decide(c, false)
}

func (lc *LeaveController) decide(c *gin.Context, approve bool) {
	user, _ := middleware.CurrentUser(c)
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	var lr models.LeaveRequest
	if err := lc.DB.Where("id = ?", strings.TrimSpace(c.Param("id"))).First(&lr).Error; err != nil {
		notFound(c, "leave request")
		return
	}
	st, err := lc.requireStudent(user, lr.StudentIDRef)
	if err != nil {
		lc.respondError(c, err)
		return
	}
	p := lc.policy()

	var written []*models.Attendance
	err = lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", lr.ID).First(&lr).Error; err != nil {
			return err
		}
		now := lc.now()
		if err := attendance.Decide(&lr, approve, user.ID, req.reason(), now); err != nil {
			return err
		}
		if err := tx.Save(&lr).Error; err != nil {
			return err
		}
		if !approve {
			return nil
		}
		var recs []models.Attendance
		if err := tx.Where("student_id_ref = ? AND date BETWEEN ? AND ?", lr.StudentIDRef, lr.StartDate, lr.EndDate).
			Find(&recs).Error; err != nil {
			return err
		}
		existing := make(map[string]*models.Attendance, len(recs))
		for i := range recs {
			existing[recs[i].Date] = &recs[i]
		}
		var err error
		written, err = attendance.ApplyLeave(p, &lr, st.ClassIDRef, existing, user.ID, now)
		if err != nil {
			return err
		}
		for _, rec := range written {
			if err := tx.Save(rec).Error; err != nil {
				return errors.Wrapf(err, "date %s", rec.Date)
			}
		}
		return nil
	})
	if err != nil {
		lc.respondError(c, err)
		return
	}

	for _, rec := range written {
		lc.publishAttendance(rec)
	}
	lc.publishLeave(ws.EventLeaveDecided, &lr, st.ClassIDRef)
	out := leaveJSON(lr)
	out["attendance_written"] = len(written)
	c.JSON(http.StatusOK, out)
}
