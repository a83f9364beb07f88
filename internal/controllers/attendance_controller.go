package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/reports"
)

// AttendanceController serves the absensi endpoints of every role.
type AttendanceController struct {
	Deps
}

// dateRange reads date, or start/end, falling back to defStart..defEnd.
func dateRange(c *gin.Context, p attendance.Policy, defStart, defEnd string) (string, string, error) {
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	if d := strings.TrimSpace(c.Query("date")); d != "" {
		start, end = d, d
	}
	if start == "" {
		start = defStart
	}
	if end == "" {
		end = defEnd
	}
	from, err := attendance.ParseDate(start, p.Location)
	if err != nil {
		return "", "", err
	}
	to, err := attendance.ParseDate(end, p.Location)
	if err != nil {
		return "", "", err
	}
	if from.After(to) {
		return "", "", attendance.ErrInvalidRange
	}
	return start, end, nil
}

// statusFilter parses a comma separated status list.
func statusFilter(raw string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		s = attendance.NormalizeStatus(s)
		if !attendance.IsValidStatus(s) {
			return nil, errors.Wrapf(attendance.ErrInvalidStatus, "%q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

func entriesOf(recs []models.Attendance) []reports.Entry {
	out := make([]reports.Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, reports.Entry{StudentID: r.StudentIDRef, Status: r.Status, Late: r.Late})
	}
	return out
}

// canManage checks the caller may edit rec: the record's class, or the
// student's current class when the record has none.
func (ac *AttendanceController) canManage(user models.User, rec *models.Attendance) error {
	if user.Role == models.RoleAdmin {
		return nil
	}
	if rec.ClassIDRef != nil {
		return ac.requireClass(user, *rec.ClassIDRef)
	}
	_, err := ac.requireStudent(user, rec.StudentIDRef)
	return err
}

func (ac *AttendanceController) loadRecord(c *gin.Context) (*models.Attendance, bool) {
	var rec models.Attendance
	if err := ac.DB.Where("id = ?", strings.TrimSpace(c.Param("id"))).First(&rec).Error; err != nil {
		notFound(c, "attendance")
		return nil, false
	}
	user, _ := middleware.CurrentUser(c)
	if err := ac.canManage(user, &rec); err != nil {
		ac.respondError(c, err)
		return nil, false
	}
	return &rec, true
}

// List returns attendance rows in the caller's classes. Filters:
// class_id, student_id, date or start/end (default today), status.
func (ac *AttendanceController) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	p := ac.policy()
	today := p.Today(ac.now())
	start, end, err := dateRange(c, p, today, today)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	statuses, err := statusFilter(c.Query("status"))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	lq := parseListQuery(c, 50, map[string]string{
		"date":        "absensi.date",
		"created_at":  "absensi.created_at",
		"status":      "absensi.status",
		"check_in_at": "absensi.check_in_at",
		"full_name":   "s.full_name",
	}, "date")

	scope, all, err := ac.ClassScope(user)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	classID := strings.TrimSpace(c.Query("class_id"))
	if classID != "" {
		if err := ac.requireClass(user, classID); err != nil {
			ac.respondError(c, err)
			return
		}
	} else if !all && len(scope) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []any{}, "meta": lq.meta(0)})
		return
	}
	studentID := strings.TrimSpace(c.Query("student_id"))

	filter := func(q *gorm.DB) *gorm.DB {
		q = q.Joins("JOIN students s ON s.id = absensi.student_id_ref").
			Where("absensi.date BETWEEN ? AND ?", start, end)
		switch {
		case classID != "":
			q = q.Where("absensi.class_id_ref = ?", classID)
		case !all:
			q = q.Where("absensi.class_id_ref IN ?", scope)
		}
		if studentID != "" {
			q = q.Where("absensi.student_id_ref = ?", studentID)
		}
		if len(statuses) > 0 {
			q = q.Where("absensi.status IN ?", statuses)
		}
		if lq.Q != "" {
			q = q.Where("LOWER(s.full_name) LIKE ? OR LOWER(s.nis) LIKE ?", lq.like(), lq.like())
		}
		return q
	}

	var total int64
	if err := filter(ac.DB.Model(&models.Attendance{})).Count(&total).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	type row struct {
		models.Attendance
		FullName string
		NIS      string
	}
	var rows []row
	if err := lq.page(filter(ac.DB.Model(&models.Attendance{}))).
		Select("absensi.*, s.full_name AS full_name, s.nis AS nis").
		Scan(&rows).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		entry := attendanceJSON(r.Attendance)
		entry["full_name"] = r.FullName
		entry["nis"] = r.NIS
		out = append(out, entry)
	}
	meta := lq.meta(total)
	meta["start"] = start
	meta["end"] = end
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

type recordRequest struct {
	StudentID string  `json:"student_id" binding:"required"`
	Date      string  `json:"date" binding:"omitempty,ymd"`
	Status    string  `json:"status" binding:"required"`
	Notes     *string `json:"notes"`
}

// record upserts a final status for one student and day.
func (ac *AttendanceController) record(tx *gorm.DB, actor models.User, st *models.Student, date, status string, notes *string) (*models.Attendance, error) {
	var rec models.Attendance
	err := tx.Where("student_id_ref = ? AND date = ?", st.ID, date).First(&rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = models.Attendance{StudentIDRef: st.ID, ClassIDRef: st.ClassIDRef, Date: date}
	case err != nil:
		return nil, err
	}
	if err := attendance.Record(&rec, status, actor.ID, ac.now()); err != nil {
		return nil, err
	}
	if notes != nil {
		rec.Notes = strings.TrimSpace(*notes)
	}
	if err := tx.Save(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// recordDate defaults to today and rejects future and non-school days.
func (ac *AttendanceController) recordDate(p attendance.Policy, date string) (string, error) {
	now := ac.now()
	if date == "" {
		date = p.Today(now)
	}
	if err := p.NotAfterToday(date, now); err != nil {
		return "", err
	}
	if !p.IsSchoolDay(date) {
		return "", errors.Wrapf(attendance.ErrNotSchoolDay, "%s", date)
	}
	return date, nil
}

// Record sets the final status of one student for one day.
func (ac *AttendanceController) Record(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	p := ac.policy()
	date, err := ac.recordDate(p, req.Date)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	st, err := ac.requireStudent(user, strings.TrimSpace(req.StudentID))
	if err != nil {
		ac.respondError(c, err)
		return
	}
	var rec *models.Attendance
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = ac.record(tx, user, st, date, req.Status, req.Notes)
		return err
	})
	if err != nil {
		ac.respondError(c, err)
		return
	}
	ac.publishAttendance(rec)
	c.JSON(http.StatusOK, attendanceJSON(*rec))
}

type bulkEntry struct {
	StudentID string  `json:"student_id" binding:"required"`
	Status    string  `json:"status" binding:"required"`
	Notes     *string `json:"notes"`
}

type bulkRecordRequest struct {
	ClassID string      `json:"class_id" binding:"required"`
	Date    string      `json:"date" binding:"omitempty,ymd"`
	Entries []bulkEntry `json:"entries" binding:"required,min=1,dive"`
}

// BulkRecord writes a whole class sheet in one transaction; any invalid
// entry rolls everything back.
func (ac *AttendanceController) BulkRecord(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req bulkRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := ac.requireClass(user, req.ClassID); err != nil {
		ac.respondError(c, err)
		return
	}
	p := ac.policy()
	date, err := ac.recordDate(p, req.Date)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	var students []models.Student
	if err := ac.DB.Where("class_id_ref = ?", req.ClassID).Find(&students).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	roster := make(map[string]*models.Student, len(students))
	for i := range students {
		roster[students[i].ID] = &students[i]
	}

	saved := make([]*models.Attendance, 0, len(req.Entries))
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		for _, e := range req.Entries {
			st, ok := roster[strings.TrimSpace(e.StudentID)]
			if !ok {
				return errors.Wrapf(errForbidden, "student %s is not in this class", e.StudentID)
			}
			rec, err := ac.record(tx, user, st, date, e.Status, e.Notes)
			if err != nil {
				return errors.Wrapf(err, "student %s", st.NIS)
			}
			saved = append(saved, rec)
		}
		return nil
	})
	if err != nil {
		ac.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(saved))
	for _, rec := range saved {
		ac.publishAttendance(rec)
		out = append(out, attendanceJSON(*rec))
	}
	c.JSON(http.StatusOK, gin.H{"message": "recorded", "date": date, "count": len(saved), "data": out})
}

type verifyRequest struct {
	Status string `json:"status" binding:"required"`
}

// Verify turns a pending check-in into a final status.
func (ac *AttendanceController) Verify(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	rec, ok := ac.loadRecord(c)
	if !ok {
		return
	}
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := attendance.Verify(rec, req.Status, user.ID, ac.now()); err != nil {
		ac.respondError(c, err)
		return
	}
	if err := ac.DB.Save(rec).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	ac.publishAttendance(rec)
	c.JSON(http.StatusOK, attendanceJSON(*rec))
}

type bulkVerifyRequest struct {
	IDs    []string `json:"ids" binding:"required,min=1"`
	Status string   `json:"status"`
}

type skippedRecord struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkVerify verifies many pending rows (status defaults to hadir). Rows
// that are not pending or outside the caller's classes are skipped.
func (ac *AttendanceController) BulkVerify(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req bulkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	status := attendance.NormalizeStatus(req.Status)
	if status == "" {
		status = attendance.StatusHadir
	}
	if !attendance.IsFinal(status) {
		ac.respondError(c, errors.Wrapf(attendance.ErrInvalidStatus, "%q", status))
		return
	}

	var recs []models.Attendance
	if err := ac.DB.Where("id IN ?", ids).Find(&recs).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	skipped := []skippedRecord{}
	found := make(map[string]bool, len(recs))
	allowed := make([]*models.Attendance, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		found[rec.ID] = true
		if err := ac.canManage(user, rec); err != nil {
			skipped = append(skipped, skippedRecord{ID: rec.ID, Error: err.Error()})
			continue
		}
		allowed = append(allowed, rec)
	}
	for _, id := range ids {
		if !found[id] {
			skipped = append(skipped, skippedRecord{ID: id, Error: "not found"})
		}
	}

	var verified []*models.Attendance
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		for _, rec := range allowed {
			if err := attendance.Verify(rec, status, user.ID, ac.now()); err != nil {
				skipped = append(skipped, skippedRecord{ID: rec.ID, Error: err.Error()})
				continue
			}
			// Only rows still pending in the database are updated.
			res := tx.Model(&models.Attendance{}).
				Where("id = ? AND status = ?", rec.ID, attendance.StatusPending).
				Updates(map[string]interface{}{
					"status":      rec.Status,
					"verified_by": rec.VerifiedBy,
					"verified_at": rec.VerifiedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				skipped = append(skipped, skippedRecord{ID: rec.ID, Error: attendance.ErrNotPending.Error()})
				continue
			}
			verified = append(verified, rec)
		}
		return nil
	})
	if err != nil {
		ac.respondError(c, err)
		return
	}
	for _, rec := range verified {
		ac.publishAttendance(rec)
	}
	c.JSON(http.StatusOK, gin.H{"verified": len(verified), "skipped": skipped})
}

type updateAttendanceRequest struct {
	Status *string `json:"status"`
	Notes  *string `json:"notes"`
}

// Update corrects a row: pending rows are verified, final rows may move
// to another final status.
func (ac *AttendanceController) Update(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	rec, ok := ac.loadRecord(c)
	if !ok {
		return
	}
	var req updateAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Status != nil {
		var err error
		if rec.Status == attendance.StatusPending {
			err = attendance.Verify(rec, *req.Status, user.ID, ac.now())
		} else {
			err = attendance.Record(rec, *req.Status, user.ID, ac.now())
		}
		if err != nil {
			ac.respondError(c, err)
			return
		}
	}
	if req.Notes != nil {
		rec.Notes = strings.TrimSpace(*req.Notes)
	}
	if err := ac.DB.Save(rec).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	ac.publishAttendance(rec)
	c.JSON(http.StatusOK, attendanceJSON(*rec))
}

func (ac *AttendanceController) Delete(c *gin.Context) {
	rec, ok := ac.loadRecord(c)
	if !ok {
		return
	}
	if err := ac.DB.Delete(rec).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ClassSheet lists every active student of a class with its row for the
// date (default today), or null when nothing is recorded yet.
func (ac *AttendanceController) ClassSheet(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	classID := strings.TrimSpace(c.Param("id"))
	var cl models.Class
	if err := ac.DB.Where("id = ?", classID).First(&cl).Error; err != nil {
		notFound(c, "class")
		return
	}
	if err := ac.requireClass(user, cl.ID); err != nil {
		ac.respondError(c, err)
		return
	}
	p := ac.policy()
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = p.Today(ac.now())
	}
	if _, err := attendance.ParseDate(date, p.Location); err != nil {
		ac.respondError(c, err)
		return
	}

	var students []models.Student
	if err := ac.DB.Where("class_id_ref = ? AND active = ?", cl.ID, true).Order("full_name ASC").Find(&students).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	byStudent := map[string]models.Attendance{}
	var recs []models.Attendance
	if len(ids) > 0 {
		if err := ac.DB.Where("date = ? AND student_id_ref IN ?", date, ids).Find(&recs).Error; err != nil {
			ac.respondError(c, err)
			return
		}
		for _, r := range recs {
			byStudent[r.StudentIDRef] = r
		}
	}

	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		var rec any
		if r, ok := byStudent[s.ID]; ok {
			rec = attendanceJSON(r)
		}
		out = append(out, gin.H{
			"student_id": s.ID,
			"nis":        s.NIS,
			"full_name":  s.FullName,
			"attendance": rec,
		})
	}
	summary := reports.Summary(entriesOf(recs))
	summary["unrecorded"] = len(students) - len(recs)
	c.JSON(http.StatusOK, gin.H{
		"class":      gin.H{"id": cl.ID, "name": cl.Name},
		"date":       date,
		"school_day": p.IsSchoolDay(date),
		"data":       out,
		"summary":    summary,
	})
}
