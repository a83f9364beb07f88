package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/ws"
)

// MarkAbsent writes alpha for every active student of an active class
// that has no row on date. Pending rows are left for verification. It
// returns the number of rows written.
func (ac *AttendanceController) MarkAbsent(date string, actorID *string) (int, error) {
	p := ac.policy()
	if err := p.NotAfterToday(date, ac.now()); err != nil {
		return 0, err
	}
	if !p.IsSchoolDay(date) {
		return 0, errors.Wrapf(attendance.ErrNotSchoolDay, "%s", date)
	}

	var written []*models.Attendance
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		activeClasses := tx.Model(&models.Class{}).Select("id").Where("active = ?", true)
		recorded := tx.Model(&models.Attendance{}).Select("student_id_ref").Where("date = ?", date)
		var students []models.Student
		if err := tx.Where("active = ? AND class_id_ref IN (?) AND id NOT IN (?)", true, activeClasses, recorded).
			Find(&students).Error; err != nil {
			return err
		}
		now := ac.now()
		for _, s := range students {
			written = append(written, attendance.MarkAbsent(s.ID, s.ClassIDRef, date, actorID, now))
		}
		if len(written) == 0 {
			return nil
		}
		return tx.CreateInBatches(written, 200).Error
	})
	if err != nil {
		return 0, err
	}

	perClass := map[string]int{}
	for _, rec := range written {
		if rec.ClassIDRef != nil {
			perClass[*rec.ClassIDRef]++
		}
	}
	if ac.Hubs != nil {
		for classID, n := range perClass {
			id := classID
			ac.Hubs.Attendance.Broadcast(ws.Event{
				Type:    ws.EventDayClosed,
				ClassID: &id,
				Date:    date,
				Status:  attendance.StatusAlpha,
				Data:    gin.H{"marked_alpha": n},
			})
		}
	}
	return len(written), nil
}

// CloseDayJob is run by the scheduler for today; non-school days are
// skipped quietly.
func (ac *AttendanceController) CloseDayJob() {
	date := ac.policy().Today(ac.now())
	n, err := ac.MarkAbsent(date, nil)
	switch {
	case errors.Is(err, attendance.ErrNotSchoolDay):
		ac.logger().Debug("close day skipped", zap.String("date", date))
	case err != nil:
		ac.logger().Error("close day failed", zap.String("date", date), zap.Error(err))
	default:
		ac.logger().Info("close day", zap.String("date", date), zap.Int("marked_alpha", n))
	}
}

type closeDayRequest struct {
	Date string `json:"date" binding:"omitempty,ymd"`
}

// CloseDay is the admin trigger of MarkAbsent (date defaults to today).
func (ac *AttendanceController) CloseDay(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req closeDayRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err.Error())
		return
	}
	date := req.Date
	if date == "" {
		date = ac.policy().Today(ac.now())
	}
	actor := user.ID
	n, err := ac.MarkAbsent(date, &actor)
	if err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "day closed", "date": date, "marked_alpha": n})
}
