package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
)

var (
	errForbidden       = errors.New("not allowed for this class")
	errNoStudent       = errors.New("no student profile linked to this account")
	errNoTeacher       = errors.New("no teacher profile linked to this account")
	errCheckinCode     = errors.New("invalid or missing check-in code")
	errClassNotEmpty   = errors.New("class still has students")
	errInvalidID       = errors.New("invalid id")
	errAccountConflict = errors.New("email already exists")
	errRefreshReused   = errors.New("refresh token already rotated")
)

var errorStatus = []struct {
	err    error
	status int
}{
	{gorm.ErrRecordNotFound, http.StatusNotFound},
	{errForbidden, http.StatusForbidden},
	{errNoStudent, http.StatusForbidden},
	{errNoTeacher, http.StatusForbidden},
	{errCheckinCode, http.StatusForbidden},
	{errClassNotEmpty, http.StatusConflict},
	{errAccountConflict, http.StatusConflict},
	{errInvalidID, http.StatusBadRequest},
	{attendance.ErrInvalidStatus, http.StatusBadRequest},
	{attendance.ErrInvalidTransition, http.StatusBadRequest},
	{attendance.ErrNotSchoolDay, http.StatusBadRequest},
	{attendance.ErrInvalidDate, http.StatusBadRequest},
	{attendance.ErrInvalidRange, http.StatusBadRequest},
	{attendance.ErrFutureDate, http.StatusBadRequest},
	{attendance.ErrInvalidLeaveType, http.StatusBadRequest},
	{attendance.ErrReasonRequired, http.StatusBadRequest},
	{attendance.ErrNotPending, http.StatusConflict},
	{attendance.ErrAlreadyCheckedIn, http.StatusConflict},
	{attendance.ErrAlreadyRecorded, http.StatusConflict},
	{attendance.ErrNotCheckedIn, http.StatusConflict},
	{attendance.ErrAlreadyCheckedOut, http.StatusConflict},
	{attendance.ErrCheckoutTooEarly, http.StatusConflict},
	{attendance.ErrLeaveOverlap, http.StatusConflict},
	{attendance.ErrLeaveNotPending, http.StatusConflict},
}

// respondError maps domain errors to HTTP codes; anything unknown is
// logged and returned as 500.
func (d Deps) respondError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			msg := err.Error()
			if m.err == gorm.ErrRecordNotFound {
				msg = "not found"
			}
			c.JSON(m.status, gin.H{"error": msg})
			return
		}
	}
	if database.IsUniqueViolation(err) {
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate record"})
		return
	}
	d.logger().Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
