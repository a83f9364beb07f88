package attendance

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

// CheckIn applies a student's check-in to rec, which is nil when the
// student has no row for today. It returns the row to persist.
func CheckIn(p Policy, rec *models.Attendance, studentID string, classID *string, now time.Time) (*models.Attendance, error) {
	date := p.Today(now)
	if !p.IsSchoolDay(date) {
		return nil, ErrNotSchoolDay
	}
	if rec != nil {
		if rec.CheckInAt != nil {
			return nil, ErrAlreadyCheckedIn
		}
		if IsFinal(rec.Status) {
			return nil, errors.Wrapf(ErrAlreadyRecorded, "status %s", rec.Status)
		}
	} else {
		rec = &models.Attendance{StudentIDRef: studentID, Date: date}
	}
	at := now.UTC()
	rec.ClassIDRef = classID
	rec.Status = StatusPending
	rec.CheckInAt = &at
	rec.Late = p.IsLate(now)
	return rec, nil
}

// CheckOut stamps the check-out time on today's row.
func CheckOut(p Policy, rec *models.Attendance, now time.Time) error {
	if rec == nil || rec.CheckInAt == nil {
		return ErrNotCheckedIn
	}
	if rec.CheckOutAt != nil {
		return ErrAlreadyCheckedOut
	}
	if ClockOf(now, p.Location) < p.CheckoutEarliest {
		return errors.Wrapf(ErrCheckoutTooEarly, "opens at %s", p.CheckoutEarliest)
	}
	at := now.UTC()
	if !at.After(*rec.CheckInAt) {
		return errors.Wrap(ErrNotCheckedIn, "check-out must be after check-in")
	}
	rec.CheckOutAt = &at
	return nil
}

// Verify moves a pending row to a final status.
func Verify(rec *models.Attendance, status, verifierID string, now time.Time) error {
	status = NormalizeStatus(status)
	if rec.Status != StatusPending {
		return ErrNotPending
	}
	if !IsFinal(status) {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", rec.Status, status)
	}
	stamp(rec, status, verifierID, now)
	return nil
}

// Record sets a final status on rec (new or existing) on behalf of a
// guru or admin.
func Record(rec *models.Attendance, status, recorderID string, now time.Time) error {
	status = NormalizeStatus(status)
	if !IsFinal(status) {
		return errors.Wrapf(ErrInvalidStatus, "%q", status)
	}
	if err := CanTransition(rec.Status, status); err != nil {
		return err
	}
	if rec.RecordedBy == nil {
		id := recorderID
		rec.RecordedBy = &id
	}
	stamp(rec, status, recorderID, now)
	return nil
}

// MarkAbsent builds the alpha row written by close-day for a student
// without any record. actorID is nil when the scheduler runs it.
func MarkAbsent(studentID string, classID *string, date string, actorID *string, now time.Time) *models.Attendance {
	at := now.UTC()
	return &models.Attendance{
		StudentIDRef: studentID,
		ClassIDRef:   classID,
		Date:         date,
		Status:       StatusAlpha,
		Notes:        "tanpa keterangan",
		RecordedBy:   actorID,
		VerifiedBy:   actorID,
		VerifiedAt:   &at,
	}
}

func stamp(rec *models.Attendance, status, userID string, now time.Time) {
	at := now.UTC()
	id := userID
	rec.Status = status
	rec.VerifiedBy = &id
	rec.VerifiedAt = &at
}

const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

const (
	// MaxLeaveDays bounds one request, counted in calendar days.
	MaxLeaveDays = 30
	// MaxLeaveLeadDays is how far ahead of today a request may start.
	MaxLeaveLeadDays = 60
)

// ValidateLeave checks a new leave request and normalizes its type.
func ValidateLeave(p Policy, typ, start, end, reason string, now time.Time) (string, error) {
	typ = NormalizeStatus(typ)
	if typ != StatusIzin && typ != StatusSakit {
		return "", errors.Wrapf(ErrInvalidLeaveType, "%q", typ)
	}
	from, err := ParseDate(start, p.Location)
	if err != nil {
		return "", err
	}
	to, err := ParseDate(end, p.Location)
	if err != nil {
		return "", err
	}
	if from.After(to) {
		return "", ErrInvalidRange
	}
	if to.Sub(from) >= MaxLeaveDays*24*time.Hour {
		return "", errors.Wrapf(ErrInvalidRange, "leave may span at most %d days", MaxLeaveDays)
	}
	today, _ := ParseDate(p.Today(now), p.Location)
	if from.After(today.AddDate(0, 0, MaxLeaveLeadDays)) {
		return "", errors.Wrapf(ErrInvalidRange, "leave may start at most %d days ahead", MaxLeaveLeadDays)
	}
	if strings.TrimSpace(reason) == "" {
		return "", ErrReasonRequired
	}
	return typ, nil
}

// Overlaps reports whether [aStart,aEnd] and [bStart,bEnd] share a day.
// Dates are YYYY-MM-DD so string order is date order.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart <= bEnd && bStart <= aEnd
}

// ApplyLeave turns an approved leave request into attendance rows. existing
// holds the student's rows in the leave range keyed by date. Days where
// the student actually checked in are left alone.
func ApplyLeave(p Policy, lr *models.LeaveRequest, classID *string, existing map[string]*models.Attendance, approverID string, now time.Time) ([]*models.Attendance, error) {
	days, err := p.SchoolDaysBetween(lr.StartDate, lr.EndDate)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Attendance, 0, len(days))
	for _, d := range days {
		rec := existing[d]
		if rec == nil {
			rec = &models.Attendance{StudentIDRef: lr.StudentIDRef, ClassIDRef: classID, Date: d}
		} else if rec.CheckInAt != nil {
			continue
		}
		leaveID := lr.ID
		rec.LeaveRequestIDRef = &leaveID
		if rec.Notes == "" {
			rec.Notes = lr.Reason
		}
		stamp(rec, lr.Type, approverID, now)
		out = append(out, rec)
	}
	return out, nil
}

// Decide moves a pending leave request to approved or rejected.
func Decide(lr *models.LeaveRequest, approve bool, approverID, rejectReason string, now time.Time) error {
	if lr.Status != LeavePending {
		return ErrLeaveNotPending
	}
	if !approve && strings.TrimSpace(rejectReason) == "" {
		return errors.Wrap(ErrReasonRequired, "reject_reason")
	}
	at := now.UTC()
	id := approverID
	lr.ApproverIDRef = &id
	lr.DecidedAt = &at
	if approve {
		lr.Status = LeaveApproved
		lr.RejectReason = ""
		return nil
	}
	lr.Status = LeaveRejected
	lr.RejectReason = strings.TrimSpace(rejectReason)
	return nil
}
