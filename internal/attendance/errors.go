package attendance

import "github.com/pkg/errors"

var (
	ErrInvalidStatus     = errors.New("invalid attendance status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPending        = errors.New("attendance is not pending")
	ErrAlreadyCheckedIn  = errors.New("already checked in today")
	ErrAlreadyRecorded   = errors.New("attendance already recorded for today")
	ErrNotCheckedIn      = errors.New("not checked in today")
	ErrAlreadyCheckedOut = errors.New("already checked out today")
	ErrCheckoutTooEarly  = errors.New("check-out is not open yet")
	ErrNotSchoolDay      = errors.New("not a school day")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange      = errors.New("start date is after end date")
	ErrFutureDate        = errors.New("date is in the future")
	ErrInvalidLeaveType  = errors.New("invalid leave type")
	ErrReasonRequired    = errors.New("reason is required")
	ErrLeaveOverlap      = errors.New("leave request overlaps an existing request")
	ErrLeaveNotPending   = errors.New("leave request already decided")
)
