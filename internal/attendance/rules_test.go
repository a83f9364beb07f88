package attendance

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

var wib = time.FixedZone("WIB", 7*3600)

// Monday 2024-03-04 in WIB.
func at(hhmm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", "2024-03-04 "+hhmm, wib)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		wantErr  error
	}{
		{"", StatusPending, nil},
		{"", StatusHadir, nil},
		{StatusPending, StatusHadir, nil},
		{StatusPending, StatusAlpha, nil},
		{StatusHadir, StatusSakit, nil},
		{StatusAlpha, StatusIzin, nil},
		{StatusHadir, StatusPending, ErrInvalidTransition},
		{StatusPending, "terlambat", ErrInvalidStatus},
		{"unknown", StatusHadir, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusHadir, NormalizeStatus(" Present "))
	assert.Equal(t, StatusAlpha, NormalizeStatus("ALPA"))
	assert.Equal(t, StatusSakit, NormalizeStatus("sakit"))
}

func TestCheckIn(t *testing.T) {
	p := DefaultPolicy(wib)
	classID := "class-1"

	rec, err := CheckIn(p, nil, "stu-1", &classID, at("07:00"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", rec.Date)
	assert.Equal(t, StatusPending, rec.Status)
	assert.False(t, rec.Late)
	require.NotNil(t, rec.CheckInAt)

	_, err = CheckIn(p, rec, "stu-1", &classID, at("07:05"))
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	late, err := CheckIn(p, nil, "stu-2", &classID, at("07:30"))
	require.NoError(t, err)
	assert.True(t, late.Late)

	leave := &models.Attendance{StudentIDRef: "stu-3", Date: "2024-03-04", Status: StatusSakit}
	_, err = CheckIn(p, leave, "stu-3", &classID, at("07:00"))
	assert.True(t, errors.Is(err, ErrAlreadyRecorded))
}

func TestCheckInWeekend(t *testing.T) {
	p := DefaultPolicy(wib)
	saturday := time.Date(2024, 3, 9, 7, 0, 0, 0, wib)
	_, err := CheckIn(p, nil, "stu-1", nil, saturday)
	assert.ErrorIs(t, err, ErrNotSchoolDay)
}

func TestCheckOut(t *testing.T) {
	p := DefaultPolicy(wib)
	assert.ErrorIs(t, CheckOut(p, nil, at("13:00")), ErrNotCheckedIn)

	rec, err := CheckIn(p, nil, "stu-1", nil, at("07:00"))
	require.NoError(t, err)

	assert.True(t, errors.Is(CheckOut(p, rec, at("10:00")), ErrCheckoutTooEarly))
	require.NoError(t, CheckOut(p, rec, at("13:00")))
	require.NotNil(t, rec.CheckOutAt)
	assert.ErrorIs(t, CheckOut(p, rec, at("13:30")), ErrAlreadyCheckedOut)
}

func TestVerify(t *testing.T) {
	p := DefaultPolicy(wib)
	rec, err := CheckIn(p, nil, "stu-1", nil, at("07:00"))
	require.NoError(t, err)

	assert.True(t, errors.Is(Verify(rec, StatusPending, "guru-1", at("08:00")), ErrInvalidTransition))
	require.NoError(t, Verify(rec, "hadir", "guru-1", at("08:00")))
	assert.Equal(t, StatusHadir, rec.Status)
	require.NotNil(t, rec.VerifiedBy)
	assert.Equal(t, "guru-1", *rec.VerifiedBy)

	assert.ErrorIs(t, Verify(rec, StatusAlpha, "guru-1", at("08:00")), ErrNotPending)
}

func TestRecord(t *testing.T) {
	rec := &models.Attendance{StudentIDRef: "stu-1", Date: "2024-03-04"}
	require.NoError(t, Record(rec, "alpha", "guru-1", at("09:00")))
	assert.Equal(t, StatusAlpha, rec.Status)
	require.NotNil(t, rec.RecordedBy)

	require.NoError(t, Record(rec, StatusIzin, "admin-1", at("10:00")))
	assert.Equal(t, StatusIzin, rec.Status)
	assert.Equal(t, "guru-1", *rec.RecordedBy)
	assert.Equal(t, "admin-1", *rec.VerifiedBy)

	assert.True(t, errors.Is(Record(rec, StatusPending, "guru-1", at("10:00")), ErrInvalidStatus))
}

func TestValidateLeave(t *testing.T) {
	p := DefaultPolicy(wib)
	now := at("07:00")
	typ, err := ValidateLeave(p, "Sakit", "2024-03-04", "2024-03-05", "demam", now)
	require.NoError(t, err)
	assert.Equal(t, StatusSakit, typ)

	_, err = ValidateLeave(p, "alpha", "2024-03-04", "2024-03-05", "x", now)
	assert.True(t, errors.Is(err, ErrInvalidLeaveType))
	_, err = ValidateLeave(p, "izin", "2024-03-06", "2024-03-05", "x", now)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = ValidateLeave(p, "izin", "2024-03-04", "2024-03-05", "  ", now)
	assert.ErrorIs(t, err, ErrReasonRequired)
	_, err = ValidateLeave(p, "izin", "04-03-2024", "2024-03-05", "x", now)
	assert.True(t, errors.Is(err, ErrInvalidDate))
}

func TestValidateLeaveBounds(t *testing.T) {
	p := DefaultPolicy(wib)
	now := at("07:00")

	_, err := ValidateLeave(p, "izin", "2024-03-04", "2024-04-02", "lomba", now)
	assert.NoError(t, err, "30 days")
	_, err = ValidateLeave(p, "izin", "2024-03-04", "2024-04-03", "lomba", now)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = ValidateLeave(p, "izin", "2024-03-04", "2099-12-31", "lomba", now)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ValidateLeave(p, "izin", "2024-05-03", "2024-05-03", "umroh", now)
	assert.NoError(t, err, "60 days ahead")
	_, err = ValidateLeave(p, "izin", "2024-05-04", "2024-05-04", "umroh", now)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ValidateLeave(p, "sakit", "2024-02-26", "2024-02-28", "demam", now)
	assert.NoError(t, err, "backdated sick note")
}

func TestOverlaps(t *testing.T) {
	assert.True(t, Overlaps("2024-03-04", "2024-03-06", "2024-03-06", "2024-03-08"))
	assert.False(t, Overlaps("2024-03-04", "2024-03-05", "2024-03-06", "2024-03-08"))
}

func TestApplyLeaveSkipsWeekendsAndCheckedInDays(t *testing.T) {
	p := DefaultPolicy(wib)
	checkIn := at("07:00").UTC()
	existing := map[string]*models.Attendance{
		"2024-03-08": {StudentIDRef: "stu-1", Date: "2024-03-08", Status: StatusHadir, CheckInAt: &checkIn},
		"2024-03-11": {StudentIDRef: "stu-1", Date: "2024-03-11", Status: StatusAlpha},
	}
	lr := &models.LeaveRequest{ID: "lr-1", StudentIDRef: "stu-1", Type: StatusIzin, StartDate: "2024-03-07", EndDate: "2024-03-11", Reason: "acara keluarga"}

	rows, err := ApplyLeave(p, lr, nil, existing, "guru-1", at("09:00"))
	require.NoError(t, err)

	dates := make([]string, 0, len(rows))
	for _, r := range rows {
		dates = append(dates, r.Date)
		assert.Equal(t, StatusIzin, r.Status)
		require.NotNil(t, r.LeaveRequestIDRef)
		assert.Equal(t, "lr-1", *r.LeaveRequestIDRef)
	}
	// 03-08 checked in, 03-09/10 weekend.
	assert.Equal(t, []string{"2024-03-07", "2024-03-11"}, dates)
	assert.Equal(t, StatusHadir, existing["2024-03-08"].Status)
}

func TestDecide(t *testing.T) {
	lr := &models.LeaveRequest{Status: LeavePending}
	assert.True(t, errors.Is(Decide(lr, false, "guru-1", "", at("09:00")), ErrReasonRequired))
	assert.Nil(t, lr.DecidedAt)

	require.NoError(t, Decide(lr, false, "guru-1", " surat tidak ada ", at("09:00")))
	assert.Equal(t, LeaveRejected, lr.Status)
	assert.Equal(t, "surat tidak ada", lr.RejectReason)

	assert.ErrorIs(t, Decide(lr, true, "guru-1", "", at("09:00")), ErrLeaveNotPending)
}

func TestMarkAbsent(t *testing.T) {
	classID := "class-1"
	rec := MarkAbsent("stu-1", &classID, "2024-03-04", nil, at("16:00"))
	assert.Equal(t, StatusAlpha, rec.Status)
	assert.Nil(t, rec.RecordedBy)
	require.NotNil(t, rec.VerifiedAt)
	assert.Equal(t, time.UTC, rec.VerifiedAt.Location())
}

func TestNotAfterToday(t *testing.T) {
	p := DefaultPolicy(wib)
	// 23:30 WIB on Monday is still Monday locally but Monday 16:30 UTC.
	now := at("23:30")
	assert.NoError(t, p.NotAfterToday("2024-03-04", now))
	assert.NoError(t, p.NotAfterToday("2024-03-01", now))
	assert.ErrorIs(t, p.NotAfterToday("2024-03-05", now), ErrFutureDate)
	assert.ErrorIs(t, p.NotAfterToday("4 Maret", now), ErrInvalidDate)
}
