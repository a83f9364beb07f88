package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

const monday = "2024-03-04"

func (f *fixture) checkIn(body any) *result {
	ac := &AttendanceController{Deps: f.deps}
	return f.call(f.siswa, http.MethodPost, "/me/attendance/check-in", "/me/attendance/check-in", body, ac.CheckIn)
}

func TestCheckInAndOut(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}

	w := f.checkIn(nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body)
	out := w.JSON(t)
	assert.Equal(t, attendance.StatusPending, out["status"])
	assert.Equal(t, monday, out["date"])
	assert.Equal(t, false, out["late"])
	assert.Equal(t, f.classA.ID, out["class_id"])

	w = f.checkIn(nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	checkOut := func() int {
		return f.call(f.siswa, http.MethodPost, "/me/attendance/check-out", "/me/attendance/check-out", nil, ac.CheckOut).Code
	}
	f.at(10, 0)
	assert.Equal(t, http.StatusConflict, checkOut(), "check-out opens at 12:00")

	f.at(13, 5)
	assert.Equal(t, http.StatusOK, checkOut())
	assert.Equal(t, http.StatusConflict, checkOut())

	rec, err := f.attendanceOf(f.student.ID, monday)
	require.NoError(t, err)
	require.NotNil(t, rec.CheckOutAt)
	assert.True(t, rec.CheckOutAt.After(*rec.CheckInAt))
}

func TestCheckOutWithoutCheckIn(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	f.at(13, 0)
	w := f.call(f.siswa, http.MethodPost, "/me/attendance/check-out", "/me/attendance/check-out", nil, ac.CheckOut)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckInLate(t *testing.T) {
	f := newFixture(t)
	f.at(7, 30)
	w := f.checkIn(gin.H{"notes": "ban bocor"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body)
	out := w.JSON(t)
	assert.Equal(t, true, out["late"])
	assert.Equal(t, "ban bocor", out["notes"])
}

func TestCheckInNotOnWeekend(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2024, 3, 9, 7, 0, 0, 0, wib)
	w := f.checkIn(nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckInAfterRecordedStatus(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.Attendance{
		StudentIDRef: f.student.ID, ClassIDRef: &f.classA.ID, Date: monday, Status: attendance.StatusSakit,
	}).Error)
	assert.Equal(t, http.StatusConflict, f.checkIn(nil).Code)
}

func TestCheckInCode(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.CheckinCode{
		ClassIDRef: f.classA.ID,
		Date:       monday,
		Code:       "KX7P2Q",
		CreatedBy:  f.guru.ID,
		ExpiresAt:  f.now.Add(2 * time.Hour).UTC(),
	}).Error)

	assert.Equal(t, http.StatusForbidden, f.checkIn(nil).Code)
	assert.Equal(t, http.StatusForbidden, f.checkIn(gin.H{"code": "WRONG1"}).Code)
	assert.Equal(t, http.StatusCreated, f.checkIn(gin.H{"code": " kx7p2q "}).Code)
}

func TestCheckInCodeExpired(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&models.CheckinCode{
		ClassIDRef: f.classA.ID,
		Date:       monday,
		Code:       "OLD234",
		CreatedBy:  f.guru.ID,
		ExpiresAt:  f.now.Add(-time.Minute).UTC(),
	}).Error)
	assert.Equal(t, http.StatusCreated, f.checkIn(nil).Code)
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	w := f.checkIn(nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := w.JSON(t)["id"].(string)

	verify := func(user models.User, status string) *result {
		return f.call(user, http.MethodPut, "/attendance/:id/verify", "/attendance/"+id+"/verify", gin.H{"status": status}, ac.Verify)
	}
	assert.Equal(t, http.StatusBadRequest, verify(f.guru, "pending").Code)
	w = verify(f.guru, "Hadir")
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.Equal(t, attendance.StatusHadir, w.JSON(t)["status"])
	assert.Equal(t, f.guru.ID, w.JSON(t)["verified_by"])

	assert.Equal(t, http.StatusConflict, verify(f.guru, "alpha").Code)
}

func TestVerifyOtherClassForbidden(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	rec := models.Attendance{StudentIDRef: f.outsider.ID, ClassIDRef: &f.classB.ID, Date: monday, Status: attendance.StatusPending}
	require.NoError(t, f.db.Create(&rec).Error)

	w := f.call(f.guru, http.MethodPut, "/attendance/:id/verify", "/attendance/"+rec.ID+"/verify", gin.H{"status": "hadir"}, ac.Verify)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.call(f.admin, http.MethodPut, "/attendance/:id/verify", "/attendance/"+rec.ID+"/verify", gin.H{"status": "hadir"}, ac.Verify)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecord(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	record := func(user models.User, body gin.H) *result {
		return f.call(user, http.MethodPost, "/attendance", "/attendance", body, ac.Record)
	}

	w := record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "sakit", "notes": "demam"})
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.Equal(t, attendance.StatusSakit, w.JSON(t)["status"])

	// correction of a final status
	w = record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "izin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	rec, err := f.attendanceOf(f.classmate.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusIzin, rec.Status)
	assert.Equal(t, "demam", rec.Notes)

	assert.Equal(t, http.StatusForbidden, record(f.guru, gin.H{"student_id": f.outsider.ID, "status": "hadir"}).Code)
	assert.Equal(t, http.StatusBadRequest, record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "pending"}).Code)
	assert.Equal(t, http.StatusBadRequest, record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "bolos"}).Code)
	assert.Equal(t, http.StatusBadRequest, record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "hadir", "date": "2024-03-05"}).Code, "future date")
	assert.Equal(t, http.StatusBadRequest, record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "hadir", "date": "2024-03-03"}).Code, "sunday")
	assert.Equal(t, http.StatusBadRequest, record(f.guru, gin.H{"student_id": f.classmate.ID, "status": "hadir", "date": "04-03-2024"}).Code)
	assert.Equal(t, http.StatusOK, record(f.admin, gin.H{"student_id": f.outsider.ID, "status": "hadir", "date": "2024-03-01"}).Code)
}

func TestBulkRecordIsAtomic(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	bulk := func(entries []gin.H) *result {
		return f.call(f.guru, http.MethodPost, "/attendance/bulk", "/attendance/bulk",
			gin.H{"class_id": f.classA.ID, "entries": entries}, ac.BulkRecord)
	}

	w := bulk([]gin.H{
		{"student_id": f.classmate.ID, "status": "hadir"},
		{"student_id": f.outsider.ID, "status": "hadir"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	_, err := f.attendanceOf(f.classmate.ID, monday)
	assert.Error(t, err, "nothing is written when one entry fails")

	w = bulk([]gin.H{
		{"student_id": f.classmate.ID, "status": "hadir"},
		{"student_id": f.student.ID, "status": "alpha"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.EqualValues(t, 2, w.JSON(t)["count"])
}

func TestBulkVerify(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	pending := models.Attendance{StudentIDRef: f.student.ID, ClassIDRef: &f.classA.ID, Date: monday, Status: attendance.StatusPending}
	final := models.Attendance{StudentIDRef: f.classmate.ID, ClassIDRef: &f.classA.ID, Date: monday, Status: attendance.StatusSakit}
	require.NoError(t, f.db.Create(&pending).Error)
	require.NoError(t, f.db.Create(&final).Error)

	w := f.call(f.guru, http.MethodPost, "/attendance/bulk-verify", "/attendance/bulk-verify",
		gin.H{"ids": []string{pending.ID, final.ID}}, ac.BulkVerify)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := w.JSON(t)
	assert.EqualValues(t, 1, out["verified"])
	assert.Len(t, out["skipped"].([]any), 1)

	rec, err := f.attendanceOf(f.student.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusHadir, rec.Status)
	rec, err = f.attendanceOf(f.classmate.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusSakit, rec.Status)
}

func TestCloseDay(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	require.Equal(t, http.StatusCreated, f.checkIn(nil).Code)
	require.NoError(t, f.db.Create(&models.Attendance{
		StudentIDRef: f.classmate.ID, ClassIDRef: &f.classA.ID, Date: monday, Status: attendance.StatusHadir,
	}).Error)
	inactive := models.Student{NIS: "2002", FullName: "Dewi", ClassIDRef: &f.classB.ID}
	require.NoError(t, f.db.Create(&inactive).Error)
	require.NoError(t, f.db.Model(&inactive).Update("active", false).Error)

	f.at(16, 0)
	w := f.call(f.admin, http.MethodPost, "/admin/attendance/close-day", "/admin/attendance/close-day", nil, ac.CloseDay)
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.EqualValues(t, 1, w.JSON(t)["marked_alpha"])

	rec, err := f.attendanceOf(f.outsider.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAlpha, rec.Status)
	rec, err = f.attendanceOf(f.student.ID, monday)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPending, rec.Status, "pending rows wait for verification")
	_, err = f.attendanceOf(inactive.ID, monday)
	assert.Error(t, err)

	// running it again writes nothing
	n, err := ac.MarkAbsent(monday, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ac.MarkAbsent("2024-03-05", nil)
	assert.ErrorIs(t, err, attendance.ErrFutureDate)
	_, err = ac.MarkAbsent("2024-03-03", nil)
	assert.ErrorIs(t, err, attendance.ErrNotSchoolDay)
}

func TestClassSheet(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	require.Equal(t, http.StatusCreated, f.checkIn(nil).Code)

	w := f.call(f.guru, http.MethodGet, "/classes/:id/attendance", "/classes/"+f.classA.ID+"/attendance", nil, ac.ClassSheet)
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	out := w.JSON(t)
	rows := out["data"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "Andi", rows[0].(map[string]any)["full_name"])
	assert.NotNil(t, rows[0].(map[string]any)["attendance"])
	assert.Nil(t, rows[1].(map[string]any)["attendance"])
	summary := out["summary"].(map[string]any)
	assert.EqualValues(t, 1, summary["unrecorded"])
	assert.EqualValues(t, 1, summary[attendance.StatusPending])

	w = f.call(f.guru, http.MethodGet, "/classes/:id/attendance", "/classes/"+f.classB.ID+"/attendance", nil, ac.ClassSheet)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCalendarAndHistory(t *testing.T) {
	f := newFixture(t)
	ac := &AttendanceController{Deps: f.deps}
	require.NoError(t, f.db.Create(&models.Attendance{
		StudentIDRef: f.student.ID, ClassIDRef: &f.classA.ID, Date: "2024-03-01", Status: attendance.StatusIzin,
	}).Error)

	w := f.call(f.siswa, http.MethodGet, "/me/attendance/calendar", "/me/attendance/calendar?month=2024-03", nil, ac.Calendar)
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	days := w.JSON(t)["days"].([]any)
	require.Len(t, days, 31)
	assert.Equal(t, attendance.StatusIzin, days[0].(map[string]any)["status"])
	assert.Nil(t, days[1].(map[string]any)["status"])
	assert.Equal(t, false, days[1].(map[string]any)["school_day"], "2024-03-02 is a Saturday")

	w = f.call(f.siswa, http.MethodGet, "/me/attendance", "/me/attendance", nil, ac.MyHistory)
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.Len(t, w.JSON(t)["data"].([]any), 1)

	w = f.call(f.siswa, http.MethodGet, "/me/attendance", "/me/attendance?start=2024-03-05&end=2024-03-01", nil, ac.MyHistory)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
