package controllers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

func (f *fixture) seedWeek(t *testing.T) {
	t.Helper()
	rows := []models.Attendance{
		{StudentIDRef: f.student.ID, ClassIDRef: &f.classA.ID, Date: "2024-03-01", Status: attendance.StatusHadir, Late: true},
		{StudentIDRef: f.student.ID, ClassIDRef: &f.classA.ID, Date: "2024-03-04", Status: attendance.StatusAlpha},
		{StudentIDRef: f.classmate.ID, ClassIDRef: &f.classA.ID, Date: "2024-03-04", Status: attendance.StatusPending},
		{StudentIDRef: f.outsider.ID, ClassIDRef: &f.classB.ID, Date: "2024-03-04", Status: attendance.StatusSakit},
	}
	for i := range rows {
		require.NoError(t, f.db.Create(&rows[i]).Error)
	}
}

func TestGenerateReportScope(t *testing.T) {
	f := newFixture(t)
	f.seedWeek(t)
	rc := &ReportController{Deps: f.deps}
	gen := func(user models.User, query string) *result {
		return f.call(user, http.MethodGet, "/reports/generate", "/reports/generate"+query, nil, rc.Generate)
	}

	w := gen(f.admin, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	out := w.JSON(t)
	assert.Equal(t, "SMK Negeri 1", out["school_name"])
	assert.Equal(t, "2024-03-01", out["start"])
	assert.Equal(t, "2024-03-04", out["end"])
	assert.Len(t, out["rows"].([]any), 3)
	totals := out["totals"].(map[string]any)
	assert.EqualValues(t, 4, totals["total"])
	assert.EqualValues(t, 1, totals["late"])

	w = gen(f.guru, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, w.JSON(t)["rows"].([]any), 2)

	w = gen(f.guru, "?class_id="+f.classB.ID)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = gen(f.siswa, "?class_id="+f.classB.ID)
	require.Equal(t, http.StatusOK, w.Code)
	rows := w.JSON(t)["rows"].([]any)
	require.Len(t, rows, 1, "siswa only sees itself")
	row := rows[0].(map[string]any)
	assert.Equal(t, "1001", row["nis"])
	assert.Equal(t, "X RPL 1", row["class_name"])
	assert.EqualValues(t, 50, row["attendance_rate"])

	w = gen(f.admin, "?class_id="+f.classA.ID+"&start=2024-03-04&end=2024-03-04")
	require.Equal(t, http.StatusOK, w.Code)
	out = w.JSON(t)
	assert.Equal(t, "X RPL 1", out["class_name"])
	assert.EqualValues(t, 1, out["totals"].(map[string]any)["pending"])

	assert.Equal(t, http.StatusBadRequest, gen(f.admin, "?start=2024-03-05&end=2024-03-01").Code)
}

func TestExportReport(t *testing.T) {
	f := newFixture(t)
	f.seedWeek(t)
	rc := &ReportController{Deps: f.deps}
	export := func(format string) *result {
		return f.call(f.guru, http.MethodGet, "/reports/export", "/reports/export?format="+format, nil, rc.Export)
	}

	w := export("csv")
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="rekap-absensi_2024-03-01_2024-03-04.csv"`, w.Header().Get("Content-Disposition"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4, "header, two students, totals")
	assert.Contains(t, lines[1], "Andi")

	w = export("xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")

	w = export("pdf")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	assert.Equal(t, http.StatusBadRequest, export("docx").Code)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.seedWeek(t)
	rc := &ReportController{Deps: f.deps}

	w := f.call(f.admin, http.MethodGet, "/reports/summary", "/reports/summary", nil, rc.Summary)
	require.Equal(t, http.StatusOK, w.Code, w.Body)
	out := w.JSON(t)
	assert.EqualValues(t, 3, out["students"])
	assert.EqualValues(t, 2, out["classes"])
	assert.EqualValues(t, 1, out["teachers"])
	assert.EqualValues(t, 0, out["unrecorded_today"])
	today := out["today"].(map[string]any)
	assert.EqualValues(t, 1, today[attendance.StatusSakit])

	w = f.call(f.guru, http.MethodGet, "/reports/summary", "/reports/summary", nil, rc.Summary)
	require.Equal(t, http.StatusOK, w.Code)
	out = w.JSON(t)
	assert.EqualValues(t, 2, out["students"])
	assert.NotContains(t, out, "teachers")

	w = f.call(f.siswa, http.MethodGet, "/reports/summary", "/reports/summary", nil, rc.Summary)
	require.Equal(t, http.StatusOK, w.Code)
	out = w.JSON(t)
	assert.Equal(t, attendance.StatusAlpha, out["today_status"])
	assert.EqualValues(t, 50, out["attendance_rate"])
}
