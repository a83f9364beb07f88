// Package reports aggregates attendance rows into per-student recaps and
// renders them as CSV, XLSX or PDF.
package reports

import (
	"math"
	"sort"
	"time"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
)

// StudentInfo identifies one report row.
type StudentInfo struct {
	ID        string `json:"student_id"`
	NIS       string `json:"nis"`
	FullName  string `json:"full_name"`
	ClassName string `json:"class_name"`
}

// Entry is one attendance row reduced to what the recap needs.
type Entry struct {
	StudentID string
	Status    string
	Late      bool
}

type Row struct {
	StudentInfo
	Hadir   int     `json:"hadir"`
	Izin    int     `json:"izin"`
	Sakit   int     `json:"sakit"`
	Alpha   int     `json:"alpha"`
	Pending int     `json:"pending"`
	Late    int     `json:"late"`
	Total   int     `json:"total"`
	Rate    float64 `json:"attendance_rate"`
}

type Report struct {
	SchoolName  string    `json:"school_name"`
	Title       string    `json:"title"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	ClassName   string    `json:"class_name,omitempty"`
	Rows        []Row     `json:"rows"`
	Totals      Row       `json:"totals"`
	GeneratedAt time.Time `json:"generated_at"`
}

func (r *Row) add(e Entry) {
	switch e.Status {
	case attendance.StatusHadir:
		r.Hadir++
	case attendance.StatusIzin:
		r.Izin++
	case attendance.StatusSakit:
		r.Sakit++
	case attendance.StatusAlpha:
		r.Alpha++
	case attendance.StatusPending:
		r.Pending++
	default:
		return
	}
	if e.Late {
		r.Late++
	}
	r.Total++
}

// rate is the share of hadir among verified days, in percent with one decimal.
func (r *Row) rate() {
	verified := r.Hadir + r.Izin + r.Sakit + r.Alpha
	if verified == 0 {
		r.Rate = 0
		return
	}
	r.Rate = math.Round(float64(r.Hadir)*1000/float64(verified)) / 10
}

// Build computes one row per student (students without entries get a zero
// row) plus the totals. Entries for unknown students are ignored. Rows are
// sorted by class then name.
func Build(students []StudentInfo, entries []Entry) ([]Row, Row) {
	idx := make(map[string]int, len(students))
	rows := make([]Row, len(students))
	for i, s := range students {
		rows[i] = Row{StudentInfo: s}
		idx[s.ID] = i
	}
	var totals Row
	for _, e := range entries {
		i, ok := idx[e.StudentID]
		if !ok {
			continue
		}
		rows[i].add(e)
		totals.add(e)
	}
	for i := range rows {
		rows[i].rate()
	}
	totals.rate()
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ClassName != rows[j].ClassName {
			return rows[i].ClassName < rows[j].ClassName
		}
		return rows[i].FullName < rows[j].FullName
	})
	return rows, totals
}

// Summary counts entries per status, e.g. for today's dashboard badges.
func Summary(entries []Entry) map[string]int {
	out := make(map[string]int, len(attendance.Statuses))
	for _, s := range attendance.Statuses {
		out[s] = 0
	}
	for _, e := range entries {
		if _, ok := out[e.Status]; ok {
			out[e.Status]++
		}
	}
	return out
}
