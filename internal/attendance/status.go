// Package attendance holds the absensi rules: the status state machine,
// check-in/check-out, verification and how leave requests turn into
// attendance rows.
package attendance

import (
	"strings"

	"github.com/pkg/errors"
)

const (
	StatusPending = "pending"
	StatusHadir   = "hadir"
	StatusIzin    = "izin"
	StatusSakit   = "sakit"
	StatusAlpha   = "alpha"
)

// Statuses lists every status in report column order.
var Statuses = []string{StatusHadir, StatusIzin, StatusSakit, StatusAlpha, StatusPending}

var finalStatuses = map[string]struct{}{
	StatusHadir: {},
	StatusIzin:  {},
	StatusSakit: {},
	StatusAlpha: {},
}

// NormalizeStatus lowercases s and maps the common aliases used by the
// browser forms ("present", "alpa", ...) onto the canonical names.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "present":
		return StatusHadir
	case "alpa", "absent":
		return StatusAlpha
	case "sick":
		return StatusSakit
	case "excused", "permission":
		return StatusIzin
	}
	return s
}

func IsValidStatus(s string) bool {
	return s == StatusPending || IsFinal(s)
}

// IsFinal reports whether s is a verified status.
func IsFinal(s string) bool {
	_, ok := finalStatuses[s]
	return ok
}

// CanTransition checks a status change. Pending may become any final
// status, a final status may be corrected to another final status, and
// nothing goes back to pending.
func CanTransition(from, to string) error {
	if !IsValidStatus(to) {
		return errors.Wrapf(ErrInvalidStatus, "%q", to)
	}
	if from != "" && !IsValidStatus(from) {
		return errors.Wrapf(ErrInvalidStatus, "%q", from)
	}
	if to == StatusPending && from != "" && from != StatusPending {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}
	return nil
}
