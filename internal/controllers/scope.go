package controllers

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

var allowedRoles = map[string]struct{}{
	models.RoleAdmin: {},
	models.RoleGuru:  {},
	models.RoleSiswa: {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}

// parseIDs validates a list of uuid strings, dropping blanks.
func parseIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		val, err := uuid.Parse(s)
		if err != nil {
			return nil, errors.Wrapf(errInvalidID, "%q", raw)
		}
		out = append(out, val.String())
	}
	return out, nil
}

// teacherOf returns the guru profile linked to user.
func (d Deps) teacherOf(db *gorm.DB, user models.User) (*models.Teacher, error) {
	var t models.Teacher
	if err := db.Where("user_id_ref = ?", user.ID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoTeacher
		}
		return nil, err
	}
	return &t, nil
}

// studentOf returns the siswa profile linked to user.
func (d Deps) studentOf(db *gorm.DB, user models.User) (*models.Student, error) {
	var s models.Student
	if err := db.Where("user_id_ref = ?", user.ID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNoStudent
		}
		return nil, err
	}
	return &s, nil
}

// ClassScope returns the classes user may manage: admin gets all=true,
// guru gets its homeroom and teaching classes, anyone else none.
func (d Deps) ClassScope(user models.User) ([]string, bool, error) {
	switch user.Role {
	case models.RoleAdmin:
		return nil, true, nil
	case models.RoleGuru:
		t, err := d.teacherOf(d.DB, user)
		if errors.Is(err, errNoTeacher) {
			return []string{}, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		var homeroom []string
		if err := d.DB.Model(&models.Class{}).
			Where("homeroom_teacher_id_ref = ?", t.ID).
			Pluck("id", &homeroom).Error; err != nil {
			return nil, false, err
		}
		var teaching []string
		if err := d.DB.Model(&models.ClassTeacher{}).
			Where("teacher_id_ref = ?", t.ID).
			Pluck("class_id_ref", &teaching).Error; err != nil {
			return nil, false, err
		}
		seen := make(map[string]struct{}, len(homeroom)+len(teaching))
		ids := make([]string, 0, len(homeroom)+len(teaching))
		for _, id := range append(homeroom, teaching...) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, false, nil
	}
	return []string{}, false, nil
}

// requireClass fails with errForbidden unless user may manage classID.
func (d Deps) requireClass(user models.User, classID string) error {
	ids, all, err := d.ClassScope(user)
	if err != nil {
		return err
	}
	if all {
		return nil
	}
	for _, id := range ids {
		if id == classID {
			return nil
		}
	}
	return errForbidden
}

// requireStudent loads a student and checks the caller manages its class.
func (d Deps) requireStudent(user models.User, studentID string) (*models.Student, error) {
	var s models.Student
	if err := d.DB.Where("id = ?", studentID).First(&s).Error; err != nil {
		return nil, err
	}
	if user.Role == models.RoleAdmin {
		return &s, nil
	}
	if s.ClassIDRef == nil {
		return nil, errForbidden
	}
	if err := d.requireClass(user, *s.ClassIDRef); err != nil {
		return nil, err
	}
	return &s, nil
}
