package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	admin := &AdminController{Deps: f.deps}
	a := f.authController()
	require.Equal(t, http.StatusOK, f.login(a, "andi@sekolah.id", "rahasia123").Code)

	w := f.call(f.admin, http.MethodDelete, "/users/:user_id", "/users/"+f.siswa.ID, nil, admin.DeleteUser)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var users, tokens int64
	f.db.Model(&models.User{}).Where("id = ?", f.siswa.ID).Count(&users)
	f.db.Model(&models.RefreshToken{}).Where("user_id_ref = ?", f.siswa.ID).Count(&tokens)
	assert.Zero(t, users)
	assert.Zero(t, tokens)

	// The student profile stays, unlinked.
	var s models.Student
	require.NoError(t, f.db.First(&s, "id = ?", f.student.ID).Error)
	assert.Nil(t, s.UserIDRef)

	w = f.call(f.admin, http.MethodDelete, "/users/:user_id", "/users/"+f.siswa.ID, nil, admin.DeleteUser)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.call(f.admin, http.MethodDelete, "/users/:user_id", "/users/"+f.admin.ID, nil, admin.DeleteUser)
	assert.Equal(t, http.StatusBadRequest, w.Code, "own account")
}

func TestImportUsers(t *testing.T) {
	f := newFixture(t)
	admin := &AdminController{Deps: f.deps}

	csv := "full_name,email,password,role,active\n" +
		"Pak Joko,JOKO@sekolah.id,joko1234,guru,\n" +
		"Rina,rina@sekolah.id,rina1234,,false\n" +
		"Dobel,andi@sekolah.id,x123456,siswa,\n" +
		"Salah,salah@sekolah.id,x123456,kepsek,\n" +
		",kosong@sekolah.id,x123456,,\n"
	w := f.upload(f.admin, "/users/import", "users.csv", csv, admin.ImportUsers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := w.JSON(t)
	summary := out["summary"].(map[string]any)
	assert.EqualValues(t, 5, summary["total_rows"])
	assert.EqualValues(t, 2, summary["inserted"])
	assert.EqualValues(t, 3, summary["failed"])
	assert.Len(t, out["errors"], 3)

	var joko models.User
	require.NoError(t, f.db.Where("email = ?", "joko@sekolah.id").First(&joko).Error)
	assert.Equal(t, models.RoleGuru, joko.Role)
	assert.True(t, joko.Active)

	var rina models.User
	require.NoError(t, f.db.Where("email = ?", "rina@sekolah.id").First(&rina).Error)
	assert.Equal(t, models.RoleSiswa, rina.Role)
	assert.False(t, rina.Active)

	w = f.upload(f.admin, "/users/import", "users.csv", "email,password\na@b.id,x\n", admin.ImportUsers)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing full_name column")
}
