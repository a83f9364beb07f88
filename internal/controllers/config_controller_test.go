package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicConfig(t *testing.T) {
	f := newFixture(t)
	cc := &ConfigController{Deps: f.deps}
	w := f.call(f.siswa, http.MethodGet, "/config/public", "/config/public", nil, cc.Public)
	require.Equal(t, http.StatusOK, w.Code)
	out := w.JSON(t)
	assert.Equal(t, "SMK Negeri 1", out["school_name"])
	assert.Equal(t, "WIB", out["timezone"])
	assert.Equal(t, "07:15", out["checkin_late_after"])
	assert.Equal(t, "1,2,3,4,5", out["school_days"])
	assert.Equal(t, "2024-03-04", out["today"])
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t)
	cc := &ConfigController{Deps: f.deps}
	put := func(body gin.H) *result {
		return f.call(f.admin, http.MethodPut, "/admin/settings", "/admin/settings", body, cc.UpdateSettings)
	}

	assert.Equal(t, http.StatusBadRequest, put(gin.H{"checkin_late_after": "7:99"}).Code)
	assert.Equal(t, http.StatusBadRequest, put(gin.H{"school_days": "1,9"}).Code)
	assert.Equal(t, http.StatusBadRequest, put(gin.H{}).Code)

	w := put(gin.H{"checkin_late_after": "06:45", "school_days": "6, 1,2,3,4,5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body)

	p := f.deps.policy()
	assert.Equal(t, "06:45", p.LateAfter.String())
	assert.True(t, p.IsSchoolDay("2024-03-09"))

	f.at(7, 0)
	w = f.checkIn(nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, w.JSON(t)["late"])
}
