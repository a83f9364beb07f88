package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/database"
	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/utils"
)

// CheckinCodeController manages the daily codes shown in class for siswa check-in.
type CheckinCodeController struct {
	Deps
}

type generateCodeRequest struct {
	ClassID    string `json:"class_id" binding:"required"`
	Length     int    `json:"length" binding:"omitempty,min=4,max=16"`
	TTLMinutes int    `json:"ttl_minutes" binding:"omitempty,min=1"`
}

// codeExpiry is now+ttl, capped at the end of the school day's date.
func codeExpiry(p attendance.Policy, date string, now time.Time, ttlMinutes int) time.Time {
	day, err := attendance.ParseDate(date, p.Location)
	if err != nil {
		return now.UTC()
	}
	end := day.AddDate(0, 0, 1)
	if ttlMinutes > 0 {
		if exp := now.Add(time.Duration(ttlMinutes) * time.Minute); exp.Before(end) {
			return exp.UTC()
		}
	}
	return end.UTC()
}

func (cc *CheckinCodeController) Generate(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req generateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := cc.requireClass(user, req.ClassID); err != nil {
		cc.respondError(c, err)
		return
	}
	var cl models.Class
	if err := cc.DB.Where("id = ?", req.ClassID).First(&cl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "class")
			return
		}
		cc.respondError(c, err)
		return
	}

	p := cc.policy()
	now := cc.now()
	date := p.Today(now)
	rec := models.CheckinCode{
		ClassIDRef: cl.ID,
		Date:       date,
		CreatedBy:  user.ID,
		ExpiresAt:  codeExpiry(p, date, now, req.TTLMinutes),
		CreatedAt:  now.UTC(),
	}
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if rec.Code, err = utils.GenerateCode(req.Length); err != nil {
			break
		}
		rec.ID = 0
		if err = cc.DB.Create(&rec).Error; err == nil || !database.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "code already exists, retry"})
			return
		}
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": checkinCodeJSON(rec, now)})
}

func checkinCodeJSON(rec models.CheckinCode, now time.Time) gin.H {
	return gin.H{
		"id":         rec.ID,
		"class_id":   rec.ClassIDRef,
		"date":       rec.Date,
		"code":       rec.Code,
		"expires_at": rec.ExpiresAt,
		"revoked_at": rec.RevokedAt,
		"active":     rec.RevokedAt == nil && rec.ExpiresAt.After(now.UTC()),
		"created_by": rec.CreatedBy,
		"created_at": rec.CreatedAt,
	}
}

// List filters by class_id and date (default today); active=false includes
// revoked and expired codes.
func (cc *CheckinCodeController) List(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	lq := parseListQuery(c, 20, map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"expires_at": "expires_at",
		"code":       "code",
	}, "created_at")

	ids, all, err := cc.ClassScope(user)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	if !all && len(ids) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []any{}, "meta": lq.meta(0)})
		return
	}
	now := cc.now()
	base := cc.DB.Model(&models.CheckinCode{})
	if !all {
		base = base.Where("class_id_ref IN ?", ids)
	}
	if classID := strings.TrimSpace(c.Query("class_id")); classID != "" {
		base = base.Where("class_id_ref = ?", classID)
	}
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		date = cc.policy().Today(now)
	}
	if date != "all" {
		base = base.Where("date = ?", date)
	}
	if active, _ := parseBoolDefaultTrue(c.Query("active")); active {
		base = base.Where("revoked_at IS NULL AND expires_at > ?", now.UTC())
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	var items []models.CheckinCode
	if err := lq.page(base).Find(&items).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, rec := range items {
		out = append(out, checkinCodeJSON(rec, now))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": lq.meta(total)})
}

func (cc *CheckinCodeController) load(c *gin.Context) (*models.CheckinCode, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return nil, false
	}
	var rec models.CheckinCode
	if err := cc.DB.First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "check-in code")
			return nil, false
		}
		cc.respondError(c, err)
		return nil, false
	}
	user, _ := middleware.CurrentUser(c)
	if err := cc.requireClass(user, rec.ClassIDRef); err != nil {
		cc.respondError(c, err)
		return nil, false
	}
	return &rec, true
}

func (cc *CheckinCodeController) Revoke(c *gin.Context) {
	rec, ok := cc.load(c)
	if !ok {
		return
	}
	if rec.RevokedAt == nil {
		now := cc.now().UTC()
		if err := cc.DB.Model(rec).Update("revoked_at", now).Error; err != nil {
			cc.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
}

// QR renders the code as a PNG for display in class.
func (cc *CheckinCodeController) QR(c *gin.Context) {
	rec, ok := cc.load(c)
	if !ok {
		return
	}
	size := 256
	if v, err := strconv.Atoi(c.Query("size")); err == nil && v >= 64 && v <= 1024 {
		size = v
	}
	png, err := qrcode.Encode(rec.Code, qrcode.Medium, size)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
