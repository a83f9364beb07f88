package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

type MajorController struct {
	Deps
}

type createMajorRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type updateMajorRequest struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

func (mc *MajorController) ListMajors(c *gin.Context) {
	lq := parseListQuery(c, 20, map[string]string{
		"id":         "id",
		"created_at": "created_at",
		"code":       "code",
		"name":       "name",
	}, "created_at")

	filter := func(q *gorm.DB) *gorm.DB {
		if lq.Q != "" {
			q = q.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", lq.like(), lq.like())
		}
		return q
	}

	var total int64
	if err := filter(mc.DB.Model(&models.Major{})).Count(&total).Error; err != nil {
		mc.respondError(c, err)
		return
	}
	var majors []models.Major
	if err := lq.page(filter(mc.DB)).Find(&majors).Error; err != nil {
		mc.respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(majors))
	for _, m := range majors {
		out = append(out, gin.H{
			"id":         m.ID,
			"code":       m.Code,
			"name":       m.Name,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": lq.meta(total)})
}

func (mc *MajorController) codeTaken(code, exceptID string) bool {
	var count int64
	q := mc.DB.Model(&models.Major{}).Where("LOWER(code) = ?", strings.ToLower(code))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	q.Count(&count)
	return count > 0
}

func (mc *MajorController) CreateMajor(c *gin.Context) {
	var req createMajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if mc.codeTaken(code, "") {
		c.JSON(http.StatusConflict, gin.H{"error": "major code already exists"})
		return
	}
	m := models.Major{Code: code, Name: strings.TrimSpace(req.Name)}
	if err := mc.DB.Create(&m).Error; err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "created", "id": m.ID})
}

func (mc *MajorController) GetMajor(c *gin.Context) {
	var m models.Major
	if err := mc.DB.Where("id = ?", c.Param("id")).First(&m).Error; err != nil {
		notFound(c, "major")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         m.ID,
		"code":       m.Code,
		"name":       m.Name,
		"created_at": m.CreatedAt,
		"updated_at": m.UpdatedAt,
	})
}

func (mc *MajorController) UpdateMajor(c *gin.Context) {
	var m models.Major
	if err := mc.DB.Where("id = ?", c.Param("id")).First(&m).Error; err != nil {
		notFound(c, "major")
		return
	}
	var req updateMajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code cannot be empty"})
			return
		}
		if mc.codeTaken(code, m.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "major code already exists"})
			return
		}
		m.Code = code
	}
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if err := mc.DB.Save(&m).Error; err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteMajor detaches the major from its classes before deleting it.
func (mc *MajorController) DeleteMajor(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Class{}).Where("major_id_ref = ?", id).Update("major_id_ref", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Major{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		mc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
