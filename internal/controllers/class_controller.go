package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

type ClassController struct {
	Deps
}

type createClassRequest struct {
	Name              string  `json:"name" binding:"required"`
	Grade             string  `json:"grade"`
	MajorID           *string `json:"major_id"`
	AcademicYear      string  `json:"academic_year"`
	HomeroomTeacherID *string `json:"homeroom_teacher_id"`
	Active            *bool   `json:"active"`
}

type updateClassRequest struct {
	Name         *string `json:"name"`
	Grade        *string `json:"grade"`
	MajorID      *string `json:"major_id"`
	AcademicYear *string `json:"academic_year"`
	Active       *bool   `json:"active"`
}

// ListClasses returns every class for admin and the managed classes for
// guru. Filters: q (name), active, grade, major_id.
func (cc *ClassController) ListClasses(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	lq := parseListQuery(c, 20, map[string]string{
		"id":            "id",
		"created_at":    "created_at",
		"name":          "name",
		"grade":         "grade",
		"academic_year": "academic_year",
		"active":        "active",
	}, "name")

	active, ok := parseActiveFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active value"})
		return
	}
	scope, all, err := cc.ClassScope(user)
	if err != nil {
		cc.respondError(c, err)
		return
	}
	if !all && len(scope) == 0 {
		c.JSON(http.StatusOK, gin.H{"data": []any{}, "meta": lq.meta(0)})
		return
	}
	grade := strings.TrimSpace(c.Query("grade"))
	majorID := strings.TrimSpace(c.Query("major_id"))

	filter := func(q *gorm.DB) *gorm.DB {
		if !all {
			q = q.Where("id IN ?", scope)
		}
		if lq.Q != "" {
			q = q.Where("LOWER(name) LIKE ?", lq.like())
		}
		if active != nil {
			q = q.Where("active = ?", *active)
		}
		if grade != "" {
			q = q.Where("grade = ?", grade)
		}
		if majorID != "" {
			q = q.Where("major_id_ref = ?", majorID)
		}
		return q
	}

	var total int64
	if err := filter(cc.DB.Model(&models.Class{})).Count(&total).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	var classes []models.Class
	if err := lq.page(filter(cc.DB)).Find(&classes).Error; err != nil {
		cc.respondError(c, err)
		return
	}

	ids := make([]string, 0, len(classes))
	teacherIDs := make([]string, 0, len(classes))
	for _, cl := range classes {
		ids = append(ids, cl.ID)
		if cl.HomeroomTeacherIDRef != nil {
			teacherIDs = append(teacherIDs, *cl.HomeroomTeacherIDRef)
		}
	}
	counts := map[string]int64{}
	homerooms := map[string]string{}
	if len(ids) > 0 {
		var rows []struct {
			ClassIDRef string
			N          int64
		}
		if err := cc.DB.Model(&models.Student{}).
			Select("class_id_ref, COUNT(*) AS n").
			Where("class_id_ref IN ? AND active = ?", ids, true).
			Group("class_id_ref").
			Scan(&rows).Error; err != nil {
			cc.respondError(c, err)
			return
		}
		for _, r := range rows {
			counts[r.ClassIDRef] = r.N
		}
	}
	if len(teacherIDs) > 0 {
		var teachers []models.Teacher
		if err := cc.DB.Where("id IN ?", teacherIDs).Find(&teachers).Error; err != nil {
			cc.respondError(c, err)
			return
		}
		for _, t := range teachers {
			homerooms[t.ID] = t.FullName
		}
	}

	out := make([]gin.H, 0, len(classes))
	for _, cl := range classes {
		entry := classJSON(cl)
		entry["student_count"] = counts[cl.ID]
		if cl.HomeroomTeacherIDRef != nil {
			entry["homeroom_teacher_name"] = homerooms[*cl.HomeroomTeacherIDRef]
		}
		out = append(out, entry)
	}
	meta := lq.meta(total)
	if active != nil {
		meta["active"] = *active
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func (cc *ClassController) GetClass(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var cl models.Class
	if err := cc.DB.Where("id = ?", c.Param("id")).First(&cl).Error; err != nil {
		notFound(c, "class")
		return
	}
	if err := cc.requireClass(user, cl.ID); err != nil {
		cc.respondError(c, err)
		return
	}
	out := classJSON(cl)
	if cl.MajorIDRef != nil {
		var m models.Major
		if err := cc.DB.Where("id = ?", *cl.MajorIDRef).First(&m).Error; err == nil {
			out["major"] = gin.H{"id": m.ID, "code": m.Code, "name": m.Name}
		}
	}
	if cl.HomeroomTeacherIDRef != nil {
		var t models.Teacher
		if err := cc.DB.Where("id = ?", *cl.HomeroomTeacherIDRef).First(&t).Error; err == nil {
			out["homeroom_teacher"] = gin.H{"id": t.ID, "nip": t.NIP, "full_name": t.FullName}
		}
	}
	c.JSON(http.StatusOK, out)
}

// checkRefs verifies the optional major and teacher references exist.
func (cc *ClassController) checkRefs(c *gin.Context, majorID, teacherID *string) bool {
	if majorID != nil && *majorID != "" {
		var count int64
		if err := cc.DB.Model(&models.Major{}).Where("id = ?", *majorID).Count(&count).Error; err != nil {
			cc.respondError(c, err)
			return false
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid major_id"})
			return false
		}
	}
	if teacherID != nil && *teacherID != "" {
		var count int64
		if err := cc.DB.Model(&models.Teacher{}).Where("id = ?", *teacherID).Count(&count).Error; err != nil {
			cc.respondError(c, err)
			return false
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid homeroom_teacher_id"})
			return false
		}
	}
	return true
}

func (cc *ClassController) nameTaken(name, exceptID string) bool {
	var count int64
	q := cc.DB.Model(&models.Class{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	q.Count(&count)
	return count > 0
}

func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (cc *ClassController) CreateClass(c *gin.Context) {
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if cc.nameTaken(name, "") {
		c.JSON(http.StatusConflict, gin.H{"error": "class name already exists"})
		return
	}
	if !cc.checkRefs(c, req.MajorID, req.HomeroomTeacherID) {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	cl := models.Class{
		Name:                 name,
		Grade:                strings.TrimSpace(req.Grade),
		MajorIDRef:           emptyToNil(req.MajorID),
		AcademicYear:         strings.TrimSpace(req.AcademicYear),
		HomeroomTeacherIDRef: emptyToNil(req.HomeroomTeacherID),
		Active:               active,
	}
	if err := cc.DB.Create(&cl).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "created", "id": cl.ID})
}

func (cc *ClassController) UpdateClass(c *gin.Context) {
	var cl models.Class
	if err := cc.DB.Where("id = ?", c.Param("id")).First(&cl).Error; err != nil {
		notFound(c, "class")
		return
	}
	var req updateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		if cc.nameTaken(name, cl.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "class name already exists"})
			return
		}
		cl.Name = name
	}
	if !cc.checkRefs(c, req.MajorID, nil) {
		return
	}
	if req.MajorID != nil {
		cl.MajorIDRef = emptyToNil(req.MajorID)
	}
	if req.Grade != nil {
		cl.Grade = strings.TrimSpace(*req.Grade)
	}
	if req.AcademicYear != nil {
		cl.AcademicYear = strings.TrimSpace(*req.AcademicYear)
	}
	if req.Active != nil {
		cl.Active = *req.Active
	}
	if err := cc.DB.Save(&cl).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteClass refuses while students are still placed in the class and
// detaches past attendance rows from it.
func (cc *ClassController) DeleteClass(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Student{}).Where("class_id_ref = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errClassNotEmpty
		}
		if err := tx.Where("class_id_ref = ?", id).Delete(&models.ClassTeacher{}).Error; err != nil {
			return err
		}
		if err := tx.Where("class_id_ref = ?", id).Delete(&models.CheckinCode{}).Error; err != nil {
			return err
		}
		// Attendance history outlives the class.
		if err := tx.Model(&models.Attendance{}).Where("class_id_ref = ?", id).Update("class_id_ref", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Class{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		cc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
