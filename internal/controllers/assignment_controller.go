package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

// AssignmentController links teachers and students to classes.
type AssignmentController struct {
	Deps
}

type teacherRefRequest struct {
	TeacherID *string `json:"teacher_id"`
}

func (ac *AssignmentController) loadClass(c *gin.Context) (*models.Class, bool) {
	var cl models.Class
	if err := ac.DB.Where("id = ?", strings.TrimSpace(c.Param("id"))).First(&cl).Error; err != nil {
		notFound(c, "class")
		return nil, false
	}
	return &cl, true
}

func (ac *AssignmentController) loadTeacher(c *gin.Context, id string) (*models.Teacher, bool) {
	var t models.Teacher
	if err := ac.DB.Where("id = ?", strings.TrimSpace(id)).First(&t).Error; err != nil {
		notFound(c, "teacher")
		return nil, false
	}
	return &t, true
}

// SetHomeroom sets or clears (teacher_id null) the wali kelas.
func (ac *AssignmentController) SetHomeroom(c *gin.Context) {
	cl, ok := ac.loadClass(c)
	if !ok {
		return
	}
	var req teacherRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	teacherID := emptyToNil(req.TeacherID)
	if teacherID != nil {
		if _, ok := ac.loadTeacher(c, *teacherID); !ok {
			return
		}
	}
	if err := ac.DB.Model(cl).Update("homeroom_teacher_id_ref", teacherID).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated", "homeroom_teacher_id": teacherID})
}

// AssignTeacher adds a teaching guru to a class; repeating it is a no-op.
func (ac *AssignmentController) AssignTeacher(c *gin.Context) {
	cl, ok := ac.loadClass(c)
	if !ok {
		return
	}
	var req teacherRefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TeacherID == nil || strings.TrimSpace(*req.TeacherID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "teacher_id is required"})
		return
	}
	t, ok := ac.loadTeacher(c, *req.TeacherID)
	if !ok {
		return
	}
	rec := models.ClassTeacher{ClassIDRef: cl.ID, TeacherIDRef: t.ID}
	if err := ac.DB.Where("class_id_ref = ? AND teacher_id_ref = ?", rec.ClassIDRef, rec.TeacherIDRef).FirstOrCreate(&rec).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "assigned"})
}

func (ac *AssignmentController) UnassignTeacher(c *gin.Context) {
	classID := strings.TrimSpace(c.Param("id"))
	teacherID := strings.TrimSpace(c.Param("teacher_id"))
	if teacherID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid teacher_id"})
		return
	}
	if err := ac.DB.Where("class_id_ref = ? AND teacher_id_ref = ?", classID, teacherID).Delete(&models.ClassTeacher{}).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unassigned"})
}

// ListTeachers returns the homeroom teacher and the teaching gurus.
func (ac *AssignmentController) ListTeachers(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	cl, ok := ac.loadClass(c)
	if !ok {
		return
	}
	if err := ac.requireClass(user, cl.ID); err != nil {
		ac.respondError(c, err)
		return
	}
	var teachers []models.Teacher
	sub := ac.DB.Model(&models.ClassTeacher{}).Select("teacher_id_ref").Where("class_id_ref = ?", cl.ID)
	if err := ac.DB.Where("id IN (?)", sub).Order("full_name ASC").Find(&teachers).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, teacherJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "homeroom_teacher_id": cl.HomeroomTeacherIDRef})
}

// ListStudents returns the roster of a class, active students by default
// (active=all to include inactive ones).
func (ac *AssignmentController) ListStudents(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	cl, ok := ac.loadClass(c)
	if !ok {
		return
	}
	if err := ac.requireClass(user, cl.ID); err != nil {
		ac.respondError(c, err)
		return
	}
	q := ac.DB.Where("class_id_ref = ?", cl.ID)
	if !strings.EqualFold(c.Query("active"), "all") {
		q = q.Where("active = ?", true)
	}
	var students []models.Student
	if err := q.Order("full_name ASC").Find(&students).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		out = append(out, studentJSON(s))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": gin.H{"total": len(out), "class_id": cl.ID}})
}

type moveStudentRequest struct {
	ClassID *string `json:"class_id"`
}

// MoveStudent places a student in a class, or removes it (class_id null).
func (ac *AssignmentController) MoveStudent(c *gin.Context) {
	var s models.Student
	if err := ac.DB.Where("id = ?", strings.TrimSpace(c.Param("id"))).First(&s).Error; err != nil {
		notFound(c, "student")
		return
	}
	var req moveStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	classID := emptyToNil(req.ClassID)
	if classID != nil {
		var count int64
		if err := ac.DB.Model(&models.Class{}).Where("id = ?", *classID).Count(&count).Error; err != nil {
			ac.respondError(c, err)
			return
		}
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class_id"})
			return
		}
	}
	if err := ac.DB.Model(&s).Update("class_id_ref", classID).Error; err != nil {
		ac.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "moved", "class_id": classID})
}
