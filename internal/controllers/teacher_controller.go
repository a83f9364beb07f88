package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

type TeacherController struct {
	Deps
}

// accountRequest optionally creates a login account with the profile.
type accountRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type createTeacherRequest struct {
	NIP      FlexibleString  `json:"nip" binding:"required"`
	FullName string          `json:"full_name" binding:"required"`
	Gender   string          `json:"gender" binding:"omitempty,oneof=L P"`
	Phone    FlexibleString  `json:"phone"`
	Address  string          `json:"address"`
	Subject  string          `json:"subject"`
	Account  *accountRequest `json:"account"`
}

type updateTeacherRequest struct {
	NIP      *FlexibleString `json:"nip"`
	FullName *string         `json:"full_name"`
	Gender   *string         `json:"gender" binding:"omitempty,oneof=L P"`
	Phone    *FlexibleString `json:"phone"`
	Address  *string         `json:"address"`
	Subject  *string         `json:"subject"`
}

func (tc *TeacherController) ListTeachers(c *gin.Context) {
	lq := parseListQuery(c, 20, map[string]string{
		"created_at": "created_at",
		"nip":        "nip",
		"full_name":  "full_name",
		"subject":    "subject",
	}, "full_name")

	filter := func(q *gorm.DB) *gorm.DB {
		if lq.Q != "" {
			q = q.Where("LOWER(full_name) LIKE ? OR LOWER(nip) LIKE ? OR LOWER(subject) LIKE ?", lq.like(), lq.like(), lq.like())
		}
		return q
	}
	var total int64
	if err := filter(tc.DB.Model(&models.Teacher{})).Count(&total).Error; err != nil {
		tc.respondError(c, err)
		return
	}
	var teachers []models.Teacher
	if err := lq.page(filter(tc.DB)).Find(&teachers).Error; err != nil {
		tc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, teacherJSON(t))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": lq.meta(total)})
}

func (tc *TeacherController) GetTeacher(c *gin.Context) {
	var t models.Teacher
	if err := tc.DB.Where("id = ?", c.Param("id")).First(&t).Error; err != nil {
		notFound(c, "teacher")
		return
	}
	out := teacherJSON(t)

	var homeroom []models.Class
	tc.DB.Where("homeroom_teacher_id_ref = ?", t.ID).Order("name ASC").Find(&homeroom)
	var teaching []models.Class
	sub := tc.DB.Model(&models.ClassTeacher{}).Select("class_id_ref").Where("teacher_id_ref = ?", t.ID)
	tc.DB.Where("id IN (?)", sub).Order("name ASC").Find(&teaching)
	brief := func(cls []models.Class) []gin.H {
		res := make([]gin.H, 0, len(cls))
		for _, cl := range cls {
			res = append(res, gin.H{"id": cl.ID, "name": cl.Name})
		}
		return res
	}
	out["homeroom_classes"] = brief(homeroom)
	out["teaching_classes"] = brief(teaching)
	c.JSON(http.StatusOK, out)
}

func (tc *TeacherController) nipTaken(nip, exceptID string) bool {
	var count int64
	q := tc.DB.Model(&models.Teacher{}).Where("nip = ?", nip)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	q.Count(&count)
	return count > 0
}

// CreateTeacher inserts the profile and, when account is given, a guru
// login in the same transaction.
func (tc *TeacherController) CreateTeacher(c *gin.Context) {
	var req createTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	nip := req.NIP.String()
	if nip == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nip is required"})
		return
	}
	if tc.nipTaken(nip, "") {
		c.JSON(http.StatusConflict, gin.H{"error": "nip already exists"})
		return
	}
	t := models.Teacher{
		NIP:      nip,
		FullName: strings.TrimSpace(req.FullName),
		Gender:   req.Gender,
		Phone:    req.Phone.String(),
		Address:  strings.TrimSpace(req.Address),
		Subject:  strings.TrimSpace(req.Subject),
	}
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if req.Account != nil {
			user, err := newAccount(tx, t.FullName, req.Account.Email, req.Account.Password, models.RoleGuru, true)
			if err != nil {
				return err
			}
			t.UserIDRef = &user.ID
		}
		return tx.Create(&t).Error
	})
	if err != nil {
		tc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "created", "id": t.ID, "user_id": t.UserIDRef})
}

func (tc *TeacherController) UpdateTeacher(c *gin.Context) {
	var t models.Teacher
	if err := tc.DB.Where("id = ?", c.Param("id")).First(&t).Error; err != nil {
		notFound(c, "teacher")
		return
	}
	var req updateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NIP != nil {
		nip := req.NIP.String()
		if nip == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nip cannot be empty"})
			return
		}
		if tc.nipTaken(nip, t.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "nip already exists"})
			return
		}
		t.NIP = nip
	}
	if req.FullName != nil {
		t.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Gender != nil {
		t.Gender = *req.Gender
	}
	if req.Phone != nil {
		t.Phone = req.Phone.String()
	}
	if req.Address != nil {
		t.Address = strings.TrimSpace(*req.Address)
	}
	if req.Subject != nil {
		t.Subject = strings.TrimSpace(*req.Subject)
	}
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&t).Error; err != nil {
			return err
		}
		if req.FullName != nil && t.UserIDRef != nil {
			return tx.Model(&models.User{}).Where("id = ?", *t.UserIDRef).Update("full_name", t.FullName).Error
		}
		return nil
	})
	if err != nil {
		tc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteTeacher clears class links and removes the linked guru account.
func (tc *TeacherController) DeleteTeacher(c *gin.Context) {
	var t models.Teacher
	if err := tc.DB.Where("id = ?", c.Param("id")).First(&t).Error; err != nil {
		notFound(c, "teacher")
		return
	}
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("teacher_id_ref = ?", t.ID).Delete(&models.ClassTeacher{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Class{}).Where("homeroom_teacher_id_ref = ?", t.ID).Update("homeroom_teacher_id_ref", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&t).Error; err != nil {
			return err
		}
		if t.UserIDRef == nil {
			return nil
		}
		if err := tx.Where("user_id_ref = ?", *t.UserIDRef).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", *t.UserIDRef).Delete(&models.User{}).Error
	})
	if err != nil {
		tc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}
