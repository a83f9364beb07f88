package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/utils"
)

// AdminController manages login accounts.
type AdminController struct {
	Deps
}

// ImportUsers bulk-creates accounts from a CSV file with header columns
// full_name, email, password, role (optional), active (optional).
func (a *AdminController) ImportUsers(c *gin.Context) {
	up, ok := readCSVUpload(c, "full_name", "email", "password")
	if !ok {
		return
	}
	failures := append([]importError{}, up.rowErrs...)
	created := 0
	for i, row := range up.rows {
		if row == nil {
			continue
		}
		rowNum := i + 2
		email := strings.ToLower(up.get(row, "email"))
		fail := func(msg string) {
			failures = append(failures, importError{Row: rowNum, Key: email, Error: msg})
		}

		fullName := up.get(row, "full_name")
		password := up.get(row, "password")
		if fullName == "" || email == "" || password == "" {
			fail("full_name, email, and password are required")
			continue
		}
		role := strings.ToLower(up.get(row, "role"))
		if role == "" {
			role = models.RoleSiswa
		}
		if !IsValidRole(role) {
			fail("invalid role")
			continue
		}
		activeStr := up.get(row, "active")
		active, provided := parseBoolDefaultTrue(activeStr)
		if activeStr != "" && !provided {
			fail("invalid active value")
			continue
		}
		if _, err := newAccount(a.DB, fullName, email, password, role, active); err != nil {
			if errors.Is(err, errAccountConflict) {
				fail("email already exists")
			} else {
				fail(fmt.Sprintf("failed to insert user: %v", err))
			}
			continue
		}
		created++
	}
	importSummary(c, len(up.rows), created, failures)
}

func (a *AdminController) ListUsers(c *gin.Context) {
	lq := parseListQuery(c, 50, map[string]string{
		"id":            "id",
		"created_at":    "created_at",
		"full_name":     "full_name",
		"email":         "email",
		"role":          "role",
		"active":        "active",
		"last_login_at": "last_login_at",
	}, "created_at")

	role := strings.TrimSpace(strings.ToLower(c.Query("role")))
	if role != "" && !IsValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	active, ok := parseActiveFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active value"})
		return
	}

	filter := func(q *gorm.DB) *gorm.DB {
		if lq.Q != "" {
			q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", lq.like(), lq.like())
		}
		if role != "" {
			q = q.Where("role = ?", role)
		}
		if active != nil {
			q = q.Where("active = ?", *active)
		}
		return q
	}

	var total int64
	if err := filter(a.DB.Model(&models.User{})).Count(&total).Error; err != nil {
		a.respondError(c, err)
		return
	}
	var users []models.User
	if err := lq.page(filter(a.DB)).Find(&users).Error; err != nil {
		a.respondError(c, err)
		return
	}

	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	meta := lq.meta(total)
	if role != "" {
		meta["role"] = role
	}
	if active != nil {
		meta["active"] = *active
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func (a *AdminController) GetUser(c *gin.Context) {
	var u models.User
	if err := a.DB.Where("id = ?", c.Param("user_id")).First(&u).Error; err != nil {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, userJSON(u))
}

type updateUserRequest struct {
	FullName *string         `json:"full_name"`
	Email    *string         `json:"email" binding:"omitempty,email"`
	Password *FlexibleString `json:"password"`
	Role     *string         `json:"role"`
	Active   *bool           `json:"active"`
}

func (a *AdminController) UpdateUser(c *gin.Context) {
	var u models.User
	if err := a.DB.Where("id = ?", c.Param("user_id")).First(&u).Error; err != nil {
		notFound(c, "user")
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		var count int64
		if err := a.DB.Model(&models.User{}).Where("email = ? AND id <> ?", email, u.ID).Count(&count).Error; err != nil {
			a.respondError(c, err)
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		u.Email = email
	}
	if req.Role != nil {
		if !IsValidRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
			return
		}
		u.Role = *req.Role
	}
	if req.Active != nil {
		u.Active = *req.Active
	}
	if req.Password != nil {
		raw := strings.TrimSpace(req.Password.String())
		if raw != "" {
			pw, err := utils.HashPassword(raw)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
				return
			}
			u.Password = pw
		}
	}

	if err := a.DB.Save(&u).Error; err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteUser removes an account, its refresh tokens, and unlinks any
// teacher or student profile. The profiles themselves are kept.
func (a *AdminController) DeleteUser(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}
	if me, _ := middleware.CurrentUser(c); me.ID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", userID).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("user_id_ref = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Teacher{}).Where("user_id_ref = ?", userID).Update("user_id_ref", nil).Error; err != nil {
			return err
		}
		return tx.Model(&models.Student{}).Where("user_id_ref = ?", userID).Update("user_id_ref", nil).Error
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ForceLogout revokes every refresh token of a user. Access tokens stay
// valid until they expire.
func (a *AdminController) ForceLogout(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	var target models.User
	if err := a.DB.Where("id = ?", userID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "user")
			return
		}
		a.respondError(c, err)
		return
	}
	now := a.now().UTC()
	res := a.DB.Model(&models.RefreshToken{}).
		Where("user_id_ref = ? AND revoked_at IS NULL", target.ID).
		Update("revoked_at", &now)
	if res.Error != nil {
		a.respondError(c, res.Error)
		return
	}
	a.logger().Info("sessions revoked",
		zap.String("user_id", target.ID),
		zap.Int64("tokens", res.RowsAffected),
	)
	c.JSON(http.StatusOK, gin.H{"message": "user logged out", "revoked": res.RowsAffected})
}
