package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

// DashboardController serves the role menus stored in dashboard_menus.
type DashboardController struct {
	Deps
}

// Get returns the caller's menu together with its summary block.
func (dc *DashboardController) Get(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	var menu models.DashboardMenu
	err := dc.DB.Where("role = ? AND active = ?", user.Role, true).First(&menu).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		dc.respondError(c, err)
		return
	}
	summary, err := dc.summaryFor(user)
	if err != nil {
		dc.respondError(c, err)
		return
	}

	var payload json.RawMessage
	if len(menu.Payload) > 0 {
		payload = applyUserPlaceholders(menu.Payload, user)
	}
	c.JSON(http.StatusOK, gin.H{
		"role":    user.Role,
		"version": menu.Version,
		"menu":    payload,
		"summary": summary,
		"user":    userJSON(user),
	})
}

func applyUserPlaceholders(data []byte, u models.User) []byte {
	r := strings.NewReplacer(
		"{{full_name}}", u.FullName,
		"{{email}}", u.Email,
		"{{role}}", u.Role,
		"{{user_id}}", u.ID,
	)
	return []byte(r.Replace(string(data)))
}

func (dc *DashboardController) ListMenus(c *gin.Context) {
	var items []models.DashboardMenu
	if err := dc.DB.Order("role ASC").Find(&items).Error; err != nil {
		dc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(items))
	for _, m := range items {
		out = append(out, menuJSON(m))
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": gin.H{"total": len(out), "all": true}})
}

func (dc *DashboardController) GetMenu(c *gin.Context) {
	var menu models.DashboardMenu
	if err := dc.DB.Where("role = ?", strings.ToLower(c.Param("role"))).First(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "menu")
			return
		}
		dc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": menuJSON(menu)})
}

type menuUpdateRequest struct {
	Active  *bool       `json:"active"`
	Payload interface{} `json:"payload"`
}

// UpdateMenu replaces the payload of a role's menu, creating it when absent.
// Every change bumps the version.
func (dc *DashboardController) UpdateMenu(c *gin.Context) {
	role := strings.ToLower(c.Param("role"))
	if !IsValidRole(role) {
		badRequest(c, "invalid role")
		return
	}
	var req menuUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Payload == nil && req.Active == nil {
		badRequest(c, "payload or active is required")
		return
	}

	var menu models.DashboardMenu
	err := dc.DB.Where("role = ?", role).First(&menu).Error
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if req.Payload == nil {
			badRequest(c, "payload is required for a new menu")
			return
		}
		menu = models.DashboardMenu{Role: role, Version: 0, Active: true}
		created = true
	case err != nil:
		dc.respondError(c, err)
		return
	}
	if req.Payload != nil {
		raw, err := json.Marshal(req.Payload)
		if err != nil {
			badRequest(c, "invalid payload")
			return
		}
		menu.Payload = raw
	}
	if req.Active != nil {
		menu.Active = *req.Active
	}
	menu.Version++
	if err := dc.DB.Save(&menu).Error; err != nil {
		dc.respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": menuJSON(menu)})
}

func menuJSON(m models.DashboardMenu) gin.H {
	return gin.H{
		"id":         m.ID,
		"role":       m.Role,
		"version":    m.Version,
		"active":     m.Active,
		"payload":    json.RawMessage(m.Payload),
		"updated_at": m.UpdatedAt,
	}
}
