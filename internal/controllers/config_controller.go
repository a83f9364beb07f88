package controllers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/absensi_backend_v1/internal/attendance"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
)

// ConfigController exposes the school settings stored in app_configs.
type ConfigController struct {
	Deps
}

func schoolDaysString(days map[time.Weekday]bool) string {
	var nums []int
	for d, ok := range days {
		if ok {
			nums = append(nums, int(d))
		}
	}
	sort.Ints(nums)
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// Public is readable without a token.
func (cc *ConfigController) Public(c *gin.Context) {
	p := cc.policy()
	now := cc.now()
	today := p.Today(now)
	c.JSON(http.StatusOK, gin.H{
		"school_name":        cc.schoolName(),
		"timezone":           p.Location.String(),
		"today":              today,
		"school_day":         p.IsSchoolDay(today),
		"checkin_late_after": p.LateAfter.String(),
		"checkout_earliest":  p.CheckoutEarliest.String(),
		"school_days":        schoolDaysString(p.SchoolDays),
		"server_time":        now.In(p.Location),
	})
}

func (cc *ConfigController) GetSettings(c *gin.Context) {
	var rows []models.AppConfig
	if err := cc.DB.Order("key ASC").Find(&rows).Error; err != nil {
		cc.respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, gin.H{
			"key":         r.Key,
			"value":       r.Value,
			"description": r.Description,
			"updated_at":  r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

type settingsRequest struct {
	SchoolName       *string `json:"school_name" binding:"omitempty,min=1,max=200"`
	CheckinLateAfter *string `json:"checkin_late_after" binding:"omitempty,hhmm"`
	CheckoutEarliest *string `json:"checkout_earliest" binding:"omitempty,hhmm"`
	SchoolDays       *string `json:"school_days"`
}

// UpdateSettings upserts the given keys; omitted keys keep their value.
func (cc *ConfigController) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	values := map[string]string{}
	if req.SchoolName != nil {
		values[models.SettingSchoolName] = strings.TrimSpace(*req.SchoolName)
	}
	if req.CheckinLateAfter != nil {
		values[models.SettingCheckinLateAfter] = strings.TrimSpace(*req.CheckinLateAfter)
	}
	if req.CheckoutEarliest != nil {
		values[models.SettingCheckoutEarliest] = strings.TrimSpace(*req.CheckoutEarliest)
	}
	if req.SchoolDays != nil {
		days, err := attendance.ParseSchoolDays(*req.SchoolDays)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		values[models.SettingSchoolDays] = schoolDaysString(days)
	}
	if len(values) == 0 {
		badRequest(c, "no settings given")
		return
	}

	err := cc.DB.Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			rec := models.AppConfig{Key: k, Value: v}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rec).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cc.respondError(c, err)
		return
	}
	cc.GetSettings(c)
}
