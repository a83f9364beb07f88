package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/middleware"
	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/utils"
)

const tokenIssuer = "absensi_backend_v1"

type AuthController struct {
	Deps
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type registerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`   // admin-only endpoint will validate
	Active   *bool  `json:"active"` // optional, defaults to true
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates a login account. Mounted under /admin/users.
func (a *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = models.RoleSiswa
	}
	if !IsValidRole(role) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	user, err := newAccount(a.DB, req.FullName, req.Email, req.Password, role, active)
	if err != nil {
		a.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "registered",
		"user_id":   user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
		"role":      user.Role,
	})
}

// newAccount hashes password and inserts a user; db may be a transaction.
func newAccount(db *gorm.DB, fullName, email, password, role string, active bool) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errAccountConflict
	}
	hashed, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		FullName: strings.TrimSpace(fullName),
		Email:    email,
		Password: hashed,
		Role:     role,
		Active:   active,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := a.DB.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !user.Active || !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	access, refresh, err := a.issueTokens(a.DB, user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	now := a.now().UTC()
	if err := a.DB.Model(&user).Update("last_login_at", &now).Error; err != nil {
		a.logger().Warn("update last_login_at", zap.String("user_id", user.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"role":               user.Role,
		"refresh_token":      refresh.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
	})
}

// Me returns the current user with its teacher or student profile.
func (a *AuthController) Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	out := userJSON(user)
	delete(out, "last_login_at")

	switch user.Role {
	case models.RoleGuru:
		if t, err := a.teacherOf(a.DB, user); err == nil {
			out["teacher"] = teacherJSON(*t)
		}
	case models.RoleSiswa:
		if s, err := a.studentOf(a.DB, user); err == nil {
			profile := studentJSON(*s)
			if s.ClassIDRef != nil {
				var cl models.Class
				if err := a.DB.Where("id = ?", *s.ClassIDRef).First(&cl).Error; err == nil {
					profile["class"] = gin.H{"id": cl.ID, "name": cl.Name}
				}
			}
			out["student"] = profile
		}
	}
	c.JSON(http.StatusOK, out)
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// UpdateProfile lets any user edit its own name and contact details.
func (a *AuthController) UpdateProfile(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "full_name cannot be empty"})
		return
	}

	err := a.DB.Transaction(func(tx *gorm.DB) error {
		contact := map[string]interface{}{}
		if req.FullName != nil {
			name := strings.TrimSpace(*req.FullName)
			if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("full_name", name).Error; err != nil {
				return err
			}
			contact["full_name"] = name
		}
		if req.Phone != nil {
			contact["phone"] = strings.TrimSpace(*req.Phone)
		}
		if req.Address != nil {
			contact["address"] = strings.TrimSpace(*req.Address)
		}
		if len(contact) == 0 {
			return nil
		}
		switch user.Role {
		case models.RoleGuru:
			return tx.Model(&models.Teacher{}).Where("user_id_ref = ?", user.ID).Updates(contact).Error
		case models.RoleSiswa:
			return tx.Model(&models.Student{}).Where("user_id_ref = ?", user.ID).Updates(contact).Error
		}
		return nil
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword verifies the old password and revokes every refresh token.
func (a *AuthController) ChangePassword(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !utils.CheckPassword(user.Password, req.OldPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "old password is incorrect"})
		return
	}
	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}
	now := a.now().UTC()
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update("password", hashed).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id_ref = ? AND revoked_at IS NULL", user.ID).
			Update("revoked_at", &now).Error
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password changed"})
}

type tokenPair struct {
	Token string
	JTI   string
}

// issueTokens signs a token pair and stores the refresh token hash with db,
// which may be a transaction.
func (a *AuthController) issueTokens(db *gorm.DB, user models.User) (access tokenPair, refresh tokenPair, err error) {
	now := a.now().UTC()
	// Access token
	acl := middleware.Claims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.AccessTTL)),
			Subject:   user.ID,
		},
	}
	atStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, acl).SignedString([]byte(a.AccessSecret))
	if err != nil {
		return
	}
	access = tokenPair{Token: atStr}

	// Refresh token with JTI
	jti := uuid.NewString()
	rcl := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.RefreshTTL)),
		Subject:   user.ID,
		ID:        jti,
	}
	rtStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, rcl).SignedString([]byte(a.RefreshSecret))
	if err != nil {
		return
	}
	refresh = tokenPair{Token: rtStr, JTI: jti}

	// Persist hashed refresh token
	rec := models.RefreshToken{
		TokenID:   jti,
		UserIDRef: user.ID,
		TokenHash: utils.SHA256Hex(rtStr),
		ExpiresAt: now.Add(a.RefreshTTL),
	}
	err = db.Create(&rec).Error
	return
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (a *AuthController) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(req.RefreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.RefreshSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	var rec models.RefreshToken
	if err := a.DB.Where("token_hash = ?", utils.SHA256Hex(req.RefreshToken)).First(&rec).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token not found"})
		return
	}
	now := a.now().UTC()
	if rec.RevokedAt != nil || now.After(rec.ExpiresAt) || rec.UserIDRef != claims.Subject {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired or revoked"})
		return
	}
	var user models.User
	if err := a.DB.Where("id = ? AND active = ?", rec.UserIDRef, true).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found or inactive"})
		return
	}

	// Revoke before issuing so a replayed token loses the race.
	var access, newRefresh tokenPair
	err = a.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", rec.ID).
			Update("revoked_at", &now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return errRefreshReused
		}
		var err error
		if access, newRefresh, err = a.issueTokens(tx, user); err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("id = ?", rec.ID).
			Update("replaced_by_token_id", newRefresh.JTI).Error
	})
	if errors.Is(err, errRefreshReused) {
		a.logger().Warn("refresh token reused", zap.String("user_id", user.ID), zap.Uint("token_id", rec.ID))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "refresh token expired or revoked"})
		return
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":       access.Token,
		"token_type":         "Bearer",
		"expires_in":         int(a.AccessTTL.Seconds()),
		"refresh_token":      newRefresh.Token,
		"refresh_expires_in": int(a.RefreshTTL.Seconds()),
	})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	All          bool   `json:"all"`
}

// Logout revokes refresh tokens (specific or all). Access tokens remain
// valid until expiry.
func (a *AuthController) Logout(c *gin.Context) {
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, _ := middleware.CurrentUser(c)
	now := a.now().UTC()
	q := a.DB.Model(&models.RefreshToken{}).Where("user_id_ref = ? AND revoked_at IS NULL", user.ID)
	switch {
	case req.All:
	case req.RefreshToken != "":
		q = q.Where("token_hash = ?", utils.SHA256Hex(req.RefreshToken))
	default:
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}
	if err := q.Update("revoked_at", &now).Error; err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
