package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/zaqqye/absensi_backend_v1/internal/models"
	"github.com/zaqqye/absensi_backend_v1/internal/validation"
)

type StudentController struct {
	Deps
}

type createStudentRequest struct {
	NIS         FlexibleString  `json:"nis" binding:"required"`
	NISN        FlexibleString  `json:"nisn"`
	FullName    string          `json:"full_name" binding:"required"`
	Gender      string          `json:"gender" binding:"omitempty,oneof=L P"`
	BirthDate   string          `json:"birth_date" binding:"omitempty,ymd"`
	Phone       FlexibleString  `json:"phone"`
	Address     string          `json:"address"`
	ParentName  string          `json:"parent_name"`
	ParentPhone FlexibleString  `json:"parent_phone"`
	ClassID     *string         `json:"class_id"`
	Active      *bool           `json:"active"`
	Account     *accountRequest `json:"account"`
}

type updateStudentRequest struct {
	NIS         *FlexibleString `json:"nis"`
	NISN        *FlexibleString `json:"nisn"`
	FullName    *string         `json:"full_name"`
	Gender      *string         `json:"gender" binding:"omitempty,oneof=L P"`
	BirthDate   *string         `json:"birth_date" binding:"omitempty,ymd"`
	Phone       *FlexibleString `json:"phone"`
	Address     *string         `json:"address"`
	ParentName  *string         `json:"parent_name"`
	ParentPhone *FlexibleString `json:"parent_phone"`
	Active      *bool           `json:"active"`
}

// ListStudents filters by q (name/nis/nisn), class_id and active.
func (sc *StudentController) ListStudents(c *gin.Context) {
	lq := parseListQuery(c, 50, map[string]string{
		"created_at": "created_at",
		"nis":        "nis",
		"full_name":  "full_name",
		"active":     "active",
	}, "full_name")
	active, ok := parseActiveFilter(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active value"})
		return
	}
	classID := strings.TrimSpace(c.Query("class_id"))

	filter := func(q *gorm.DB) *gorm.DB {
		if lq.Q != "" {
			q = q.Where("LOWER(full_name) LIKE ? OR LOWER(nis) LIKE ? OR LOWER(nisn) LIKE ?", lq.like(), lq.like(), lq.like())
		}
		if classID == "none" {
			q = q.Where("class_id_ref IS NULL")
		} else if classID != "" {
			q = q.Where("class_id_ref = ?", classID)
		}
		if active != nil {
			q = q.Where("active = ?", *active)
		}
		return q
	}
	var total int64
	if err := filter(sc.DB.Model(&models.Student{})).Count(&total).Error; err != nil {
		sc.respondError(c, err)
		return
	}
	var students []models.Student
	if err := lq.page(filter(sc.DB)).Find(&students).Error; err != nil {
		sc.respondError(c, err)
		return
	}

	classNames := map[string]string{}
	var classIDs []string
	for _, s := range students {
		if s.ClassIDRef != nil {
			classIDs = append(classIDs, *s.ClassIDRef)
		}
	}
	if len(classIDs) > 0 {
		var classes []models.Class
		if err := sc.DB.Where("id IN ?", classIDs).Find(&classes).Error; err != nil {
			sc.respondError(c, err)
			return
		}
		for _, cl := range classes {
			classNames[cl.ID] = cl.Name
		}
	}
	out := make([]gin.H, 0, len(students))
	for _, s := range students {
		entry := studentJSON(s)
		if s.ClassIDRef != nil {
			entry["class_name"] = classNames[*s.ClassIDRef]
		}
		out = append(out, entry)
	}
	meta := lq.meta(total)
	if classID != "" {
		meta["class_id"] = classID
	}
	c.JSON(http.StatusOK, gin.H{"data": out, "meta": meta})
}

func (sc *StudentController) GetStudent(c *gin.Context) {
	var s models.Student
	if err := sc.DB.Where("id = ?", c.Param("id")).First(&s).Error; err != nil {
		notFound(c, "student")
		return
	}
	out := studentJSON(s)
	if s.ClassIDRef != nil {
		var cl models.Class
		if err := sc.DB.Where("id = ?", *s.ClassIDRef).First(&cl).Error; err == nil {
			out["class"] = gin.H{"id": cl.ID, "name": cl.Name}
		}
	}
	if s.UserIDRef != nil {
		var u models.User
		if err := sc.DB.Where("id = ?", *s.UserIDRef).First(&u).Error; err == nil {
			out["account"] = gin.H{"id": u.ID, "email": u.Email, "active": u.Active}
		}
	}
	c.JSON(http.StatusOK, out)
}

func (sc *StudentController) nisTaken(db *gorm.DB, nis, exceptID string) bool {
	var count int64
	q := db.Model(&models.Student{}).Where("nis = ?", nis)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	q.Count(&count)
	return count > 0
}

// insertStudent creates the profile and optional siswa account; db may
// be a transaction.
func (sc *StudentController) insertStudent(db *gorm.DB, s *models.Student, account *accountRequest) error {
	if sc.nisTaken(db, s.NIS, "") {
		return errors.Wrapf(errAccountConflict, "nis %s already exists", s.NIS)
	}
	if s.ClassIDRef != nil {
		var count int64
		if err := db.Model(&models.Class{}).Where("id = ?", *s.ClassIDRef).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return errors.Wrap(gorm.ErrRecordNotFound, "class")
		}
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if account != nil {
			user, err := newAccount(tx, s.FullName, account.Email, account.Password, models.RoleSiswa, s.Active)
			if err != nil {
				return err
			}
			s.UserIDRef = &user.ID
		}
		return tx.Create(s).Error
	})
}

func (sc *StudentController) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	s := models.Student{
		NIS:         req.NIS.String(),
		NISN:        req.NISN.String(),
		FullName:    strings.TrimSpace(req.FullName),
		Gender:      req.Gender,
		BirthDate:   req.BirthDate,
		Phone:       req.Phone.String(),
		Address:     strings.TrimSpace(req.Address),
		ParentName:  strings.TrimSpace(req.ParentName),
		ParentPhone: req.ParentPhone.String(),
		ClassIDRef:  emptyToNil(req.ClassID),
		Active:      active,
	}
	if s.NIS == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nis is required"})
		return
	}
	if err := sc.insertStudent(sc.DB, &s, req.Account); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid class_id"})
			return
		}
		sc.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "created", "id": s.ID, "user_id": s.UserIDRef})
}

func (sc *StudentController) UpdateStudent(c *gin.Context) {
	var s models.Student
	if err := sc.DB.Where("id = ?", c.Param("id")).First(&s).Error; err != nil {
		notFound(c, "student")
		return
	}
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.NIS != nil {
		nis := req.NIS.String()
		if nis == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "nis cannot be empty"})
			return
		}
		if sc.nisTaken(sc.DB, nis, s.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "nis already exists"})
			return
		}
		s.NIS = nis
	}
	if req.NISN != nil {
		s.NISN = req.NISN.String()
	}
	if req.FullName != nil {
		s.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Gender != nil {
		s.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		s.BirthDate = *req.BirthDate
	}
	if req.Phone != nil {
		s.Phone = req.Phone.String()
	}
	if req.Address != nil {
		s.Address = strings.TrimSpace(*req.Address)
	}
	if req.ParentName != nil {
		s.ParentName = strings.TrimSpace(*req.ParentName)
	}
	if req.ParentPhone != nil {
		s.ParentPhone = req.ParentPhone.String()
	}
	if req.Active != nil {
		s.Active = *req.Active
	}
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		if s.UserIDRef == nil {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", *s.UserIDRef).
			Updates(map[string]interface{}{"full_name": s.FullName, "active": s.Active}).Error
	})
	if err != nil {
		sc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "updated"})
}

// DeleteStudent removes the profile with its attendance, leave requests
// and linked account.
func (sc *StudentController) DeleteStudent(c *gin.Context) {
	var s models.Student
	if err := sc.DB.Where("id = ?", c.Param("id")).First(&s).Error; err != nil {
		notFound(c, "student")
		return
	}
	err := sc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id_ref = ?", s.ID).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		if err := tx.Where("student_id_ref = ?", s.ID).Delete(&models.LeaveRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&s).Error; err != nil {
			return err
		}
		if s.UserIDRef == nil {
			return nil
		}
		if err := tx.Where("user_id_ref = ?", *s.UserIDRef).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", *s.UserIDRef).Delete(&models.User{}).Error
	})
	if err != nil {
		sc.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// ImportStudents bulk-creates students from a CSV file. Required columns:
// nis, full_name. Optional: nisn, gender, birth_date, phone, address,
// parent_name, parent_phone, class_name, active, email, password. A row
// with email gets a siswa account; password defaults to the nis.
func (sc *StudentController) ImportStudents(c *gin.Context) {
	up, ok := readCSVUpload(c, "nis", "full_name")
	if !ok {
		return
	}
	failures := append([]importError{}, up.rowErrs...)
	classCache := map[string]string{}
	created := 0
	for i, row := range up.rows {
		if row == nil {
			continue
		}
		rowNum := i + 2
		nis := up.get(row, "nis")
		fail := func(msg string) {
			failures = append(failures, importError{Row: rowNum, Key: nis, Error: msg})
		}
		fullName := up.get(row, "full_name")
		if nis == "" || fullName == "" {
			fail("nis and full_name are required")
			continue
		}
		gender := strings.ToUpper(up.get(row, "gender"))
		if gender != "" && gender != "L" && gender != "P" {
			fail("gender must be L or P")
			continue
		}
		birth := up.get(row, "birth_date")
		if birth != "" && !validation.IsYMD(birth) {
			fail("birth_date must be YYYY-MM-DD")
			continue
		}
		activeStr := up.get(row, "active")
		active, provided := parseBoolDefaultTrue(activeStr)
		if activeStr != "" && !provided {
			fail("invalid active value")
			continue
		}

		s := models.Student{
			NIS:         nis,
			NISN:        up.get(row, "nisn"),
			FullName:    fullName,
			Gender:      gender,
			BirthDate:   birth,
			Phone:       up.get(row, "phone"),
			Address:     up.get(row, "address"),
			ParentName:  up.get(row, "parent_name"),
			ParentPhone: up.get(row, "parent_phone"),
			Active:      active,
		}
		if className := up.get(row, "class_name"); className != "" {
			key := strings.ToLower(className)
			id, ok := classCache[key]
			if !ok {
				var cl models.Class
				if err := sc.DB.Where("LOWER(name) = ?", key).First(&cl).Error; err != nil {
					fail(fmt.Sprintf("class '%s' not found", className))
					continue
				}
				id = cl.ID
				classCache[key] = id
			}
			s.ClassIDRef = &id
		}
		var account *accountRequest
		if email := up.get(row, "email"); email != "" {
			password := up.get(row, "password")
			if password == "" {
				password = nis
			}
			account = &accountRequest{Email: email, Password: password}
		}
		if err := sc.insertStudent(sc.DB, &s, account); err != nil {
			fail(err.Error())
			continue
		}
		created++
	}
	importSummary(c, len(up.rows), created, failures)
}
