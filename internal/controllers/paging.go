package controllers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// listQuery holds the shared list parameters:
// limit, page, all, sort_by, sort_dir, q.
type listQuery struct {
	All     bool
	Limit   int
	Page    int
	SortCol string
	SortDir string
	Q       string
}

func parseListQuery(c *gin.Context, defaultLimit int, allowedSorts map[string]string, defaultSort string) listQuery {
	lq := listQuery{
		All:   strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1",
		Limit: defaultLimit,
		Page:  1,
		Q:     strings.TrimSpace(c.Query("q")),
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lq.Limit = n
		}
	}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			lq.Page = n
		}
	}
	lq.SortDir = strings.ToUpper(c.DefaultQuery("sort_dir", "DESC"))
	if lq.SortDir != "ASC" && lq.SortDir != "DESC" {
		lq.SortDir = "DESC"
	}
	sortCol, ok := allowedSorts[strings.ToLower(c.DefaultQuery("sort_by", defaultSort))]
	if !ok {
		sortCol = allowedSorts[defaultSort]
	}
	lq.SortCol = sortCol
	return lq
}

// like builds a case-insensitive LIKE pattern; LOWER(col) LIKE works on
// postgres and sqlite alike.
func (lq listQuery) like() string {
	return "%" + strings.ToLower(lq.Q) + "%"
}

// page applies ordering and, unless all=true, offset/limit.
func (lq listQuery) page(q *gorm.DB) *gorm.DB {
	q = q.Order(lq.SortCol + " " + lq.SortDir)
	if !lq.All {
		q = q.Offset((lq.Page - 1) * lq.Limit).Limit(lq.Limit)
	}
	return q
}

func (lq listQuery) meta(total int64) gin.H {
	meta := gin.H{"total": total, "all": lq.All}
	if !lq.All {
		meta["limit"] = lq.Limit
		meta["page"] = lq.Page
		meta["sort_by"] = lq.SortCol
		meta["sort_dir"] = lq.SortDir
	}
	if lq.Q != "" {
		meta["q"] = lq.Q
	}
	return meta
}

func parseBoolDefaultTrue(val string) (bool, bool) {
	if val == "" {
		return true, false
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "y", "aktif":
		return true, true
	case "false", "0", "no", "n", "nonaktif", "inactive":
		return false, true
	default:
		return true, false
	}
}

// parseActiveFilter reads the active query param: "", true/1, false/0.
func parseActiveFilter(c *gin.Context) (*bool, bool) {
	switch strings.TrimSpace(strings.ToLower(c.Query("active"))) {
	case "":
		return nil, true
	case "true", "1":
		v := true
		return &v, true
	case "false", "0":
		v := false
		return &v, true
	}
	return nil, false
}
