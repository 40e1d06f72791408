package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

// listOptions reads page, limit, sort and search. Unparseable numbers fall
// back to the defaults.
func listOptions(c *gin.Context) models.ListOptions {
	opts := models.ListOptions{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", models.DefaultPageSize),
		Sort:   strings.TrimSpace(c.Query("sort")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	opts.Normalize()
	return opts
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// queryBool parses a boolean filter. ok is false for a present but unparseable value.
func queryBool(c *gin.Context, key string) (*bool, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}

func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// queryEnum reads an enum filter; an out-of-set value reports ok=false.
func queryEnum[T interface {
	~string
	models.Enumerator
}](c *gin.Context, key string) (T, bool) {
	raw := T(strings.TrimSpace(c.Query(key)))
	if raw == "" {
		return raw, true
	}
	return raw, raw.Valid()
}

func eventQuery(c *gin.Context) models.EventQuery {
	q := models.EventQuery{ListOptions: listOptions(c)}
	var ok [5]bool
	q.Category, ok[0] = queryEnum[models.EventCategory](c, "category")
	q.Status, ok[1] = queryEnum[models.EventStatus](c, "status")
	q.Featured, ok[2] = queryBool(c, "featured")
	q.StartDate, ok[3] = queryDate(c, "startDate")
	q.EndDate, ok[4] = queryDate(c, "endDate")
	q.NoMatch = !allOK(ok[:])
	return q
}

// noticeQuery applies the visibility rule: only staff see drafts and expired
// notices, and only staff may filter on isActive.
func noticeQuery(c *gin.Context, viewer *models.Identity) models.NoticeQuery {
	q := models.NoticeQuery{ListOptions: listOptions(c)}
	var ok [3]bool
	q.Category, ok[0] = queryEnum[models.NoticeCategory](c, "category")
	q.Priority, ok[1] = queryEnum[models.Priority](c, "priority")
	ok[2] = true
	if viewer != nil && viewer.Role.IsStaff() {
		q.IsActive, ok[2] = queryBool(c, "isActive")
	} else {
		q.PublicOnly = true
	}
	q.NoMatch = !allOK(ok[:])
	return q
}

func userQuery(c *gin.Context) models.UserQuery {
	q := models.UserQuery{ListOptions: listOptions(c)}
	var ok [2]bool
	q.Role, ok[0] = queryEnum[models.Role](c, "role")
	q.IsActive, ok[1] = queryBool(c, "isActive")
	q.NoMatch = !allOK(ok[:])
	return q
}

func allOK(flags []bool) bool {
	for _, f := range flags {
		if !f {
			return false
		}
	}
	return true
}
