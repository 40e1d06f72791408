package repository

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/phillip/church-cms-go/models"
)

// sortable maps public sort keys onto stored field names.
type sortable map[string]string

var (
	eventSorts = sortable{
		"date":             "date",
		"title":            "title",
		"category":         "category",
		"status":           "status",
		"createdAt":        "created_at",
		"updatedAt":        "updated_at",
		"currentAttendees": "current_attendees",
	}
	noticeSorts = sortable{
		"publishDate": "publish_date",
		"expiryDate":  "expiry_date",
		"title":       "title",
		"category":    "category",
		"createdAt":   "created_at",
		"updatedAt":   "updated_at",
	}
	userSorts = sortable{
		"name":           "name",
		"email":          "email",
		"role":           "role",
		"membershipDate": "membership_date",
		"createdAt":      "created_at",
		"lastLogin":      "last_login",
	}
)

const (
	defaultEventSort  = "-createdAt"
	defaultNoticeSort = "-publishDate"
	defaultUserSort   = "-createdAt"
)

// sortSpec resolves "field" or "-field" against the allow-list, falling back to
// def. _id is appended in the same direction so pages never overlap.
func (s sortable) sortSpec(raw, def string) bson.D {
	field, dir, ok := s.resolve(raw)
	if !ok {
		field, dir, _ = s.resolve(def)
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

func (s sortable) resolve(raw string) (string, int, bool) {
	raw = strings.TrimSpace(raw)
	dir := 1
	if strings.HasPrefix(raw, "-") {
		dir = -1
		raw = raw[1:]
	}
	field, ok := s[raw]
	return field, dir, ok
}

// searchClause ORs a case-insensitive literal substring match across fields.
func searchClause(term string, fields ...string) bson.M {
	pattern := regexp.QuoteMeta(strings.TrimSpace(term))
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: bson.M{"$regex": pattern, "$options": "i"}})
	}
	return bson.M{"$or": or}
}

func and(conds []bson.M) bson.M {
	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	default:
		all := make(bson.A, len(conds))
		for i, c := range conds {
			all[i] = c
		}
		return bson.M{"$and": all}
	}
}

// eventStatusClause expresses a derived status as a date-range filter so the
// result matches what DeriveEventStatus reports at now.
func eventStatusClause(status models.EventStatus, now time.Time) bson.M {
	start, next := models.DayBounds(now)
	notCancelled := bson.M{"$ne": models.StatusCancelled}
	switch status {
	case models.StatusUpcoming:
		return bson.M{"status": notCancelled, "date": bson.M{"$gte": next}}
	case models.StatusOngoing:
		return bson.M{"status": notCancelled, "date": bson.M{"$gte": start, "$lt": next}}
	case models.StatusCompleted:
		return bson.M{"status": notCancelled, "date": bson.M{"$lt": start}}
	default:
		return bson.M{"status": models.StatusCancelled}
	}
}

func buildEventFilter(q models.EventQuery, now time.Time) bson.M {
	var conds []bson.M
	if q.Category != "" {
		conds = append(conds, bson.M{"category": q.Category})
	}
	if q.Status != "" {
		conds = append(conds, eventStatusClause(q.Status, now))
	}
	if q.Featured != nil {
		conds = append(conds, bson.M{"featured": *q.Featured})
	}
	if q.StartDate != nil || q.EndDate != nil {
		rng := bson.M{}
		if q.StartDate != nil {
			rng["$gte"] = *q.StartDate
		}
		if q.EndDate != nil {
			rng["$lte"] = *q.EndDate
		}
		conds = append(conds, bson.M{"date": rng})
	}
	if strings.TrimSpace(q.Search) != "" {
		conds = append(conds, searchClause(q.Search, "title", "description", "location"))
	}
	return and(conds)
}

// noticeVisibleClause is the public visibility rule as a query.
func noticeVisibleClause(now time.Time) bson.M {
	return bson.M{
		"is_active":    true,
		"publish_date": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"expiry_date": nil},
			bson.M{"expiry_date": bson.M{"$gt": now}},
		},
	}
}

func noticeActiveClause(active bool, now time.Time) bson.M {
	if active {
		return bson.M{
			"is_active": true,
			"$or": bson.A{
				bson.M{"expiry_date": nil},
				bson.M{"expiry_date": bson.M{"$gt": now}},
			},
		}
	}
	return bson.M{"$or": bson.A{
		bson.M{"is_active": false},
		bson.M{"expiry_date": bson.M{"$lte": now}},
	}}
}

func buildNoticeFilter(q models.NoticeQuery, now time.Time) bson.M {
	var conds []bson.M
	if q.PublicOnly {
		conds = append(conds, noticeVisibleClause(now))
	} else if q.IsActive != nil {
		conds = append(conds, noticeActiveClause(*q.IsActive, now))
	}
	if q.Category != "" {
		conds = append(conds, bson.M{"category": q.Category})
	}
	if q.Priority != "" {
		conds = append(conds, bson.M{"priority": q.Priority})
	}
	if strings.TrimSpace(q.Search) != "" {
		conds = append(conds, searchClause(q.Search, "title", "content", "summary"))
	}
	return and(conds)
}

func buildUserFilter(q models.UserQuery) bson.M {
	var conds []bson.M
	if q.MembersOnly {
		conds = append(conds, bson.M{"role": bson.M{"$in": bson.A{models.RoleMember, models.RoleLeader}}})
	}
	if q.Role != "" {
		conds = append(conds, bson.M{"role": q.Role})
	}
	if len(q.Roles) > 0 {
		roles := make(bson.A, len(q.Roles))
		for i, r := range q.Roles {
			roles[i] = r
		}
		conds = append(conds, bson.M{"role": bson.M{"$in": roles}})
	}
	if q.IsActive != nil {
		conds = append(conds, bson.M{"is_active": *q.IsActive})
	}
	if strings.TrimSpace(q.Search) != "" {
		conds = append(conds, searchClause(q.Search, "name", "email", "phone"))
	}
	return and(conds)
}
