package models

import (
	"math"
	"time"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListOptions are the paging, sorting and search inputs shared by every resource.
type ListOptions struct {
	Page   int
	Limit  int
	Sort   string // "field" or "-field"
	Search string
	// NoMatch short-circuits to an empty page when a filter value is out of range.
	NoMatch bool
}

// Normalize clamps page and limit into range.
func (o *ListOptions) Normalize() {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
}

func (o ListOptions) Skip() int64 {
	return int64(o.Page-1) * int64(o.Limit)
}

type EventQuery struct {
	ListOptions
	Category  EventCategory
	Status    EventStatus
	Featured  *bool
	StartDate *time.Time
	EndDate   *time.Time
}

type NoticeQuery struct {
	ListOptions
	Category NoticeCategory
	Priority Priority
	IsActive *bool
	// PublicOnly restricts results to currently visible notices.
	PublicOnly bool
}

type UserQuery struct {
	ListOptions
	Role        Role
	Roles       []Role
	IsActive    *bool
	MembersOnly bool
}

type PageInfo struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
	NextPage    *int  `json:"nextPage"`
	PrevPage    *int  `json:"prevPage"`
}

func NewPageInfo(page, limit int, total int64) PageInfo {
	if limit < 1 {
		limit = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages < 1 {
		totalPages = 1
	}
	info := PageInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
	if info.HasNext {
		next := page + 1
		info.NextPage = &next
	}
	if info.HasPrev {
		prev := page - 1
		info.PrevPage = &prev
	}
	return info
}
