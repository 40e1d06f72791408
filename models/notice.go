package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Attachment struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"original_name" json:"originalName"`
	Path         string `bson:"path" json:"path"`
	Size         int64  `bson:"size" json:"size"`
	MimeType     string `bson:"mimetype" json:"mimetype"`
}

type ReadReceipt struct {
	User   primitive.ObjectID `bson:"user" json:"user"`
	ReadAt time.Time          `bson:"read_at" json:"readAt"`
}

type Notice struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title          string              `bson:"title" json:"title"`
	Content        string              `bson:"content" json:"content"`
	Summary        string              `bson:"summary,omitempty" json:"summary,omitempty"`
	Category       NoticeCategory      `bson:"category" json:"category"`
	Priority       Priority            `bson:"priority" json:"priority"`
	TargetAudience Audience            `bson:"target_audience" json:"targetAudience"`
	IsActive       bool                `bson:"is_active" json:"isActive"`
	IsPinned       bool                `bson:"is_pinned" json:"isPinned"`
	PublishDate    time.Time           `bson:"publish_date" json:"publishDate"`
	ExpiryDate     *time.Time          `bson:"expiry_date" json:"expiryDate"`
	Attachments    []Attachment        `bson:"attachments" json:"attachments"`
	Tags           []string            `bson:"tags" json:"tags"`
	ReadBy         []ReadReceipt       `bson:"read_by" json:"readBy"`
	CreatedBy      primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	UpdatedBy      *primitive.ObjectID `bson:"updated_by,omitempty" json:"updatedBy,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updatedAt"`

	// Enriched fields
	IsExpired     bool         `bson:"-" json:"isExpired"`
	ReadCount     int          `bson:"-" json:"readCount"`
	CreatedByUser *UserSummary `bson:"-" json:"createdByUser,omitempty"`
}

func (n *Notice) IsReadBy(userID primitive.ObjectID) bool {
	for _, r := range n.ReadBy {
		if r.User == userID {
			return true
		}
	}
	return false
}

// MarkRead records a receipt once per user. It reports whether one was added.
func (n *Notice) MarkRead(userID primitive.ObjectID, now time.Time) bool {
	if n.IsReadBy(userID) {
		return false
	}
	n.ReadBy = append(n.ReadBy, ReadReceipt{User: userID, ReadAt: now})
	return true
}

// VisibleTo applies the public visibility rule unless the viewer is staff.
func (n *Notice) VisibleTo(viewer *Identity, now time.Time) bool {
	if viewer != nil && viewer.Role.IsStaff() {
		return true
	}
	return NoticeVisibleAt(n.IsActive, n.PublishDate, n.ExpiryDate, now)
}

func (n *Notice) CanManage(actor Identity) bool {
	return actor.Role.IsStaff() || n.CreatedBy == actor.ID
}

// Refresh re-derives computed fields as of now.
func (n *Notice) Refresh(now time.Time) {
	n.IsExpired = NoticeExpiredAt(n.ExpiryDate, now)
	n.IsActive = NoticeActiveAt(n.IsActive, n.ExpiryDate, now)
	n.ReadCount = len(n.ReadBy)
}

func (n *Notice) EnsureCollections() {
	if n.Attachments == nil {
		n.Attachments = []Attachment{}
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	if n.ReadBy == nil {
		n.ReadBy = []ReadReceipt{}
	}
}

type NoticeStats struct {
	Total      int64        `json:"totalNotices"`
	Active     int64        `json:"activeNotices"`
	Expired    int64        `json:"expiredNotices"`
	Drafts     int64        `json:"draftNotices"`
	ByCategory []GroupCount `json:"noticesByCategory"`
	ByPriority []GroupCount `json:"noticesByPriority"`
}
