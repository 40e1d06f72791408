package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

type noticeInput struct {
	Title          *string                `json:"title" form:"title" binding:"omitempty,min=3,max=200"`
	Content        *string                `json:"content" form:"content" binding:"omitempty,min=10,max=5000"`
	Summary        *string                `json:"summary" form:"summary" binding:"omitempty,max=500"`
	Category       *models.NoticeCategory `json:"category" form:"category" binding:"omitempty,enum"`
	Priority       *models.Priority       `json:"priority" form:"priority" binding:"omitempty,enum"`
	TargetAudience *models.Audience       `json:"targetAudience" form:"targetAudience" binding:"omitempty,enum"`
	IsActive       *bool                  `json:"isActive" form:"isActive"`
	IsPinned       *bool                  `json:"isPinned" form:"isPinned"`
	// Empty strings are accepted so forms can clear the date.
	PublishDate *string  `json:"publishDate" form:"publishDate" binding:"omitempty,len=0|isodate"`
	ExpiryDate  *string  `json:"expiryDate" form:"expiryDate" binding:"omitempty,len=0|isodate"`
	Tags        []string `json:"tags" form:"tags"`
}

var noticeRequired = requiredSet("title", "content", "category")

func (in *noticeInput) sanitize() {
	in.Title = utils.CleanPtr(in.Title)
	in.Content = utils.CleanPtr(in.Content)
	in.Summary = utils.CleanPtr(in.Summary)
}

func (in noticeInput) apply(n *models.Notice, now time.Time) []string {
	var fields []string
	if in.Title != nil {
		n.Title = *in.Title
		fields = append(fields, "title")
	}
	if in.Content != nil {
		n.Content = *in.Content
		fields = append(fields, "content")
	}
	if in.Summary != nil {
		n.Summary = *in.Summary
		fields = append(fields, "summary")
	}
	if in.Category != nil {
		n.Category = *in.Category
		fields = append(fields, "category")
	}
	if in.Priority != nil {
		n.Priority = *in.Priority
		fields = append(fields, "priority")
	}
	if in.TargetAudience != nil {
		n.TargetAudience = *in.TargetAudience
		fields = append(fields, "target_audience")
	}
	if in.IsActive != nil {
		n.IsActive = *in.IsActive
		fields = append(fields, "is_active")
	}
	if in.IsPinned != nil {
		n.IsPinned = *in.IsPinned
		fields = append(fields, "is_pinned")
	}
	if in.PublishDate != nil {
		if t, err := utils.ParseOptionalDate(in.PublishDate); err == nil && t != nil {
			n.PublishDate = *t
		} else {
			n.PublishDate = now
		}
		fields = append(fields, "publish_date")
	}
	if in.ExpiryDate != nil {
		n.ExpiryDate, _ = utils.ParseOptionalDate(in.ExpiryDate)
		fields = append(fields, "expiry_date")
	}
	if in.Tags != nil {
		n.Tags = utils.CleanTags(in.Tags)
		fields = append(fields, "tags")
	}
	return fields
}

func viewer(c *gin.Context) *models.Identity {
	if identity, ok := middleware.CurrentUser(c); ok {
		return &identity
	}
	return nil
}

func attachmentFrom(stored utils.StoredFile) models.Attachment {
	return models.Attachment{
		Filename:     stored.Filename,
		OriginalName: stored.OriginalName,
		Path:         stored.Path,
		Size:         stored.Size,
		MimeType:     stored.MimeType,
	}
}

func attachmentPaths(attachments []models.Attachment) []string {
	paths := make([]string, 0, len(attachments))
	for _, a := range attachments {
		paths = append(paths, a.Path)
	}
	return paths
}

// hiddenNotice explains why a non-staff viewer cannot see n, or returns nil.
func hiddenNotice(n *models.Notice, who *models.Identity, now time.Time) error {
	if who != nil && who.Role.IsStaff() {
		return nil
	}
	if !n.IsActive || n.PublishDate.After(now) {
		return apperr.NotFound("Notice not found")
	}
	if models.NoticeExpiredAt(n.ExpiryDate, now) {
		return apperr.NotFound("Notice has expired")
	}
	return nil
}

// ---------------- LIST ----------------
func ListNotices(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := noticeQuery(c, viewer(c))
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		notices, total, err := env.Notices.List(ctx, q, env.now())
		if err != nil {
			fail(c, apperr.Server("could not list notices", err))
			return
		}
		respondPage(c, notices, q.ListOptions, total)
	}
}

// ---------------- ACTIVE ----------------
func ActiveNotices(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, okCategory := queryEnum[models.NoticeCategory](c, "category")
		priority, okPriority := queryEnum[models.Priority](c, "priority")
		if !okCategory || !okPriority {
			respond(c, http.StatusOK, "", []models.Notice{})
			return
		}
		opts := models.ListOptions{Limit: queryInt(c, "limit", models.DefaultPageSize)}
		opts.Normalize()

		ctx, cancel := timeout(c, readTimeout)
		defer cancel()
		notices, err := env.Notices.Active(ctx, env.now(), opts.Limit, category, priority)
		if err != nil {
			fail(c, apperr.Server("could not load active notices", err))
			return
		}
		respond(c, http.StatusOK, "", notices)
	}
}

// ---------------- GET ----------------
func GetNotice(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "Notice not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		now := env.now()
		who := viewer(c)
		n, err := env.Notices.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not load notice"))
			return
		}
		if err := hiddenNotice(n, who, now); err != nil {
			fail(c, err)
			return
		}

		if who != nil && !n.IsReadBy(who.ID) {
			added, err := env.Notices.MarkRead(ctx, n.ID, who.ID, now)
			switch {
			case err != nil:
				zerolog.Ctx(c.Request.Context()).Warn().Err(err).Str("notice_id", n.ID.Hex()).Msg("could not record read receipt")
			case added:
				n.MarkRead(who.ID, now)
			}
		}
		n.Refresh(now)

		if notModified(c, n.ID, n.UpdatedAt) {
			return
		}
		respond(c, http.StatusOK, "", n)
	}
}

// ---------------- CREATE ----------------
func CreateNotice(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		if isMultipart(c) {
			limitBody(c, utils.NoticeAttachmentPolicy)
		}

		var input noticeInput
		if err := bind(c, &input, noticeMessages, noticeRequired); err != nil {
			fail(c, err)
			return
		}
		upload, err := receiveFile(c, utils.NoticeAttachmentPolicy)
		if err != nil {
			fail(c, err)
			return
		}

		now := env.now()
		n := &models.Notice{
			Priority:       models.PriorityMedium,
			TargetAudience: models.AudienceAll,
			IsActive:       true,
			PublishDate:    now,
			CreatedBy:      actor.ID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		input.apply(n, now)
		n.Refresh(now)

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		if upload != nil {
			stored, err := env.saveFile(ctx, utils.NoticeAttachmentPolicy, upload)
			if err != nil {
				fail(c, err)
				return
			}
			n.Attachments = []models.Attachment{attachmentFrom(stored)}
		}

		if err := env.Notices.Create(ctx, n); err != nil {
			env.discardFiles(c, attachmentPaths(n.Attachments)...)
			fail(c, storeError(err, "Notice not found", "", "could not create notice"))
			return
		}

		zerolog.Ctx(c.Request.Context()).Info().Str("notice_id", n.ID.Hex()).Bool("active", n.IsActive).Msg("notice created")
		respond(c, http.StatusCreated, "Notice created successfully", n)
	}
}

// ---------------- UPDATE ----------------
func UpdateNotice(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Notice not found")
		if !ok {
			return
		}
		if isMultipart(c) {
			limitBody(c, utils.NoticeAttachmentPolicy)
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		n, err := env.Notices.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not load notice"))
			return
		}
		if !n.CanManage(actor) {
			fail(c, apperr.Forbidden("Not authorized to update this notice"))
			return
		}

		var input noticeInput
		if err := bind(c, &input, noticeMessages, optional(noticeRequired)); err != nil {
			fail(c, err)
			return
		}
		upload, err := receiveFile(c, utils.NoticeAttachmentPolicy)
		if err != nil {
			fail(c, err)
			return
		}

		now := env.now()
		fields := input.apply(n, now)
		var previous []string
		if upload != nil {
			stored, err := env.saveFile(ctx, utils.NoticeAttachmentPolicy, upload)
			if err != nil {
				fail(c, err)
				return
			}
			previous = attachmentPaths(n.Attachments)
			n.Attachments = []models.Attachment{attachmentFrom(stored)}
			fields = append(fields, "attachments")
		}

		n.Refresh(now)
		n.UpdatedBy = &actor.ID
		n.UpdatedAt = now
		fields = append(fields, "is_active", "updated_by")

		if err := env.Notices.Update(ctx, n, fields...); err != nil {
			if upload != nil {
				env.discardFiles(c, attachmentPaths(n.Attachments)...)
			}
			fail(c, storeError(err, "Notice not found", "", "could not update notice"))
			return
		}
		env.discardFiles(c, previous...)

		respond(c, http.StatusOK, "Notice updated successfully", n)
	}
}

// ---------------- DELETE ----------------
func DeleteNotice(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Notice not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		n, err := env.Notices.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not load notice"))
			return
		}
		if !n.CanManage(actor) {
			fail(c, apperr.Forbidden("Not authorized to delete this notice"))
			return
		}

		env.discardFiles(c, attachmentPaths(n.Attachments)...)
		if err := env.Notices.Delete(ctx, id); err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not delete notice"))
			return
		}
		respond(c, http.StatusOK, "Notice deleted successfully", nil)
	}
}

// ---------------- READ ----------------
func MarkNoticeRead(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Notice not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		now := env.now()
		n, err := env.Notices.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not load notice"))
			return
		}
		if err := hiddenNotice(n, &actor, now); err != nil {
			fail(c, err)
			return
		}

		added, err := env.Notices.MarkRead(ctx, id, actor.ID, now)
		if err != nil {
			fail(c, storeError(err, "Notice not found", "", "could not mark notice read"))
			return
		}
		if !added {
			fail(c, apperr.BadRequest("Notice already marked as read"))
			return
		}
		respond(c, http.StatusOK, "Notice marked as read", nil)
	}
}

// ---------------- STATS ----------------
func NoticeStats(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		stats, err := env.Notices.Stats(ctx, env.now())
		if err != nil {
			fail(c, apperr.Server("could not load notice stats", err))
			return
		}
		respond(c, http.StatusOK, "", stats)
	}
}
