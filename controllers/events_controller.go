package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/metrics"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

const featuredLimit = 6

const duplicateEvent = "An event with this title already exists for this date"

type eventInput struct {
	Title                *string               `json:"title" form:"title" binding:"omitempty,min=3,max=200"`
	Description          *string               `json:"description" form:"description" binding:"omitempty,min=10,max=2000"`
	Category             *models.EventCategory `json:"category" form:"category" binding:"omitempty,enum"`
	Date                 *string               `json:"date" form:"date" binding:"omitempty,isodate"`
	Time                 *string               `json:"time" form:"time" binding:"omitempty,hhmm"`
	Location             *string               `json:"location" form:"location" binding:"omitempty,min=3,max=200"`
	Featured             *bool                 `json:"featured" form:"featured"`
	RegistrationRequired *bool                 `json:"registrationRequired" form:"registrationRequired"`
	MaxAttendees         *int                  `json:"maxAttendees" form:"maxAttendees" binding:"omitempty,gte=0"`
	Status               *models.EventStatus   `json:"status" form:"status" binding:"omitempty,enum"`
	Organizer            *string               `json:"organizer" form:"organizer" binding:"omitempty,mongodb"`
	Tags                 []string              `json:"tags" form:"tags"`
}

var eventRequired = requiredSet("title", "description", "category", "date", "time", "location")

func (in *eventInput) sanitize() {
	in.Title = utils.CleanPtr(in.Title)
	in.Description = utils.CleanPtr(in.Description)
	in.Location = utils.CleanPtr(in.Location)
}

// apply copies the present fields onto ev and returns their bson names.
func (in eventInput) apply(ev *models.Event) []string {
	var fields []string
	if in.Title != nil {
		ev.Title = *in.Title
		fields = append(fields, "title")
	}
	if in.Description != nil {
		ev.Description = *in.Description
		fields = append(fields, "description")
	}
	if in.Category != nil {
		ev.Category = *in.Category
		fields = append(fields, "category")
	}
	if in.Date != nil {
		// validated by the isodate tag
		ev.Date, _ = utils.ParseDate(*in.Date)
		fields = append(fields, "date")
	}
	if in.Time != nil {
		ev.Time = *in.Time
		fields = append(fields, "time")
	}
	if in.Location != nil {
		ev.Location = *in.Location
		fields = append(fields, "location")
	}
	if in.Featured != nil {
		ev.Featured = *in.Featured
		fields = append(fields, "featured")
	}
	if in.RegistrationRequired != nil {
		ev.RegistrationRequired = *in.RegistrationRequired
		fields = append(fields, "registration_required")
	}
	if in.MaxAttendees != nil {
		// zero, also what an empty form field binds to, means unlimited
		ev.MaxAttendees = nil
		if n := *in.MaxAttendees; n > 0 {
			ev.MaxAttendees = &n
		}
		fields = append(fields, "max_attendees")
	}
	if in.Status != nil {
		ev.Status = *in.Status
		fields = append(fields, "status")
	}
	if in.Organizer != nil {
		ev.Organizer, _ = primitive.ObjectIDFromHex(*in.Organizer)
		fields = append(fields, "organizer")
	}
	if in.Tags != nil {
		ev.Tags = utils.CleanTags(in.Tags)
		fields = append(fields, "tags")
	}
	return fields
}

// ---------------- LIST ----------------
func ListEvents(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := eventQuery(c)
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		events, total, err := env.Events.List(ctx, q, env.now())
		if err != nil {
			fail(c, apperr.Server("could not list events", err))
			return
		}
		respondPage(c, events, q.ListOptions, total)
	}
}

// ---------------- FEATURED ----------------
func FeaturedEvents(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		events, err := env.Events.Featured(ctx, env.now(), featuredLimit)
		if err != nil {
			fail(c, apperr.Server("could not load featured events", err))
			return
		}
		respond(c, http.StatusOK, "", events)
	}
}

// ---------------- UPCOMING ----------------
func UpcomingEvents(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		category, ok := queryEnum[models.EventCategory](c, "category")
		if !ok {
			respond(c, http.StatusOK, "", []models.Event{})
			return
		}
		opts := models.ListOptions{Limit: queryInt(c, "limit", models.DefaultPageSize)}
		opts.Normalize()

		ctx, cancel := timeout(c, readTimeout)
		defer cancel()
		events, err := env.Events.Upcoming(ctx, env.now(), opts.Limit, category)
		if err != nil {
			fail(c, apperr.Server("could not load upcoming events", err))
			return
		}
		respond(c, http.StatusOK, "", events)
	}
}

// ---------------- GET ----------------
func GetEvent(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "Event not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		ev, err := env.Events.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Event not found", "", "could not load event"))
			return
		}
		ev.Refresh(env.now())
		if notModified(c, ev.ID, ev.UpdatedAt, string(ev.Status)) {
			return
		}
		respond(c, http.StatusOK, "", ev)
	}
}

// ---------------- CREATE ----------------
func CreateEvent(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		if isMultipart(c) {
			limitBody(c, utils.EventImagePolicy)
		}

		var input eventInput
		if err := bind(c, &input, eventMessages, eventRequired); err != nil {
			fail(c, err)
			return
		}
		upload, err := receiveFile(c, utils.EventImagePolicy)
		if err != nil {
			fail(c, err)
			return
		}

		now := env.now()
		ev := &models.Event{
			Status:    models.StatusUpcoming,
			Organizer: actor.ID,
			CreatedBy: actor.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		input.apply(ev)
		ev.Refresh(now)

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		if upload != nil {
			stored, err := env.saveFile(ctx, utils.EventImagePolicy, upload)
			if err != nil {
				fail(c, err)
				return
			}
			ev.Image = stored.Path
		}

		if err := env.Events.Create(ctx, ev); err != nil {
			env.discardFiles(c, ev.Image)
			fail(c, storeError(err, "Event not found", duplicateEvent, "could not create event"))
			return
		}

		zerolog.Ctx(c.Request.Context()).Info().Str("event_id", ev.ID.Hex()).Str("status", string(ev.Status)).Msg("event created")
		respond(c, http.StatusCreated, "Event created successfully", ev)
	}
}

// ---------------- UPDATE ----------------
func UpdateEvent(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Event not found")
		if !ok {
			return
		}
		if isMultipart(c) {
			limitBody(c, utils.EventImagePolicy)
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		ev, err := env.Events.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Event not found", "", "could not load event"))
			return
		}
		if !ev.CanManage(actor) {
			fail(c, apperr.Forbidden("Not authorized to update this event"))
			return
		}

		var input eventInput
		if err := bind(c, &input, eventMessages, optional(eventRequired)); err != nil {
			fail(c, err)
			return
		}
		upload, err := receiveFile(c, utils.EventImagePolicy)
		if err != nil {
			fail(c, err)
			return
		}

		now := env.now()
		fields := input.apply(ev)
		previous := ""
		if upload != nil {
			stored, err := env.saveFile(ctx, utils.EventImagePolicy, upload)
			if err != nil {
				fail(c, err)
				return
			}
			previous, ev.Image = ev.Image, stored.Path
			fields = append(fields, "image")
		}

		ev.Refresh(now)
		ev.UpdatedBy = &actor.ID
		ev.UpdatedAt = now
		fields = append(fields, "status", "updated_by")

		if err := env.Events.Update(ctx, ev, fields...); err != nil {
			if upload != nil {
				env.discardFiles(c, ev.Image)
			}
			fail(c, storeError(err, "Event not found", duplicateEvent, "could not update event"))
			return
		}
		env.discardFiles(c, previous)

		respond(c, http.StatusOK, "Event updated successfully", ev)
	}
}

// ---------------- DELETE ----------------
func DeleteEvent(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Event not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		ev, err := env.Events.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "Event not found", "", "could not load event"))
			return
		}
		if !ev.CanManage(actor) {
			fail(c, apperr.Forbidden("Not authorized to delete this event"))
			return
		}

		env.discardFiles(c, ev.Image)
		if err := env.Events.Delete(ctx, id); err != nil {
			fail(c, storeError(err, "Event not found", "", "could not delete event"))
			return
		}
		respond(c, http.StatusOK, "Event deleted successfully", nil)
	}
}

// ---------------- REGISTER ----------------
func RegisterForEvent(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "Event not found")
		if !ok {
			return
		}
		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		ev, err := env.Events.Register(ctx, id, actor.ID, env.now())
		outcome, appErr := registrationOutcome(err)
		metrics.EventRegistrations.WithLabelValues(outcome).Inc()
		if appErr != nil {
			fail(c, appErr)
			return
		}

		env.sendRegistrationMail(c, actor, ev)
		respond(c, http.StatusOK, "Successfully registered for event", ev)
	}
}

func registrationOutcome(err error) (string, error) {
	switch {
	case err == nil:
		return "ok", nil
	case errors.Is(err, repository.ErrNotFound):
		return "not_found", apperr.NotFound("Event not found")
	case errors.Is(err, models.ErrRegistrationNotRequired):
		return "not_required", apperr.BadRequest("Registration is not required for this event")
	case errors.Is(err, models.ErrRegistrationClosed):
		return "closed", apperr.BadRequest("Registration is only open for upcoming events")
	case errors.Is(err, models.ErrAlreadyRegistered):
		return "already_registered", apperr.BadRequest("You are already registered for this event")
	case errors.Is(err, models.ErrEventFull):
		return "full", apperr.BadRequest("Event is at full capacity")
	default:
		return "error", apperr.Server("could not register for event", err)
	}
}

// sendRegistrationMail confirms a registration in the background when the
// attendee wants email and a mailer is configured.
func (env *Env) sendRegistrationMail(c *gin.Context, actor models.Identity, ev *models.Event) {
	if !env.Mailer.Enabled() {
		return
	}
	logger := zerolog.Ctx(c.Request.Context()).With().Str("event_id", ev.ID.Hex()).Logger()
	base := context.WithoutCancel(c.Request.Context())

	go func() {
		ctx, cancel := context.WithTimeout(base, 15*time.Second)
		defer cancel()

		user, err := env.Users.Get(ctx, actor.ID)
		if err != nil {
			logger.Warn().Err(err).Msg("could not load attendee for confirmation mail")
			return
		}
		if !user.Preferences.EmailNotifications {
			return
		}
		subject, body := utils.RegistrationEmail(user.Name, ev.Title, ev.Date, ev.Time, ev.Location)
		if err := env.Mailer.SendEmail(ctx, user.Email, user.Name, subject, body); err != nil {
			logger.Warn().Err(err).Msg("could not send registration confirmation")
			return
		}
		logger.Info().Str("user_id", user.ID.Hex()).Msg("registration confirmation sent")
	}()
}

// ---------------- STATS ----------------
func EventStats(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		stats, err := env.Events.Stats(ctx, env.now())
		if err != nil {
			fail(c, apperr.Server("could not load event stats", err))
			return
		}
		respond(c, http.StatusOK, "", stats)
	}
}
