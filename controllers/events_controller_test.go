package controllers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

func eventPayload(title, date string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "An evening of worship, testimony and prayer.",
		"category":    "Revival Crusade",
		"date":        date,
		"time":        "18:30",
		"location":    "Main Sanctuary",
	}
}

func seedEvent(h *harness, owner primitive.ObjectID, mutate func(*models.Event)) *models.Event {
	ev := &models.Event{
		Title:       "Prayer Night",
		Description: "Weekly intercession for the city.",
		Category:    models.CategoryPrayerMeeting,
		Date:        h.now.AddDate(0, 0, 7),
		Time:        "19:00",
		Location:    "Chapel",
		Status:      models.StatusUpcoming,
		Organizer:   owner,
		CreatedBy:   owner,
		CreatedAt:   h.now.Add(-time.Hour),
		UpdatedAt:   h.now.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(ev)
	}
	return h.events.put(ev)
}

func TestCreateEventDerivesStatus(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RolePastor)

	tests := []struct {
		date string
		want models.EventStatus
	}{
		{"2026-03-20", models.StatusUpcoming},
		{"2026-03-10", models.StatusOngoing},
		{"2026-03-01", models.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			w := h.do(http.MethodPost, "/api/events", eventPayload("Revival "+tt.date, tt.date), auth)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			assert.Equal(t, "Event created successfully", decode(t, w).Message)

			ev := decodeData[models.Event](t, w)
			assert.Equal(t, tt.want, ev.Status)
			assert.False(t, ev.CreatedBy.IsZero())
			assert.Equal(t, ev.CreatedBy, ev.Organizer, "organizer defaults to the creator")
		})
	}
}

func TestCreateEventDuplicateTitleAndDate(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RoleAdmin)

	w := h.do(http.MethodPost, "/api/events", eventPayload("Easter Service", "2026-04-05"), auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodPost, "/api/events", eventPayload("Easter Service", "2026-04-05"), auth)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "An event with this title already exists for this date", decode(t, w).Message)
}

func TestCreateEventValidation(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RoleLeader)

	w := h.do(http.MethodPost, "/api/events", map[string]any{
		"title":    "Yo",
		"category": "Picnic",
		"time":     "25:00",
		"date":     "next tuesday",
	}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decode(t, w)
	assert.Equal(t, "Validation failed", body.Message)
	msgs := fieldMessages(body.Errors)
	assert.Equal(t, "Title must be between 3 and 200 characters", msgs["title"])
	assert.Equal(t, "Invalid event category", msgs["category"])
	assert.Equal(t, "Time must be in HH:MM format", msgs["time"])
	assert.Equal(t, "Invalid date format", msgs["date"])
	assert.Equal(t, "Description is required", msgs["description"])
	assert.Equal(t, "Location is required", msgs["location"])
}

func TestEventTextIsCleanedBeforeValidation(t *testing.T) {
	h := newHarness(t)
	pastor, auth := h.user(models.RolePastor)

	payload := eventPayload("<b></b>", "2026-04-01")
	payload["description"] = "<script>alert(1)</script>"
	payload["location"] = "  ab  "
	w := h.do(http.MethodPost, "/api/events", payload, auth)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	msgs := fieldMessages(decode(t, w).Errors)
	assert.Equal(t, "Title is required", msgs["title"])
	assert.Equal(t, "Description is required", msgs["description"])
	assert.Equal(t, "Location must be between 3 and 200 characters", msgs["location"])
	assert.Empty(t, h.events.events)

	payload = eventPayload("<i>Harvest</i> Festival", "2026-04-01")
	w = h.do(http.MethodPost, "/api/events", payload, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Harvest Festival", decodeData[models.Event](t, w).Title)

	ev := seedEvent(h, pastor.ID, nil)
	w = h.do(http.MethodPut, "/api/events/"+ev.ID.Hex(), map[string]any{"title": "<p></p>"}, auth)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "Title is required", fieldMessages(decode(t, w).Errors)["title"])
	assert.Equal(t, "Prayer Night", h.events.stored(ev.ID).Title)
}

func TestCreateEventRequiresEditorRole(t *testing.T) {
	h := newHarness(t)
	_, member := h.user(models.RoleMember)

	w := h.do(http.MethodPost, "/api/events", eventPayload("Members Picnic", "2026-05-01"), member)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, "/api/events", eventPayload("Members Picnic", "2026-05-01"), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateEventRejectsWrongFileType(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RolePastor)

	fields := map[string]string{}
	for k, v := range eventPayload("Youth Camp", "2026-06-01") {
		fields[k] = v.(string)
	}
	w := h.upload(http.MethodPost, "/api/events", fields, "image", "flyer.txt", []byte("not an image"), auth)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Only image files (JPEG, PNG, GIF, WebP) are allowed.", decode(t, w).Message)
	assert.Empty(t, h.files.saved)
}

func TestListEventsParsesFilters(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodGet, "/api/events?category=Bible%20Study&status=upcoming&page=2&limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 2, body.Pagination.CurrentPage)

	q := h.events.lastQuery
	assert.Equal(t, models.CategoryBibleStudy, q.Category)
	assert.Equal(t, models.StatusUpcoming, q.Status)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 5, q.Limit)
	assert.False(t, q.NoMatch)

	seedEvent(h, primitive.NewObjectID(), nil)
	w = h.do(http.MethodGet, "/api/events?category=Picnic", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.events.lastQuery.NoMatch, "out-of-set values match nothing")
	assert.Empty(t, decodeData[[]models.Event](t, w))
}

func TestGetEventHonoursETag(t *testing.T) {
	h := newHarness(t)
	ev := seedEvent(h, primitive.NewObjectID(), nil)

	w := h.do(http.MethodGet, "/api/events/"+ev.ID.Hex(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/events/"+ev.ID.Hex(), nil)
	req.Header.Set("If-None-Match", etag)
	w = h.serve(req, "")
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = h.do(http.MethodGet, "/api/events/not-an-id", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Event not found", decode(t, w).Message)
}

func TestGetEventReportsCurrentStatus(t *testing.T) {
	h := newHarness(t)
	ev := seedEvent(h, primitive.NewObjectID(), func(ev *models.Event) {
		ev.Date = h.now.AddDate(0, 0, -7)
	})

	w := h.do(http.MethodGet, "/api/events/"+ev.ID.Hex(), nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusCompleted, decodeData[models.Event](t, w).Status)
	etag := w.Header().Get("ETag")

	// a cached copy taken before the date passed is no longer current
	stale := utils.GenerateETag(ev.ID, ev.UpdatedAt)
	req := httptest.NewRequest(http.MethodGet, "/api/events/"+ev.ID.Hex(), nil)
	req.Header.Set("If-None-Match", stale)
	assert.Equal(t, http.StatusOK, h.serve(req, "").Code)

	req = httptest.NewRequest(http.MethodGet, "/api/events/"+ev.ID.Hex(), nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, h.serve(req, "").Code)
}

func TestRegisterForEvent(t *testing.T) {
	h := newHarness(t)
	first, firstAuth := h.user(models.RoleMember)
	_, secondAuth := h.user(models.RoleMember)
	capacity := 1
	ev := seedEvent(h, primitive.NewObjectID(), func(ev *models.Event) {
		ev.RegistrationRequired = true
		ev.MaxAttendees = &capacity
	})
	path := "/api/events/" + ev.ID.Hex() + "/register"

	w := h.do(http.MethodPost, path, nil, firstAuth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Successfully registered for event", decode(t, w).Message)

	w = h.do(http.MethodPost, path, nil, firstAuth)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "You are already registered for this event", decode(t, w).Message)

	w = h.do(http.MethodPost, path, nil, secondAuth)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Event is at full capacity", decode(t, w).Message)

	stored := h.events.stored(ev.ID)
	assert.Equal(t, 1, stored.CurrentAttendees)
	require.Len(t, stored.Attendees, 1)
	assert.Equal(t, first.ID, stored.Attendees[0].User)
}

func TestRegisterForClosedEvent(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RoleMember)

	open := seedEvent(h, primitive.NewObjectID(), nil)
	w := h.do(http.MethodPost, "/api/events/"+open.ID.Hex()+"/register", nil, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Registration is not required for this event", decode(t, w).Message)

	past := seedEvent(h, primitive.NewObjectID(), func(ev *models.Event) {
		ev.Title = "Last Year"
		ev.RegistrationRequired = true
		ev.Date = h.now.AddDate(0, 0, -3)
	})
	w = h.do(http.MethodPost, "/api/events/"+past.ID.Hex()+"/register", nil, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Registration is only open for upcoming events", decode(t, w).Message)
}

func TestUpdateEventFileLifecycle(t *testing.T) {
	h := newHarness(t)
	pastor, auth := h.user(models.RolePastor)
	const oldImage = "uploads/events/event-old.png"
	ev := seedEvent(h, pastor.ID, func(ev *models.Event) { ev.Image = oldImage })
	path := "/api/events/" + ev.ID.Hex()

	w := h.do(http.MethodPut, path, map[string]any{"location": "Fellowship Hall"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored := h.events.stored(ev.ID)
	assert.Equal(t, "Fellowship Hall", stored.Location)
	assert.Equal(t, oldImage, stored.Image, "no new file keeps the old one")
	assert.Empty(t, h.files.deletedPaths())

	w = h.upload(http.MethodPut, path, map[string]string{"title": "Prayer Night Live"}, "image", "poster.png", pngBytes, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stored = h.events.stored(ev.ID)
	assert.Equal(t, "Prayer Night Live", stored.Title)
	assert.NotEqual(t, oldImage, stored.Image)
	assert.True(t, strings.HasPrefix(stored.Image, "uploads/events/event-"))
	assert.Equal(t, []string{oldImage}, h.files.deletedPaths())
}

func TestUpdateEventOwnership(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.user(models.RoleLeader)
	organizer, organizerAuth := h.user(models.RoleLeader)
	_, strangerAuth := h.user(models.RoleLeader)
	ev := seedEvent(h, owner.ID, func(ev *models.Event) { ev.Organizer = organizer.ID })
	path := "/api/events/" + ev.ID.Hex()

	w := h.do(http.MethodPut, path, map[string]any{"featured": true}, strangerAuth)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not authorized to update this event", decode(t, w).Message)

	w = h.do(http.MethodPatch, path, map[string]any{"featured": true}, organizerAuth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, h.events.stored(ev.ID).Featured)
	assert.Equal(t, owner.ID, h.events.stored(ev.ID).CreatedBy, "creator never changes")
}

func TestDeleteEventRemovesImage(t *testing.T) {
	h := newHarness(t)
	_, auth := h.user(models.RoleAdmin)
	ev := seedEvent(h, primitive.NewObjectID(), func(ev *models.Event) { ev.Image = "uploads/events/event-1.png" })

	w := h.do(http.MethodDelete, "/api/events/"+ev.ID.Hex(), nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Event deleted successfully", decode(t, w).Message)
	assert.Equal(t, []string{"uploads/events/event-1.png"}, h.files.deletedPaths())

	w = h.do(http.MethodDelete, "/api/events/"+ev.ID.Hex(), nil, auth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventStatsAreStaffOnly(t *testing.T) {
	h := newHarness(t)
	_, leader := h.user(models.RoleLeader)
	_, pastor := h.user(models.RolePastor)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/events/stats", nil, leader).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/events/stats", nil, pastor).Code)
}
