package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Attendee struct {
	User         primitive.ObjectID `bson:"user" json:"user"`
	RegisteredAt time.Time          `bson:"registered_at" json:"registeredAt"`
}

type Event struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title                string              `bson:"title" json:"title"`
	Description          string              `bson:"description" json:"description"`
	Category             EventCategory       `bson:"category" json:"category"`
	Date                 time.Time           `bson:"date" json:"date"`
	Time                 string              `bson:"time" json:"time"` // HH:MM
	Location             string              `bson:"location" json:"location"`
	Image                string              `bson:"image,omitempty" json:"image,omitempty"`
	Featured             bool                `bson:"featured" json:"featured"`
	RegistrationRequired bool                `bson:"registration_required" json:"registrationRequired"`
	MaxAttendees         *int                `bson:"max_attendees" json:"maxAttendees"` // nil = unlimited
	CurrentAttendees     int                 `bson:"current_attendees" json:"currentAttendees"`
	Attendees            []Attendee          `bson:"attendees" json:"attendees"`
	Status               EventStatus         `bson:"status" json:"status"`
	Organizer            primitive.ObjectID  `bson:"organizer" json:"organizer"`
	Tags                 []string            `bson:"tags" json:"tags"`
	CreatedBy            primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	UpdatedBy            *primitive.ObjectID `bson:"updated_by,omitempty" json:"updatedBy,omitempty"`
	CreatedAt            time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time           `bson:"updated_at" json:"updatedAt"`

	// Enriched fields
	CreatedByUser *UserSummary `bson:"-" json:"createdByUser,omitempty"`
	OrganizerUser *UserSummary `bson:"-" json:"organizerUser,omitempty"`
}

var (
	ErrRegistrationNotRequired = errors.New("registration is not required for this event")
	ErrRegistrationClosed      = errors.New("event is not open for registration")
	ErrAlreadyRegistered       = errors.New("already registered for this event")
	ErrEventFull               = errors.New("event is at full capacity")
)

func (e *Event) IsAttendee(userID primitive.ObjectID) bool {
	for _, a := range e.Attendees {
		if a.User == userID {
			return true
		}
	}
	return false
}

func (e *Event) HasCapacity() bool {
	return e.MaxAttendees == nil || e.CurrentAttendees < *e.MaxAttendees
}

// CheckRegistration returns the first registration precondition userID fails
// at time now, or nil.
func (e *Event) CheckRegistration(userID primitive.ObjectID, now time.Time) error {
	if !e.RegistrationRequired {
		return ErrRegistrationNotRequired
	}
	if DeriveEventStatus(e.Date, e.Status, now) != StatusUpcoming {
		return ErrRegistrationClosed
	}
	if e.IsAttendee(userID) {
		return ErrAlreadyRegistered
	}
	if !e.HasCapacity() {
		return ErrEventFull
	}
	return nil
}

// Register appends an attendee and keeps the counter equal to the list length.
func (e *Event) Register(userID primitive.ObjectID, now time.Time) error {
	if err := e.CheckRegistration(userID, now); err != nil {
		return err
	}
	e.Attendees = append(e.Attendees, Attendee{User: userID, RegisteredAt: now})
	e.CurrentAttendees = len(e.Attendees)
	return nil
}

// CanManage reports whether the actor may update or delete the event.
func (e *Event) CanManage(actor Identity) bool {
	return actor.Role.IsStaff() || e.CreatedBy == actor.ID || e.Organizer == actor.ID
}

// Refresh re-derives computed fields as of now.
func (e *Event) Refresh(now time.Time) {
	e.Status = DeriveEventStatus(e.Date, e.Status, now)
}

// EnsureCollections replaces nil slices so array operators work on the stored document.
func (e *Event) EnsureCollections() {
	if e.Attendees == nil {
		e.Attendees = []Attendee{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
}

type EventStats struct {
	Total      int64        `json:"totalEvents"`
	Upcoming   int64        `json:"upcomingEvents"`
	Featured   int64        `json:"featuredEvents"`
	Completed  int64        `json:"completedEvents"`
	ByCategory []GroupCount `json:"eventsByCategory"`
	ByMonth    []GroupCount `json:"monthlyEvents"`
}

// GroupCount is one row of a $group aggregation.
type GroupCount struct {
	Key   any   `bson:"_id" json:"_id"`
	Count int64 `bson:"count" json:"count"`
}
