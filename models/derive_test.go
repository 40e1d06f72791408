package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var refNow = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

func TestDeriveEventStatus(t *testing.T) {
	tests := []struct {
		name    string
		date    time.Time
		current EventStatus
		want    EventStatus
	}{
		{"next week", refNow.AddDate(0, 0, 7), StatusUpcoming, StatusUpcoming},
		{"tomorrow midnight", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), StatusOngoing, StatusUpcoming},
		{"earlier today", refNow.Add(-3 * time.Hour), StatusUpcoming, StatusOngoing},
		{"later today", refNow.Add(5 * time.Hour), StatusUpcoming, StatusOngoing},
		{"yesterday", refNow.AddDate(0, 0, -1), StatusUpcoming, StatusCompleted},
		{"completed flips back when moved forward", refNow.AddDate(0, 1, 0), StatusCompleted, StatusUpcoming},
		{"cancelled sticks", refNow.AddDate(0, 0, 7), StatusCancelled, StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveEventStatus(tt.date, tt.current, refNow))
		})
	}
}

func TestNoticeVisibility(t *testing.T) {
	past := refNow.Add(-time.Hour)
	future := refNow.Add(time.Hour)

	assert.True(t, NoticeVisibleAt(true, past, nil, refNow))
	assert.True(t, NoticeVisibleAt(true, past, &future, refNow))
	assert.False(t, NoticeVisibleAt(true, past, &past, refNow), "expired")
	assert.False(t, NoticeVisibleAt(true, future, nil, refNow), "not yet published")
	assert.False(t, NoticeVisibleAt(false, past, nil, refNow), "inactive")

	assert.True(t, NoticeExpiredAt(&refNow, refNow))
	assert.False(t, NoticeActiveAt(true, &past, refNow))
}

func TestNoticeVisibleToStaff(t *testing.T) {
	n := &Notice{IsActive: false, PublishDate: refNow.Add(-time.Hour)}
	pastor := &Identity{ID: primitive.NewObjectID(), Role: RolePastor}
	member := &Identity{ID: primitive.NewObjectID(), Role: RoleMember}

	assert.False(t, n.VisibleTo(nil, refNow))
	assert.False(t, n.VisibleTo(member, refNow))
	assert.True(t, n.VisibleTo(pastor, refNow))
}

func TestNoticeRefreshAndReceipts(t *testing.T) {
	past := refNow.Add(-time.Minute)
	user := primitive.NewObjectID()
	n := &Notice{IsActive: true, ExpiryDate: &past}

	assert.True(t, n.MarkRead(user, refNow))
	assert.False(t, n.MarkRead(user, refNow), "second receipt is ignored")

	n.Refresh(refNow)
	assert.False(t, n.IsActive)
	assert.True(t, n.IsExpired)
	assert.Equal(t, 1, n.ReadCount)
}

func TestEventRegistration(t *testing.T) {
	max := 2
	e := &Event{
		RegistrationRequired: true,
		Date:                 refNow.AddDate(0, 0, 3),
		Status:               StatusUpcoming,
		MaxAttendees:         &max,
	}
	alice, bob, carol := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()

	assert.NoError(t, e.Register(alice, refNow))
	assert.ErrorIs(t, e.Register(alice, refNow), ErrAlreadyRegistered)
	assert.NoError(t, e.Register(bob, refNow))
	assert.ErrorIs(t, e.Register(carol, refNow), ErrEventFull)
	assert.Equal(t, len(e.Attendees), e.CurrentAttendees)
	assert.Equal(t, 2, e.CurrentAttendees)
}

func TestEventRegistrationPreconditions(t *testing.T) {
	user := primitive.NewObjectID()

	open := &Event{Date: refNow.AddDate(0, 0, 3)}
	assert.ErrorIs(t, open.CheckRegistration(user, refNow), ErrRegistrationNotRequired)

	past := &Event{RegistrationRequired: true, Date: refNow.AddDate(0, 0, -3), Status: StatusUpcoming}
	assert.ErrorIs(t, past.CheckRegistration(user, refNow), ErrRegistrationClosed)

	cancelled := &Event{RegistrationRequired: true, Date: refNow.AddDate(0, 0, 3), Status: StatusCancelled}
	assert.ErrorIs(t, cancelled.CheckRegistration(user, refNow), ErrRegistrationClosed)

	unlimited := &Event{RegistrationRequired: true, Date: refNow.AddDate(0, 0, 3), CurrentAttendees: 500}
	assert.NoError(t, unlimited.CheckRegistration(user, refNow))
}

func TestEventCanManage(t *testing.T) {
	creator, organizer, other := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	e := &Event{CreatedBy: creator, Organizer: organizer}

	assert.True(t, e.CanManage(Identity{ID: creator, Role: RoleLeader}))
	assert.True(t, e.CanManage(Identity{ID: organizer, Role: RoleMember}))
	assert.True(t, e.CanManage(Identity{ID: other, Role: RolePastor}))
	assert.False(t, e.CanManage(Identity{ID: other, Role: RoleLeader}))
}
