package models

// Enumerator is implemented by every closed string set below; the binding
// layer validates it through the "enum" tag.
type Enumerator interface {
	Valid() bool
}

type EventCategory string

const (
	CategoryRevivalCrusade     EventCategory = "Revival Crusade"
	CategoryPrayerMeeting      EventCategory = "Prayer Meeting"
	CategoryBibleStudy         EventCategory = "Bible Study"
	CategoryYouthService       EventCategory = "Youth Service"
	CategoryChildrenMinistry   EventCategory = "Children Ministry"
	CategoryCommunityOutreach  EventCategory = "Community Outreach"
	CategoryLeadershipTraining EventCategory = "Leadership Training"
	CategoryWorshipService     EventCategory = "Worship Service"
	CategoryConference         EventCategory = "Conference"
	CategorySpecialEvent       EventCategory = "Special Event"
	CategoryOtherEvent         EventCategory = "Other"
)

var EventCategories = []EventCategory{
	CategoryRevivalCrusade, CategoryPrayerMeeting, CategoryBibleStudy, CategoryYouthService,
	CategoryChildrenMinistry, CategoryCommunityOutreach, CategoryLeadershipTraining,
	CategoryWorshipService, CategoryConference, CategorySpecialEvent, CategoryOtherEvent,
}

func (c EventCategory) Valid() bool { return contains(EventCategories, c) }

type EventStatus string

const (
	StatusUpcoming  EventStatus = "upcoming"
	StatusOngoing   EventStatus = "ongoing"
	StatusCompleted EventStatus = "completed"
	StatusCancelled EventStatus = "cancelled"
)

var EventStatuses = []EventStatus{StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled}

func (s EventStatus) Valid() bool { return contains(EventStatuses, s) }

type NoticeCategory string

const (
	NoticeGeneral     NoticeCategory = "General Announcement"
	NoticeService     NoticeCategory = "Service Update"
	NoticeMinistry    NoticeCategory = "Ministry News"
	NoticePrayer      NoticeCategory = "Prayer Request"
	NoticeCommunity   NoticeCategory = "Community News"
	NoticeEmergency   NoticeCategory = "Emergency Notice"
	NoticeReminder    NoticeCategory = "Event Reminder"
	NoticePolicy      NoticeCategory = "Policy Update"
	NoticeCelebration NoticeCategory = "Celebration"
	NoticeOther       NoticeCategory = "Other"
)

var NoticeCategories = []NoticeCategory{
	NoticeGeneral, NoticeService, NoticeMinistry, NoticePrayer, NoticeCommunity,
	NoticeEmergency, NoticeReminder, NoticePolicy, NoticeCelebration, NoticeOther,
}

func (c NoticeCategory) Valid() bool { return contains(NoticeCategories, c) }

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool { return contains(Priorities, p) }

// Rank orders priorities low=1 .. urgent=4; unknown values rank 0.
func (p Priority) Rank() int { return index(Priorities, p) + 1 }

type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceMembers  Audience = "members"
	AudienceLeaders  Audience = "leaders"
	AudienceYouth    Audience = "youth"
	AudienceChildren Audience = "children"
	AudienceAdults   Audience = "adults"
	AudienceSeniors  Audience = "seniors"
)

var Audiences = []Audience{
	AudienceAll, AudienceMembers, AudienceLeaders, AudienceYouth,
	AudienceChildren, AudienceAdults, AudienceSeniors,
}

func (a Audience) Valid() bool { return contains(Audiences, a) }

// Role is ordered: member < leader < pastor < admin.
type Role string

const (
	RoleMember Role = "member"
	RoleLeader Role = "leader"
	RolePastor Role = "pastor"
	RoleAdmin  Role = "admin"
)

var Roles = []Role{RoleMember, RoleLeader, RolePastor, RoleAdmin}

func (r Role) Valid() bool { return contains(Roles, r) }

func (r Role) Level() int { return index(Roles, r) + 1 }

// AtLeast reports whether r sits at or above min in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Level() >= min.Level()
}

// IsStaff is true for the roles that may act on any record.
func (r Role) IsStaff() bool { return r == RoleAdmin || r == RolePastor }

type Ministry string

var Ministries = []Ministry{
	"Worship Team", "Youth Ministry", "Children Ministry", "Prayer Team", "Outreach Team",
	"Media Team", "Ushering Team", "Counseling Team", "Administrative Team",
}

func (m Ministry) Valid() bool { return contains(Ministries, m) }

type Gender string

var Genders = []Gender{"Male", "Female", "Other"}

func (g Gender) Valid() bool { return contains(Genders, g) }

type MaritalStatus string

var MaritalStatuses = []MaritalStatus{"Single", "Married", "Divorced", "Widowed"}

func (m MaritalStatus) Valid() bool { return contains(MaritalStatuses, m) }

func contains[T comparable](set []T, v T) bool {
	return index(set, v) >= 0
}

func index[T comparable](set []T, v T) int {
	for i, candidate := range set {
		if candidate == v {
			return i
		}
	}
	return -1
}
