package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty" form:"street"`
	City    string `bson:"city,omitempty" json:"city,omitempty" form:"city"`
	State   string `bson:"state,omitempty" json:"state,omitempty" form:"state"`
	ZipCode string `bson:"zip_code,omitempty" json:"zipCode,omitempty" form:"zipCode"`
	Country string `bson:"country,omitempty" json:"country,omitempty" form:"country"`
}

type EmergencyContact struct {
	Name         string `bson:"name,omitempty" json:"name,omitempty"`
	Relationship string `bson:"relationship,omitempty" json:"relationship,omitempty"`
	Phone        string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
}

type Preferences struct {
	EmailNotifications bool `bson:"email_notifications" json:"emailNotifications"`
	SMSNotifications   bool `bson:"sms_notifications" json:"smsNotifications"`
	EventReminders     bool `bson:"event_reminders" json:"eventReminders"`
}

func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, EventReminders: true}
}

type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name             string             `bson:"name" json:"name"`
	Email            string             `bson:"email" json:"email"`
	PasswordHash     string             `bson:"password" json:"-"`
	Role             Role               `bson:"role" json:"role"`
	Phone            string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address          *Address           `bson:"address,omitempty" json:"address,omitempty"`
	DateOfBirth      *time.Time         `bson:"date_of_birth,omitempty" json:"dateOfBirth,omitempty"`
	MembershipDate   time.Time          `bson:"membership_date" json:"membershipDate"`
	Gender           Gender             `bson:"gender,omitempty" json:"gender,omitempty"`
	MaritalStatus    MaritalStatus      `bson:"marital_status,omitempty" json:"maritalStatus,omitempty"`
	Occupation       string             `bson:"occupation,omitempty" json:"occupation,omitempty"`
	Ministries       []Ministry         `bson:"ministries" json:"ministries"`
	EmergencyContact *EmergencyContact  `bson:"emergency_contact,omitempty" json:"emergencyContact,omitempty"`
	Preferences      Preferences        `bson:"preferences" json:"preferences"`
	ProfileImage     string             `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	IsActive         bool               `bson:"is_active" json:"isActive"`
	LastLogin        *time.Time         `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updatedAt"`
}

// UserSummary is the populated form of a user reference.
type UserSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Role  Role               `bson:"role,omitempty" json:"role,omitempty"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}
}

// Identity is the authenticated actor attached to a request.
type Identity struct {
	ID    primitive.ObjectID
	Role  Role
	Name  string
	Email string
}

// CanAccessUser is true for the user themself and for staff.
func (i Identity) CanAccessUser(userID primitive.ObjectID) bool {
	return i.ID == userID || i.Role.IsStaff()
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type UserStats struct {
	Total      int64        `json:"totalUsers"`
	Active     int64        `json:"activeUsers"`
	Inactive   int64        `json:"inactiveUsers"`
	ByRole     []GroupCount `json:"usersByRole"`
	ByMinistry []GroupCount `json:"usersByMinistry"`
}
