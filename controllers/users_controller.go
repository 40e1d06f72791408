package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

type userInput struct {
	Name             *string                  `json:"name" form:"name" binding:"omitempty,min=2,max=100"`
	Email            *string                  `json:"email" form:"email" binding:"omitempty,email"`
	Password         *string                  `json:"password" form:"password" binding:"omitempty,min=6"`
	Role             *models.Role             `json:"role" form:"role" binding:"omitempty,enum"`
	Phone            *string                  `json:"phone" form:"phone" binding:"omitempty,max=30"`
	Address          *models.Address          `json:"address"`
	DateOfBirth      *string                  `json:"dateOfBirth" form:"dateOfBirth" binding:"omitempty,len=0|isodate"`
	MembershipDate   *string                  `json:"membershipDate" form:"membershipDate" binding:"omitempty,isodate"`
	Gender           *models.Gender           `json:"gender" form:"gender" binding:"omitempty,len=0|enum"`
	MaritalStatus    *models.MaritalStatus    `json:"maritalStatus" form:"maritalStatus" binding:"omitempty,len=0|enum"`
	Occupation       *string                  `json:"occupation" form:"occupation" binding:"omitempty,max=100"`
	Ministries       []models.Ministry        `json:"ministries" form:"ministries" binding:"omitempty,dive,enum"`
	EmergencyContact *models.EmergencyContact `json:"emergencyContact"`
	Preferences      *models.Preferences      `json:"preferences"`
	IsActive         *bool                    `json:"isActive" form:"isActive"`
}

var userRequired = requiredSet("name", "email", "password")

type passwordInput struct {
	CurrentPassword *string `json:"currentPassword" form:"currentPassword"`
	NewPassword     *string `json:"newPassword" form:"newPassword" binding:"omitempty,min=6"`
}

func (in *userInput) sanitize() {
	in.Name = utils.CleanPtr(in.Name)
	in.Phone = utils.CleanPtr(in.Phone)
	in.Occupation = utils.CleanPtr(in.Occupation)
	if a := in.Address; a != nil {
		a.Street = utils.CleanText(a.Street)
		a.City = utils.CleanText(a.City)
		a.State = utils.CleanText(a.State)
		a.ZipCode = utils.CleanText(a.ZipCode)
		a.Country = utils.CleanText(a.Country)
	}
	if ec := in.EmergencyContact; ec != nil {
		ec.Name = utils.CleanText(ec.Name)
		ec.Relationship = utils.CleanText(ec.Relationship)
	}
}

// privileged reports whether the input touches fields only staff may change.
func (in userInput) privileged() bool {
	return in.Role != nil || in.IsActive != nil
}

// apply copies profile fields onto u. Email and password are handled by the
// caller because both need a store round trip.
func (in userInput) apply(u *models.User) []string {
	var fields []string
	if in.Name != nil {
		u.Name = *in.Name
		fields = append(fields, "name")
	}
	if in.Role != nil {
		u.Role = *in.Role
		fields = append(fields, "role")
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
		fields = append(fields, "phone")
	}
	if in.Address != nil {
		addr := *in.Address
		u.Address = &addr
		fields = append(fields, "address")
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth, _ = utils.ParseOptionalDate(in.DateOfBirth)
		fields = append(fields, "date_of_birth")
	}
	if in.MembershipDate != nil {
		u.MembershipDate, _ = utils.ParseDate(*in.MembershipDate)
		fields = append(fields, "membership_date")
	}
	if in.Gender != nil {
		u.Gender = *in.Gender
		fields = append(fields, "gender")
	}
	if in.MaritalStatus != nil {
		u.MaritalStatus = *in.MaritalStatus
		fields = append(fields, "marital_status")
	}
	if in.Occupation != nil {
		u.Occupation = *in.Occupation
		fields = append(fields, "occupation")
	}
	if in.Ministries != nil {
		u.Ministries = in.Ministries
		fields = append(fields, "ministries")
	}
	if in.EmergencyContact != nil {
		ec := *in.EmergencyContact
		u.EmergencyContact = &ec
		fields = append(fields, "emergency_contact")
	}
	if in.Preferences != nil {
		u.Preferences = *in.Preferences
		fields = append(fields, "preferences")
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
		fields = append(fields, "is_active")
	}
	return fields
}

// ---------------- LIST ----------------
func ListUsers(env *Env) gin.HandlerFunc {
	return listUsers(env, false)
}

// ListMembers lists members and leaders ordered by name.
func ListMembers(env *Env) gin.HandlerFunc {
	return listUsers(env, true)
}

func listUsers(env *Env, membersOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := userQuery(c)
		q.MembersOnly = membersOnly
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		users, total, err := env.Users.List(ctx, q)
		if err != nil {
			fail(c, apperr.Server("could not list users", err))
			return
		}
		respondPage(c, users, q.ListOptions, total)
	}
}

// ---------------- STATS ----------------
func UserStats(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := timeout(c, listTimeout)
		defer cancel()

		stats, err := env.Users.Stats(ctx)
		if err != nil {
			fail(c, apperr.Server("could not load user stats", err))
			return
		}
		respond(c, http.StatusOK, "", stats)
	}
}

// ---------------- GET ----------------
func GetUser(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "User not found")
		if !ok {
			return
		}
		if !actor.CanAccessUser(id) {
			fail(c, apperr.Forbidden("Not authorized to access this user"))
			return
		}
		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		user, err := env.Users.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "User not found", "", "could not load user"))
			return
		}
		respond(c, http.StatusOK, "", user)
	}
}

// ---------------- PROFILE ----------------
func GetProfile(env *Env) gin.HandlerFunc {
	return Me(env)
}

// ---------------- CREATE ----------------
func CreateUser(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input userInput
		if err := bind(c, &input, userMessages, userRequired); err != nil {
			fail(c, err)
			return
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		email := models.NormalizeEmail(*input.Email)
		taken, err := env.Users.EmailTaken(ctx, email, primitive.NilObjectID)
		if err != nil {
			fail(c, apperr.Server("could not check email", err))
			return
		}
		if taken {
			fail(c, apperr.Conflict("User with this email already exists"))
			return
		}

		hash, err := utils.HashPassword(*input.Password)
		if err != nil {
			fail(c, apperr.Server("could not hash password", err))
			return
		}

		now := env.now()
		user := &models.User{
			Email:          email,
			PasswordHash:   hash,
			Role:           models.RoleMember,
			MembershipDate: now,
			Preferences:    models.DefaultPreferences(),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		input.apply(user)

		if err := env.Users.Create(ctx, user); err != nil {
			fail(c, storeError(err, "User not found", "User with this email already exists", "could not create user"))
			return
		}
		respond(c, http.StatusCreated, "User created successfully", user)
	}
}

// ---------------- UPDATE ----------------
func UpdateUser(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "User not found")
		if !ok {
			return
		}
		if !actor.CanAccessUser(id) {
			fail(c, apperr.Forbidden("Not authorized to update this user"))
			return
		}
		env.updateUser(c, actor, id, "User updated successfully")
	}
}

// UpdateProfile edits the caller's own record.
func UpdateProfile(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		env.updateUser(c, actor, actor.ID, "Profile updated successfully")
	}
}

func (env *Env) updateUser(c *gin.Context, actor models.Identity, id primitive.ObjectID, message string) {
	if isMultipart(c) {
		limitBody(c, utils.ProfileImagePolicy)
	}
	var input userInput
	if err := bind(c, &input, userMessages, optional(userRequired)); err != nil {
		fail(c, err)
		return
	}
	if input.Password != nil {
		fail(c, apperr.Validation(apperr.FieldError{
			Field:   "password",
			Message: "Use /api/users/:id/password to change the password",
		}))
		return
	}
	if input.privileged() && !actor.Role.IsStaff() {
		fail(c, apperr.Forbidden("Not authorized to change role or account status"))
		return
	}
	upload, err := receiveFile(c, utils.ProfileImagePolicy)
	if err != nil {
		fail(c, err)
		return
	}

	ctx, cancel := timeout(c, writeTimeout)
	defer cancel()

	user, err := env.Users.Get(ctx, id)
	if err != nil {
		fail(c, storeError(err, "User not found", "", "could not load user"))
		return
	}

	fields := input.apply(user)
	if input.Email != nil {
		email := models.NormalizeEmail(*input.Email)
		if email != user.Email {
			taken, err := env.Users.EmailTaken(ctx, email, user.ID)
			if err != nil {
				fail(c, apperr.Server("could not check email", err))
				return
			}
			if taken {
				fail(c, apperr.Conflict("Email is already taken by another user"))
				return
			}
			user.Email = email
			fields = append(fields, "email")
		}
	}

	previous := ""
	if upload != nil {
		stored, err := env.saveFile(ctx, utils.ProfileImagePolicy, upload)
		if err != nil {
			fail(c, err)
			return
		}
		previous, user.ProfileImage = user.ProfileImage, stored.Path
		fields = append(fields, "profile_image")
	}

	user.UpdatedAt = env.now()
	if err := env.Users.Update(ctx, user, fields...); err != nil {
		if upload != nil {
			env.discardFiles(c, user.ProfileImage)
		}
		fail(c, storeError(err, "User not found", "Email is already taken by another user", "could not update user"))
		return
	}
	env.discardFiles(c, previous)

	respond(c, http.StatusOK, message, user)
}

// ---------------- PASSWORD ----------------
func ChangePassword(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "User not found")
		if !ok {
			return
		}
		self := actor.ID == id
		if !self && !actor.Role.IsStaff() {
			fail(c, apperr.Forbidden("Not authorized to change this password"))
			return
		}

		var input passwordInput
		if err := bind(c, &input, userMessages, requiredSet("newPassword")); err != nil {
			fail(c, err)
			return
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		user, err := env.Users.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "User not found", "", "could not load user"))
			return
		}

		if self {
			if input.CurrentPassword == nil || *input.CurrentPassword == "" {
				fail(c, apperr.BadRequest("Current password is required"))
				return
			}
			if !utils.CheckPassword(user.PasswordHash, *input.CurrentPassword) {
				fail(c, apperr.BadRequest("Current password is incorrect"))
				return
			}
		}

		hash, err := utils.HashPassword(*input.NewPassword)
		if err != nil {
			fail(c, apperr.Server("could not hash password", err))
			return
		}
		user.PasswordHash = hash
		user.UpdatedAt = env.now()
		if err := env.Users.Update(ctx, user, "password"); err != nil {
			fail(c, storeError(err, "User not found", "", "could not change password"))
			return
		}

		zerolog.Ctx(c.Request.Context()).Info().
			Str("user_id", user.ID.Hex()).
			Bool("reset_by_staff", !self).
			Msg("password changed")
		respond(c, http.StatusOK, "Password changed successfully", nil)
	}
}

// ---------------- DELETE ----------------
func DeleteUser(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		id, ok := pathID(c, "User not found")
		if !ok {
			return
		}
		if id == actor.ID {
			fail(c, apperr.BadRequest("Cannot delete your own account"))
			return
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		user, err := env.Users.Get(ctx, id)
		if err != nil {
			fail(c, storeError(err, "User not found", "", "could not load user"))
			return
		}
		env.discardFiles(c, user.ProfileImage)
		if err := env.Users.Delete(ctx, id); err != nil {
			fail(c, storeError(err, "User not found", "", "could not delete user"))
			return
		}
		respond(c, http.StatusOK, "User deleted successfully", nil)
	}
}
