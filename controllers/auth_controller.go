package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/metrics"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

type registerInput struct {
	Name     *string `json:"name" form:"name" binding:"omitempty,min=2,max=100"`
	Email    *string `json:"email" form:"email" binding:"omitempty,email"`
	Password *string `json:"password" form:"password" binding:"omitempty,min=6"`
	Phone    *string `json:"phone" form:"phone" binding:"omitempty,max=30"`
}

func (in *registerInput) sanitize() {
	in.Name = utils.CleanPtr(in.Name)
	in.Phone = utils.CleanPtr(in.Phone)
}

type loginInput struct {
	Email    *string `json:"email" form:"email" binding:"omitempty,email"`
	Password *string `json:"password" form:"password"`
}

func authResponse(c *gin.Context, status int, token string, user *models.User) {
	c.JSON(status, gin.H{"success": true, "token": token, "user": user})
}

// ---------------- REGISTER ----------------
func Register(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input registerInput
		if err := bind(c, &input, userMessages, requiredSet("name", "email", "password")); err != nil {
			fail(c, err)
			return
		}

		ctx, cancel := timeout(c, writeTimeout)
		defer cancel()

		email := models.NormalizeEmail(*input.Email)
		if _, err := env.Users.FindByEmail(ctx, email); err == nil {
			fail(c, apperr.Conflict("User with this email already exists"))
			return
		} else if !errors.Is(err, repository.ErrNotFound) {
			fail(c, apperr.Server("could not check email", err))
			return
		}

		hash, err := utils.HashPassword(*input.Password)
		if err != nil {
			fail(c, apperr.Server("could not hash password", err))
			return
		}

		now := env.now()
		user := &models.User{
			Name:           *input.Name,
			Email:          email,
			PasswordHash:   hash,
			Role:           models.RoleMember,
			MembershipDate: now,
			Preferences:    models.DefaultPreferences(),
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if input.Phone != nil {
			user.Phone = *input.Phone
		}
		if err := env.Users.Create(ctx, user); err != nil {
			fail(c, storeError(err, "", "User with this email already exists", "could not create user"))
			return
		}

		token, err := env.Tokens.Generate(user.ID.Hex(), string(user.Role))
		if err != nil {
			fail(c, apperr.Server("could not issue token", err))
			return
		}
		zerolog.Ctx(c.Request.Context()).Info().Str("user_id", user.ID.Hex()).Msg("user registered")
		authResponse(c, http.StatusCreated, token, user)
	}
}

// ---------------- LOGIN ----------------
func Login(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input loginInput
		if err := bind(c, &input, userMessages, requiredSet("email", "password")); err != nil {
			fail(c, err)
			return
		}

		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		user, err := env.Users.FindByEmail(ctx, *input.Email)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			fail(c, apperr.Unauthenticated("Invalid credentials"))
			return
		case err != nil:
			fail(c, apperr.Server("could not load user", err))
			return
		}

		if !utils.CheckPassword(user.PasswordHash, *input.Password) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			fail(c, apperr.Unauthenticated("Invalid credentials"))
			return
		}
		if !user.IsActive {
			metrics.LoginsTotal.WithLabelValues("inactive").Inc()
			fail(c, apperr.Unauthenticated("Account is deactivated. Please contact administrator."))
			return
		}

		now := env.now()
		if err := env.Users.TouchLogin(ctx, user.ID, now); err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("could not stamp last login")
		} else {
			user.LastLogin = &now
		}

		token, err := env.Tokens.Generate(user.ID.Hex(), string(user.Role))
		if err != nil {
			fail(c, apperr.Server("could not issue token", err))
			return
		}
		metrics.LoginsTotal.WithLabelValues("ok").Inc()
		authResponse(c, http.StatusOK, token, user)
	}
}

// ---------------- ME ----------------
func Me(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.CurrentUser(c)
		if !ok {
			fail(c, apperr.Unauthenticated(""))
			return
		}
		ctx, cancel := timeout(c, readTimeout)
		defer cancel()

		user, err := env.Users.Get(ctx, identity.ID)
		if err != nil {
			fail(c, storeError(err, "User not found", "", "could not load user"))
			return
		}
		respond(c, http.StatusOK, "", user)
	}
}
