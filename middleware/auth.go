package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/apperr"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/repository"
	"github.com/phillip/church-cms-go/utils"
)

// Gin context keys set by Protect and OptionalAuth.
const (
	KeyUserID   = "user_id"
	KeyRole     = "role"
	KeyIdentity = "identity"
)

// UserLoader is the slice of the user store the auth gate needs.
type UserLoader interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Protect requires a valid bearer token for an existing, active user.
func Protect(tokens *utils.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, tokens, users)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth attaches the caller's identity when a usable token is sent and
// otherwise lets the request through anonymously.
func OptionalAuth(tokens *utils.TokenManager, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "" {
			if identity, err := authenticate(c, tokens, users); err == nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// Authorize admits only the listed roles. It must run after Protect.
func Authorize(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentUser(c)
		if !ok {
			_ = c.Error(apperr.Unauthenticated(""))
			c.Abort()
			return
		}
		for _, r := range roles {
			if identity.Role == r {
				c.Next()
				return
			}
		}
		_ = c.Error(apperr.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", identity.Role)))
		c.Abort()
	}
}

// CurrentUser returns the identity attached to this request, if any.
func CurrentUser(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(KeyIdentity)
	if !ok {
		return models.Identity{}, false
	}
	identity, ok := v.(models.Identity)
	return identity, ok
}

func setIdentity(c *gin.Context, identity models.Identity) {
	c.Set(KeyIdentity, identity)
	c.Set(KeyUserID, identity.ID.Hex())
	c.Set(KeyRole, string(identity.Role))
}

func authenticate(c *gin.Context, tokens *utils.TokenManager, users UserLoader) (models.Identity, error) {
	raw, err := utils.TokenFromHeader(c.GetHeader("Authorization"))
	if err != nil {
		return models.Identity{}, apperr.Unauthenticated("")
	}

	claims, err := tokens.Validate(raw)
	switch {
	case errors.Is(err, utils.ErrTokenExpired):
		return models.Identity{}, apperr.TokenExpired()
	case err != nil:
		return models.Identity{}, apperr.Unauthenticated("Not authorized, token failed")
	}

	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return models.Identity{}, apperr.Unauthenticated("Not authorized, token failed")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	user, err := users.Get(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Identity{}, apperr.Unauthenticated("Not authorized, user not found")
	case err != nil:
		return models.Identity{}, apperr.Server("could not load user", err)
	case !user.IsActive:
		return models.Identity{}, apperr.Unauthenticated("Account is deactivated")
	}
	return user.Identity(), nil
}
