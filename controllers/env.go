package controllers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/church-cms-go/config"
	"github.com/phillip/church-cms-go/models"
	"github.com/phillip/church-cms-go/utils"
)

type EventStore interface {
	List(ctx context.Context, q models.EventQuery, now time.Time) ([]models.Event, int64, error)
	Featured(ctx context.Context, now time.Time, limit int) ([]models.Event, error)
	Upcoming(ctx context.Context, now time.Time, limit int, category models.EventCategory) ([]models.Event, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Event, error)
	Create(ctx context.Context, ev *models.Event) error
	Update(ctx context.Context, ev *models.Event, fields ...string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Register(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (*models.Event, error)
	Stats(ctx context.Context, now time.Time) (*models.EventStats, error)
}

type NoticeStore interface {
	List(ctx context.Context, q models.NoticeQuery, now time.Time) ([]models.Notice, int64, error)
	Active(ctx context.Context, now time.Time, limit int, category models.NoticeCategory, priority models.Priority) ([]models.Notice, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.Notice, error)
	Create(ctx context.Context, n *models.Notice) error
	Update(ctx context.Context, n *models.Notice, fields ...string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	MarkRead(ctx context.Context, id, userID primitive.ObjectID, now time.Time) (bool, error)
	Stats(ctx context.Context, now time.Time) (*models.NoticeStats, error)
}

type UserStore interface {
	List(ctx context.Context, q models.UserQuery) ([]models.User, int64, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, except primitive.ObjectID) (bool, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User, fields ...string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Stats(ctx context.Context) (*models.UserStats, error)
}

// Env carries the dependencies every handler factory closes over.
type Env struct {
	Cfg     *config.Config
	Events  EventStore
	Notices NoticeStore
	Users   UserStore
	Files   utils.FileStore
	Tokens  *utils.TokenManager
	Mailer  *utils.Mailer
	Log     zerolog.Logger
	Now     func() time.Time
}

func (env *Env) now() time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}

func (env *Env) production() bool {
	return env.Cfg != nil && env.Cfg.IsProduction()
}

func (env *Env) environment() string {
	if env.Cfg == nil {
		return "development"
	}
	return env.Cfg.Env
}
