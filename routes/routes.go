package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/phillip/church-cms-go/controllers"
	"github.com/phillip/church-cms-go/metrics"
	"github.com/phillip/church-cms-go/middleware"
	"github.com/phillip/church-cms-go/models"
)

// Options are the optional pieces of the HTTP surface.
type Options struct {
	Limiter   *middleware.RateLimiter
	DB        controllers.Pinger
	UploadDir string // served at /uploads when set
	Metrics   bool
}

// NewRouter builds the engine with the middleware chain and every route.
func NewRouter(env *controllers.Env, opts Options) *gin.Engine {
	r := gin.New()
	production := env.Cfg != nil && env.Cfg.IsProduction()
	var origins []string
	if env.Cfg != nil {
		origins = env.Cfg.CORSOrigins
	}

	r.Use(
		middleware.RequestIDs(env.Log),
		middleware.RequestLogger(env.Log),
		metrics.Middleware(),
		middleware.CORS(origins),
		middleware.SecurityHeaders(),
		middleware.ErrorHandler(env.Log, production),
		middleware.Recovery(env.Log, production),
	)
	SetupRoutes(r, env, opts)
	return r
}

func SetupRoutes(r *gin.Engine, env *controllers.Env, opts Options) {
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}
	if opts.Metrics {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(opts.Limiter.Middleware())
	api.GET("/health", controllers.Health(env, opts.DB))

	protect := middleware.Protect(env.Tokens, env.Users)
	optional := middleware.OptionalAuth(env.Tokens, env.Users)
	staff := middleware.Authorize(models.RoleAdmin, models.RolePastor)
	editors := middleware.Authorize(models.RoleAdmin, models.RolePastor, models.RoleLeader)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	// public
	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register(env))
		auth.POST("/login", controllers.Login(env))
		auth.GET("/me", protect, controllers.Me(env))
	}

	events := api.Group("/events")
	{
		events.GET("", optional, controllers.ListEvents(env))
		events.GET("/featured", controllers.FeaturedEvents(env))
		events.GET("/upcoming", controllers.UpcomingEvents(env))
		events.GET("/stats", protect, staff, controllers.EventStats(env))
		events.GET("/:id", optional, controllers.GetEvent(env))
		events.POST("", protect, editors, controllers.CreateEvent(env))
		events.PUT("/:id", protect, editors, controllers.UpdateEvent(env))
		events.PATCH("/:id", protect, editors, controllers.UpdateEvent(env))
		events.DELETE("/:id", protect, editors, controllers.DeleteEvent(env))
		events.POST("/:id/register", protect, controllers.RegisterForEvent(env))
	}

	notices := api.Group("/notices")
	{
		notices.GET("", optional, controllers.ListNotices(env))
		notices.GET("/active", controllers.ActiveNotices(env))
		notices.GET("/stats", protect, staff, controllers.NoticeStats(env))
		notices.GET("/:id", optional, controllers.GetNotice(env))
		notices.POST("", protect, editors, controllers.CreateNotice(env))
		notices.PUT("/:id", protect, editors, controllers.UpdateNotice(env))
		notices.PATCH("/:id", protect, editors, controllers.UpdateNotice(env))
		notices.DELETE("/:id", protect, editors, controllers.DeleteNotice(env))
		notices.POST("/:id/read", protect, controllers.MarkNoticeRead(env))
	}

	users := api.Group("/users")
	users.Use(protect)
	{
		users.GET("/profile", controllers.GetProfile(env))
		users.PUT("/profile", controllers.UpdateProfile(env))
		users.PATCH("/profile", controllers.UpdateProfile(env))
		users.GET("/members", staff, controllers.ListMembers(env))
		users.GET("/stats", staff, controllers.UserStats(env))
		users.GET("", staff, controllers.ListUsers(env))
		users.POST("", staff, controllers.CreateUser(env))
		users.GET("/:id", controllers.GetUser(env))
		users.PUT("/:id", controllers.UpdateUser(env))
		users.PATCH("/:id", controllers.UpdateUser(env))
		users.PUT("/:id/password", controllers.ChangePassword(env))
		users.DELETE("/:id", adminOnly, controllers.DeleteUser(env))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "API endpoint not found"})
	})
}
