package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Version is stamped at build time with -ldflags "-X ...controllers.Version=".
var Version = "1.0.0"

// Pinger checks the database connection for the health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and, when a pinger is given, database reachability.
func Health(env *Env, db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"success":     true,
			"message":     "Church CMS API is running",
			"timestamp":   env.now().UTC().Format(time.RFC3339),
			"environment": env.environment(),
			"version":     Version,
		}
		status := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				body["success"] = false
				body["message"] = "Database unavailable"
				body["database"] = "down"
				status = http.StatusServiceUnavailable
			} else {
				body["database"] = "up"
			}
		}
		c.JSON(status, body)
	}
}
