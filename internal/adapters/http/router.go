package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/adapters/ws"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an id, reusing the caller's.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// SetupRouter wires the status API and the WebSocket transport. ctl may be
// nil, in which case /api/ws is not mounted.
func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "online": o.Directory.Count()})
	})

	api := r.Group("/api")

	api.GET("/online", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"users": o.Directory.List()})
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.Rooms()})
	})

	api.GET("/rooms/:name/members", func(c *gin.Context) {
		name, err := domain.ParseRoomName(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !o.Rooms.Exists(name) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room does not exist"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": name, "members": o.Rooms.Members(name)})
	})

	if ctl != nil {
		api.GET("/ws", func(c *gin.Context) {
			log.Info().Str("module", "adapters.http").Str("request_id", c.GetString("request_id")).Msg("ws endpoint hit")
			ws.Serve(ctx, ctl, c.Writer, c.Request)
		})
	}

	log.Info().Str("module", "adapters.http").Bool("ws", ctl != nil).Msg("router setup")
	return r
}
