package main

import (
	"net/http"
	"slices"
	"time"

	"github.com/BelikovArtem/voteroom/internal/env"
	"github.com/BelikovArtem/voteroom/internal/hub"
	"github.com/BelikovArtem/voteroom/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func newRouter(h *hub.Hub, cfg env.Config, wsCfg ws.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Origin",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(ctx *gin.Context) {
		stats, err := h.Stats(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, stats)
	})

	r.GET("/rooms", func(ctx *gin.Context) {
		rooms, err := h.Rooms(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, rooms)
	})

	r.GET("/ws", gin.WrapH(ws.NewHandler(h, wsCfg)))

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		log.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
