package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/api/handler"
	"pgvplaning/backend/internal/api/middleware"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/pkg/jwt"
	"pgvplaning/backend/pkg/redis"
)

const (
	maxBodyBytes = 1 << 20

	// public endpoints, per IP
	publicExportLimit = 20
	inviteLookupLimit = 30
	publicLimitWindow = time.Minute
	// authenticated endpoints, per user
	exportLimit     = 30
	joinLimit       = 10
	userLimitWindow = time.Minute
)

// Setup builds the gin engine. rdb may be nil (rate limiting disabled).
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	users middleware.UserSyncer,
	rdb *redis.Client,
	logger *zap.Logger,
) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidations(v); err != nil {
			return nil, err
		}
	}

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── health ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// public
		v1.POST("/export/ics", middleware.RateLimit(rdb, publicExportLimit, publicLimitWindow), h.Export.ExportVacationICS)
		v1.GET("/invites/:code", middleware.RateLimit(rdb, inviteLookupLimit, publicLimitWindow), h.Team.ValidateInvite)

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr), middleware.SyncUser(users, logger))
		{
			authorized.GET("/users/me", h.User.GetCurrentUser)

			cal := authorized.Group("/calendar")
			{
				cal.GET("", h.Calendar.GetCalendar)
				cal.PUT("", h.Calendar.ImportCalendar)
				cal.DELETE("", h.Calendar.ResetCalendar)
				cal.PUT("/day", h.Calendar.SetDay)
				cal.POST("/range", h.Calendar.PaintRange)
				cal.POST("/pattern", h.Calendar.ApplyPattern)
				cal.GET("/month", h.Calendar.GetMonth)
				cal.GET("/stats", h.Calendar.GetStats)
				cal.GET("/periods", h.Calendar.GetPeriods)
			}

			authorized.GET("/export/calendar.ics", middleware.RateLimit(rdb, exportLimit, userLimitWindow), h.Export.ExportCalendarICS)

			teams := authorized.Group("/teams")
			{
				teams.POST("", h.Team.CreateTeam)
				teams.GET("", h.Team.ListMyTeams)
				teams.POST("/join", middleware.RateLimit(rdb, joinLimit, userLimitWindow), h.Team.JoinTeam)
				teams.GET("/:id", h.Team.GetTeam)
				teams.PUT("/:id", h.Team.RenameTeam)
				teams.GET("/:id/members", h.Team.ListMembers)
				teams.DELETE("/:id/members/:userId", h.Team.RemoveMember)
				teams.POST("/:id/leave", h.Team.LeaveTeam)
				teams.POST("/:id/transfer", h.Team.TransferOwnership)
				teams.POST("/:id/invites", h.Team.GenerateInvite)
				teams.GET("/:id/invites", h.Team.ListInvites)
				teams.DELETE("/:id/invites/:inviteId", h.Team.RevokeInvite)
				teams.GET("/:id/stats", h.Team.GetTeamStats)
				teams.GET("/:id/stats.xlsx", middleware.RateLimit(rdb, exportLimit, userLimitWindow), h.Team.ExportTeamStats)
				teams.GET("/:id/export.ics", middleware.RateLimit(rdb, exportLimit, userLimitWindow), h.Team.ExportTeamICS)
			}
		}
	}

	return r, nil
}
