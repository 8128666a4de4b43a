// Package handler is the HTTP and websocket shell around the complaint engine.
package handler

import (
	"context"
	"io"
	"net/http"

	"kiitcms/backend/internal/access"
	"kiitcms/backend/internal/api/middleware"
	"kiitcms/backend/internal/attachments"
	"kiitcms/backend/internal/complaint"
	"kiitcms/backend/internal/feedhub"
	"kiitcms/backend/internal/models"
	"kiitcms/backend/internal/query"

	"github.com/gin-gonic/gin"
)

// NotificationStore is the part of the store the notification endpoints read.
type NotificationStore interface {
	ListNotifications(ctx context.Context, rc access.RoleContext, limit int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, rc access.RoleContext, id uint) error
}

// Uploader stores an attachment and returns where it lives.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*attachments.Attachment, error)
}

type Handler struct {
	Complaints    *complaint.Service
	Engine        *query.Engine
	Stats         *query.StatsAggregator
	Notifications NotificationStore
	Uploads       Uploader
	Hub           *feedhub.Manager
	Auth          *Authenticator

	GeneralLimit *middleware.KeyedRateLimiter
	WriteLimit   *middleware.KeyedRateLimiter

	// AllowedOrigins enables CORS for browser clients served from another origin.
	AllowedOrigins []string
}

func NewHandler(complaints *complaint.Service, engine *query.Engine, stats *query.StatsAggregator,
	notifications NotificationStore, uploads Uploader, hub *feedhub.Manager, auth *Authenticator) *Handler {
	return &Handler{
		Complaints:    complaints,
		Engine:        engine,
		Stats:         stats,
		Notifications: notifications,
		Uploads:       uploads,
		Hub:           hub,
		Auth:          auth,
		GeneralLimit:  middleware.GeneralLimiter,
		WriteLimit:    middleware.WriteLimiter,
	}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r *gin.Engine) {
	r.Use(middleware.RequestLogger(), middleware.ErrorHandler())
	if len(h.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(h.AllowedOrigins))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authed := r.Group("/", h.Auth.Middleware(), middleware.RateLimit(h.GeneralLimit))
	authed.GET("/ws", h.ServeWebSocket)

	api := authed.Group("/api")
	writes := middleware.RateLimit(h.WriteLimit)

	complaints := api.Group("/complaints")
	complaints.POST("", writes, h.SubmitComplaint)
	complaints.GET("", h.ListComplaints)
	complaints.GET("/stats", h.ComplaintStats)
	complaints.POST("/bulk-status", h.BulkUpdateStatus)
	complaints.GET("/:id", h.GetComplaint)
	complaints.POST("/:id/replies", writes, h.ReplyToComplaint)
	complaints.PATCH("/:id/status", h.UpdateStatus)
	complaints.POST("/:id/escalate", h.EscalateComplaint)
	complaints.POST("/:id/reopen", h.ReopenComplaint)
	complaints.POST("/:id/rating", h.RateComplaint)
	complaints.PATCH("/:id/department", h.AssignDepartment)
	complaints.POST("/:id/notes", h.AddInternalNote)
	complaints.DELETE("/:id", h.DeleteComplaint)

	api.POST("/attachments", writes, h.UploadAttachment)
	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:id/read", h.MarkNotificationRead)
}
