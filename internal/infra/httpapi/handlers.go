package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"course_expiry_notifier/internal/app"
	"course_expiry_notifier/internal/domain/delivery"
	"course_expiry_notifier/internal/domain/notification"
	"course_expiry_notifier/internal/domain/provider"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// LogQuery is the read side of the delivery log.
type LogQuery interface {
	List(ctx context.Context, filter notification.ListFilter) (*app.Page, error)
	Get(ctx context.Context, id string) (*notification.Record, error)
	Stats(ctx context.Context) (*notification.Stats, error)
}

// SettingsManager manages the delivery channel configuration.
type SettingsManager interface {
	Get(ctx context.Context) (provider.Masked, error)
	Update(ctx context.Context, patch provider.Patch) (provider.Masked, error)
	SendTest(ctx context.Context, req app.TestSendRequest) (*notification.Record, error)
}

// RunTrigger starts an expiration run outside the schedule.
type RunTrigger interface {
	RunNow(ctx context.Context) (*app.RunSummary, error)
}

// Pinger checks the database during health checks.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	logs     LogQuery
	settings SettingsManager
	trigger  RunTrigger
	db       Pinger
	logger   *logrus.Entry
}

func NewHandler(logs LogQuery, settings SettingsManager, trigger RunTrigger, db Pinger, logger *logrus.Entry) *Handler {
	return &Handler{logs: logs, settings: settings, trigger: trigger, db: db, logger: logger}
}

func (h *Handler) listNotifications(c *gin.Context) {
	page, err := intQuery(c, "page", notification.DefaultPage)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	limit, err := intQuery(c, "limit", notification.DefaultLimit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.logs.List(c.Request.Context(), notification.ListFilter{
		Type:     notification.Type(c.Query("type")),
		Status:   notification.Status(c.Query("status")),
		CourseID: c.Query("courseId"),
		Search:   c.Query("search"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toListResponse(result))
}

func (h *Handler) getNotification(c *gin.Context) {
	rec, err := h.logs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponse(rec))
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.logs.Stats(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStatsResponse(stats))
}

// runNow keeps the run going when the client disconnects; only the run
// timeout ends it.
func (h *Handler) runNow(c *gin.Context) {
	summary, err := h.trigger.RunNow(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toRunResponse(summary))
}

func (h *Handler) getSettings(c *gin.Context) {
	masked, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, masked)
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	masked, err := h.settings.Update(c.Request.Context(), provider.Patch{
		APIKey:    req.APIKey,
		Endpoint:  req.Endpoint,
		FromEmail: req.FromEmail,
		FromName:  req.FromName,
		ReplyTo:   req.ReplyTo,
		Enabled:   req.Enabled,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, masked)
}

func (h *Handler) sendTest(c *gin.Context) {
	var req testSendRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
		return
	}
	rec, err := h.settings.SendTest(c.Request.Context(), app.TestSendRequest{
		To:      req.To,
		Name:    req.Name,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		var delErr *delivery.Error
		if errors.As(err, &delErr) && rec != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "notification": toNotificationResponse(rec)})
			return
		}
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toNotificationResponse(rec))
}

func (h *Handler) health(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func intQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &app.ValidationError{Err: errors.New(key + " must be a positive integer")}
	}
	return n, nil
}

// writeError maps the error taxonomy to HTTP status codes.
func writeError(c *gin.Context, log *logrus.Entry, err error) {
	var (
		cfgErr *app.ConfigurationError
		valErr *app.ValidationError
		delErr *delivery.Error
		status int
		expose = true
	)
	switch {
	case errors.Is(err, notification.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrRunInProgress):
		status = http.StatusConflict
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		status = http.StatusBadRequest
	case errors.As(err, &delErr):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		expose = false
	}

	if !expose {
		log.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
