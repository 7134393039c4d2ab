package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crowdfund-api/internal/bootstrap"
	"crowdfund-api/internal/transport/http/response"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type healthReport struct {
	App           string                      `json:"app"`
	Env           string                      `json:"env"`
	UptimeSec     int64                       `json:"uptime_sec"`
	DonationQueue string                      `json:"donation_queue"`
	Dependencies  map[string]dependencyStatus `json:"dependencies"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check answers 503 when any dependency is down.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{
		App:           h.app.Config.App.Name,
		Env:           h.app.Config.App.Env,
		DonationQueue: h.app.Config.RabbitMQ.DonationPersistQueue,
		Dependencies: map[string]dependencyStatus{
			"mysql":           h.checkMySQL(ctx),
			"redis":           h.checkRedis(ctx),
			"rabbitmq":        h.checkRabbitMQ(),
			"donation_worker": h.checkWorker(),
		},
	}
	if !h.app.StartedAt.IsZero() {
		report.UptimeSec = int64(time.Since(h.app.StartedAt).Seconds())
	}

	for _, status := range report.Dependencies {
		if !status.OK {
			c.JSON(http.StatusServiceUnavailable, response.APIResponse{
				Code:    response.CodeServiceUnavailable,
				Message: "degraded",
				Data:    report,
			})
			return
		}
	}
	response.OK(c, report)
}

func (h *HealthHandler) checkMySQL(ctx context.Context) dependencyStatus {
	if h.app.MySQL == nil {
		return dependencyStatus{Message: "not connected"}
	}
	sqlDB, err := h.app.MySQL.DB()
	if err != nil {
		return dependencyStatus{Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dependencyStatus{Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{Message: "not connected; campaign cache and rate limit disabled"}
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil || h.app.MQConn.IsClosed() {
		return dependencyStatus{Message: "connection closed; pledges are rejected"}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkWorker() dependencyStatus {
	if !h.app.DonationWorker.Running() {
		return dependencyStatus{Message: "not consuming; pledges stay queued"}
	}
	return dependencyStatus{OK: true}
}
