package controller

import (
	"context"
	"net/http"
	"time"
)

func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "redis": "disabled", "temporal": "disabled"}
	code := http.StatusOK

	if c.App.RedisClient != nil {
		if err := c.App.RedisClient.Health(ctx); err != nil {
			status["status"], status["redis"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["redis"] = "ok"
		}
	}
	if c.App.TemporalClient != nil {
		if _, err := c.App.TemporalClient.TClient.CheckHealth(ctx, nil); err != nil {
			status["status"], status["temporal"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["temporal"] = "ok"
		}
	}

	writeJSON(w, code, status)
}
