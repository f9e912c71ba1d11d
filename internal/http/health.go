package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Time   time.Time         `json:"time"`
	Checks map[string]string `json:"checks"`
}

// healthHandler runs every check in name order and answers 503 when any fails.
func healthHandler(checks map[string]HealthCheck, logger *logrus.Logger) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name, check := range checks {
		if check != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	respond := newResponder(logger)

	return func(c *gin.Context) {
		resp := healthResponse{Status: "healthy", Time: time.Now().UTC(), Checks: make(map[string]string, len(names))}
		status := http.StatusOK

		for _, name := range names {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			err := checks[name](ctx)
			cancel()
			if err != nil {
				respond.loggerFor(c).WithError(err).WithField("check", name).Warn("health check failed")
				resp.Checks[name] = "unavailable"
				resp.Status = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		respond.writeJSON(c, status, resp)
	}
}
