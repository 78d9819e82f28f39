package system

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	registryroute "github.com/emogo/journal-service/internal/registry/route"
)

var (
	ready      atomic.Bool
	readyCheck atomic.Pointer[func(ctx context.Context) error]
)

// MarkReady signals that the service has finished initializing and is ready to
// serve traffic. Call this once StartServer has completed successfully.
func MarkReady() {
	ready.Store(true)
}

// SetReadyCheck installs a backend connectivity probe consulted by /ready,
// typically the store's Ping.
func SetReadyCheck(check func(ctx context.Context) error) {
	readyCheck.Store(&check)
}

func init() {
	registryroute.Register(registryroute.Plugin{
		Order: 0,
		Type:  registryroute.RouteTypeManagement,
		Loader: func(r *gin.Engine) error {
			// Liveness: process is up
			r.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"status": "ok"})
			})

			// Readiness: initialization finished and the store is reachable
			r.GET("/ready", func(c *gin.Context) {
				if !ready.Load() {
					c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
					return
				}
				if check := readyCheck.Load(); check != nil {
					if err := (*check)(c.Request.Context()); err != nil {
						c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
						return
					}
				}
				c.JSON(http.StatusOK, gin.H{"status": "ready"})
			})

			// Prometheus metrics
			r.GET("/metrics", gin.WrapH(promhttp.Handler()))

			return nil
		},
	})
}
