// Package http exposes the sync engine's host-application surface: health,
// metrics, sync status/trigger, the explicit bulk pull, and the ingress for
// platform connectivity signals.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlearn/edusync/internal/connectivity"
	"github.com/openlearn/edusync/internal/metrics"
	"github.com/openlearn/edusync/internal/outbox"
	"github.com/openlearn/edusync/internal/syncer"
)

type Server struct{ e *echo.Echo }

func NewServer(monitor *connectivity.Monitor, driver *syncer.Driver, queue outbox.Queue) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	v1 := e.Group("/v1")
	v1.GET("/sync/status", statusHandler(monitor, driver, queue))
	v1.GET("/sync/abandoned", abandonedHandler(queue))
	v1.POST("/sync/trigger", triggerHandler(driver))
	v1.POST("/sync/pull", pullHandler(driver))
	v1.POST("/network", networkHandler(monitor))

	return &Server{e: e}
}

func statusHandler(monitor *connectivity.Monitor, driver *syncer.Driver, queue outbox.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		pending, err := queue.PendingCount(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("pending count failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		var lastSync any
		if t := driver.LastSyncTime(); !t.IsZero() {
			lastSync = t
		}

		return c.JSON(http.StatusOK, map[string]any{
			"online":    monitor.IsOnline(),
			"syncing":   driver.InProgress(),
			"pending":   pending,
			"last_sync": lastSync,
		})
	}
}

func abandonedHandler(queue outbox.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries, err := queue.Abandoned(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("abandoned list failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		type item struct {
			ID         string `json:"id"`
			EntityType string `json:"entity_type"`
			EntityID   string `json:"entity_id"`
			Action     string `json:"action"`
			Attempts   int    `json:"attempts"`
		}
		out := make([]item, 0, len(entries))
		for _, e := range entries {
			out = append(out, item{
				ID:         e.ID,
				EntityType: e.EntityType.String(),
				EntityID:   e.EntityID,
				Action:     e.Action.String(),
				Attempts:   e.Attempts,
			})
		}

		return c.JSON(http.StatusOK, map[string]any{"count": len(out), "results": out})
	}
}

func triggerHandler(driver *syncer.Driver) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := driver.SyncPendingChanges(c.Request().Context()); err != nil {
			c.Logger().Errorf("manual sync failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "sync failed"})
		}
		return c.JSON(http.StatusAccepted, map[string]any{"triggered": true})
	}
}

func pullHandler(driver *syncer.Driver) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := driver.DownloadFromServer(c.Request().Context()); err != nil {
			if errors.Is(err, syncer.ErrOffline) {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"error":       "offline",
					"description": "bulk download requires connectivity",
				})
			}
			c.Logger().Errorf("bulk pull failed: %v", err)
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "pull failed"})
		}
		return c.JSON(http.StatusOK, map[string]any{"pulled": true})
	}
}

type networkReq struct {
	Online bool `json:"online"`
}

// networkHandler is the ingress for platform reachability signals; the
// periodic prober corrects false positives.
func networkHandler(monitor *connectivity.Monitor) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req networkReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		monitor.SetOnline(req.Online)
		return c.JSON(http.StatusOK, map[string]any{"online": monitor.IsOnline()})
	}
}

func (s *Server) Start(addr string) error { return s.e.Start(addr) }

// Handler exposes the route tree for embedding and tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
