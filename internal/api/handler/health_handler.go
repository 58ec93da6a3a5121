package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const readinessTimeout = 3 * time.Second

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports the number of live console sessions.
type SessionCounter interface {
	Len() int
}

// HealthHandler serves the liveness and readiness checks.
type HealthHandler struct {
	sessions SessionCounter
	deps     map[string]Pinger
}

// NewHealthHandler checks deps (session store backend, billing API) on
// readiness. sessions may be nil.
func NewHealthHandler(sessions SessionCounter, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{sessions: sessions, deps: deps}
}

type livenessResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type dependencyStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string             `json:"status"`
	Dependencies []dependencyStatus `json:"dependencies"`
}

// Liveness answers as long as the process serves requests.
//
// @Summary      Liveness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  livenessResponse
// @Router       /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	resp := livenessResponse{Status: "ok"}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	return c.JSON(http.StatusOK, resp)
}

// Readiness pings every dependency concurrently; any failure is a 503.
//
// @Summary      Readiness check
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make([]dependencyStatus, 0, len(h.deps))
	)
	var g errgroup.Group
	for name, p := range h.deps {
		name, p := name, p
		g.Go(func() error {
			st := dependencyStatus{Name: name, Status: "ok"}
			err := p.Ping(ctx)
			if err != nil {
				st.Status, st.Error = "unhealthy", err.Error()
			}
			mu.Lock()
			results = append(results, st)
			mu.Unlock()
			return err
		})
	}
	failed := g.Wait() != nil

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	if failed {
		return c.JSON(http.StatusServiceUnavailable, readinessResponse{Status: "degraded", Dependencies: results})
	}
	return c.JSON(http.StatusOK, readinessResponse{Status: "ok", Dependencies: results})
}
