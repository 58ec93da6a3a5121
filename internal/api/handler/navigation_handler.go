package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/api/metrics"
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/service"
)

// NavigationHandler answers route guard and sidebar queries.
type NavigationHandler struct {
	guard *service.Guard
	nav   *service.Navigator
}

func NewNavigationHandler(guard *service.Guard, nav *service.Navigator) *NavigationHandler {
	return &NavigationHandler{guard: guard, nav: nav}
}

type navigateRequest struct {
	Path string `query:"path" json:"path" validate:"required,startswith=/"`
}

type menuResponse struct {
	Loading bool               `json:"loading"`
	Items   []domain.MenuEntry `json:"items"`
}

// Navigate decides whether the caller may open path.
//
// @Summary      Route guard decision
// @Tags         navigation
// @Produce      json
// @Param        path  query     string  true  "Console path, e.g. /customers/12"
// @Success      200   {object}  service.Decision
// @Failure      422   {object}  errorResponse
// @Router       /console/navigate [get]
func (h *NavigationHandler) Navigate(c echo.Context) error {
	var req navigateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	console, err := ctxConsole(c)
	if err != nil {
		return err
	}

	d := h.guard.Navigate(console.Session.Snapshot(), req.Path)
	metrics.GuardDecisionsTotal.WithLabelValues(string(d.State)).Inc()
	return c.JSON(http.StatusOK, d)
}

// Menu returns the sidebar entries the caller may open, in display order.
//
// @Summary      Sidebar menu
// @Tags         navigation
// @Produce      json
// @Success      200  {object}  menuResponse
// @Router       /console/navigation [get]
func (h *NavigationHandler) Menu(c echo.Context) error {
	console, err := ctxConsole(c)
	if err != nil {
		return err
	}
	snap := console.Session.Snapshot()
	return c.JSON(http.StatusOK, menuResponse{Loading: snap.Loading, Items: h.nav.Visible(snap)})
}
