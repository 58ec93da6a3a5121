package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/core/domain"
)

// TenantHandler exposes the tenant scope of the calling session.
type TenantHandler struct{}

func NewTenantHandler() *TenantHandler {
	return &TenantHandler{}
}

// List returns every tenant. Super admin only.
//
// @Summary      List tenants
// @Tags         tenants
// @Produce      json
// @Success      200  {object}  tenantListResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /console/tenants [get]
func (h *TenantHandler) List(c echo.Context) error {
	console, user, token, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := console.Tenants.Ensure(c.Request().Context(), user, token); err != nil {
		return err
	}

	isps := console.Tenants.State(user).Available
	if isps == nil {
		isps = []domain.Tenant{}
	}
	return c.JSON(http.StatusOK, tenantListResponse{ISPs: isps})
}

// Current returns the tenant whose data the console shows. current is null
// while no tenant could be resolved.
//
// @Summary      Current tenant
// @Tags         tenants
// @Produce      json
// @Success      200  {object}  tenantResponse
// @Failure      401  {object}  errorResponse
// @Failure      502  {object}  errorResponse
// @Router       /console/tenant [get]
func (h *TenantHandler) Current(c echo.Context) error {
	console, user, token, err := ctxUser(c)
	if err != nil {
		return err
	}
	if err := console.Tenants.Ensure(c.Request().Context(), user, token); err != nil {
		return err
	}

	st := console.Tenants.State(user)
	return c.JSON(http.StatusOK, tenantResponse{Current: st.Current, Available: st.Available, Loading: st.Loading})
}

// Switch selects another tenant. For roles other than super admin it is a
// no-op that reports their own tenant.
//
// @Summary      Switch tenant
// @Tags         tenants
// @Accept       json
// @Produce      json
// @Param        body  body      switchTenantRequest  true  "Tenant to select"
// @Success      200   {object}  tenantResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /console/tenant [put]
func (h *TenantHandler) Switch(c echo.Context) error {
	var req switchTenantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	console, user, token, err := ctxUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := console.Tenants.Ensure(ctx, user, token); err != nil {
		return err
	}

	if _, err := console.Tenants.Switch(ctx, user, req.ISPID); err != nil {
		return err
	}

	st := console.Tenants.State(user)
	return c.JSON(http.StatusOK, tenantResponse{Current: st.Current, Available: st.Available, Loading: st.Loading})
}
