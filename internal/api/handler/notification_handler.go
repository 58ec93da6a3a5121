package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ispbilling/console/internal/core/ports"
)

// NotificationHandler serves the notification bell from the last poll.
type NotificationHandler struct{}

func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{}
}

// Get returns the latest polled notifications. stale is true until the
// first poll for this session has completed.
//
// @Summary      Notification bell
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  notificationsResponse
// @Failure      401  {object}  errorResponse
// @Router       /console/notifications [get]
func (h *NotificationHandler) Get(c echo.Context) error {
	console, err := ctxConsole(c)
	if err != nil {
		return err
	}

	sum := console.Notifications()
	if sum == nil {
		return c.JSON(http.StatusOK, notificationsResponse{
			NotificationSummary: ports.NotificationSummary{Notifications: []ports.Notification{}},
			Stale:               true,
		})
	}
	return c.JSON(http.StatusOK, notificationsResponse{NotificationSummary: *sum})
}
