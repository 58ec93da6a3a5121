package handler

import (
	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

// errorResponse mirrors the envelope written by the central error handler.
type errorResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect,omitempty"`
}

type switchTenantRequest struct {
	ISPID int64 `json:"isp_id" validate:"required,gt=0"`
}

type tenantListResponse struct {
	ISPs []domain.Tenant `json:"isps"`
}

type tenantResponse struct {
	Current   *domain.Tenant  `json:"current"`
	Available []domain.Tenant `json:"available,omitempty"`
	Loading   bool            `json:"loading"`
}

type notificationsResponse struct {
	ports.NotificationSummary
	Stale bool `json:"stale"`
}
