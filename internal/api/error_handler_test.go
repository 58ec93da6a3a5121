package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	handle := NewHTTPErrorHandler(zerolog.Nop())
	e := echo.New()

	cases := []struct {
		err      error
		code     int
		redirect string
	}{
		{domain.ErrUnauthorized, http.StatusUnauthorized, "/login"},
		{fmt.Errorf("list tenants: %w", &ports.APIError{Status: 401, Err: domain.ErrUnauthorized}), http.StatusUnauthorized, "/login"},
		{echo.NewHTTPError(http.StatusUnauthorized, "authentication required"), http.StatusUnauthorized, "/login"},
		{domain.ErrForbidden, http.StatusForbidden, ""},
		{domain.ErrTenantUnresolved, http.StatusConflict, ""},
		{fmt.Errorf("switch tenant 9: %w", domain.ErrTenantNotFound), http.StatusNotFound, ""},
		{&ports.APIError{Err: errors.Join(domain.ErrTransport, errors.New("dial"))}, http.StatusBadGateway, ""},
		{&ports.APIError{Status: 500, Err: domain.ErrUpstream}, http.StatusBadGateway, ""},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		handle(tc.err, c)

		if rec.Code != tc.code {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
			continue
		}
		var body errorResponse
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body.Error == "" || body.Redirect != tc.redirect {
			t.Errorf("%v: unexpected envelope %+v", tc.err, body)
		}
	}
}
