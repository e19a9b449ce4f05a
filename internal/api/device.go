package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/penosext/pentools/pkg/types"
)

func (s *Server) deviceInfo(c echo.Context) error {
	if s.deps.Device == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	info, err := s.deps.Device.Collect(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) deviceDiagnostics(c echo.Context) error {
	if s.deps.Device == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	report, err := s.deps.Device.Diagnostics(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.String(http.StatusOK, report)
}

func (s *Server) deviceControls(c echo.Context) error {
	if s.deps.Controls == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	return c.JSON(http.StatusOK, s.deps.Controls.State())
}

func (s *Server) setBrightness(c echo.Context) error {
	if s.deps.Controls == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.BrightnessRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := s.deps.Controls.SetBrightness(c.Request().Context(), req.Brightness)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) setScreenTimeout(c echo.Context) error {
	if s.deps.Controls == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.ScreenTimeoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	st, err := s.deps.Controls.SetScreenTimeout(c.Request().Context(), req.Timeout)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// setTorch switches the torch to req.On, or toggles it when On is absent.
func (s *Server) setTorch(c echo.Context) error {
	if s.deps.Controls == nil {
		return c.JSON(http.StatusServiceUnavailable, errNotAvailable)
	}
	var req types.TorchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	var (
		st  types.DeviceControls
		err error
	)
	if req.On == nil {
		st, err = s.deps.Controls.ToggleTorch(ctx)
	} else {
		st, err = s.deps.Controls.SetTorch(ctx, *req.On)
	}
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
