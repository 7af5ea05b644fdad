package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler answers API clients with an empty body and browsers
// with an error page.
func (h *Handler) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code >= http.StatusInternalServerError {
		h.Log.Error("request failed", zap.String("path", c.Request().URL.Path), zap.Error(err))
	}

	req := c.Request()
	if req.Method == http.MethodHead || !strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML) {
		if err := c.NoContent(code); err != nil {
			h.Log.Error("writing error response", zap.Error(err))
		}
		return
	}
	page := struct {
		Code     int
		Message  string
		LoggedIn bool
	}{
		Code:    code,
		Message: http.StatusText(code),
	}
	if err := c.Render(code, "error.html", page); err != nil {
		h.Log.Error("rendering error page", zap.Error(err))
	}
}
