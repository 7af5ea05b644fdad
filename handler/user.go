package handler

import (
	"errors"
	"net/http"

	"blogpost/domain"
	"blogpost/guard"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type loginForm struct {
	CSRF     string
	Error    string
	LoggedIn bool
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get("csrf").(string)
	return token
}

func (h *Handler) GetLoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "user-login.html", loginForm{CSRF: csrfToken(c)})
}

func (h *Handler) Login(c echo.Context) error {
	formUsername := c.FormValue("username")
	formPassword := c.FormValue("password")

	if len(formUsername) == 0 || len(formPassword) == 0 {
		return c.Render(http.StatusBadRequest, "user-login.html", loginForm{CSRF: csrfToken(c), Error: "Username and password are required"})
	}

	p, err := h.Users.Authenticate(c.Request().Context(), domain.Credential{Username: formUsername, Password: formPassword})
	if err != nil {
		if errors.Is(err, domain.ErrBadCredentials) {
			h.Log.Info("login failed", zap.String("username", formUsername))
			return c.Render(http.StatusUnauthorized, "user-login.html", loginForm{CSRF: csrfToken(c), Error: "Wrong username or password"})
		}
		return err
	}

	cookie, err := guard.AuthorizationCookie(p, h.JWTSecret, h.now())
	if err != nil {
		return err
	}
	c.SetCookie(cookie)
	h.Log.Info("login", zap.String("username", p.Username))
	return c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(guard.ExpiredCookie(h.now()))
	return c.Redirect(http.StatusFound, "/")
}
