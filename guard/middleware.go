package guard

import (
	"context"
	"errors"
	"net/http"

	"blogpost/domain"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const principalContextKey = "principal"

// Realm is announced in WWW-Authenticate on 401 responses.
const Realm = "Realm"

// Authenticator checks a presented credential. It returns
// domain.ErrBadCredentials when the credential does not identify a user.
// Lookup reloads an already authenticated user by name and returns
// domain.ErrBadCredentials when it is gone or disabled.
type Authenticator interface {
	Authenticate(ctx context.Context, cred domain.Credential) (domain.Principal, error)
	Lookup(ctx context.Context, username string) (domain.Principal, error)
}

// Middleware resolves the request principal and applies the rules. Basic
// credentials take precedence over the login cookie; Basic credentials that
// fail to authenticate are rejected on every path. A cookie subject that no
// longer resolves to an enabled user is treated as anonymous.
func (g *Guard) Middleware(auth Authenticator, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			principal := domain.Anonymous()

			if username, password, ok := req.BasicAuth(); ok {
				p, err := auth.Authenticate(req.Context(), domain.Credential{Username: username, Password: password})
				if err != nil {
					if !errors.Is(err, domain.ErrBadCredentials) {
						log.Error("authentication failed", zap.String("username", username), zap.Error(err))
						return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
					}
					log.Info("bad credentials", zap.String("username", username), zap.String("path", req.URL.Path))
					return unauthorized(c)
				}
				principal = p
			} else if username, ok := tokenSubject(c); ok {
				p, err := auth.Lookup(req.Context(), username)
				switch {
				case err == nil:
					principal = p
				case errors.Is(err, domain.ErrBadCredentials):
					log.Info("token subject no longer valid", zap.String("username", username))
				default:
					log.Error("user lookup failed", zap.String("username", username), zap.Error(err))
					return echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
				}
			}

			decision := g.Evaluate(req.URL.Path, principal)
			switch decision {
			case Admit:
				c.Set(principalContextKey, principal)
				return next(c)
			case Unauthenticated:
				log.Info("request rejected", zap.String("path", req.URL.Path), zap.Stringer("decision", decision))
				return unauthorized(c)
			default:
				log.Info("request rejected",
					zap.String("path", req.URL.Path),
					zap.String("username", principal.Username),
					zap.Stringer("decision", decision))
				return echo.NewHTTPError(http.StatusForbidden)
			}
		}
	}
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="`+Realm+`"`)
	return echo.NewHTTPError(http.StatusUnauthorized)
}

// PrincipalFrom returns the principal the guard admitted the request as.
func PrincipalFrom(c echo.Context) domain.Principal {
	if p, ok := c.Get(principalContextKey).(domain.Principal); ok {
		return p
	}
	return domain.Anonymous()
}
