package guard

import (
	"errors"
	"net/http"
	"time"

	"blogpost/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CookieName      = "Authorization"
	TokenTTL        = 7 * 24 * time.Hour
	tokenContextKey = "token"
)

// Claims is the payload of the login cookie. Only the subject is carried;
// roles and account state are looked up again on every request.
type Claims struct {
	jwt.RegisteredClaims
}

// AuthorizationCookie signs a token for p and wraps it in the cookie the
// token middleware reads back.
func AuthorizationCookie(p domain.Principal, secret string, now time.Time) (*http.Cookie, error) {
	if secret == "" {
		return nil, errors.New("missing secret")
	}
	if !p.Authenticated() {
		return nil, errors.New("cannot issue a token for an anonymous principal")
	}
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, err
	}

	cookie := new(http.Cookie)
	cookie.Name = CookieName
	cookie.Value = signed
	cookie.Expires = exp
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteLaxMode
	return cookie, nil
}

// ExpiredCookie clears the login cookie.
func ExpiredCookie(now time.Time) *http.Cookie {
	cookie := new(http.Cookie)
	cookie.Name = CookieName
	cookie.Value = ""
	cookie.Path = "/"
	cookie.Expires = now.Add(-1 * time.Second)
	cookie.MaxAge = -1
	return cookie
}

// TokenMiddleware parses the login cookie when present. Missing, expired
// or forged tokens are ignored and the request continues as anonymous.
func TokenMiddleware(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:  []byte(secret),
		TokenLookup: "cookie:" + CookieName,
		ContextKey:  tokenContextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(Claims)
		},
		ContinueOnIgnoredError: true,
		ErrorHandler: func(c echo.Context, err error) error {
			return nil
		},
	})
}

func tokenSubject(c echo.Context) (string, bool) {
	token, ok := c.Get(tokenContextKey).(*jwt.Token)
	if !ok || !token.Valid {
		return "", false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
