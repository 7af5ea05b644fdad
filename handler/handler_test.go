package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogpost/domain"
	"blogpost/store"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// MockAuthenticator is a mock implementation of guard.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, cred domain.Credential) (domain.Principal, error) {
	args := m.Called(ctx, cred)
	return args.Get(0).(domain.Principal), args.Error(1)
}

func (m *MockAuthenticator) Lookup(ctx context.Context, username string) (domain.Principal, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(domain.Principal), args.Error(1)
}

func newTestServer(t *testing.T, auth *MockAuthenticator) (*echo.Echo, *store.Store) {
	t.Helper()
	posts := store.New()
	h := &Handler{
		Posts:     posts,
		Users:     auth,
		JWTSecret: testSecret,
		Log:       zap.NewNop(),
		Now:       func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}
	renderer, err := NewTemplateRegistry()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	e.HTTPErrorHandler = h.HTTPErrorHandler
	Register(e, h.Routes())
	return e, posts
}

func do(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
