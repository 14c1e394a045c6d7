// Package apitest runs API modules against an in-memory App.
package apitest

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"cmms.GO/api"
	"cmms.GO/app"
	"cmms.GO/core/actor"
	"cmms.GO/core/auth"
	"cmms.GO/model/dbtest"
)

// HeaderAdmin marks a test request as coming from an administrator.
const HeaderAdmin = "X-Test-Admin"

type Server struct {
	E   *echo.Echo
	App *app.App
	Org uint
	t   testing.TB
}

// New mounts modules on /api the way serve does, minus authentication.
func New(t testing.TB, modules ...api.ModuleFunc) *Server {
	t.Helper()
	a := app.New(dbtest.Open(t), nil, zap.NewNop(), nil)
	e := echo.New()
	g := e.Group("/api", fakeAuth, api.Logger(a.Log), api.Organization())
	for _, m := range modules {
		m(g, a)
	}
	return &Server{E: e, App: a, Org: 1, t: t}
}

func fakeAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(auth.ContextKey, actor.Actor{Admin: c.Request().Header.Get(HeaderAdmin) != ""})
		return next(c)
	}
}

// Do sends body as JSON with the server's organization header.
func (s *Server) Do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if s.Org != 0 {
		req.Header.Set(api.HeaderOrganization, strconv.FormatUint(uint64(s.Org), 10))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

// Expect fails the test unless rec has status, then decodes into v (if non-nil).
func Expect(t testing.TB, rec *httptest.ResponseRecorder, status int, v interface{}) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
}

// AsAdmin is passed to Do as headers.
var AsAdmin = []string{HeaderAdmin, "1"}
