package web_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend is a scripted stand-in for the platform API.
type backend struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []*http.Request
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		clone := r.Clone(context.Background())
		clone.Body = io.NopCloser(bytes.NewReader(data))

		b.mu.Lock()
		b.requests = append(b.requests, clone)
		h, ok := b.routes[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) on(method, path string, status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (b *backend) last() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return nil
	}
	return b.requests[len(b.requests)-1]
}

type events struct {
	mu   sync.Mutex
	list []auth.ActivityEvent
}

func (e *events) Record(_ context.Context, event auth.ActivityEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, event)
	return nil
}

func (e *events) types() []auth.ActivityEventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]auth.ActivityEventType, len(e.list))
	for i, ev := range e.list {
		out[i] = ev.EventType
	}
	return out
}

func newServer(t *testing.T) (*web.Server, *backend, *events) {
	t.Helper()
	b, srv := newBackend(t)
	sink := &events{}
	cfg := &auth.Settings{
		APIBaseURL:     srv.URL,
		RequestTimeout: 5 * time.Second,
		CookieTTL:      time.Hour,
	}
	return web.New(cfg, web.WithActivitySink(sink), web.WithLogger(auth.NopLogger{})), b, sink
}

func tokenFor(t *testing.T, role, sub string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"role":  role,
		"email": role + "@example.com",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func cookie(name, value string) *http.Cookie {
	return &http.Cookie{Name: name, Value: base64.RawURLEncoding.EncodeToString([]byte(value))}
}

func responseCookies(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func decoded(t *testing.T, c *http.Cookie) string {
	t.Helper()
	require.NotNil(t, c)
	v, err := base64.RawURLEncoding.DecodeString(c.Value)
	require.NoError(t, err)
	return string(v)
}

func do(t *testing.T, s *web.Server, req *http.Request) *http.Response {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func form(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// csrfToken loads a page to obtain an anti forgery token from the gateway.
func csrfToken(t *testing.T, s *web.Server) string {
	t.Helper()
	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/login", nil))
	c := responseCookies(resp)[web.CSRFCookieName]
	require.NotNil(t, c)
	require.NotEmpty(t, c.Value)
	return c.Value
}

// signedForm is a form post carrying a valid anti forgery token.
func signedForm(t *testing.T, s *web.Server, path string, values url.Values) *http.Request {
	t.Helper()
	token := csrfToken(t, s)
	if values == nil {
		values = url.Values{}
	}
	values.Set(auth.CSRFFieldName, token)
	req := form(path, values)
	req.AddCookie(&http.Cookie{Name: web.CSRFCookieName, Value: token})
	return req
}

func TestUnknownRouteRendersLogin(t *testing.T) {
	s, _, _ := newServer(t)

	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/no/such/page", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `action="/login"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestGuardedRoutes(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/admin/dashboard/stats", http.StatusOK, map[string]any{"totalUsers": 3})
	b.on(http.MethodGet, "/api/v1/admin/dashboard/recent-activity", http.StatusOK, map[string]any{"activities": []any{}})

	tests := []struct {
		name     string
		path     string
		token    string
		status   int
		location string
	}{
		{name: "anonymous parent page", path: "/parent-dashboard", status: http.StatusFound, location: "/login"},
		{name: "anonymous admin page", path: "/admin/users", status: http.StatusFound, location: "/login"},
		{name: "student on parent page", path: "/parent-dashboard", token: tokenFor(t, "student", "2"), status: http.StatusFound, location: "/unauthorized"},
		{name: "parent on admin page", path: "/admin/manage-courses", token: tokenFor(t, "parent", "1"), status: http.StatusFound, location: "/unauthorized"},
		{name: "malformed token", path: "/admin-dashboard", token: "garbage", status: http.StatusFound, location: "/unauthorized"},
		{name: "admin allowed", path: "/admin-dashboard", token: tokenFor(t, "Admin", "9"), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.token != "" {
				req.AddCookie(cookie("imc_token", tt.token))
			}
			resp := do(t, s, req)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.location, resp.Header.Get("Location"))
		})
	}
}

func TestLogin(t *testing.T) {
	s, b, sink := newServer(t)
	token := tokenFor(t, "parent", "7")
	b.on(http.MethodPost, "/api/v1/auth/login", http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         map[string]any{"user_id": 7, "email": "p@example.com", "role": "parent"},
	})

	resp := do(t, s, form("/login", url.Values{"email": {" p@example.com "}, "password": {"secret123"}}))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/parent-dashboard", resp.Header.Get("Location"))

	cookies := responseCookies(resp)
	assert.Equal(t, token, decoded(t, cookies["imc_token"]))
	assert.True(t, cookies["imc_token"].HttpOnly)
	assert.Contains(t, decoded(t, cookies["user"]), `"email":"p@example.com"`)
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, sink.types())
}

func TestLoginFailure(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodPost, "/api/v1/auth/login", http.StatusUnauthorized, map[string]any{"detail": "Incorrect email or password"})

	resp := do(t, s, form("/login", url.Values{"email": {"p@example.com"}, "password": {"nope"}}))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Incorrect email or password")
	assert.Empty(t, resp.Cookies())

	resp = do(t, s, form("/login", url.Values{"email": {""}, "password": {""}}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSignup(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/roles", http.StatusOK, []any{
		map[string]any{"role_id": 1, "role_name": "admin"},
		map[string]any{"role_id": 2, "role_name": "parent"},
		map[string]any{"role_id": 3, "role_name": "student"},
	})
	b.on(http.MethodPost, "/api/v1/auth/register", http.StatusCreated, map[string]any{
		"user": map[string]any{"user_id": 11, "email": "new@example.com", "role": "student"},
	})

	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/signup", nil))
	page := body(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `value="parent" selected`)
	assert.NotContains(t, page, `value="admin"`)

	resp = do(t, s, form("/signup", url.Values{
		"first_name": {"Amina"},
		"last_name":  {"Yusuf"},
		"email":      {"New@Example.com"},
		"password":   {"longenough"},
		"role_name":  {"student"},
	}))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login?registered=1", resp.Header.Get("Location"))

	var sent map[string]any
	require.NoError(t, json.NewDecoder(b.last().Body).Decode(&sent))
	assert.Equal(t, "new@example.com", sent["email"])
	assert.Equal(t, float64(3), sent["role_id"])

	resp = do(t, s, form("/signup", url.Values{"email": {"x@example.com"}, "password": {"short"}, "role_name": {"parent"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body(t, resp), "first name is required")
}

func TestOAuthCallback(t *testing.T) {
	s, _, _ := newServer(t)
	token := tokenFor(t, "student", "4")

	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/auth/callback?role=student&token="+url.QueryEscape(token), nil))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/student-dashboard", resp.Header.Get("Location"))
	assert.Equal(t, token, decoded(t, responseCookies(resp)["imc_token"]))

	resp = do(t, s, httptest.NewRequest(http.MethodGet, "/auth/callback?role=parent", nil))
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.NotContains(t, responseCookies(resp), "imc_token")
}

func TestParentDashboard(t *testing.T) {
	s, b, _ := newServer(t)
	token := tokenFor(t, "parent", "7")
	b.on(http.MethodGet, "/api/v1/parent/children", http.StatusOK, []any{
		map[string]any{"id": 5, "name": "Yusuf", "email": "y@example.com", "course_count": 2, "avg_progress": 40},
	})
	b.on(http.MethodGet, "/api/v1/parent/children/5/courses", http.StatusOK, []any{
		map[string]any{"id": 1, "title": "Seerah", "status": "active", "progress": 25},
	})
	b.on(http.MethodGet, "/api/v1/parent/children/5/summary", http.StatusOK, map[string]any{"id": 5, "name": "Yusuf", "total_courses": 2})

	req := httptest.NewRequest(http.MethodGet, "/parent-dashboard", nil)
	req.AddCookie(cookie("imc_token", token))
	resp := do(t, s, req)

	page := body(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, "Yusuf")
	assert.Contains(t, page, "Seerah")
	assert.Contains(t, page, `/parent/children/5/preview`)

	csrf := responseCookies(resp)[web.CSRFCookieName]
	require.NotNil(t, csrf)
	assert.Contains(t, page, `name="_token" value="`+csrf.Value+`"`)

	last := b.last()
	assert.Equal(t, "Bearer "+token, last.Header.Get("Authorization"))
	assert.Equal(t, "7", last.URL.Query().Get("parent_id"))
}

func TestBackendRejectsToken(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/parent/children", http.StatusUnauthorized, map[string]any{"detail": "Could not validate credentials"})

	req := httptest.NewRequest(http.MethodGet, "/parent-dashboard", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestBackendForbidsRequest(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/parent/children", http.StatusForbidden, map[string]any{"detail": "Not your account"})

	req := httptest.NewRequest(http.MethodGet, "/parent-dashboard", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/unauthorized", resp.Header.Get("Location"))
}

func TestBackendUnreachable(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/parent/children", http.StatusServiceUnavailable, map[string]any{"detail": "maintenance"})

	req := httptest.NewRequest(http.MethodGet, "/parent-dashboard", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestPreviewAndReturn(t *testing.T) {
	s, b, sink := newServer(t)
	parentToken := tokenFor(t, "parent", "7")
	childToken := tokenFor(t, "student", "5")
	b.on(http.MethodPost, "/api/v1/parent/children/5/impersonate", http.StatusOK, map[string]any{
		"access_token": childToken,
		"user":         map[string]any{"user_id": 5, "role": "student"},
	})

	req := signedForm(t, s, "/parent/children/5/preview", nil)
	req.AddCookie(cookie("imc_token", parentToken))
	req.AddCookie(cookie("user", `{"user_id":7,"role":"parent"}`))
	resp := do(t, s, req)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/student-dashboard", resp.Header.Get("Location"))
	assert.Equal(t, "Bearer "+parentToken, b.last().Header.Get("Authorization"))

	cookies := responseCookies(resp)
	assert.Equal(t, childToken, decoded(t, cookies["imc_token"]))
	assert.Equal(t, parentToken, decoded(t, cookies["imc_parent_token"]))
	assert.Equal(t, `{"user_id":7,"role":"parent"}`, decoded(t, cookies["imc_parent_user"]))

	// the browser now holds the child session plus the parked parent
	back := signedForm(t, s, "/parent/return", nil)
	back.AddCookie(cookie("imc_token", childToken))
	back.AddCookie(cookie("imc_parent_token", parentToken))
	back.AddCookie(cookie("imc_parent_user", `{"user_id":7,"role":"parent"}`))
	resp = do(t, s, back)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/parent-dashboard", resp.Header.Get("Location"))
	cookies = responseCookies(resp)
	assert.Equal(t, parentToken, decoded(t, cookies["imc_token"]))
	assert.Empty(t, cookies["imc_parent_token"].Value)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventPreviewStarted,
		auth.ActivityEventPreviewEnded,
	}, sink.types())
}

func TestPreviewWhileActive(t *testing.T) {
	s, b, _ := newServer(t)

	req := signedForm(t, s, "/parent/children/5/preview", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "parent", "7")))
	req.AddCookie(cookie("imc_parent_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/parent-dashboard?error="))
	assert.Nil(t, b.last())
}

func TestStudentDashboardShowsReturnWhilePreviewing(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/student/dashboard", http.StatusOK, map[string]any{"enrolledCourses": 2})
	b.on(http.MethodGet, "/api/v1/student/courses", http.StatusOK, []any{})
	b.on(http.MethodGet, "/api/v1/student/chapters/upcoming", http.StatusOK, []any{})

	req := httptest.NewRequest(http.MethodGet, "/student-dashboard", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "student", "5")))
	req.AddCookie(cookie("imc_parent_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `action="/parent/return"`)
	assert.Equal(t, "5", b.last().URL.Query().Get("student_id"))
}

func TestLogout(t *testing.T) {
	s, _, sink := newServer(t)

	req := signedForm(t, s, "/logout", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "student", "5")))
	req.AddCookie(cookie("imc_parent_token", tokenFor(t, "parent", "7")))
	resp := do(t, s, req)

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	cookies := responseCookies(resp)
	for _, name := range []string{"imc_token", "imc_parent_token"} {
		require.Contains(t, cookies, name)
		assert.Empty(t, cookies[name].Value, name)
	}
	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLogout}, sink.types())
}

func TestLogoutIgnoresGet(t *testing.T) {
	s, _, sink := newServer(t)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie("imc_token", tokenFor(t, "student", "5")))
	resp := do(t, s, req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, responseCookies(resp), "imc_token")
	assert.Empty(t, sink.types())
}

func TestCSRFRejectsForgedPosts(t *testing.T) {
	admin := tokenFor(t, "admin", "1")

	tests := []struct {
		name    string
		request func(t *testing.T, s *web.Server) *http.Request
	}{
		{
			name: "no token",
			request: func(t *testing.T, s *web.Server) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/admin/users/12/toggle-active", nil)
			},
		},
		{
			name: "form token differs from cookie",
			request: func(t *testing.T, s *web.Server) *http.Request {
				token := csrfToken(t, s)
				req := form("/admin/users/12/toggle-active", url.Values{auth.CSRFFieldName: {"forged"}})
				req.AddCookie(&http.Cookie{Name: web.CSRFCookieName, Value: token})
				return req
			},
		},
		{
			name: "token never issued",
			request: func(t *testing.T, s *web.Server) *http.Request {
				req := form("/admin/users/12/toggle-active", url.Values{auth.CSRFFieldName: {"made-up"}})
				req.AddCookie(&http.Cookie{Name: web.CSRFCookieName, Value: "made-up"})
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, b, sink := newServer(t)
			b.on(http.MethodPatch, "/api/v1/admin/users/12/toggle-active", http.StatusOK, map[string]any{"user_id": 12, "is_active": false})

			req := tt.request(t, s)
			req.AddCookie(cookie("imc_token", admin))
			resp := do(t, s, req)

			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Contains(t, body(t, resp), "The form has expired")
			assert.Nil(t, b.last())
			assert.Empty(t, sink.types())
		})
	}
}

func TestCSRFSkipsSignInForms(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodPost, "/api/v1/auth/login", http.StatusOK, map[string]any{
		"access_token": tokenFor(t, "student", "5"),
		"user":         map[string]any{"user_id": 5, "role": "student"},
	})

	resp := do(t, s, form("/login", url.Values{"email": {"s@example.com"}, "password": {"secret123"}}))
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.NotContains(t, responseCookies(resp), web.CSRFCookieName)
}

func TestAdminActions(t *testing.T) {
	s, b, sink := newServer(t)
	admin := tokenFor(t, "admin", "1")
	b.on(http.MethodPatch, "/api/v1/admin/users/12/toggle-active", http.StatusOK, map[string]any{"user_id": 12, "is_active": false})
	b.on(http.MethodPost, "/api/v1/courses", http.StatusCreated, map[string]any{"id": 30, "title": "Tajweed"})
	b.on(http.MethodPost, "/api/v1/chapters/", http.StatusOK, map[string]any{"chapter_id": 2, "course_id": 30, "title": "Makharij", "chapter_order": 1})

	req := signedForm(t, s, "/admin/users/12/toggle-active", nil)
	req.AddCookie(cookie("imc_token", admin))
	resp := do(t, s, req)
	assert.Equal(t, "/admin/users", resp.Header.Get("Location"))

	req = signedForm(t, s, "/admin/courses", url.Values{"course_name": {"Tajweed"}, "min_age": {"7"}, "is_active": {"on"}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	assert.Equal(t, "/admin/manage-courses", resp.Header.Get("Location"))

	var sent map[string]any
	require.NoError(t, json.NewDecoder(b.last().Body).Decode(&sent))
	assert.Equal(t, "Tajweed", sent["course_name"])
	assert.Equal(t, float64(7), sent["min_age"])
	assert.Equal(t, true, sent["is_active"])

	req = signedForm(t, s, "/admin/chapters", url.Values{"course_id": {"30"}, "title": {"Makharij"}, "chapter_order": {"1"}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	assert.Equal(t, "/admin/manage-courses?course=30", resp.Header.Get("Location"))

	req = signedForm(t, s, "/admin/courses", url.Values{"course_name": {"Bad"}, "price": {"free"}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/manage-courses", location.Path)
	assert.Equal(t, "price: must be a number", location.Query().Get("error"))

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventUserActiveToggled,
		auth.ActivityEventCourseChanged,
		auth.ActivityEventChapterCreated,
	}, sink.types())
}

func TestHomeListsCourses(t *testing.T) {
	s, b, _ := newServer(t)
	b.on(http.MethodGet, "/api/v1/courses", http.StatusOK, []any{
		map[string]any{"id": 1, "title": "Arabic for Kids", "lessons": 12},
	})

	resp := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Arabic for Kids")
	assert.Equal(t, "active_only=true&limit=100", b.last().URL.RawQuery)
}

func TestAdminEditUser(t *testing.T) {
	s, b, sink := newServer(t)
	admin := tokenFor(t, "admin", "1")
	b.on(http.MethodGet, "/api/v1/admin/users/12", http.StatusOK, map[string]any{
		"user_id": 12, "first_name": "Amina", "last_name": "Yusuf", "email": "a@example.com", "role": "student", "is_active": true,
	})
	b.on(http.MethodPatch, "/api/v1/admin/users/12", http.StatusOK, map[string]any{"message": "updated"})

	req := httptest.NewRequest(http.MethodGet, "/admin/users/12", nil)
	req.AddCookie(cookie("imc_token", admin))
	resp := do(t, s, req)
	page := body(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `action="/admin/users/12"`)
	assert.Contains(t, page, `value="a@example.com"`)
	assert.Contains(t, page, `name="_token"`)

	req = signedForm(t, s, "/admin/users/12", url.Values{"first_name": {" Aminah "}, "last_name": {""}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/users", resp.Header.Get("Location"))

	last := b.last()
	assert.Equal(t, http.MethodPatch, last.Method)
	var sent map[string]any
	require.NoError(t, json.NewDecoder(last.Body).Decode(&sent))
	assert.Equal(t, map[string]any{"first_name": "Aminah"}, sent)

	req = signedForm(t, s, "/admin/users/12", url.Values{"first_name": {"  "}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/users/12", location.Path)
	assert.Equal(t, "no fields to update", location.Query().Get("error"))
	assert.Equal(t, http.MethodPatch, b.last().Method)

	assert.Empty(t, sink.types())
}

func TestAdminEditCourse(t *testing.T) {
	s, b, sink := newServer(t)
	admin := tokenFor(t, "admin", "1")
	b.on(http.MethodGet, "/api/v1/courses", http.StatusOK, []any{
		map[string]any{"id": 30, "title": "Tajweed", "lessons": 4, "is_active": true},
	})
	b.on(http.MethodGet, "/api/v1/courses/30", http.StatusOK, map[string]any{
		"id": 30, "title": "Tajweed", "price": 10, "minAge": 7, "is_active": true,
	})
	b.on(http.MethodPut, "/api/v1/courses/30", http.StatusOK, map[string]any{"id": 30, "title": "Tajweed II"})

	req := httptest.NewRequest(http.MethodGet, "/admin/manage-courses?edit=30", nil)
	req.AddCookie(cookie("imc_token", admin))
	resp := do(t, s, req)
	page := body(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, page, `action="/admin/courses/30"`)
	assert.Contains(t, page, `name="min_age" value="7"`)

	req = signedForm(t, s, "/admin/courses/30", url.Values{"course_name": {"Tajweed II"}, "price": {"12.5"}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/manage-courses", resp.Header.Get("Location"))

	last := b.last()
	assert.Equal(t, http.MethodPut, last.Method)
	var sent map[string]any
	require.NoError(t, json.NewDecoder(last.Body).Decode(&sent))
	assert.Equal(t, "Tajweed II", sent["course_name"])
	assert.Equal(t, 12.5, sent["price"])
	assert.Equal(t, false, sent["is_active"])

	req = signedForm(t, s, "/admin/courses/30", url.Values{"course_name": {"Tajweed"}, "min_age": {"12"}, "age_max": {"8"}})
	req.AddCookie(cookie("imc_token", admin))
	resp = do(t, s, req)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/manage-courses", location.Path)
	assert.Equal(t, "30", location.Query().Get("edit"))
	assert.NotEmpty(t, location.Query().Get("error"))

	require.Equal(t, []auth.ActivityEventType{auth.ActivityEventCourseChanged}, sink.types())
	assert.Equal(t, "update", sink.list[0].Metadata["action"])
	assert.Equal(t, "30", sink.list[0].Metadata["course_id"])
}
