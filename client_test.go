package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/islamicmasterclass/go-imc-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          string
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{routes: map[string]http.HandlerFunc{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fb.mu.Lock()
		fb.requests = append(fb.requests, recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		h, ok := fb.routes[r.Method+" "+r.URL.Path]
		fb.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not Found"})
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

func (fb *fakeBackend) on(method, path string, h http.HandlerFunc) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.routes[method+" "+path] = h
}

func (fb *fakeBackend) last() recorded {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.requests) == 0 {
		return recorded{}
	}
	return fb.requests[len(fb.requests)-1]
}

func (fb *fakeBackend) count() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return len(fb.requests)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, v)
	}
}

func newTestClient(srv *httptest.Server, repo auth.SessionRepository) *auth.Client {
	return auth.NewClient(
		auth.WithBaseURL(srv.URL+"/"),
		auth.WithHTTPClient(srv.Client()),
		auth.WithSessionRepository(repo),
		auth.WithClientLogger(auth.NopLogger{}),
	)
}

func TestClient_BearerInjection(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/courses", respond(http.StatusOK, []any{}))

	repo, _ := newRepo()
	client := newTestClient(srv, repo)

	_, err := client.ListCourses(ctx, auth.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "", fb.last().Authorization)

	require.NoError(t, repo.Set(ctx, auth.Session{Token: "first"}))
	_, err = client.ListCourses(ctx, auth.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer first", fb.last().Authorization)

	// read on every request, never cached
	require.NoError(t, repo.Set(ctx, auth.Session{Token: "second"}))
	_, err = client.ListCourses(ctx, auth.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", fb.last().Authorization)
}

func TestClient_WithSessions(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/courses", respond(http.StatusOK, []any{}))

	a, _ := newRepo(map[string]string{"imc_token": "token-a"})
	b, _ := newRepo(map[string]string{"imc_token": "token-b"})

	base := newTestClient(srv, a)
	other := base.WithSessions(b)

	_, err := other.ListCourses(ctx, auth.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-b", fb.last().Authorization)

	_, err = base.ListCourses(ctx, auth.CourseFilter{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-a", fb.last().Authorization)

	assert.Same(t, b, other.Sessions())
	assert.Equal(t, srv.URL, base.BaseURL())
}

func TestClient_APIError(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	client := newTestClient(srv, nil)

	tests := []struct {
		name     string
		status   int
		body     any
		message  string
		category goerrors.Category
	}{
		{name: "detail", status: 401, body: map[string]any{"detail": "Invalid credentials"}, message: "Invalid credentials", category: goerrors.CategoryAuth},
		{name: "forbidden", status: 403, body: map[string]any{"detail": "Not authorized"}, message: "Not authorized", category: goerrors.CategoryAuthz},
		{name: "not found", status: 404, body: map[string]any{"detail": "Course not found"}, message: "Course not found", category: goerrors.CategoryNotFound},
		{name: "message", status: 500, body: map[string]any{"message": "boom"}, message: "boom", category: goerrors.CategoryExternal},
		{name: "detail wins", status: 400, body: map[string]any{"detail": "d", "message": "m"}, message: "d", category: goerrors.CategoryBadInput},
		{
			name:     "validation list",
			status:   422,
			body:     map[string]any{"detail": []any{map[string]any{"loc": []any{"body", "email"}, "msg": "field required"}}},
			message:  "email: field required",
			category: goerrors.CategoryValidation,
		},
		{name: "no explanation", status: 503, body: "down", message: "request failed with status 503", category: goerrors.CategoryExternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb.on(http.MethodGet, "/api/v1/admin/dashboard/stats", respond(tt.status, tt.body))

			_, err := client.AdminStats(ctx)
			require.Error(t, err)

			var apiErr *auth.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Error())

			var richErr *goerrors.Error
			require.ErrorAs(t, err, &richErr)
			assert.Equal(t, tt.category, richErr.Category)
			assert.Equal(t, tt.status, richErr.Code)
			assert.Equal(t, tt.status, auth.StatusCode(err))
			assert.Equal(t, "/api/v1/admin/dashboard/stats", richErr.Metadata["path"])
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	_, srv := newFakeBackend(t)
	client := newTestClient(srv, nil)
	srv.Close()

	_, err := client.AdminStats(context.Background())
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryExternal))
	assert.Equal(t, http.StatusBadGateway, auth.StatusCode(err))
	assert.False(t, auth.IsUnauthorizedError(err))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "", auth.ErrorMessage(nil, "fallback"))
	assert.Equal(t, "fallback", auth.ErrorMessage(io.EOF, "fallback"))
	assert.Equal(t, "fallback", auth.ErrorMessage(&auth.APIError{Status: 500}, "fallback"))
	assert.Equal(t, "nope", auth.ErrorMessage(auth.NewAPIError(401, "nope"), "fallback"))
	assert.Equal(t, "fallback", auth.ErrorMessage(auth.ErrBackupExists, "fallback"))

	_, _, err := auth.NewSessionManager(nil, nil).Login(context.Background(), auth.Credentials{})
	assert.Equal(t, "email: cannot be blank; password: cannot be blank", auth.ErrorMessage(err, "fallback"))
}

func TestClient_NoRetry(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.on(http.MethodGet, "/api/v1/admin/users/stats", respond(http.StatusBadGateway, map[string]any{}))

	_, err := newTestClient(srv, nil).UserStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fb.count())
}

func TestClient_Login(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.on(http.MethodPost, "/api/v1/auth/login", respond(http.StatusOK, map[string]any{
		"token":      "legacy-token",
		"token_type": "bearer",
		"user":       map[string]any{"user_id": 4, "email": "s@example.com", "role": "student"},
	}))

	resp, err := newTestClient(srv, nil).Login(context.Background(), auth.Credentials{Email: "s@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", resp.BearerToken())
	assert.Equal(t, auth.ID("4"), resp.User.UserID)
	assert.JSONEq(t, `{"email":"s@example.com","password":"pw"}`, fb.last().Body)
}

func TestClient_ListRoles(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "array", body: []any{map[string]any{"role_id": 1, "role_name": "student"}, map[string]any{"role_id": 2, "role_name": "parent"}}},
		{name: "items", body: map[string]any{"items": []any{map[string]any{"role_id": 1, "role_name": "student"}, map[string]any{"role_id": 2, "role_name": "parent"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb, srv := newFakeBackend(t)
			fb.on(http.MethodGet, "/api/v1/roles", respond(http.StatusOK, tt.body))

			roles, err := newTestClient(srv, nil).ListRoles(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []auth.Role{{RoleID: 1, RoleName: "student"}, {RoleID: 2, RoleName: "parent"}}, roles)
			assert.Equal(t, "parent", auth.DefaultSignupRole(roles))
		})
	}
}

func TestClient_Admin(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	client := newTestClient(srv, nil)

	fb.on(http.MethodGet, "/api/v1/admin/users", respond(http.StatusOK, map[string]any{
		"users": []any{map[string]any{"user_id": 3, "email": "a@b.co", "first_name": "Ali", "last_name": "Khan", "role": "student", "is_active": true}},
		"total": 1, "limit": 10, "offset": 20,
	}))
	page, err := client.ListUsers(ctx, auth.UserFilter{Search: "ali", Role: "Student", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, "limit=10&offset=20&role=student&search=ali", fb.last().Query)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Ali Khan", page.Users[0].FullName())

	fb.on(http.MethodPatch, "/api/v1/admin/users/3/toggle-active", respond(http.StatusOK, map[string]any{"user_id": 3, "is_active": false, "message": "User deactivated successfully"}))
	toggle, err := client.ToggleUserActive(ctx, "3")
	require.NoError(t, err)
	assert.False(t, toggle.IsActive)

	assert.ErrorIs(t, client.UpdateUser(ctx, "3", auth.UserUpdate{}), auth.ErrEmptyUpdate)

	fb.on(http.MethodPatch, "/api/v1/admin/users/3", respond(http.StatusOK, map[string]any{"message": "User updated successfully"}))
	name := "Aisha"
	require.NoError(t, client.UpdateUser(ctx, "3", auth.UserUpdate{FirstName: &name}))
	assert.JSONEq(t, `{"first_name":"Aisha"}`, fb.last().Body)

	fb.on(http.MethodGet, "/api/v1/admin/dashboard/recent-activity", respond(http.StatusOK, map[string]any{
		"activities": []any{map[string]any{"id": "user_1", "type": "user_registered", "user": map[string]any{"id": 1, "name": "A B"}}},
		"total":      1,
	}))
	feed, err := client.AdminRecentActivity(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "limit=5", fb.last().Query)
	assert.Equal(t, auth.ID("1"), feed.Activities[0].User.ID)
}

func TestClient_Courses(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	client := newTestClient(srv, nil)

	fb.on(http.MethodGet, "/api/v1/courses", respond(http.StatusOK, []any{
		map[string]any{"id": 9, "title": "Seerah", "lessons": 4, "is_active": true, "created_at": "2025-01-02T03:04:05"},
	}))
	courses, err := client.ListCourses(ctx, auth.CourseFilter{Limit: 100, ActiveOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "active_only=true&limit=100", fb.last().Query)
	require.Len(t, courses, 1)
	assert.Equal(t, auth.ID("9"), courses[0].ID)
	assert.Equal(t, 4, courses[0].Lessons)

	fb.on(http.MethodPost, "/api/v1/courses", respond(http.StatusCreated, map[string]any{"id": 10, "title": "Fiqh", "is_active": true}))
	price := 12.5
	created, err := client.CreateCourse(ctx, auth.CourseInput{CourseName: "Fiqh", Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Fiqh", created.Title)
	assert.JSONEq(t, `{"course_name":"Fiqh","price":12.5}`, fb.last().Body)

	fb.on(http.MethodDelete, "/api/v1/courses/10", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, client.DeleteCourse(ctx, "10"))

	fb.on(http.MethodPost, "/api/v1/chapters/", respond(http.StatusOK, map[string]any{"chapter_id": 1, "course_id": 10, "title": "Intro", "chapter_order": 1}))
	chapter, err := client.CreateChapter(ctx, auth.ChapterInput{CourseID: 10, Title: "Intro", ChapterOrder: 1})
	require.NoError(t, err)
	assert.Equal(t, auth.ID("10"), chapter.CourseID)

	fb.on(http.MethodGet, "/api/v1/chapters/course/10", respond(http.StatusOK, []any{}))
	chapters, err := client.ListChapters(ctx, "10")
	require.NoError(t, err)
	assert.Empty(t, chapters)
}

func TestClient_Dashboards(t *testing.T) {
	ctx := context.Background()
	fb, srv := newFakeBackend(t)
	client := newTestClient(srv, nil)

	fb.on(http.MethodGet, "/api/v1/parent/children", respond(http.StatusOK, []any{
		map[string]any{"id": 5, "name": "Yusuf", "email": "y@example.com", "course_count": 2, "avg_progress": 40.5},
	}))
	children, err := client.ListChildren(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "parent_id=1", fb.last().Query)
	assert.Equal(t, 40.5, children[0].AvgProgress)

	fb.on(http.MethodGet, "/api/v1/parent/children/5/summary", respond(http.StatusOK, map[string]any{"id": 5, "total_courses": 2}))
	summary, err := client.ChildSummary(ctx, "1", "5")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalCourses)

	fb.on(http.MethodGet, "/api/v1/parent/children/5/courses", respond(http.StatusForbidden, map[string]any{"detail": "Not authorized"}))
	_, err = client.ChildCourses(ctx, "1", "5")
	assert.True(t, auth.IsUnauthorizedError(err))

	fb.on(http.MethodGet, "/api/v1/student/dashboard", respond(http.StatusOK, map[string]any{"enrolledCourses": 3, "weeklyGoal": 5, "upcomingQuiz": nil}))
	overview, err := client.StudentDashboard(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "student_id=5", fb.last().Query)
	assert.Equal(t, 3, overview.EnrolledCourses)

	fb.on(http.MethodGet, "/api/v1/student/courses", respond(http.StatusOK, []any{map[string]any{"id": 1, "title": "Arabic", "progress": 12.0}}))
	enrolled, err := client.StudentCourses(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Arabic", enrolled[0].Title)

	fb.on(http.MethodGet, "/api/v1/student/chapters/upcoming", respond(http.StatusOK, []any{map[string]any{"id": 2, "course": "Arabic", "title": "Letters", "chapter_order": 1}}))
	upcoming, err := client.UpcomingChapters(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "Letters", upcoming[0].Title)

	_, err = client.GetCourse(ctx, "404")
	assert.True(t, auth.IsNotFoundError(err))
}
