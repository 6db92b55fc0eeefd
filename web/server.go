package web

import (
	"context"
	"embed"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/middleware/guardware"
)

//go:embed views
var viewsFS embed.FS

const (
	localsSessions  = "imc_sessions"
	localsRequestID = "request_id"
	localsCSRF      = "csrf_token"
	headerRequestID = "X-Request-ID"

	// CSRFCookieName holds the anti forgery token of a browser
	CSRFCookieName = "imc_csrf"
)

// Server is the browser gateway: it serves the pages of the platform and
// keeps each browser session in cookies.
type Server struct {
	app      *fiber.App
	client   *auth.Client
	cookies  CookieOptions
	activity auth.ActivitySink
	logger   auth.Logger
}

// Option configures a Server
type Option func(*Server)

// WithClient replaces the backend client built from the config.
func WithClient(client *auth.Client) Option {
	return func(s *Server) {
		s.client = client
	}
}

// WithActivitySink records session and admin events
func WithActivitySink(sink auth.ActivitySink) Option {
	return func(s *Server) {
		s.activity = sink
	}
}

// WithLogger sets the logger
func WithLogger(logger auth.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates the gateway and registers every route.
func New(cfg auth.Config, opts ...Option) *Server {
	s := &Server{
		cookies: CookieOptions{
			Secure: cfg.GetCookieSecure(),
			TTL:    cfg.GetCookieTTL(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = auth.DefaultLogger()
	}
	if s.activity == nil {
		s.activity = auth.ActivitySinkFunc(nil)
	}
	if s.client == nil {
		s.client = auth.NewClientFromConfig(cfg, nil, s.logger)
	}

	engine := django.NewPathForwardingFileSystem(http.FS(viewsFS), "/views", ".html")
	engine.AddFuncMap(auth.TemplateHelpers())

	s.app = fiber.New(fiber.Config{
		Views:                 engine,
		ViewsLayout:           "layout",
		PassLocalsToViews:     true,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(requestID)
	s.app.Use(s.csrfProtection())
	s.routes()

	return s
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("gateway listening on %s, backend %s", addr, s.client.BaseURL())
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	authGuard := s.guard(auth.NewAuthGuard())
	parentGuard := s.guard(auth.NewRoleGuard(auth.RoleParent))
	studentGuard := s.guard(auth.NewRoleGuard(auth.RoleStudent))
	adminGuard := s.guard(auth.NewRoleGuard(auth.RoleAdmin))

	s.app.Get(auth.RouteHome, s.handleHome)
	s.app.Get(auth.RouteLogin, s.showLogin)
	s.app.Post(auth.RouteLogin, s.handleLogin)
	s.app.Get(auth.RouteSignup, s.showSignup)
	s.app.Post(auth.RouteSignup, s.handleSignup)
	s.app.Get(auth.RouteAuthCallback, s.handleOAuthCallback)
	s.app.Post(auth.RouteLogout, s.handleLogout)
	s.app.Get(auth.RouteUnauthorized, s.showUnauthorized)

	s.app.Get(auth.RouteDashboard, authGuard, s.showDashboard)
	s.app.Post("/parent/return", authGuard, s.handleReturnToParent)

	s.app.Get(auth.RouteParentDashboard, parentGuard, s.showParentDashboard)
	s.app.Post("/parent/children/:id/preview", parentGuard, s.handlePreviewChild)

	s.app.Get(auth.RouteStudentDashboard, studentGuard, s.showStudentDashboard)

	s.app.Get(auth.RouteAdminDashboard, adminGuard, s.showAdminDashboard)
	s.app.Get("/admin/users", adminGuard, s.showAdminUsers)
	s.app.Get("/admin/users/:id", adminGuard, s.showAdminUser)
	s.app.Post("/admin/users/:id", adminGuard, s.handleUpdateUser)
	s.app.Post("/admin/users/:id/toggle-active", adminGuard, s.handleToggleUser)
	s.app.Get("/admin/manage-courses", adminGuard, s.showManageCourses)
	s.app.Post("/admin/courses", adminGuard, s.handleCreateCourse)
	s.app.Post("/admin/courses/:id", adminGuard, s.handleUpdateCourse)
	s.app.Post("/admin/courses/:id/delete", adminGuard, s.handleDeleteCourse)
	s.app.Post("/admin/chapters", adminGuard, s.handleCreateChapter)

	// anything else shows the login page
	s.app.Use(s.showLogin)
}

func (s *Server) guard(pipeline auth.GuardPipeline) fiber.Handler {
	return guardware.New(guardware.Config{
		Pipeline: pipeline,
		Sessions: s.sessions,
		Logger:   s.logger,
	})
}

// sessions returns the session repository of the browser that sent c. The
// same instance is shared by the middleware and the handler.
func (s *Server) sessions(c *fiber.Ctx) auth.SessionRepository {
	if repo, ok := c.Locals(localsSessions).(auth.SessionRepository); ok {
		return repo
	}
	repo := auth.NewStorageSessions(
		NewCookieStorage(c, s.cookies),
		auth.WithSessionLogger(s.logger),
	)
	c.Locals(localsSessions, repo)
	return repo
}

func (s *Server) clientFor(c *fiber.Ctx) *auth.Client {
	return s.client.WithSessions(s.sessions(c))
}

func (s *Server) manager(c *fiber.Ctx) *auth.SessionManager {
	return auth.NewSessionManager(s.clientFor(c), s.sessions(c),
		auth.WithManagerActivitySink(s.activity),
		auth.WithManagerLogger(s.logger),
	)
}

func (s *Server) swapper(c *fiber.Ctx) *auth.SessionSwapper {
	return auth.NewSessionSwapper(s.sessions(c), s.clientFor(c),
		auth.WithSwapActivitySink(s.activity),
		auth.WithSwapLogger(s.logger),
	)
}

// session returns the session attached by the guard, or reads it when the
// route is public.
func (s *Server) session(c *fiber.Ctx) auth.Session {
	if session, ok := guardware.SessionFrom(c); ok {
		return session
	}
	session, err := s.sessions(c).Get(c.UserContext())
	if err != nil {
		return auth.Session{}
	}
	return session
}

func (s *Server) render(c *fiber.Ctx, status int, name string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	helpers := auth.TemplateHelpersWithSession(s.session(c))
	if token, ok := c.Locals(localsCSRF).(string); ok {
		for key, value := range auth.CSRFTemplateHelpers(token) {
			helpers[key] = value
		}
	}
	for key, value := range helpers {
		if _, ok := data[key]; !ok {
			data[key] = value
		}
	}
	return c.Status(status).Render(name, data)
}

func (s *Server) record(c *fiber.Ctx, kind auth.ActivityEventType, userID string, metadata map[string]any) {
	actor := auth.ActorFromSession(s.session(c))
	event := auth.NewActivityEvent(kind, actor, userID, metadata)
	if err := s.activity.Record(c.UserContext(), event); err != nil {
		s.logger.Error("record activity %s: %v", kind, err)
	}
}

// csrfProtection checks the form token of every state changing request a
// signed in browser can make. The login and signup forms carry no session
// and are left out.
func (s *Server) csrfProtection() fiber.Handler {
	return csrf.New(csrf.Config{
		Next: func(c *fiber.Ctx) bool {
			if c.Method() != fiber.MethodPost {
				return false
			}
			return c.Path() == auth.RouteLogin || c.Path() == auth.RouteSignup
		},
		KeyLookup:      "form:" + auth.CSRFFieldName,
		CookieName:     CSRFCookieName,
		CookiePath:     "/",
		CookieSecure:   s.cookies.Secure,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		Expiration:     s.cookies.TTL,
		ContextKey:     localsCSRF,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "The form has expired, reload the page and try again.").
				WithCode(fiber.StatusForbidden).
				WithTextCode("CSRF_REJECTED")
		},
	})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		err = goerrors.Wrap(fe, goerrors.HTTPStatusToCategory(fe.Code), fe.Message).WithCode(fe.Code)
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	s.logger.Error(
		"request %v %s %s failed: %s category=%s text_code=%s details=%s",
		c.Locals(localsRequestID), c.Method(), c.Path(),
		richErr.Message, richErr.Category, richErr.TextCode,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	code := auth.StatusCode(richErr)
	message := auth.ErrorMessage(err, "Something went wrong, please try again.")

	switch richErr.Category {
	case goerrors.CategoryAuth:
		// the backend no longer accepts the token
		return c.Redirect(auth.RouteLogin, fiber.StatusFound)
	case goerrors.CategoryAuthz:
		return c.Redirect(auth.RouteUnauthorized, fiber.StatusFound)
	case goerrors.CategoryExternal:
		code = fiber.StatusBadGateway
	case goerrors.CategoryBadInput, goerrors.CategoryValidation, goerrors.CategoryNotFound, goerrors.CategoryConflict:
		if _, isAPIErr := apiError(err); !isAPIErr {
			message = richErr.Message
		}
	}

	if renderErr := c.Status(code).Render("error", fiber.Map{"message": message, "status": code}); renderErr != nil {
		return c.Status(code).SendString(message)
	}
	return nil
}

func apiError(err error) (*auth.APIError, bool) {
	var apiErr *auth.APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func requestID(c *fiber.Ctx) error {
	id := c.Get(headerRequestID)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	c.Locals(localsRequestID, id)
	c.Set(headerRequestID, id)
	return c.Next()
}
