package guardware

import (
	"github.com/gofiber/fiber/v2"
	auth "github.com/islamicmasterclass/go-imc-auth"
)

// SessionListener is invoked after a request was allowed through, before
// the handler runs.
type SessionListener func(c *fiber.Ctx, session auth.Session) error

type Config struct {
	// Filter skips the middleware when it returns true.
	Filter func(*fiber.Ctx) bool

	// Pipeline decides whether the request may proceed.
	Pipeline auth.GuardPipeline

	// Sessions returns the repository holding the session of the
	// browser that sent the request. Required.
	Sessions func(*fiber.Ctx) auth.SessionRepository

	SuccessHandler fiber.Handler

	// RedirectHandler runs when the pipeline rejects the request. The
	// default sends a 302 for GET and HEAD, and a 303 otherwise.
	RedirectHandler func(c *fiber.Ctx, decision auth.Decision) error

	// ContextKey is the Locals key for the auth.Session.
	ContextKey string
	// ClaimsKey is the Locals key for the decoded claims.
	ClaimsKey string
	// TemplateUserKey is the Locals key for the profile rendered by views.
	TemplateUserKey string

	Listeners []SessionListener

	Logger auth.Logger
}

// New creates a fiber middleware running cfg.Pipeline for every request.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		session, err := cfg.Sessions(c).Get(c.UserContext())
		if err != nil {
			cfg.Logger.Debug("guard: session unreadable, treating as anonymous: %v", err)
			session = auth.Session{}
		}

		decision := cfg.Pipeline.Decide(session)
		if !decision.Allowed {
			cfg.Logger.Debug("guard: %s %s rejected by %q", c.Method(), c.Path(), decision.Step)
			return cfg.RedirectHandler(c, decision)
		}

		for _, listener := range cfg.Listeners {
			if listener == nil {
				continue
			}
			if err := listener(c, session); err != nil {
				return err
			}
		}

		Attach(c, cfg, session)
		return cfg.SuccessHandler(c)
	}
}

// Attach stores the session on the request: in Locals for handlers and
// views, and in the user context for code below the handler.
func Attach(c *fiber.Ctx, cfg Config, session auth.Session) {
	c.Locals(cfg.ContextKey, session)

	ctx := auth.WithSessionContext(c.UserContext(), session)
	if claims := session.Claims(); claims != nil {
		c.Locals(cfg.ClaimsKey, claims)
		ctx = auth.WithClaimsContext(ctx, claims)
	}

	if session.User != nil {
		c.Locals(cfg.TemplateUserKey, session.User)
	} else if claims := session.Claims(); claims != nil {
		c.Locals(cfg.TemplateUserKey, auth.ProfileFromClaims(claims))
	}

	c.SetUserContext(ctx)
}

// SessionFrom returns the session stored by the middleware.
func SessionFrom(c *fiber.Ctx, key ...string) (auth.Session, bool) {
	k := defaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	session, ok := c.Locals(k).(auth.Session)
	return session, ok
}

const (
	defaultContextKey      = "session"
	defaultClaimsKey       = "claims"
	defaultTemplateUserKey = auth.TemplateUserKey
)

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Sessions == nil {
		panic("IMC: guard middleware configuration: Sessions is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.RedirectHandler == nil {
		cfg.RedirectHandler = DefaultRedirect
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = defaultClaimsKey
	}

	if cfg.TemplateUserKey == "" {
		cfg.TemplateUserKey = defaultTemplateUserKey
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.NopLogger{}
	}

	return cfg
}

// DefaultRedirect sends the browser to decision.Redirect. POST forms get a
// 303 so the follow-up request is a GET.
func DefaultRedirect(c *fiber.Ctx, decision auth.Decision) error {
	status := fiber.StatusFound
	if c.Method() != fiber.MethodGet && c.Method() != fiber.MethodHead {
		status = fiber.StatusSeeOther
	}
	return c.Redirect(decision.Redirect, status)
}
