package auth

import (
	"context"
	"time"
)

// Route paths shared by the gateway, the CLI and redirect decisions.
const (
	RouteHome             = "/"
	RouteLogin            = "/login"
	RouteSignup           = "/signup"
	RouteLogout           = "/logout"
	RouteAuthCallback     = "/auth/callback"
	RouteUnauthorized     = "/unauthorized"
	RouteDashboard        = "/dashboard"
	RouteParentDashboard  = "/parent-dashboard"
	RouteStudentDashboard = "/student-dashboard"
	RouteAdminDashboard   = "/admin-dashboard"
)

// GuardStep is one predicate of a guard pipeline. When Allow returns false
// navigation is redirected to Redirect.
type GuardStep struct {
	Name     string
	Allow    func(session Session) bool
	Redirect string
}

// Decision is the outcome of evaluating a pipeline
type Decision struct {
	Allowed  bool
	Redirect string
	// Step is the name of the step that rejected, empty when allowed.
	Step string
}

// GuardPipeline runs its steps in order; the first rejecting step decides.
// Pipelines are built once with the route tree and never mutated.
type GuardPipeline struct {
	steps []GuardStep
}

// NewGuardPipeline creates a pipeline. Steps without a predicate are skipped.
func NewGuardPipeline(steps ...GuardStep) GuardPipeline {
	filtered := make([]GuardStep, 0, len(steps))
	for _, step := range steps {
		if step.Allow == nil {
			continue
		}
		filtered = append(filtered, step)
	}
	return GuardPipeline{steps: filtered}
}

// Then returns a new pipeline with extra steps appended
func (p GuardPipeline) Then(steps ...GuardStep) GuardPipeline {
	all := make([]GuardStep, 0, len(p.steps)+len(steps))
	all = append(all, p.steps...)
	all = append(all, steps...)
	return NewGuardPipeline(all...)
}

// Steps returns the step names in evaluation order
func (p GuardPipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Decide evaluates the pipeline against a session
func (p GuardPipeline) Decide(session Session) Decision {
	for _, step := range p.steps {
		if !step.Allow(session) {
			return Decision{Redirect: step.Redirect, Step: step.Name}
		}
	}
	return Decision{Allowed: true}
}

// Evaluate loads the live session and decides. A storage failure is
// treated as "no session": the user is sent to login.
func (p GuardPipeline) Evaluate(ctx context.Context, repo SessionRepository) Decision {
	session, err := repo.Get(ctx)
	if err != nil {
		session = Session{}
	}
	return p.Decide(session)
}

// RequireAuth only lets sessions with a token through.
func RequireAuth() GuardStep {
	return GuardStep{
		Name:     "authenticated",
		Redirect: RouteLogin,
		Allow: func(s Session) bool {
			return s.Authenticated()
		},
	}
}

// RequireRole only lets through sessions whose token role is in the
// allow-set. Comparison is case-insensitive.
func RequireRole(roles ...string) GuardStep {
	allowed := NewRoleSet(roles...)
	return GuardStep{
		Name:     "role",
		Redirect: RouteUnauthorized,
		Allow: func(s Session) bool {
			return allowed.Contains(s.Role())
		},
	}
}

// RequireUnexpired rejects tokens whose exp claim has passed. Not part of
// the default guards, the backend answers 401 for those anyway.
func RequireUnexpired(now func() time.Time) GuardStep {
	if now == nil {
		now = time.Now
	}
	return GuardStep{
		Name:     "unexpired",
		Redirect: RouteLogin,
		Allow: func(s Session) bool {
			claims := s.Claims()
			if claims == nil {
				return true
			}
			return !claims.IsExpired(now())
		},
	}
}

// NewAuthGuard requires a token
func NewAuthGuard() GuardPipeline {
	return NewGuardPipeline(RequireAuth())
}

// NewRoleGuard requires a token and one of roles. Without a token the
// redirect is always login, whatever the allow-set.
func NewRoleGuard(roles ...string) GuardPipeline {
	return NewGuardPipeline(RequireAuth(), RequireRole(roles...))
}
