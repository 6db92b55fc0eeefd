package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// Messages shown when the backend gives no explanation
const (
	LoginFailedMessage  = "Login failed. Check your credentials."
	SignupFailedMessage = "Sign up failed."
)

// AuthAPI is the part of the backend the session flows need. *Client
// implements it.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (*AuthResponse, error)
	Register(ctx context.Context, reg Registration) (*AuthResponse, error)
	ListRoles(ctx context.Context) ([]Role, error)
}

// SessionManager runs the login, signup, OAuth and logout flows and keeps
// the session repository in step with them.
type SessionManager struct {
	api         AuthAPI
	sessions    SessionRepository
	activity    ActivitySink
	logger      Logger
	phoneRegion string
}

// ManagerOption configures a SessionManager
type ManagerOption func(*SessionManager)

// WithManagerActivitySink records login, signup and logout events
func WithManagerActivitySink(sink ActivitySink) ManagerOption {
	return func(m *SessionManager) {
		m.activity = sink
	}
}

// WithManagerLogger sets the logger
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *SessionManager) {
		m.logger = logger
	}
}

// WithPhoneRegion sets the region used to parse phone numbers without a
// country prefix. Defaults to US.
func WithPhoneRegion(region string) ManagerOption {
	return func(m *SessionManager) {
		if region != "" {
			m.phoneRegion = strings.ToUpper(region)
		}
	}
}

// NewSessionManager creates a manager
func NewSessionManager(api AuthAPI, sessions SessionRepository, opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		api:         api,
		sessions:    sessions,
		phoneRegion: "US",
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = normalizeLogger(m.logger)
	m.activity = normalizeActivitySink(m.activity)
	return m
}

// Validate checks the login form
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// Validate checks the signup form. Phone numbers are checked separately
// since their validity depends on the region.
func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required.Error("first name is required")),
		validation.Field(&r.LastName, validation.Required.Error("last name is required")),
		validation.Field(&r.Email, validation.Required.Error("email is required"), is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 0).Error("password must be at least 8 characters")),
		validation.Field(&r.RoleName, validation.Required.Error("role is required")),
		validation.Field(&r.DOB, validation.Date("2006-01-02")),
	)
}

// Login authenticates, stores the session and returns the landing route
// for the role of the returned user.
func (m *SessionManager) Login(ctx context.Context, creds Credentials) (Session, string, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := creds.Validate(); err != nil {
		return Session{}, "", validationError(err, "invalid login form")
	}

	resp, err := m.api.Login(ctx, creds)
	if err != nil {
		m.logger.Info("login refused for %s: %v", creds.Email, err)
		emitActivity(ctx, m.activity, m.logger, NewActivityEvent(
			ActivityEventLoginFailure, ActorRef{}, "", map[string]any{"email": creds.Email},
		))
		return Session{}, "", err
	}

	session, err := m.store(ctx, resp)
	if err != nil {
		return Session{}, "", err
	}

	role := profileRole(session)
	emitActivity(ctx, m.activity, m.logger, NewActivityEvent(
		ActivityEventLoginSuccess, ActorFromSession(session), ActorFromSession(session).ID, nil,
	))
	return session, LandingRoute(role), nil
}

// Register creates an account. When the backend answers with a token the
// new session is stored right away.
func (m *SessionManager) Register(ctx context.Context, reg Registration) (Session, string, error) {
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Email = strings.ToLower(strings.TrimSpace(reg.Email))
	reg.Address = strings.TrimSpace(reg.Address)
	reg.RoleName = NormalizeRole(strings.TrimSpace(reg.RoleName))

	if err := reg.Validate(); err != nil {
		return Session{}, "", validationError(err, "invalid signup form")
	}

	phone, err := NormalizePhone(reg.Phone, m.phoneRegion)
	if err != nil {
		return Session{}, "", validationError(err, "invalid signup form")
	}
	reg.Phone = phone

	resp, err := m.api.Register(ctx, reg)
	if err != nil {
		return Session{}, "", err
	}

	role := reg.RoleName
	if resp.User != nil && resp.User.Role != "" {
		role = resp.User.Role
	}

	var session Session
	if resp.BearerToken() != "" {
		if session, err = m.store(ctx, resp); err != nil {
			return Session{}, "", err
		}
	}

	emitActivity(ctx, m.activity, m.logger, NewActivityEvent(
		ActivityEventSignup, ActorFromSession(session), ActorFromSession(session).ID,
		map[string]any{"email": reg.Email, "role": NormalizeRole(role)},
	))
	return session, LandingRoute(role), nil
}

// CompleteOAuth stores the token handed back by the identity provider
// redirect. Without a token the user goes back to login. The landing route
// follows the role parameter, anything but parent or student goes home.
func (m *SessionManager) CompleteOAuth(ctx context.Context, params url.Values) (string, error) {
	token := params.Get("token")
	if token == "" {
		return RouteLogin, nil
	}

	session := Session{Token: token, User: oauthProfile(token, params)}
	if err := m.sessions.Set(ctx, session); err != nil {
		return "", err
	}

	emitActivity(ctx, m.activity, m.logger, NewActivityEvent(
		ActivityEventOAuthLogin, ActorFromSession(session), ActorFromSession(session).ID, nil,
	))

	switch NormalizeRole(params.Get("role")) {
	case RoleParent:
		return RouteParentDashboard, nil
	case RoleStudent:
		return RouteStudentDashboard, nil
	default:
		return RouteHome, nil
	}
}

// Logout clears the live session and drops any parked parent session
// without ever making it live again.
func (m *SessionManager) Logout(ctx context.Context) (string, error) {
	session, err := m.sessions.Get(ctx)
	if err != nil {
		m.logger.Error("read session before logout: %v", err)
	}

	var errs []error
	if err := m.sessions.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.sessions.DiscardBackup(ctx); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session")
	}

	if session.Authenticated() {
		actor := ActorFromSession(session)
		emitActivity(ctx, m.activity, m.logger, NewActivityEvent(ActivityEventLogout, actor, actor.ID, nil))
	}
	return RouteLogin, nil
}

// Current returns the live session
func (m *SessionManager) Current(ctx context.Context) (Session, error) {
	return m.sessions.Get(ctx)
}

// Roles loads the role catalog and picks the default signup role
func (m *SessionManager) Roles(ctx context.Context) ([]Role, string, error) {
	roles, err := m.api.ListRoles(ctx)
	if err != nil {
		return nil, "", err
	}
	return roles, DefaultSignupRole(roles), nil
}

func (m *SessionManager) store(ctx context.Context, resp *AuthResponse) (Session, error) {
	session, err := resp.Session()
	if err != nil {
		return Session{}, err
	}
	if err := m.sessions.Set(ctx, session); err != nil {
		return Session{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store session")
	}
	return session, nil
}

// DefaultSignupRole prefers parent, then the first role of the catalog.
func DefaultSignupRole(roles []Role) string {
	for _, r := range roles {
		if NormalizeRole(r.RoleName) == RoleParent {
			return RoleParent
		}
	}
	if len(roles) > 0 {
		return roles[0].RoleName
	}
	return ""
}

// FindRole looks a role up by name
func FindRole(roles []Role, name string) (Role, bool) {
	for _, r := range roles {
		if NormalizeRole(r.RoleName) == NormalizeRole(name) {
			return r, true
		}
	}
	return Role{}, false
}

// NormalizePhone formats a phone number as E.164. An empty number stays
// empty.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", validation.Errors{"phone": fmt.Errorf("invalid phone number: %v", err)}
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", validation.Errors{"phone": errors.New("invalid phone number")}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// profileRole prefers the role of the stored profile, the token claim is
// the fallback.
func profileRole(s Session) string {
	if s.User != nil && s.User.Role != "" {
		return NormalizeRole(s.User.Role)
	}
	return s.Role()
}

func oauthProfile(token string, params url.Values) *Profile {
	profile := ProfileFromClaims(nilIfMalformed(token))
	if profile == nil {
		profile = &Profile{}
	}

	if id := params.Get("user_id"); id != "" {
		profile.UserID = ID(id)
	}
	if email := params.Get("email"); email != "" {
		profile.Email = email
	}
	if role := params.Get("role"); role != "" {
		profile.Role = NormalizeRole(role)
	}
	if name := params.Get("full_name"); name != "" {
		profile.FullName = name
	}

	if profile.UserID == "" && profile.Email == "" && profile.Role == "" && profile.FullName == "" {
		return nil
	}
	return profile
}

// nilIfMalformed keeps a nil *JWTClaims from turning into a non nil
// AuthClaims interface.
func nilIfMalformed(token string) AuthClaims {
	claims := ParseClaims(token)
	if claims == nil {
		return nil
	}
	return claims
}
