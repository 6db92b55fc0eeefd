package web

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/islamicmasterclass/go-imc-auth"
)

func (s *Server) showLogin(c *fiber.Ctx) error {
	data := fiber.Map{}
	if c.Query("registered") != "" {
		data["notice"] = "Account created, you can sign in now."
	}
	return s.render(c, fiber.StatusOK, "login", data)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	creds := auth.Credentials{
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
	}

	_, route, err := s.manager(c).Login(c.UserContext(), creds)
	if err != nil {
		return s.render(c, formStatus(err), "login", fiber.Map{
			"error": formMessage(err, auth.LoginFailedMessage),
			"email": creds.Email,
		})
	}
	return c.Redirect(route, fiber.StatusSeeOther)
}

func (s *Server) showSignup(c *fiber.Ctx) error {
	return s.renderSignup(c, fiber.StatusOK, fiber.Map{})
}

func (s *Server) renderSignup(c *fiber.Ctx, status int, data fiber.Map) error {
	roles, defaultRole, err := s.manager(c).Roles(c.UserContext())
	if err != nil {
		s.logger.Error("load roles: %v", err)
		roles = []auth.Role{{RoleName: auth.RoleParent}, {RoleName: auth.RoleStudent}}
		defaultRole = auth.RoleParent
	}

	offered := make([]auth.Role, 0, len(roles))
	for _, r := range roles {
		if auth.IsSignupRole(r.RoleName) {
			offered = append(offered, r)
		}
	}
	if len(offered) == 0 {
		offered = roles
	}

	data["roles"] = offered
	if _, ok := data["selected_role"]; !ok {
		data["selected_role"] = defaultRole
	}
	return s.render(c, status, "signup", data)
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	mgr := s.manager(c)

	reg := auth.Registration{
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
		Phone:     c.FormValue("phone"),
		DOB:       c.FormValue("dob"),
		Gender:    c.FormValue("gender"),
		Address:   c.FormValue("address"),
		RoleName:  c.FormValue("role_name"),
	}

	if roles, _, err := mgr.Roles(c.UserContext()); err == nil {
		if role, ok := auth.FindRole(roles, reg.RoleName); ok {
			reg.RoleID = role.RoleID
		}
	}

	session, route, err := mgr.Register(c.UserContext(), reg)
	if err != nil {
		return s.renderSignup(c, formStatus(err), fiber.Map{
			"error":         formMessage(err, auth.SignupFailedMessage),
			"form":          reg,
			"selected_role": auth.NormalizeRole(reg.RoleName),
		})
	}

	if !session.Authenticated() {
		return c.Redirect(auth.RouteLogin+"?registered=1", fiber.StatusSeeOther)
	}
	return c.Redirect(route, fiber.StatusSeeOther)
}

func (s *Server) handleOAuthCallback(c *fiber.Ctx) error {
	params, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return c.Redirect(auth.RouteLogin, fiber.StatusFound)
	}

	route, err := s.manager(c).CompleteOAuth(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.Redirect(route, fiber.StatusFound)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	route, err := s.manager(c).Logout(c.UserContext())
	if err != nil {
		return err
	}
	return c.Redirect(route, fiber.StatusSeeOther)
}

func (s *Server) showUnauthorized(c *fiber.Ctx) error {
	session := s.session(c)
	return s.render(c, fiber.StatusForbidden, "unauthorized", fiber.Map{
		"home": landingFor(session),
	})
}

// formStatus maps the error category of a rejected form to the status the
// page is rendered with.
func formStatus(err error) int {
	switch {
	case auth.IsValidationError(err):
		return fiber.StatusUnprocessableEntity
	case auth.IsUnauthorizedError(err):
		return fiber.StatusUnauthorized
	case goerrors.IsCategory(err, goerrors.CategoryExternal):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusBadRequest
	}
}

// formMessage is what the form shows for err. Only input errors carry a
// message meant for the user, anything else reads as fallback.
func formMessage(err error, fallback string) string {
	if _, ok := apiError(err); ok || auth.IsValidationError(err) {
		return auth.ErrorMessage(err, fallback)
	}
	if goerrors.IsCategory(err, goerrors.CategoryBadInput) {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr.Message
		}
	}
	return fallback
}

func landingFor(session auth.Session) string {
	if !session.Authenticated() {
		return auth.RouteLogin
	}
	return auth.LandingRoute(session.Role())
}
