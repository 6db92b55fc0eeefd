package web

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	auth "github.com/islamicmasterclass/go-imc-auth"
)

func (s *Server) handleHome(c *fiber.Ctx) error {
	data := fiber.Map{}
	courses, err := s.clientFor(c).ListCourses(c.UserContext(), auth.CourseFilter{ActiveOnly: true, Limit: 100})
	if err != nil {
		s.logger.Error("load course catalog: %v", err)
		data["error"] = auth.ErrorMessage(err, "Courses are not available right now.")
	}
	data["courses"] = courses
	data["home"] = landingFor(s.session(c))
	return s.render(c, fiber.StatusOK, "home", data)
}

func (s *Server) showDashboard(c *fiber.Ctx) error {
	session := s.session(c)
	return s.render(c, fiber.StatusOK, "dashboard", fiber.Map{
		"profile": profileOf(session),
		"home":    auth.LandingRoute(session.Role()),
	})
}

func (s *Server) showParentDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	session := s.session(c)
	client := s.clientFor(c)
	parentID := session.UserID()

	children, err := client.ListChildren(ctx, parentID)
	if err != nil {
		return err
	}

	data := fiber.Map{
		"profile":  profileOf(session),
		"children": children,
		"error":    c.Query("error"),
	}

	selected := auth.ID(c.Query("child"))
	if selected == "" && len(children) > 0 {
		selected = children[0].ID
	}

	if selected != "" {
		data["selected"] = selected

		courses, err := client.ChildCourses(ctx, parentID, selected)
		switch {
		case err == nil:
			data["courses"] = courses
		case auth.IsUnauthorizedError(err):
			data["error"] = auth.ErrorMessage(err, "You are not allowed to see this child.")
		default:
			return err
		}

		if summary, err := client.ChildSummary(ctx, parentID, selected); err == nil {
			data["summary"] = summary
		} else {
			s.logger.Debug("child summary %s: %v", selected, err)
		}
	}

	return s.render(c, fiber.StatusOK, "parent_dashboard", data)
}

func (s *Server) handlePreviewChild(c *fiber.Ctx) error {
	route, err := s.swapper(c).PreviewChild(c.UserContext(), auth.ID(c.Params("id")))
	if err != nil {
		return c.Redirect(auth.RouteParentDashboard+"?error="+url.QueryEscape(previewMessage(err)), fiber.StatusSeeOther)
	}
	return c.Redirect(route, fiber.StatusSeeOther)
}

func (s *Server) handleReturnToParent(c *fiber.Ctx) error {
	route, err := s.swapper(c).BackToParent(c.UserContext())
	if errors.Is(err, auth.ErrNoBackup) {
		return c.Redirect(landingFor(s.session(c)), fiber.StatusSeeOther)
	}
	if err != nil {
		return err
	}
	return c.Redirect(route, fiber.StatusSeeOther)
}

func (s *Server) showStudentDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	session := s.session(c)
	client := s.clientFor(c)
	studentID := session.UserID()

	overview, err := client.StudentDashboard(ctx, studentID)
	if err != nil {
		return err
	}
	courses, err := client.StudentCourses(ctx, studentID)
	if err != nil {
		return err
	}
	upcoming, err := client.UpcomingChapters(ctx, studentID)
	if err != nil {
		s.logger.Debug("upcoming chapters %s: %v", studentID, err)
	}

	return s.render(c, fiber.StatusOK, "student_dashboard", fiber.Map{
		"profile":    profileOf(session),
		"overview":   overview,
		"courses":    courses,
		"upcoming":   upcoming,
		"previewing": s.swapper(c).Previewing(ctx),
	})
}

func previewMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrBackupExists):
		return "A preview is already active, return to your account first."
	case errors.Is(err, auth.ErrNotParent):
		return "Only parents can preview a child account."
	default:
		return auth.ErrorMessage(err, "Could not open the child account.")
	}
}

// profileOf returns the stored profile, or one built from the token.
func profileOf(session auth.Session) *auth.Profile {
	if session.User != nil {
		return session.User
	}
	if claims := session.Claims(); claims != nil {
		return auth.ProfileFromClaims(claims)
	}
	return nil
}
