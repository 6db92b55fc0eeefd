package web

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	auth "github.com/islamicmasterclass/go-imc-auth"
)

const (
	routeAdminUsers   = "/admin/users"
	routeAdminCourses = "/admin/manage-courses"
)

func (s *Server) showAdminDashboard(c *fiber.Ctx) error {
	ctx := c.UserContext()
	client := s.clientFor(c)

	stats, err := client.AdminStats(ctx)
	if err != nil {
		return err
	}

	data := fiber.Map{"stats": stats}
	if feed, err := client.AdminRecentActivity(ctx, 10); err == nil {
		data["activities"] = feed.Activities
	} else {
		s.logger.Error("recent activity: %v", err)
	}
	return s.render(c, fiber.StatusOK, "admin_dashboard", data)
}

func (s *Server) showAdminUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	client := s.clientFor(c)

	filter := auth.UserFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}

	page, err := client.ListUsers(ctx, filter)
	if err != nil {
		return err
	}

	data := fiber.Map{
		"users":  page.Users,
		"total":  page.Total,
		"filter": filter,
		"error":  c.Query("error"),
	}
	if stats, err := client.UserStats(ctx); err == nil {
		data["user_stats"] = stats
	}
	return s.render(c, fiber.StatusOK, "admin_users", data)
}

func (s *Server) showAdminUser(c *fiber.Ctx) error {
	user, err := s.clientFor(c).GetUser(c.UserContext(), auth.ID(c.Params("id")))
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "admin_user", fiber.Map{
		"user":  user,
		"error": c.Query("error"),
	})
}

func (s *Server) handleUpdateUser(c *fiber.Ctx) error {
	id := auth.ID(c.Params("id"))
	back := routeAdminUsers + "/" + url.PathEscape(id.String())

	if err := s.clientFor(c).UpdateUser(c.UserContext(), id, userForm(c)); err != nil {
		return redirectWithError(c, back, formMessage(err, "Could not update the user."))
	}
	return c.Redirect(routeAdminUsers, fiber.StatusSeeOther)
}

func (s *Server) handleToggleUser(c *fiber.Ctx) error {
	id := auth.ID(c.Params("id"))

	result, err := s.clientFor(c).ToggleUserActive(c.UserContext(), id)
	if err != nil {
		return redirectWithError(c, routeAdminUsers, auth.ErrorMessage(err, "Could not update the user."))
	}

	s.record(c, auth.ActivityEventUserActiveToggled, id.String(), map[string]any{
		"is_active": result.IsActive,
	})
	return c.Redirect(routeAdminUsers, fiber.StatusSeeOther)
}

func (s *Server) showManageCourses(c *fiber.Ctx) error {
	ctx := c.UserContext()
	client := s.clientFor(c)

	courses, err := client.ListCourses(ctx, auth.CourseFilter{Limit: 100, Search: c.Query("search")})
	if err != nil {
		return err
	}

	data := fiber.Map{
		"courses": courses,
		"error":   c.Query("error"),
	}

	if selected := auth.ID(c.Query("course")); selected != "" {
		chapters, err := client.ListChapters(ctx, selected)
		if err != nil {
			return err
		}
		data["selected"] = selected
		data["chapters"] = chapters
	}

	if editing := auth.ID(c.Query("edit")); editing != "" {
		course, err := client.GetCourse(ctx, editing)
		if err != nil {
			return err
		}
		data["editing"] = course
	}
	return s.render(c, fiber.StatusOK, "admin_courses", data)
}

func (s *Server) handleCreateCourse(c *fiber.Ctx) error {
	in, err := courseForm(c)
	if err != nil {
		return redirectWithError(c, routeAdminCourses, formMessage(err, "Could not create the course."))
	}

	course, err := s.clientFor(c).CreateCourse(c.UserContext(), in)
	if err != nil {
		return redirectWithError(c, routeAdminCourses, formMessage(err, "Could not create the course."))
	}

	s.record(c, auth.ActivityEventCourseChanged, "", map[string]any{
		"action":    "create",
		"course_id": course.ID.String(),
	})
	return c.Redirect(routeAdminCourses, fiber.StatusSeeOther)
}

func (s *Server) handleUpdateCourse(c *fiber.Ctx) error {
	id := auth.ID(c.Params("id"))
	back := routeAdminCourses + "?edit=" + url.QueryEscape(id.String())

	in, err := courseForm(c)
	if err != nil {
		return redirectWithError(c, back, formMessage(err, "Could not update the course."))
	}

	if _, err := s.clientFor(c).UpdateCourse(c.UserContext(), id, in); err != nil {
		return redirectWithError(c, back, formMessage(err, "Could not update the course."))
	}

	s.record(c, auth.ActivityEventCourseChanged, "", map[string]any{
		"action":    "update",
		"course_id": id.String(),
	})
	return c.Redirect(routeAdminCourses, fiber.StatusSeeOther)
}

func (s *Server) handleDeleteCourse(c *fiber.Ctx) error {
	id := auth.ID(c.Params("id"))

	if err := s.clientFor(c).DeleteCourse(c.UserContext(), id); err != nil {
		return redirectWithError(c, routeAdminCourses, auth.ErrorMessage(err, "Could not delete the course."))
	}

	s.record(c, auth.ActivityEventCourseChanged, "", map[string]any{
		"action":    "delete",
		"course_id": id.String(),
	})
	return c.Redirect(routeAdminCourses, fiber.StatusSeeOther)
}

func (s *Server) handleCreateChapter(c *fiber.Ctx) error {
	courseID, _ := strconv.ParseInt(c.FormValue("course_id"), 10, 64)
	order, _ := strconv.Atoi(c.FormValue("chapter_order"))

	in := auth.ChapterInput{
		CourseID:     courseID,
		Title:        strings.TrimSpace(c.FormValue("title")),
		ChapterOrder: order,
	}
	back := routeAdminCourses + "?course=" + url.QueryEscape(c.FormValue("course_id"))

	chapter, err := s.clientFor(c).CreateChapter(c.UserContext(), in)
	if err != nil {
		return redirectWithError(c, back, formMessage(err, "Could not create the chapter."))
	}

	s.record(c, auth.ActivityEventChapterCreated, "", map[string]any{
		"chapter_id": chapter.ChapterID.String(),
		"course_id":  chapter.CourseID.String(),
	})
	return c.Redirect(back, fiber.StatusSeeOther)
}

// courseForm reads the course form. Empty numeric fields stay unset.
func courseForm(c *fiber.Ctx) (auth.CourseInput, error) {
	in := auth.CourseInput{
		CourseName:  strings.TrimSpace(c.FormValue("course_name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Level:       c.FormValue("level"),
		Category:    c.FormValue("category"),
	}

	if v := strings.TrimSpace(c.FormValue("price")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return in, badField("price", "must be a number")
		}
		in.Price = &price
	}

	for field, dst := range map[string]**int{"min_age": &in.MinAge, "age_max": &in.MaxAge} {
		v := strings.TrimSpace(c.FormValue(field))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, badField(field, "must be a whole number")
		}
		*dst = &n
	}

	active := c.FormValue("is_active") != ""
	in.IsActive = &active
	return in, nil
}

// userForm keeps the non empty fields of the edit form. Blank inputs leave
// the stored value alone.
func userForm(c *fiber.Ctx) auth.UserUpdate {
	field := func(name string) *string {
		v := strings.TrimSpace(c.FormValue(name))
		if v == "" {
			return nil
		}
		return &v
	}
	return auth.UserUpdate{
		FirstName: field("first_name"),
		LastName:  field("last_name"),
		Email:     field("email"),
		Phone:     field("phone"),
		Gender:    field("gender"),
		Address:   field("address"),
		DOB:       field("dob"),
	}
}

func badField(field, message string) error {
	return goerrors.NewValidation("invalid course", goerrors.FieldError{Field: field, Message: message}).
		WithCode(fiber.StatusUnprocessableEntity).
		WithTextCode("VALIDATION_FAILED")
}

func redirectWithError(c *fiber.Ctx, route, message string) error {
	sep := "?"
	if strings.Contains(route, "?") {
		sep = "&"
	}
	return c.Redirect(route+sep+"error="+url.QueryEscape(message), fiber.StatusSeeOther)
}
