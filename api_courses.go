package auth

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ListCourses returns the course catalog, newest first
func (c *Client) ListCourses(ctx context.Context, filter CourseFilter) ([]Course, error) {
	q := url.Values{}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		q.Set("offset", strconv.Itoa(filter.Offset))
	}
	if filter.ActiveOnly {
		q.Set("active_only", "true")
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}

	out := []Course{}
	if err := c.Get(ctx, "/api/v1/courses", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCourse returns a single course
func (c *Client) GetCourse(ctx context.Context, id ID) (*Course, error) {
	out := &Course{}
	if err := c.Get(ctx, coursePath(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCourse adds a course to the catalog
func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	if err := in.ValidateCreate(); err != nil {
		return nil, validationError(err, "invalid course")
	}
	out := &Course{}
	if err := c.Post(ctx, "/api/v1/courses", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCourse changes the fields set in in
func (c *Client) UpdateCourse(ctx context.Context, id ID, in CourseInput) (*Course, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err, "invalid course")
	}
	out := &Course{}
	if err := c.Put(ctx, coursePath(id), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCourse removes a course
func (c *Client) DeleteCourse(ctx context.Context, id ID) error {
	return c.Delete(ctx, coursePath(id))
}

// CreateChapter adds a chapter to a course
func (c *Client) CreateChapter(ctx context.Context, in ChapterInput) (*Chapter, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err, "invalid chapter")
	}
	out := &Chapter{}
	if err := c.Post(ctx, "/api/v1/chapters/", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChapters returns the chapters of a course in order
func (c *Client) ListChapters(ctx context.Context, courseID ID) ([]Chapter, error) {
	out := []Chapter{}
	path := "/api/v1/chapters/course/" + url.PathEscape(courseID.String())
	if err := c.Get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func coursePath(id ID) string {
	return "/api/v1/courses/" + url.PathEscape(id.String())
}

// Validate checks the ranges of the fields that are set. Updates are
// partial so nothing is required.
func (in CourseInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Price, validation.Min(0.0).Error("price can not be negative")),
		validation.Field(&in.MinAge, validation.Min(0).Error("minimum age can not be negative")),
		validation.Field(&in.MaxAge, validation.Min(0).Error("maximum age can not be negative"), validation.By(in.ageRange)),
	)
}

// ValidateCreate also requires a course name
func (in CourseInput) ValidateCreate() error {
	err := validation.Validate(in.CourseName, validation.Required.Error("course name is required"))
	if err != nil {
		return validation.Errors{"course_name": err}
	}
	return in.Validate()
}

func (in CourseInput) ageRange(any) error {
	if in.MinAge != nil && in.MaxAge != nil && *in.MaxAge < *in.MinAge {
		return errors.New("maximum age must not be below minimum age")
	}
	return nil
}

// Validate checks the chapter form
func (in ChapterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CourseID, validation.Required.Error("course is required")),
		validation.Field(&in.Title, validation.Required.Error("title is required")),
		validation.Field(&in.ChapterOrder, validation.Required.Error("chapter order is required"), validation.Min(1)),
	)
}
