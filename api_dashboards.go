package auth

import (
	"context"
	"net/url"
)

// ListChildren returns the students linked to a parent
func (c *Client) ListChildren(ctx context.Context, parentID ID) ([]Child, error) {
	out := []Child{}
	if err := c.Get(ctx, "/api/v1/parent/children", idQuery("parent_id", parentID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChildCourses returns the active enrollments of a child. The backend
// answers 403 when the child is not linked to the parent.
func (c *Client) ChildCourses(ctx context.Context, parentID, childID ID) ([]Enrollment, error) {
	out := []Enrollment{}
	if err := c.Get(ctx, childPath(childID)+"/courses", idQuery("parent_id", parentID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChildSummary returns a child's overall performance
func (c *Client) ChildSummary(ctx context.Context, parentID, childID ID) (*ChildSummary, error) {
	out := &ChildSummary{}
	if err := c.Get(ctx, childPath(childID)+"/summary", idQuery("parent_id", parentID), out); err != nil {
		return nil, err
	}
	return out, nil
}

// StudentCourses returns the active enrollments of a student
func (c *Client) StudentCourses(ctx context.Context, studentID ID) ([]Enrollment, error) {
	out := []Enrollment{}
	if err := c.Get(ctx, "/api/v1/student/courses", idQuery("student_id", studentID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StudentDashboard returns the student dashboard counters
func (c *Client) StudentDashboard(ctx context.Context, studentID ID) (*StudentOverview, error) {
	out := &StudentOverview{}
	if err := c.Get(ctx, "/api/v1/student/dashboard", idQuery("student_id", studentID), out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpcomingChapters returns the next chapters the student has not completed
func (c *Client) UpcomingChapters(ctx context.Context, studentID ID) ([]UpcomingChapter, error) {
	out := []UpcomingChapter{}
	if err := c.Get(ctx, "/api/v1/student/chapters/upcoming", idQuery("student_id", studentID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func idQuery(name string, id ID) url.Values {
	q := url.Values{}
	if id != "" {
		q.Set(name, id.String())
	}
	return q
}

func childPath(id ID) string {
	return "/api/v1/parent/children/" + url.PathEscape(id.String())
}
