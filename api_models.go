package auth

import "encoding/json"

// AuthResponse is returned by login, registration and child impersonation.
// Older backends send the token as "token".
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	Token       string   `json:"token,omitempty"`
	TokenType   string   `json:"token_type"`
	User        *Profile `json:"user,omitempty"`
}

// BearerToken returns access_token, falling back to token
func (r AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// Session builds the session to store. When the backend omits the user the
// profile is derived from the token claims.
func (r AuthResponse) Session() (Session, error) {
	token := r.BearerToken()
	if token == "" {
		return Session{}, ErrMissingToken
	}
	user := r.User
	if user == nil {
		if claims := ParseClaims(token); claims != nil {
			user = ProfileFromClaims(claims)
		}
	}
	return Session{Token: token, User: user}, nil
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the signup payload
type Registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Address   string `json:"address,omitempty"`
	RoleName  string `json:"role_name,omitempty"`
	RoleID    int64  `json:"role_id,omitempty"`
}

// Role is an entry of the role catalog
type Role struct {
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
}

// AdminStats feeds the admin dashboard tiles
type AdminStats struct {
	TotalUsers       int `json:"totalUsers"`
	TotalCourses     int `json:"totalCourses"`
	TotalEnrollments int `json:"totalEnrollments"`
	ActiveStudents   int `json:"activeStudents"`
}

// ActivityRef points at the user or course an activity is about
type ActivityRef struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Title string `json:"title,omitempty"`
	Email string `json:"email,omitempty"`
}

// Activity is one entry of the admin recent activity feed
type Activity struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Timestamp   string       `json:"timestamp"`
	User        *ActivityRef `json:"user,omitempty"`
	Course      *ActivityRef `json:"course,omitempty"`
}

// ActivityFeed wraps the recent activity list
type ActivityFeed struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

// UserFilter narrows the admin user list
type UserFilter struct {
	Search string
	Role   string
	Status string
	Limit  int
	Offset int
}

// User is an account as seen by administrators
type User struct {
	UserID    ID     `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Address   string `json:"address,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// FullName joins first and last name
func (u User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// UserPage is one page of the admin user list
type UserPage struct {
	Users  []User `json:"users"`
	Total  int    `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// UserStats feeds the manage users page
type UserStats struct {
	Total        int            `json:"total"`
	Active       int            `json:"active"`
	ByRole       map[string]int `json:"byRole"`
	NewThisMonth int            `json:"newThisMonth"`
}

// UserUpdate holds the fields an administrator can change. Nil fields are
// left untouched.
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Gender    *string `json:"gender,omitempty"`
	Address   *string `json:"address,omitempty"`
	DOB       *string `json:"dob,omitempty"`
}

// IsEmpty reports whether no field is set
func (u UserUpdate) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Phone == nil && u.Gender == nil && u.Address == nil && u.DOB == nil
}

// UserToggle is the answer to an activate/deactivate request
type UserToggle struct {
	UserID   ID     `json:"user_id"`
	IsActive bool   `json:"is_active"`
	Message  string `json:"message"`
}

// CourseFilter narrows the course list
type CourseFilter struct {
	Limit      int
	Offset     int
	ActiveOnly bool
	Search     string
}

// Course is the course catalog entry
type Course struct {
	ID          ID       `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Level       string   `json:"level,omitempty"`
	Category    string   `json:"category,omitempty"`
	Lessons     int      `json:"lessons"`
	MinAge      *int     `json:"minAge,omitempty"`
	MaxAge      *int     `json:"maxAge,omitempty"`
	IsActive    bool     `json:"is_active"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// CourseInput is the create and update payload
type CourseInput struct {
	CourseName  string   `json:"course_name,omitempty"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Level       string   `json:"level,omitempty"`
	Category    string   `json:"category,omitempty"`
	MinAge      *int     `json:"min_age,omitempty"`
	MaxAge      *int     `json:"age_max,omitempty"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

// ChapterInput is the chapter create payload
type ChapterInput struct {
	CourseID     int64  `json:"course_id"`
	Title        string `json:"title"`
	ChapterOrder int    `json:"chapter_order"`
}

// Chapter belongs to a course
type Chapter struct {
	ChapterID    ID     `json:"chapter_id"`
	CourseID     ID     `json:"course_id"`
	Title        string `json:"title"`
	ChapterOrder int    `json:"chapter_order"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Child is a student linked to a parent account
type Child struct {
	ID          ID      `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	CourseCount int     `json:"course_count"`
	AvgProgress float64 `json:"avg_progress"`
}

// QuizStatus summarizes quiz results for an enrolled course
type QuizStatus struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
}

// Enrollment is an enrolled course with progress, as shown on the parent
// and student dashboards
type Enrollment struct {
	ID          ID          `json:"id"`
	Title       string      `json:"title"`
	Level       string      `json:"level,omitempty"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status"`
	EnrolledAt  string      `json:"enrolled_at,omitempty"`
	Progress    float64     `json:"progress"`
	Category    string      `json:"category,omitempty"`
	NextLesson  string      `json:"nextLesson,omitempty"`
	Quiz        *QuizStatus `json:"quiz,omitempty"`
}

// ChildSummary is a child's overall performance
type ChildSummary struct {
	ID            ID      `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Joined        string  `json:"joined,omitempty"`
	TotalCourses  int     `json:"total_courses"`
	AvgProgress   float64 `json:"avg_progress"`
	QuizzesPassed int     `json:"quizzes_passed"`
	TotalQuizzes  int     `json:"total_quizzes"`
}

// StudentOverview feeds the student dashboard tiles
type StudentOverview struct {
	EnrolledCourses   int             `json:"enrolledCourses"`
	CompletedLessons  int             `json:"completedLessons"`
	TotalLessons      int             `json:"totalLessons"`
	AverageProgress   float64         `json:"averageProgress"`
	CompletedCourses  int             `json:"completedCourses"`
	InProgressCourses int             `json:"inProgressCourses"`
	UpcomingQuiz      json.RawMessage `json:"upcomingQuiz,omitempty"`
	WeeklyGoal        int             `json:"weeklyGoal"`
	WeeklyProgress    int             `json:"weeklyProgress"`
	CurrentStreak     int             `json:"currentStreak"`
}

// UpcomingChapter is a chapter the student has not completed yet
type UpcomingChapter struct {
	ID           ID      `json:"id"`
	Course       string  `json:"course"`
	Title        string  `json:"title"`
	ChapterOrder int     `json:"chapter_order"`
	Progress     float64 `json:"progress"`
	Status       string  `json:"status"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
