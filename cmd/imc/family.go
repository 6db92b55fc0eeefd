package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/spf13/cobra"
)

func newParentCmd(a *app) *cobra.Command {
	parentOnly := auth.NewRoleGuard(auth.RoleParent)

	cmd := &cobra.Command{
		Use:   "parent",
		Short: "Follow your children and preview their accounts",
	}

	children := &cobra.Command{
		Use:   "children",
		Short: "List the children linked to your account",
		Args:  cobra.NoArgs,
		RunE: a.guarded(parentOnly, func(cmd *cobra.Command, _ []string, session auth.Session) error {
			list, err := a.client.ListChildren(cmd.Context(), session.UserID())
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(list, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "EMAIL", "COURSES", "PROGRESS")
				for _, c := range list {
					row(tw, c.ID, c.Name, c.Email, c.CourseCount, percent(c.AvgProgress))
				}
			})
		}),
	}

	courses := &cobra.Command{
		Use:   "courses CHILD_ID",
		Short: "Show a child's enrollments",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(parentOnly, func(cmd *cobra.Command, args []string, session auth.Session) error {
			list, err := a.client.ChildCourses(cmd.Context(), session.UserID(), auth.ID(args[0]))
			if err != nil {
				return err
			}
			return printEnrollments(a.printer(cmd), list)
		}),
	}

	summary := &cobra.Command{
		Use:   "summary CHILD_ID",
		Short: "Show a child's overall progress",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(parentOnly, func(cmd *cobra.Command, args []string, session auth.Session) error {
			s, err := a.client.ChildSummary(cmd.Context(), session.UserID(), auth.ID(args[0]))
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(s, func(tw *tabwriter.Writer) {
				row(tw, "Name", s.Name)
				row(tw, "Email", s.Email)
				row(tw, "Courses", s.TotalCourses)
				row(tw, "Progress", percent(s.AvgProgress))
				row(tw, "Quizzes", fmt.Sprintf("%d of %d passed", s.QuizzesPassed, s.TotalQuizzes))
			})
		}),
	}

	preview := &cobra.Command{
		Use:   "preview CHILD_ID",
		Short: "Switch to a child's account, the parent session is kept aside",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(parentOnly, func(cmd *cobra.Command, args []string, _ auth.Session) error {
			if _, err := a.swapper().PreviewChild(cmd.Context(), auth.ID(args[0])); err != nil {
				if errors.Is(err, auth.ErrBackupExists) {
					return fmt.Errorf("%w, run `imc parent return` first", err)
				}
				return err
			}
			p := a.printer(cmd)
			p.success("Now viewing the account of child %s", args[0])
			p.note("Run `imc parent return` to go back.")
			return nil
		}),
	}

	back := &cobra.Command{
		Use:   "return",
		Short: "Leave a child preview and restore the parent session",
		Args:  cobra.NoArgs,
		RunE: a.guarded(auth.NewAuthGuard(), func(cmd *cobra.Command, _ []string, _ auth.Session) error {
			if _, err := a.swapper().BackToParent(cmd.Context()); err != nil {
				if errors.Is(err, auth.ErrNoBackup) {
					return errors.New("no child preview is active")
				}
				return err
			}
			a.printer(cmd).success("Back to the parent account")
			return nil
		}),
	}

	cmd.AddCommand(children, courses, summary, preview, back)
	return cmd
}

func newStudentCmd(a *app) *cobra.Command {
	studentOnly := auth.NewRoleGuard(auth.RoleStudent)

	cmd := &cobra.Command{
		Use:   "student",
		Short: "Your learning progress",
	}

	dashboard := &cobra.Command{
		Use:   "dashboard",
		Short: "Counters of the student dashboard",
		Args:  cobra.NoArgs,
		RunE: a.guarded(studentOnly, func(cmd *cobra.Command, _ []string, session auth.Session) error {
			o, err := a.client.StudentDashboard(cmd.Context(), session.UserID())
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(o, func(tw *tabwriter.Writer) {
				row(tw, "Courses", o.EnrolledCourses)
				row(tw, "Completed courses", o.CompletedCourses)
				row(tw, "Lessons", fmt.Sprintf("%d of %d", o.CompletedLessons, o.TotalLessons))
				row(tw, "Progress", percent(o.AverageProgress))
				row(tw, "Weekly goal", fmt.Sprintf("%d of %d", o.WeeklyProgress, o.WeeklyGoal))
				row(tw, "Streak", fmt.Sprintf("%d days", o.CurrentStreak))
			})
		}),
	}

	courses := &cobra.Command{
		Use:   "courses",
		Short: "Your enrollments",
		Args:  cobra.NoArgs,
		RunE: a.guarded(studentOnly, func(cmd *cobra.Command, _ []string, session auth.Session) error {
			list, err := a.client.StudentCourses(cmd.Context(), session.UserID())
			if err != nil {
				return err
			}
			return printEnrollments(a.printer(cmd), list)
		}),
	}

	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "Chapters you have not completed yet",
		Args:  cobra.NoArgs,
		RunE: a.guarded(studentOnly, func(cmd *cobra.Command, _ []string, session auth.Session) error {
			list, err := a.client.UpcomingChapters(cmd.Context(), session.UserID())
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(list, func(tw *tabwriter.Writer) {
				row(tw, "COURSE", "CHAPTER", "TITLE", "PROGRESS")
				for _, ch := range list {
					row(tw, ch.Course, ch.ChapterOrder, ch.Title, percent(ch.Progress))
				}
			})
		}),
	}

	cmd.AddCommand(dashboard, courses, upcoming)
	return cmd
}

func printEnrollments(p printer, list []auth.Enrollment) error {
	return p.emit(list, func(tw *tabwriter.Writer) {
		row(tw, "ID", "TITLE", "STATUS", "PROGRESS", "NEXT")
		for _, e := range list {
			row(tw, e.ID, e.Title, e.Status, percent(e.Progress), e.NextLesson)
		}
	})
}

func percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}
