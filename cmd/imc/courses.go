package main

import (
	"fmt"
	"text/tabwriter"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newCoursesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "courses",
		Aliases: []string{"course"},
		Short:   "Browse and manage the course catalog",
	}
	cmd.AddCommand(
		newCoursesListCmd(a),
		newCoursesGetCmd(a),
		newCoursesCreateCmd(a),
		newCoursesUpdateCmd(a),
		newCoursesDeleteCmd(a),
	)
	return cmd
}

func newCoursesListCmd(a *app) *cobra.Command {
	var filter auth.CourseFilter
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List courses, active ones unless --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.ActiveOnly = !all
			courses, err := a.client.ListCourses(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(courses, func(tw *tabwriter.Writer) {
				row(tw, "ID", "TITLE", "LEVEL", "LESSONS", "PRICE", "ACTIVE")
				for _, c := range courses {
					row(tw, c.ID, c.Title, c.Level, c.Lessons, optional(c.Price), yesNo(c.IsActive))
				}
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&all, "all", false, "include inactive courses")
	flags.StringVar(&filter.Search, "search", "", "match title or description")
	flags.IntVar(&filter.Limit, "limit", 100, "page size")
	flags.IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}

func newCoursesGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get COURSE_ID",
		Short: "Show one course",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			course, err := a.client.GetCourse(cmd.Context(), auth.ID(args[0]))
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(course, func(tw *tabwriter.Writer) {
				row(tw, "ID", course.ID)
				row(tw, "Title", course.Title)
				row(tw, "Description", course.Description)
				row(tw, "Level", course.Level)
				row(tw, "Category", course.Category)
				row(tw, "Lessons", course.Lessons)
				row(tw, "Price", optional(course.Price))
				row(tw, "Ages", optional(course.MinAge)+" to "+optional(course.MaxAge))
				row(tw, "Active", yesNo(course.IsActive))
			})
		},
	}
}

// courseFlags binds the course payload to flags. Only flags the user set end
// up in the payload, so updates stay partial.
type courseFlags struct {
	in       auth.CourseInput
	price    float64
	minAge   int
	maxAge   int
	active   bool
	inactive bool
}

func (f *courseFlags) bind(flags *pflag.FlagSet) {
	flags.StringVar(&f.in.CourseName, "name", "", "course name")
	flags.StringVar(&f.in.Description, "description", "", "course description")
	flags.StringVar(&f.in.Level, "level", "", "level, e.g. beginner")
	flags.StringVar(&f.in.Category, "category", "", "category")
	flags.Float64Var(&f.price, "price", 0, "price")
	flags.IntVar(&f.minAge, "min-age", 0, "youngest age")
	flags.IntVar(&f.maxAge, "max-age", 0, "oldest age")
	flags.BoolVar(&f.active, "active", false, "mark the course active")
	flags.BoolVar(&f.inactive, "inactive", false, "mark the course inactive")
}

func (f *courseFlags) input(flags *pflag.FlagSet) (auth.CourseInput, error) {
	in := f.in
	if flags.Changed("price") {
		in.Price = &f.price
	}
	if flags.Changed("min-age") {
		in.MinAge = &f.minAge
	}
	if flags.Changed("max-age") {
		in.MaxAge = &f.maxAge
	}
	switch {
	case f.active && f.inactive:
		return in, fmt.Errorf("--active and --inactive are exclusive")
	case f.active:
		v := true
		in.IsActive = &v
	case f.inactive:
		v := false
		in.IsActive = &v
	}
	return in, nil
}

func newCoursesCreateCmd(a *app) *cobra.Command {
	f := &courseFlags{}

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a course (admin)",
		Example: `  imc courses create --name "Tajweed for beginners" --level beginner --min-age 7 --active`,
		Args:    cobra.NoArgs,
		RunE: a.guarded(auth.NewRoleGuard(auth.RoleAdmin), func(cmd *cobra.Command, _ []string, session auth.Session) error {
			in, err := f.input(cmd.Flags())
			if err != nil {
				return err
			}
			course, err := a.client.CreateCourse(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.record(cmd.Context(), session, auth.ActivityEventCourseChanged, "", map[string]any{
				"action":    "create",
				"course_id": course.ID.String(),
			})
			a.printer(cmd).success("Created course %s (%s)", course.ID, course.Title)
			return nil
		}),
	}
	f.bind(cmd.Flags())
	return cmd
}

func newCoursesUpdateCmd(a *app) *cobra.Command {
	f := &courseFlags{}

	cmd := &cobra.Command{
		Use:   "update COURSE_ID",
		Short: "Change the fields given as flags (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(auth.NewRoleGuard(auth.RoleAdmin), func(cmd *cobra.Command, args []string, session auth.Session) error {
			in, err := f.input(cmd.Flags())
			if err != nil {
				return err
			}
			id := auth.ID(args[0])
			course, err := a.client.UpdateCourse(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			a.record(cmd.Context(), session, auth.ActivityEventCourseChanged, "", map[string]any{
				"action":    "update",
				"course_id": id.String(),
			})
			a.printer(cmd).success("Updated course %s (%s)", id, course.Title)
			return nil
		}),
	}
	f.bind(cmd.Flags())
	return cmd
}

func newCoursesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete COURSE_ID",
		Short: "Delete a course (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(auth.NewRoleGuard(auth.RoleAdmin), func(cmd *cobra.Command, args []string, session auth.Session) error {
			id := auth.ID(args[0])
			if err := a.client.DeleteCourse(cmd.Context(), id); err != nil {
				return err
			}
			a.record(cmd.Context(), session, auth.ActivityEventCourseChanged, "", map[string]any{
				"action":    "delete",
				"course_id": id.String(),
			})
			a.printer(cmd).success("Deleted course %s", id)
			return nil
		}),
	}
}

func newChaptersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chapters",
		Aliases: []string{"chapter"},
		Short:   "List and add course chapters",
	}

	list := &cobra.Command{
		Use:   "list COURSE_ID",
		Short: "List the chapters of a course in order",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(auth.NewAuthGuard(), func(cmd *cobra.Command, args []string, _ auth.Session) error {
			chapters, err := a.client.ListChapters(cmd.Context(), auth.ID(args[0]))
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(chapters, func(tw *tabwriter.Writer) {
				row(tw, "ORDER", "ID", "TITLE")
				for _, ch := range chapters {
					row(tw, ch.ChapterOrder, ch.ChapterID, ch.Title)
				}
			})
		}),
	}

	var in auth.ChapterInput
	create := &cobra.Command{
		Use:     "create",
		Short:   "Add a chapter to a course (admin)",
		Example: `  imc chapters create --course 12 --title "Makharij" --order 1`,
		Args:    cobra.NoArgs,
		RunE: a.guarded(auth.NewRoleGuard(auth.RoleAdmin), func(cmd *cobra.Command, _ []string, session auth.Session) error {
			chapter, err := a.client.CreateChapter(cmd.Context(), in)
			if err != nil {
				return err
			}
			a.record(cmd.Context(), session, auth.ActivityEventChapterCreated, "", map[string]any{
				"chapter_id": chapter.ChapterID.String(),
				"course_id":  chapter.CourseID.String(),
			})
			a.printer(cmd).success("Created chapter %s (%s)", chapter.ChapterID, chapter.Title)
			return nil
		}),
	}
	create.Flags().Int64Var(&in.CourseID, "course", 0, "course id")
	create.Flags().StringVar(&in.Title, "title", "", "chapter title")
	create.Flags().IntVar(&in.ChapterOrder, "order", 0, "position in the course, from 1")

	cmd.AddCommand(list, create)
	return cmd
}
