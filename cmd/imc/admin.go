package main

import (
	"text/tabwriter"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administration commands, admin accounts only",
	}
	cmd.AddCommand(
		newAdminStatsCmd(a),
		newAdminActivityCmd(a),
		newAdminUsersCmd(a),
		newAdminUserCmd(a),
		newAdminUpdateUserCmd(a),
		newAdminToggleUserCmd(a),
	)
	return cmd
}

func adminOnly() auth.GuardPipeline {
	return auth.NewRoleGuard(auth.RoleAdmin)
}

func newAdminStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Platform totals",
		Args:  cobra.NoArgs,
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, _ []string, _ auth.Session) error {
			stats, err := a.client.AdminStats(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(stats, func(tw *tabwriter.Writer) {
				row(tw, "Users", stats.TotalUsers)
				row(tw, "Courses", stats.TotalCourses)
				row(tw, "Enrollments", stats.TotalEnrollments)
				row(tw, "Active students", stats.ActiveStudents)
			})
		}),
	}
}

func newAdminActivityCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Recent platform activity as reported by the backend",
		Args:  cobra.NoArgs,
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, _ []string, _ auth.Session) error {
			feed, err := a.client.AdminRecentActivity(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(feed, func(tw *tabwriter.Writer) {
				row(tw, "WHEN", "TYPE", "TITLE", "DESCRIPTION")
				for _, act := range feed.Activities {
					row(tw, act.Timestamp, act.Type, act.Title, act.Description)
				}
			})
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries")
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	var filter auth.UserFilter

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, _ []string, _ auth.Session) error {
			page, err := a.client.ListUsers(cmd.Context(), filter)
			if err != nil {
				return err
			}
			p := a.printer(cmd)
			p.title("Users (%d)", page.Total)
			return p.emit(page, func(tw *tabwriter.Writer) {
				row(tw, "ID", "NAME", "EMAIL", "ROLE", "ACTIVE")
				for _, u := range page.Users {
					row(tw, u.UserID, u.FullName(), u.Email, u.Role, yesNo(u.IsActive))
				}
			})
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&filter.Search, "search", "", "match name or email")
	flags.StringVar(&filter.Role, "role", "", "only this role")
	flags.StringVar(&filter.Status, "status", "", "active or inactive")
	flags.IntVar(&filter.Limit, "limit", 50, "page size")
	flags.IntVar(&filter.Offset, "offset", 0, "page offset")
	return cmd
}

func newAdminUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "user USER_ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, args []string, _ auth.Session) error {
			user, err := a.client.GetUser(cmd.Context(), auth.ID(args[0]))
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(user, func(tw *tabwriter.Writer) {
				row(tw, "ID", user.UserID)
				row(tw, "Name", user.FullName())
				row(tw, "Email", user.Email)
				row(tw, "Role", user.Role)
				row(tw, "Phone", user.Phone)
				row(tw, "Active", yesNo(user.IsActive))
				row(tw, "Created", user.CreatedAt)
			})
		}),
	}
}

func newAdminUpdateUserCmd(a *app) *cobra.Command {
	var values auth.UserUpdate
	var firstName, lastName, email, phone, gender, address, dob string

	cmd := &cobra.Command{
		Use:   "update-user USER_ID",
		Short: "Change the profile fields given as flags",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, args []string, _ auth.Session) error {
			flags := cmd.Flags()
			for name, pair := range map[string]struct {
				src *string
				dst **string
			}{
				"first-name": {&firstName, &values.FirstName},
				"last-name":  {&lastName, &values.LastName},
				"email":      {&email, &values.Email},
				"phone":      {&phone, &values.Phone},
				"gender":     {&gender, &values.Gender},
				"address":    {&address, &values.Address},
				"dob":        {&dob, &values.DOB},
			} {
				if flags.Changed(name) {
					*pair.dst = pair.src
				}
			}

			id := auth.ID(args[0])
			if err := a.client.UpdateUser(cmd.Context(), id, values); err != nil {
				return err
			}
			a.printer(cmd).success("Updated user %s", id)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&firstName, "first-name", "", "first name")
	flags.StringVar(&lastName, "last-name", "", "last name")
	flags.StringVar(&email, "email", "", "email")
	flags.StringVar(&phone, "phone", "", "phone number")
	flags.StringVar(&gender, "gender", "", "gender")
	flags.StringVar(&address, "address", "", "postal address")
	flags.StringVar(&dob, "dob", "", "date of birth, YYYY-MM-DD")
	return cmd
}

func newAdminToggleUserCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-user USER_ID",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(adminOnly(), func(cmd *cobra.Command, args []string, session auth.Session) error {
			id := auth.ID(args[0])
			result, err := a.client.ToggleUserActive(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.record(cmd.Context(), session, auth.ActivityEventUserActiveToggled, id.String(), map[string]any{
				"is_active": result.IsActive,
			})

			state := "deactivated"
			if result.IsActive {
				state = "activated"
			}
			a.printer(cmd).success("User %s %s", id, state)
			return nil
		}),
	}
}
