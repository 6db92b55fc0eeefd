package main

import (
	"text/tabwriter"
	"time"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var creds auth.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session in the local store",
		Example: `  imc login --email parent@example.com
  imc login -e admin@example.com --password secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				pwd, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				creds.Password = pwd
			}

			session, route, err := a.manager().Login(cmd.Context(), creds)
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			p.success("Signed in as %s (%s)", displayName(session), session.Role())
			p.note("Home: %s", route)
			return nil
		},
	}

	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password, prompted when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(a *app) *cobra.Command {
	var reg auth.Registration

	cmd := &cobra.Command{
		Use:     "signup",
		Short:   "Create an account",
		Example: `  imc signup --first-name Amina --last-name Yusuf --email amina@example.com --role parent`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mgr := a.manager()

			roles, defaultRole, err := mgr.Roles(ctx)
			if err != nil {
				a.logger.Error("load roles: %v", err)
			}
			if reg.RoleName == "" {
				reg.RoleName = defaultRole
			}
			if role, ok := auth.FindRole(roles, reg.RoleName); ok {
				reg.RoleID = role.RoleID
			}

			if reg.Password == "" {
				pwd, err := promptPassword(cmd)
				if err != nil {
					return err
				}
				reg.Password = pwd
			}

			session, route, err := mgr.Register(ctx, reg)
			if err != nil {
				return err
			}

			p := a.printer(cmd)
			if !session.Authenticated() {
				p.success("Account created for %s", reg.Email)
				p.note("Run `imc login --email %s` to sign in.", reg.Email)
				return nil
			}
			p.success("Account created, signed in as %s (%s)", displayName(session), session.Role())
			p.note("Home: %s", route)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&reg.FirstName, "first-name", "", "first name")
	flags.StringVar(&reg.LastName, "last-name", "", "last name")
	flags.StringVarP(&reg.Email, "email", "e", "", "account email")
	flags.StringVar(&reg.Password, "password", "", "password of at least 8 characters, prompted when empty")
	flags.StringVar(&reg.Phone, "phone", "", "phone number")
	flags.StringVar(&reg.DOB, "dob", "", "date of birth, YYYY-MM-DD")
	flags.StringVar(&reg.Gender, "gender", "", "gender")
	flags.StringVar(&reg.Address, "address", "", "postal address")
	flags.StringVar(&reg.RoleName, "role", "", "parent or student, the backend default when empty")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session, including a parked parent session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.manager().Logout(cmd.Context()); err != nil {
				return err
			}
			a.printer(cmd).success("Signed out")
			return nil
		},
	}
}

type whoami struct {
	UserID     auth.ID    `json:"user_id" yaml:"user_id"`
	Name       string     `json:"name" yaml:"name"`
	Email      string     `json:"email" yaml:"email"`
	Role       string     `json:"role" yaml:"role"`
	Home       string     `json:"home" yaml:"home"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Expired    bool       `json:"expired" yaml:"expired"`
	Previewing bool       `json:"previewing" yaml:"previewing"`
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in account",
		Args:  cobra.NoArgs,
		RunE: a.guarded(auth.NewAuthGuard(), func(cmd *cobra.Command, _ []string, session auth.Session) error {
			out := whoami{
				UserID:     session.UserID(),
				Name:       displayName(session),
				Role:       session.Role(),
				Home:       auth.LandingRoute(session.Role()),
				Previewing: a.swapper().Previewing(cmd.Context()),
			}
			if profile := profileOf(session); profile != nil {
				out.Email = profile.Email
			}
			if claims := session.Claims(); claims != nil {
				if exp := claims.Expires(); !exp.IsZero() {
					out.ExpiresAt = &exp
					out.Expired = claims.IsExpired(time.Now())
				}
			}

			return a.printer(cmd).emit(out, func(tw *tabwriter.Writer) {
				row(tw, "Name", out.Name)
				row(tw, "Email", out.Email)
				row(tw, "Role", out.Role)
				row(tw, "User ID", out.UserID)
				row(tw, "Home", out.Home)
				if out.ExpiresAt != nil {
					row(tw, "Expires", out.ExpiresAt.Local().Format(time.RFC1123))
				}
				if out.Expired {
					row(tw, "Expired", "yes, run `imc login` again")
				}
				if out.Previewing {
					row(tw, "Previewing", "yes, `imc parent return` goes back")
				}
			})
		}),
	}
}

func newRolesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the roles offered at signup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			roles, defaultRole, err := a.manager().Roles(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(roles, func(tw *tabwriter.Writer) {
				row(tw, "ID", "ROLE", "SIGNUP", "DEFAULT")
				for _, r := range roles {
					def := ""
					if r.RoleName == defaultRole {
						def = "*"
					}
					row(tw, r.RoleID, r.RoleName, yesNo(auth.IsSignupRole(r.RoleName)), def)
				}
			})
		},
	}
}

func newActivityCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show session and admin events recorded on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.history == nil {
				return errNoHistory
			}
			entries, err := a.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.printer(cmd).emit(entries, func(tw *tabwriter.Writer) {
				row(tw, "WHEN", "ACTOR", "EVENT", "OBJECT")
				for _, e := range entries {
					row(tw, e.OccurredAt.Local().Format(time.DateTime), e.ActorID, e.Verb, e.ObjectType+":"+e.ObjectID)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

func displayName(session auth.Session) string {
	if profile := profileOf(session); profile != nil {
		if name := profile.DisplayName(); name != "" {
			return name
		}
	}
	return session.UserID().String()
}

func profileOf(session auth.Session) *auth.Profile {
	if session.User != nil {
		return session.User
	}
	if claims := session.Claims(); claims != nil {
		return auth.ProfileFromClaims(claims)
	}
	return nil
}
