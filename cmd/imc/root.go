package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/repository"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/term"
)

var (
	readPassword = term.ReadPassword // mockable

	errNotSignedIn = errors.New("not signed in, run `imc login` first")
	errForbidden   = errors.New("the signed in account cannot use this command")
	errNoHistory   = errors.New("local activity history needs the sqlite store")
)

// app carries what every command needs. Fields left nil are built from the
// configuration on first use.
type app struct {
	cfg      *auth.Settings
	logger   auth.Logger
	storage  auth.Storage
	sessions *auth.StorageSessions
	client   *auth.Client
	activity auth.ActivitySink
	history  *repository.ActivityLog
	db       *bun.DB

	apiURL  string
	driver  string
	path    string
	output  string
	verbose bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "imc",
		Short:         "IslamicMasterclass from the terminal",
		Long:          "Sign in to the IslamicMasterclass platform and work with courses, children and dashboards.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiURL, "api", "", "backend base URL (IMC_API_BASE_URL)")
	flags.StringVar(&a.driver, "store", "", "session store driver: sqlite, file or memory (IMC_STORE_DRIVER)")
	flags.StringVar(&a.path, "store-path", "", "session store location (IMC_STORE_PATH)")
	flags.StringVarP(&a.output, "output", "o", formatTable, "output format: table, json or yaml")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newSignupCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRolesCmd(a),
		newActivityCmd(a),
		newCoursesCmd(a),
		newChaptersCmd(a),
		newAdminCmd(a),
		newParentCmd(a),
		newStudentCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	switch a.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}

	if a.cfg == nil {
		var opts []auth.ConfigOption
		if a.apiURL != "" {
			opts = append(opts, auth.WithOverride("api_base_url", a.apiURL))
		}
		if a.driver != "" {
			opts = append(opts, auth.WithOverride("store_driver", strings.ToLower(a.driver)))
		}
		if a.path != "" {
			opts = append(opts, auth.WithOverride("store_path", a.path))
		}
		cfg, err := auth.LoadConfig(opts...)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.logger == nil {
		if a.verbose {
			a.logger = auth.DefaultLogger()
		} else {
			a.logger = auth.NopLogger{}
		}
	}

	if a.storage == nil {
		if err := a.openStore(ctx); err != nil {
			return err
		}
	}

	a.sessions = auth.NewStorageSessions(a.storage, auth.WithSessionLogger(a.logger))
	a.client = auth.NewClientFromConfig(a.cfg, a.sessions, a.logger)
	if a.activity == nil {
		a.activity = auth.ActivitySinkFunc(nil)
	}
	return nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case auth.StoreDriverSQLite:
		db, err := repository.OpenSQLite(ctx, a.cfg.StorePath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		a.db = db
		a.storage = repository.NewStorageRepository(db)
		a.history = repository.NewActivityLog(db)
		if a.activity == nil {
			a.activity = a.history
		}
	case auth.StoreDriverFile:
		a.storage = auth.NewFileStorage(a.cfg.StorePath)
	default:
		a.storage = auth.NewMemoryStorage()
	}
	a.logger.Debug("session store: %s", a.cfg.StoreDriver)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *app) manager() *auth.SessionManager {
	return auth.NewSessionManager(a.client, a.sessions,
		auth.WithManagerActivitySink(a.activity),
		auth.WithManagerLogger(a.logger),
	)
}

func (a *app) swapper() *auth.SessionSwapper {
	return auth.NewSessionSwapper(a.sessions, a.client,
		auth.WithSwapActivitySink(a.activity),
		auth.WithSwapLogger(a.logger),
	)
}

type guardedRun func(cmd *cobra.Command, args []string, session auth.Session) error

// guarded runs the same pipeline the gateway uses before the command body.
func (a *app) guarded(pipeline auth.GuardPipeline, run guardedRun) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		decision := pipeline.Evaluate(ctx, a.sessions)
		if !decision.Allowed {
			a.logger.Debug("guard step %s refused %s", decision.Step, cmd.CommandPath())
			if decision.Redirect == auth.RouteLogin {
				return errNotSignedIn
			}
			return errForbidden
		}

		session, err := a.sessions.Get(ctx)
		if err != nil {
			return err
		}
		return run(cmd, args, session)
	}
}

func (a *app) record(ctx context.Context, session auth.Session, kind auth.ActivityEventType, userID string, metadata map[string]any) {
	event := auth.NewActivityEvent(kind, auth.ActorFromSession(session), userID, metadata)
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Error("record activity %s: %v", kind, err)
	}
}

func (a *app) printer(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: a.output}
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pwd, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(pwd) == 0 {
		return "", errors.New("password is required")
	}
	return string(pwd), nil
}
