package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	auth "github.com/islamicmasterclass/go-imc-auth"
	"github.com/islamicmasterclass/go-imc-auth/repository"
	"github.com/islamicmasterclass/go-imc-auth/web"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// gateway holds the flags of the web command. cfg and listen are set by
// tests, main leaves them nil.
type gateway struct {
	cfg    *auth.Settings
	logger auth.Logger
	listen func(srv *web.Server, addr string) error

	apiURL  string
	addr    string
	history string
}

func newRootCmd(g *gateway) *cobra.Command {
	root := &cobra.Command{
		Use:           "imc-web",
		Short:         "Serve the IslamicMasterclass pages",
		Long:          "Run the browser gateway: server rendered pages backed by the platform API, with sessions kept in cookies.",
		Example:       "  imc-web --addr :8080 --history ./gateway.db",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.run(cmd.Context())
		},
	}

	flags := root.Flags()
	flags.StringVar(&g.addr, "addr", "", "listen address (IMC_WEB_ADDR)")
	flags.StringVar(&g.apiURL, "api", "", "backend base URL (IMC_API_BASE_URL)")
	flags.StringVar(&g.history, "history", "", "sqlite file recording gateway activity, empty to disable")
	return root
}

func (g *gateway) run(ctx context.Context) error {
	if g.logger == nil {
		g.logger = auth.DefaultLogger()
	}
	if g.listen == nil {
		g.listen = (*web.Server).Listen
	}

	cfg := g.cfg
	if cfg == nil {
		var opts []auth.ConfigOption
		if g.addr != "" {
			opts = append(opts, auth.WithOverride("web_addr", g.addr))
		}
		if g.apiURL != "" {
			opts = append(opts, auth.WithOverride("api_base_url", g.apiURL))
		}
		loaded, err := auth.LoadConfig(opts...)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	} else if g.addr != "" {
		cfg.WebAddr = g.addr
	}

	serverOpts := []web.Option{web.WithLogger(g.logger)}
	if g.history != "" {
		db, err := repository.OpenSQLite(ctx, g.history)
		if err != nil {
			return fmt.Errorf("open activity history: %w", err)
		}
		defer db.Close()
		serverOpts = append(serverOpts, web.WithActivitySink(repository.NewActivityLog(db)))
	}

	srv := web.New(cfg, serverOpts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- g.listen(srv, cfg.WebAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gateway stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
		g.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
