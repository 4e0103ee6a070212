// Command snackbase-mcp serves the SnackBase client as MCP tools over stdio.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/snackbase/snackbase-go/bootstrap"
	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/mcp"
	"github.com/snackbase/snackbase-go/observability"
	"github.com/snackbase/snackbase-go/version"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitGeneral = 1
	ExitConfig  = 3
	ExitBackend = 4
)

var errBackendDown = stderrors.New("snackbase backend is down")

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd(stdin io.Reader, stdout io.Writer, opts ...bootstrap.Option) *cobra.Command {
	var configFile, envFile string

	setup := func() (*bootstrap.App[*Config], *services, error) {
		cfg, err := loadConfig(configFile, envFile)
		if err != nil {
			return nil, nil, err
		}
		return newApp(cfg, opts...)
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		app, svc, err := setup()
		if err != nil {
			return err
		}
		server := mcp.NewServer(serverInfo(app.Cfg), app.Logger)

		app.OnStart(func(context.Context) error {
			tools := mcp.SnackBaseTools(svc.client, svc.auth, serverInfo(app.Cfg))
			server.Register(tools...)
			for _, t := range tools {
				app.Summary.TrackTools(t.Name)
			}
			return nil
		})

		return app.RunTask(cmd.Context(), func(ctx context.Context) error {
			if err := server.Serve(ctx, stdin, stdout); err != nil {
				return err
			}
			app.Logger.Info("Input closed, shutting down")
			return nil
		})
	}

	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Expose a SnackBase backend as MCP tools over stdio",
		Version:       version.GetShortVersion(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a config file (default: search for snackbase.yml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve MCP tools on stdin/stdout (default)",
		RunE:  serve,
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Check the backend and session store and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, svc, err := setup()
			if err != nil {
				return err
			}
			return app.RunTask(cmd.Context(), func(ctx context.Context) error {
				health := observability.NewServiceHealth(app.Name, app.Version).
					Check(ctx, svc.client.HealthCheckers()...)
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(health); err != nil {
					return err
				}
				if health.Status == observability.HealthStatusDown {
					return errBackendDown
				}
				return nil
			})
		},
	})

	return root
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, errBackendDown):
		return ExitBackend
	case errors.FromError(err).Code == errors.ErrCodeConfiguration:
		return ExitConfig
	default:
		return ExitGeneral
	}
}
