package main

import (
	"context"

	"github.com/snackbase/snackbase-go/auth"
	"github.com/snackbase/snackbase-go/bootstrap"
	"github.com/snackbase/snackbase-go/httpclient"
	"github.com/snackbase/snackbase-go/mcp"
	"github.com/snackbase/snackbase-go/observability"
)

// services are built by the start hooks and used by the command task.
type services struct {
	client *httpclient.Client
	auth   *auth.Service
}

// newApp validates cfg and registers the start hooks that wire telemetry,
// the SnackBase client and the auth service.
func newApp(cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *services, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	svc := &services{}

	app.OnStart(func(ctx context.Context) error {
		if !cfg.Observability.Enabled {
			return nil
		}
		tp, err := observability.InitTracer(ctx, cfg.Observability.TracerConfig(cfg.Name, cfg.Version, cfg.Environment), app.Logger)
		if err != nil {
			return err
		}
		app.OnStop(tp.Shutdown)

		mp, err := observability.InitMeter(ctx, cfg.Observability.MeterConfig(cfg.Name, cfg.Version, cfg.Environment), app.Logger)
		if err != nil {
			return err
		}
		app.OnStop(mp.Shutdown)
		app.Summary.TrackInfrastructure("telemetry", "otlp", cfg.Observability.Endpoint)
		return nil
	})

	app.OnStart(func(context.Context) error {
		client, err := httpclient.New(cfg.Client, httpclient.WithLogger(app.Logger))
		if err != nil {
			return err
		}
		app.OnStop(client.Close)
		svc.client = client
		svc.auth = auth.New(client, app.Logger)

		app.Summary.TrackClient("snackbase", cfg.Client.BaseURL, "http")
		app.Summary.TrackInfrastructure("session", string(client.StorageBackend()), "")
		return nil
	})

	return app, svc, nil
}

func serverInfo(cfg *Config) mcp.ServerInfo {
	return mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version}
}
