// Package bootstrap runs a command through a uniform lifecycle: typed
// config defaults and validation, logger setup, start hooks, the task
// itself, then stop hooks in reverse order.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.OnStart(func(ctx context.Context) error {
//	    client, err := httpclient.New(cfg.Client)
//	    if err != nil {
//	        return err
//	    }
//	    app.OnStop(client.Close)
//	    return nil
//	})
//	return app.RunTask(ctx, serve)
//
// Nothing here writes to stdout; commands that speak a protocol on stdout
// can use it unchanged.
package bootstrap
