// Package observability provides OpenTelemetry tracing and metrics for the
// SnackBase client and the tool server.
//
// The client records spans and counters through whatever providers are
// registered globally; nothing is exported until a command initializes them:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("snackbase-mcp"), log)
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("snackbase-mcp"), log)
//	defer mp.Shutdown(ctx)
//
// Health checks:
//
//	health := observability.NewServiceHealth("snackbase-mcp", version)
//	health.Check(ctx, backendChecker, tokenStoreChecker)
package observability
