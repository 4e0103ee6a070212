// Package logger provides structured logging for the SnackBase client
// using zerolog.
//
// Library components take a *Logger and default to Nop so that embedding
// applications decide where output goes. Commands build one from Config:
//
//	log := logger.New(&logger.Config{Level: "debug", Output: "stderr"}, "snackbase-mcp")
//	log.WithComponent("httpclient").Info("request sent", logger.Fields("path", "/api/v1/auth/me"))
package logger
