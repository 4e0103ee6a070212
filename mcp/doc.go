// Package mcp exposes the SnackBase client as Model Context Protocol tools
// over newline-delimited JSON-RPC 2.0 on stdio.
//
// Tool failures are reported in-band as results with isError set, their
// text prefixed by the error kind so a model can tell a bad login from an
// unreachable backend. Protocol failures (unknown method, malformed
// params) are JSON-RPC errors.
package mcp
