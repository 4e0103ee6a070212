package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/snackbase/snackbase-go/auth"
	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/httpclient"
	"github.com/snackbase/snackbase-go/observability"
	"github.com/snackbase/snackbase-go/validation"
)

// maxRequestPathLength bounds snackbase_request paths.
const maxRequestPathLength = 2048

var requestMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

// SnackBaseTools returns the tools backed by client and the auth service.
func SnackBaseTools(client *httpclient.Client, authSvc *auth.Service, info ServerInfo) []Tool {
	return []Tool{
		{
			Name:        "snackbase_login",
			Description: "Log in to SnackBase with email and password. The session is kept for later tool calls.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "email": {"type": "string"},
    "password": {"type": "string"},
    "account": {"type": "string", "description": "Account slug or id. Defaults to the configured account."}
  },
  "required": ["email", "password"]
}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				var creds auth.Credentials
				if err := decodeArgs(args, &creds); err != nil {
					return nil, err
				}
				sess, err := authSvc.Login(ctx, creds)
				if err != nil {
					return nil, err
				}
				return map[string]any{"logged_in": true, "user": sess.User, "account": sess.Account}, nil
			},
		},
		{
			Name:        "snackbase_logout",
			Description: "Log out of SnackBase and forget the stored session.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				if err := authSvc.Logout(ctx); err != nil {
					return nil, err
				}
				return "Logged out.", nil
			},
		},
		{
			Name:        "snackbase_whoami",
			Description: "Show the user the current session belongs to.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				return authSvc.Me(ctx)
			},
		},
		{
			Name:        "snackbase_request",
			Description: "Send an authenticated request to any SnackBase API path, for example GET /api/v1/collections.",
			InputSchema: json.RawMessage(`{
  "type": "object",
  "properties": {
    "method": {"type": "string", "enum": ["GET", "POST", "PUT", "PATCH", "DELETE"]},
    "path": {"type": "string", "description": "API path starting with /"},
    "query": {"type": "object"},
    "body": {"description": "JSON request body"}
  },
  "required": ["path"]
}`),
			Handler: func(ctx context.Context, args json.RawMessage) (any, error) {
				return doRequest(ctx, client, args)
			},
		},
		{
			Name:        "snackbase_status",
			Description: "Check that the SnackBase backend and the session store are reachable.",
			InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
			Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
				health := observability.NewServiceHealth(info.Name, info.Version).Check(ctx, client.HealthCheckers()...)
				return map[string]any{"health": health, "authenticated": authSvc.IsAuthenticated()}, nil
			},
		},
	}
}

type requestArgs struct {
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Query  map[string]any  `json:"query"`
	Body   json.RawMessage `json:"body"`
}

func doRequest(ctx context.Context, client *httpclient.Client, raw json.RawMessage) (any, error) {
	var args requestArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	args.Method = strings.ToUpper(strings.TrimSpace(args.Method))
	if args.Method == "" {
		args.Method = http.MethodGet
	}

	v := validation.New().
		Required("path", args.Path).
		Pattern("path", args.Path, `^/`).
		MaxLength("path", args.Path, maxRequestPathLength).
		OneOf("method", args.Method, requestMethods)
	if err := v.Validate(); err != nil {
		return nil, err
	}

	req := httpclient.Request{
		Method: args.Method,
		Path:   args.Path,
		Query:  args.Query,
	}
	if len(args.Body) > 0 && string(args.Body) != "null" {
		req.Body = args.Body
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	out := map[string]any{"status": resp.StatusCode}
	var body any
	if len(resp.Body) > 0 {
		if json.Unmarshal(resp.Body, &body) == nil {
			out["body"] = body
		} else {
			out["body"] = resp.Text()
		}
	}
	return out, nil
}

// decodeArgs unmarshals tool arguments, reporting malformed input as a
// ValidationError.
func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Validation(0, fmt.Sprintf("invalid arguments: %v", err), nil)
	}
	return nil
}
