// Package httpclient is the SnackBase HTTP client core.
//
// A Client turns a request descriptor into a response or a classified
// *errors.AppError. Transient failures (network errors, 5xx, 429) are
// retried with capped exponential backoff; a 429's retry-after hint is
// honoured as the minimum wait. A 401 triggers a token refresh, and
// concurrent requests that fail together share a single refresh call.
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://snackbase.example.com",
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	resp, err := client.Get(ctx, "/api/v1/collections",
//	    httpclient.WithQueryParam("page", 1))
//
// # Typed Responses
//
//	type Collection struct {
//	    ID   string `json:"id"`
//	    Name string `json:"name"`
//	}
//	out, err := httpclient.Get[[]Collection](client, ctx, "/api/v1/collections")
//
// # Token Storage
//
// Tokens live in a tokenstore.Store owned by the client. Config.Storage
// selects memory, file, or Redis persistence; by default Redis is used when
// an address is configured, then a file when a path is configured, then
// memory.
package httpclient
