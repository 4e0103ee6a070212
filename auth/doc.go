// Package auth implements the SnackBase session flows on top of the HTTP
// client: login, registration, logout, token refresh and the current-user
// lookup. Tokens returned by the backend are written to the client's token
// store so later requests carry them automatically.
//
//	client, _ := httpclient.New(httpclient.Config{BaseURL: "http://localhost:8000"})
//	svc := auth.New(client, log)
//	session, err := svc.Login(ctx, auth.Credentials{Email: "a@b.c", Password: "secret"})
package auth
