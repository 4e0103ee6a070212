package auth

import (
	"context"
	"time"

	"github.com/snackbase/snackbase-go/errors"
	"github.com/snackbase/snackbase-go/httpclient"
	"github.com/snackbase/snackbase-go/logger"
	"github.com/snackbase/snackbase-go/tokenstore"
	"github.com/snackbase/snackbase-go/validation"
)

const (
	pathLogin    = "/api/v1/auth/login"
	pathRegister = "/api/v1/auth/register"
	pathLogout   = "/api/v1/auth/logout"
	pathMe       = "/api/v1/auth/me"
)

// logoutTimeout bounds the server logout call; its outcome is only logged.
const logoutTimeout = 5 * time.Second

// Service runs session flows against a single client.
type Service struct {
	client *httpclient.Client
	log    *logger.Logger
}

// New creates an auth service. A nil logger discards output.
func New(client *httpclient.Client, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{client: client, log: log.WithComponent("auth")}
}

// Login authenticates with credentials and stores the returned tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Account == "" {
		creds.Account = s.client.Config().DefaultAccount
	}
	if err := validation.Validate(creds); err != nil {
		return nil, err
	}

	resp, err := httpclient.Post[Session](s.client, ctx, pathLogin, creds, httpclient.WithoutAuth())
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, &resp.Data); err != nil {
		return nil, err
	}
	s.log.Info("Logged in", logger.Fields("email", creds.Email, "account", creds.Account))
	return &resp.Data, nil
}

// Register creates an account and its first user. When the backend signs
// the new user in, the returned tokens are stored.
func (s *Service) Register(ctx context.Context, reg Registration) (*Session, error) {
	if err := validation.Validate(reg); err != nil {
		return nil, err
	}

	resp, err := httpclient.Post[Session](s.client, ctx, pathRegister, reg, httpclient.WithoutAuth())
	if err != nil {
		return nil, err
	}
	if resp.Data.Token != "" {
		if err := s.store(ctx, &resp.Data); err != nil {
			return nil, err
		}
	}
	s.log.Info("Registered account", logger.Fields("account_name", reg.AccountName))
	return &resp.Data, nil
}

// Logout revokes the session on the server when possible and always clears
// the local token state. Server-side failures are logged, not returned.
func (s *Service) Logout(ctx context.Context) error {
	state := s.client.Tokens().Get()
	if state.AccessToken != "" {
		body := map[string]string{}
		if state.RefreshToken != "" {
			body["refresh_token"] = state.RefreshToken
		}
		_, err := s.client.Post(ctx, pathLogout, body,
			httpclient.WithTimeout(logoutTimeout),
			httpclient.WithoutRetry(),
		)
		if err != nil {
			s.log.Warn("Server logout failed, clearing local session", logger.ErrorFields("logout", err))
		}
	}
	if err := s.client.Tokens().Clear(ctx); err != nil {
		return errors.Unexpected(err)
	}
	s.log.Info("Logged out")
	return nil
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context) (tokenstore.State, error) {
	return s.client.RefreshTokens(ctx)
}

// Me returns the identity behind the current access token.
func (s *Service) Me(ctx context.Context) (*Identity, error) {
	if !s.IsAuthenticated() {
		return nil, errors.Authentication(0, "Not logged in.")
	}
	resp, err := httpclient.Get[Identity](s.client, ctx, pathMe)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// IsAuthenticated reports whether an access token is held. It does not
// check expiry; an expired token is refreshed on first use.
func (s *Service) IsAuthenticated() bool {
	return s.client.Tokens().AccessToken() != ""
}

func (s *Service) store(ctx context.Context, sess *Session) error {
	if sess.Token == "" {
		return errors.New(errors.ErrCodeUnexpected, "session response contained no token", 0)
	}
	if err := s.client.Tokens().Set(ctx, sess.Token, sess.RefreshToken, sess.expiry(time.Now())); err != nil {
		// The in-memory session is usable; only persistence failed.
		s.log.Warn("Session not persisted", logger.ErrorFields("persist", err))
	}
	return nil
}
