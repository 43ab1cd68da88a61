package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"

	"github.com/pagetrack/pagetrack-server/internal/ratelimit"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "signInAnonymously",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/anonymous",
		Summary:       "Anonymous sign-in",
		Description:   "Creates an anonymous user and returns an access token for it",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   huma.Middlewares{s.rateLimitAnonymous},
	}, mapErrors(s.handleSignInAnonymously))

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the user the access token belongs to",
		Tags:        []string{"Auth"},
		Security:    bearerSecurity,
	}, mapErrors(s.handleGetCurrentUser))

	huma.Register(s.api, huma.Operation{
		OperationID:   "signOut",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/logout",
		Summary:       "Sign out",
		Description:   "Signs the caller out of the device. Their alarms are still restored at the next start unless forget is set.",
		Tags:          []string{"Auth"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusNoContent,
	}, mapErrors(s.handleSignOut))
}

// rateLimitAnonymous applies the per-IP sign-in limit before the handler runs.
func (s *Server) rateLimitAnonymous(ctx huma.Context, next func(huma.Context)) {
	r, w := humachi.Unwrap(ctx)
	limited := ratelimit.Middleware(s.authRateLimiter, ratelimit.ClientIP)
	limited(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		next(ctx)
	})).ServeHTTP(w, r)
}

// === DTOs ===

// AuthHeaderInput carries only the bearer token.
type AuthHeaderInput struct {
	Authorization string `header:"Authorization"`
}

// SignOutInput is the sign-out request.
type SignOutInput struct {
	Authorization string `header:"Authorization"`
	Forget        bool   `query:"forget" doc:"Also forget the caller as the device's last user"`
}

// UserResponse describes a user.
type UserResponse struct {
	ID        string    `json:"id" doc:"User ID"`
	Anonymous bool      `json:"anonymous" doc:"Whether the user signed in anonymously"`
	CreatedAt time.Time `json:"createdAt,omitzero" doc:"Creation time"`
}

// SignInResponse is returned by anonymous sign-in.
type SignInResponse struct {
	User        UserResponse `json:"user" doc:"The new user"`
	AccessToken string       `json:"accessToken" doc:"PASETO access token"`
	TokenType   string       `json:"tokenType" doc:"Always Bearer"`
	ExpiresIn   int64        `json:"expiresIn" doc:"Token lifetime in seconds"`
}

// SignInOutput wraps the sign-in response for Huma.
type SignInOutput struct {
	Body SignInResponse
}

// CurrentUserOutput wraps the current user for Huma.
type CurrentUserOutput struct {
	Body UserResponse
}

// === Handlers ===

func (s *Server) handleSignInAnonymously(ctx context.Context, _ *struct{}) (*SignInOutput, error) {
	user, token, err := s.services.Session.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}

	return &SignInOutput{Body: SignInResponse{
		User: UserResponse{
			ID:        user.ID,
			Anonymous: user.Anonymous,
			CreatedAt: user.CreatedAt,
		},
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.services.Session.Tokens().AccessTokenDuration().Seconds()),
	}}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, input *AuthHeaderInput) (*CurrentUserOutput, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	return &CurrentUserOutput{Body: UserResponse{
		ID:        user.ID,
		Anonymous: user.Anonymous,
		CreatedAt: user.CreatedAt,
	}}, nil
}

func (s *Server) handleSignOut(ctx context.Context, input *SignOutInput) (*struct{}, error) {
	identity, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.Session.SignOut(identity.UserID, input.Forget); err != nil {
		return nil, err
	}
	s.logger.Info("signed out", "user_id", identity.UserID, "forget", input.Forget)

	return nil, nil
}
