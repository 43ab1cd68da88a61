package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagetrack/pagetrack-server/internal/auth"
	domainerrors "github.com/pagetrack/pagetrack-server/internal/errors"
)

var errInvalidToken = domainerrors.Unauthorized("Invalid or expired token")

// mapErrors converts errors returned by h into status errors, so domain and
// store errors reach the client with their own status instead of a 500.
func mapErrors[I, O any](h func(context.Context, *I) (*O, error)) func(context.Context, *I) (*O, error) {
	return func(ctx context.Context, input *I) (*O, error) {
		out, err := h(ctx, input)
		if err == nil {
			return out, nil
		}
		var statusErr huma.StatusError
		if errors.As(err, &statusErr) {
			return nil, statusErr
		}
		return nil, newAPIError(http.StatusInternalServerError, "unexpected error occurred", err)
	}
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(authHeader string) (string, bool) {
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}

// authenticateRequest validates the Authorization header and returns the identity.
func (s *Server) authenticateRequest(ctx context.Context, authHeader string) (auth.Identity, error) {
	if authHeader == "" {
		return auth.Identity{}, domainerrors.Unauthorized("Missing authorization header")
	}

	token, ok := bearerToken(authHeader)
	if !ok {
		return auth.Identity{}, domainerrors.Unauthorized("Invalid authorization header format")
	}

	identity, err := s.services.Session.Authenticate(ctx, token)
	if err != nil {
		return auth.Identity{}, errInvalidToken.WithCause(err)
	}

	return identity, nil
}

// authenticateStream resolves the user of an SSE request. Browsers cannot set
// headers on EventSource, so the token may also come as ?token=.
func (s *Server) authenticateStream(r *http.Request) (string, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", auth.ErrUnauthenticated
	}

	identity, err := s.services.Session.Authenticate(r.Context(), token)
	if err != nil {
		return "", err
	}
	return identity.UserID, nil
}
