package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"zentra/internal/apperr"
	"zentra/internal/gateway/entity"
)

// Claims is the subset of identity-provider claims the service reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator resolves bearer tokens to identities. With a secret it
// verifies HS256 signatures and expiry; without one it only decodes the
// payload, which is meant for local development.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Authenticator{logger: logger}
	if s := strings.TrimSpace(secret); s != "" {
		a.secret = []byte(s)
	} else {
		logger.Warn("AUTH_JWT_SECRET is empty; bearer tokens are decoded without signature verification")
	}
	return a
}

func (a *Authenticator) Verifies() bool { return len(a.secret) > 0 }

// Identify parses token and returns the caller.
func (a *Authenticator) Identify(token string) (entity.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return entity.Identity{}, apperr.Unauthorized("missing bearer token")
	}
	claims := &Claims{}
	var err error
	if a.Verifies() {
		_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return a.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	} else {
		_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	}
	if err != nil {
		return entity.Identity{}, apperr.Wrap(err, apperr.CodeUnauthorized, "invalid token")
	}
	sub := entity.NormalizeUserID(claims.Subject)
	if sub.IsZero() {
		return entity.Identity{}, apperr.Unauthorized("invalid token (no sub)")
	}
	return entity.Identity{UserID: sub, Email: strings.TrimSpace(claims.Email), Role: strings.TrimSpace(claims.Role)}, nil
}

// Require rejects requests without a valid bearer token and stores the
// identity in the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return a.require(next, false)
}

// RequireAllowQuery also accepts the token in the access_token query
// parameter, for browser websocket clients that cannot set headers.
func (a *Authenticator) RequireAllowQuery(next http.Handler) http.Handler {
	return a.require(next, true)
}

func (a *Authenticator) require(next http.Handler, allowQuery bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := BearerToken(r)
		if err != nil && allowQuery {
			if q := strings.TrimSpace(r.URL.Query().Get("access_token")); q != "" {
				token, err = q, nil
			}
		}
		if err == nil {
			var ident entity.Identity
			ident, err = a.Identify(token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
				return
			}
		}
		a.logger.InfoContext(r.Context(), "unauthorized request",
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", "Bearer")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   string(apperr.CodeUnauthorized),
			"message": apperr.PublicMessage(err),
		})
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", apperr.Unauthorized("missing bearer token")
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthorized("missing bearer token")
	}
	return strings.TrimSpace(token), nil
}

type identityKey struct{}

func WithIdentity(ctx context.Context, ident entity.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

func IdentityFrom(ctx context.Context) (entity.Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(entity.Identity)
	return ident, ok && !ident.UserID.IsZero()
}

var errNoIdentity = errors.New("no identity in context")

// CallerIdentity is for handlers mounted behind Require.
func CallerIdentity(ctx context.Context) (entity.Identity, error) {
	ident, ok := IdentityFrom(ctx)
	if !ok {
		return entity.Identity{}, apperr.Wrap(errNoIdentity, apperr.CodeUnauthorized, "missing user identity")
	}
	return ident, nil
}
