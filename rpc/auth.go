package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"questchain/observability/metrics"
)

const defaultClockSkew = 2 * time.Minute

// AuthConfig enables HS256 bearer authentication on the /v1 routes. An empty
// secret leaves the API open.
type AuthConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

type claimsKey struct{}

// Subject returns the authenticated token subject carried by ctx.
func Subject(ctx context.Context) string {
	claims, _ := ctx.Value(claimsKey{}).(*authClaims)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

type authClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

func (c authClaims) scopes() map[string]struct{} {
	out := map[string]struct{}{}
	for _, s := range strings.Fields(c.Scope) {
		out[s] = struct{}{}
	}
	return out
}

// Authenticator validates bearer tokens.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
	logger *slog.Logger
}

// NewAuthenticator returns nil when cfg carries no secret.
func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = defaultClockSkew
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(skew),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{secret: []byte(secret), parser: jwt.NewParser(opts...), logger: logger}
}

func (a *Authenticator) parse(raw string) (*authClaims, error) {
	claims := &authClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid token. A nil Authenticator
// passes everything through.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	if a == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractBearer(r.Header.Get("Authorization"))
		if raw == "" {
			metrics.Contracts().RecordThrottle("unauthenticated")
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := a.parse(raw)
		if err != nil {
			a.logger.Debug("bearer token rejected", slog.String("request_id", RequestID(r.Context())), slog.Any("error", err))
			metrics.Contracts().RecordThrottle("unauthenticated")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// RequireScope rejects authenticated requests whose token lacks scope.
func (a *Authenticator) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if a == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(claimsKey{}).(*authClaims)
			if claims == nil {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			if _, ok := claims.scopes()[scope]; !ok {
				writeError(w, http.StatusForbidden, "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IssueToken signs an HS256 token for subject valid for ttl.
func IssueToken(cfg AuthConfig, subject string, scopes []string, ttl time.Duration, now time.Time) (string, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return "", errors.New("auth secret not configured")
	}
	claims := authClaims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
