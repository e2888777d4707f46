package apiv1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"content-studio/internal/domain"
	"content-studio/internal/infra/logging"
	"content-studio/internal/usecase"
)

const (
	roleAdmin = "admin"
	roleUser  = "user"

	sessionCookie = "studio_session"
)

// Claims carry the caller id in Subject.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl}
}

// Mint signs a session token for userID.
func (a *AuthManager) Mint(userID string, admin bool) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", domain.ErrInvalidArgument
	}
	role := roleUser
	if admin {
		role = roleAdmin
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ParseFromRequest reads the token from the Authorization header, the
// session cookie, or the access_token query parameter (EventSource cannot
// set headers).
func (a *AuthManager) ParseFromRequest(r *http.Request) (*Claims, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return a.parse(c.Value)
	}
	if tok := r.URL.Query().Get("access_token"); tok != "" {
		return a.parse(tok)
	}
	return nil, errors.New("missing token")
}

func (a *AuthManager) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type callerKey struct{}

func withCaller(ctx context.Context, c usecase.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the authenticated caller stored by Authenticate.
func CallerFrom(ctx context.Context) (usecase.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(usecase.Caller)
	return c, ok
}

// Authenticate rejects requests without a valid token.
func (a *AuthManager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.ParseFromRequest(r)
		if err != nil {
			writeError(w, r, domain.ErrUnauthorized)
			return
		}
		caller := usecase.Caller{UserID: claims.Subject, Admin: claims.Role == roleAdmin}
		ctx := withCaller(logging.WithUserID(r.Context(), caller.UserID), caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := CallerFrom(r.Context()); !ok || !c.Admin {
			writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
