// Package security guards the REST endpoints with signed bearer tokens.
//
// Tokens are HS256 JWTs carrying a user name and an admin flag. Reading the
// tunnel status requires any valid token; changing settings requires an
// admin token. A nil *Manager disables the checks.
package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written into every token.
const Issuer = "wgtunnel"

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 24 * time.Hour

// MinSecretLen is the shortest accepted signing secret.
const MinSecretLen = 16

// AccessTokenParam is the query parameter accepted in place of the
// Authorization header, for clients such as browsers opening a WebSocket.
const AccessTokenParam = "access_token"

var (
	ErrSecretTooShort = errors.New("jwt secret too short")
	ErrMissingToken   = errors.New("missing authorization token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrForbidden      = errors.New("insufficient privileges")
)

// Claims are the token contents.
type Claims struct {
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
	jwt.RegisteredClaims
}

// User is the authenticated caller.
type User struct {
	Username string
	Admin    bool
}

// Predicate decides whether a user may access an endpoint.
type Predicate func(User) bool

// IsAuthenticated admits any user with a valid token.
func IsAuthenticated(User) bool { return true }

// IsAdmin admits admin users only.
func IsAdmin(u User) bool { return u.Admin }

// Manager issues and verifies tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a Manager signing with secret. A ttl of zero selects
// DefaultTokenTTL.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrSecretTooShort, MinSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the given user.
func (m *Manager) Issue(user User) (string, error) {
	now := m.now()
	claims := &Claims{
		Username: user.Username,
		Admin:    user.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    Issuer,
			Subject:   user.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates a token.
func (m *Manager) Verify(tokenString string) (User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(Issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return User{}, ErrExpiredToken
		}
		return User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return User{}, ErrInvalidToken
	}
	return User{Username: claims.Username, Admin: claims.Admin}, nil
}

// Authenticate extracts and verifies the token carried by r.
func (m *Manager) Authenticate(r *http.Request) (User, error) {
	raw := bearerToken(r)
	if raw == "" {
		return User{}, ErrMissingToken
	}
	return m.Verify(raw)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get(AccessTokenParam)
}

type contextKey struct{}

// UserFromContext returns the user stored by Require.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(contextKey{}).(User)
	return u, ok
}

// Require returns middleware admitting requests whose user satisfies pred.
// Missing or invalid tokens get 401, insufficient privileges 403. On a nil
// Manager every request passes.
func (m *Manager) Require(pred Predicate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := m.Authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="`+Issuer+`"`)
				writeError(w, http.StatusUnauthorized, "Unauthorized", err)
				return
			}
			if !pred(user) {
				writeError(w, http.StatusForbidden, "Forbidden", ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, user)))
		})
	}
}

// errorBody matches the JSON error body of the REST handlers.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Details: err.Error()})
}
