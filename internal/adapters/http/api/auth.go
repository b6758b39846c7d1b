package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HeaderMemberID carries the member ID in development mode.
const HeaderMemberID = "X-Member-ID"

type memberKey struct{}

// MemberFrom returns the authenticated member ID, empty when anonymous.
func MemberFrom(ctx context.Context) string {
	id, _ := ctx.Value(memberKey{}).(string)
	return id
}

// WithMember attaches a member ID to ctx.
func WithMember(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, memberKey{}, memberID)
}

// Authenticator resolves the caller's member ID. With a secret it accepts
// HS256 bearer tokens whose subject is the member ID; without one it trusts
// the X-Member-ID header.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator creates an Authenticator. An empty secret selects
// development mode.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// DevMode reports whether identities are taken from a plain header.
func (a *Authenticator) DevMode() bool { return len(a.secret) == 0 }

// Middleware attaches the caller's identity. Requests without credentials
// continue anonymously; invalid credentials are rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "api.authenticate"
		id, err := a.identify(r)
		if err != nil {
			writeError(w, WrapKind(op, ErrUnauthorized, err))
			return
		}
		if id != "" {
			r = r.WithContext(WithMember(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) identify(r *http.Request) (string, error) {
	if a.DevMode() {
		return strings.TrimSpace(r.Header.Get(HeaderMemberID)), nil
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", nil
	}
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return "", errors.New("missing bearer token")
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// SignToken issues an HS256 token for memberID.
func SignToken(secret, memberID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   memberID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
