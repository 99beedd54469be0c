package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sofintel/sof-extractor/internal/common"
)

// Authenticator resolves a bearer token to an owner identity.
type Authenticator interface {
	Authenticate(token string) (owner string, err error)
}

// StaticTokenAuthenticator accepts a single preconfigured token and maps it to
// a fixed owner. Suitable for single-tenant deployments.
type StaticTokenAuthenticator struct {
	token string
	owner string
}

func NewStaticTokenAuthenticator(token, owner string) *StaticTokenAuthenticator {
	if owner == "" {
		owner = "default"
	}
	return &StaticTokenAuthenticator{token: token, owner: owner}
}

func (a *StaticTokenAuthenticator) Authenticate(token string) (string, error) {
	if a.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
		return "", common.ErrUnauthorized
	}
	return a.owner, nil
}

type ctxKey int

const ownerKey ctxKey = 0

// ownerFrom returns the authenticated owner set by requireAuth.
func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// requireAuth extracts the bearer token, authenticates it, and stores the
// owner on the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, common.ErrUnauthorized)
			return
		}
		owner, err := s.auth.Authenticate(token)
		if err != nil {
			s.writeError(w, r, common.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}
