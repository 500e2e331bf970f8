package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/token"
	"github.com/crewbase/crewbase/internal/usecase"
)

type subjectKey struct{}

// SubjectFrom returns the authenticated subject placed by BearerAuth.
func SubjectFrom(ctx context.Context) (domain.Subject, bool) {
	sub, ok := ctx.Value(subjectKey{}).(domain.Subject)
	return sub, ok
}

// WithSubject attaches a subject to the context. Exported for handler tests.
func WithSubject(ctx context.Context, sub domain.Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// BearerAuth is a middleware factory validating access tokens. The subject
// is re-resolved in the store matching the token's identity-domain
// discriminator; the bound partition always comes from the Host header, so a
// token minted for one tenant is useless against another.
func BearerAuth(issuer *token.Issuer, resolver usecase.SubjectResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Validate(raw, token.TypeAccess)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			id, err := claims.SubjectID()
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			sub, err := resolver.ResolveSubject(r.Context(), claims.Domain, id)
			if err != nil || !sub.IsActive() {
				logger.Warn("bearer token rejected", "domain", claims.Domain, "remote_addr", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), sub)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return header[len(prefix):], true
}
