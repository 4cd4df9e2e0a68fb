package middleware

import (
	"context"
	"net/http"

	"github.com/ReadWriteReboot/ClassroomBank/internal/domain"
)

type contextKey string

const (
	ContextPrincipal contextKey = "principal"
	ContextToken     contextKey = "token"
)

// GetPrincipal returns the authenticated caller placed in the context by
// Authenticate. ok is false on routes that never passed through it.
func GetPrincipal(ctx context.Context) (domain.Principal, bool) {
	val, ok := ctx.Value(ContextPrincipal).(domain.Principal)
	return val, ok
}

func GetToken(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextToken).(string)
	return val, ok
}

func setContextValues(r *http.Request, p domain.Principal, token string) *http.Request {
	ctx := context.WithValue(r.Context(), ContextPrincipal, p)
	ctx = context.WithValue(ctx, ContextToken, token)
	return r.WithContext(ctx)
}
