package http

import (
	"context"

	"juvenis/app/internal/domain/auth"
)

type contextKey string

const (
	requestIDContextKey contextKey = "juvenis/request-id"
	credentialsKey      contextKey = "juvenis/credentials"
)

// credentials describe who is calling: the raw session token and the client that sent it.
type credentials struct {
	Token  string
	Client auth.Client
	Path   string
}

// RequestIDFromContext extracts the request identifier from the context when available.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDContextKey).(string); ok {
		return value
	}
	return ""
}

func withCredentials(ctx context.Context, creds credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

func credentialsFromContext(ctx context.Context) credentials {
	if ctx == nil {
		return credentials{}
	}
	creds, _ := ctx.Value(credentialsKey).(credentials)
	return creds
}
