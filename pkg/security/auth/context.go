package auth

import (
	"context"
)

type contextKey string

// 认证信息在 context 中的键。
const (
	claimsKey  contextKey = "auth:claims"
	subjectKey contextKey = "auth:subject"
	tokenKey   contextKey = "auth:token"
)

// ContextWithClaims returns a new context with the given claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims from the context, nil when absent.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// ContextWithSubject returns a new context with the given subject (user ID).
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the subject from the context, empty when absent.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey).(string)
	return subject
}

// ContextWithToken returns a new context with the given token string.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the token string from the context, empty when absent.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// InjectAuth 一次性写入 claims、token 和 subject,认证中间件在放行前调用。
func InjectAuth(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = ContextWithClaims(ctx, claims)
	ctx = ContextWithToken(ctx, token)
	if claims != nil {
		ctx = ContextWithSubject(ctx, claims.Subject)
	}
	return ctx
}

// MustSubjectFromContext returns the subject from context or panics.
func MustSubjectFromContext(ctx context.Context) string {
	subject := SubjectFromContext(ctx)
	if subject == "" {
		panic("auth: subject not found in context")
	}
	return subject
}

// MustClaimsFromContext returns the claims from context or panics.
func MustClaimsFromContext(ctx context.Context) *Claims {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		panic("auth: claims not found in context")
	}
	return claims
}
