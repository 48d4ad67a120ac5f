// Package jwt implements auth.Authenticator on top of JSON Web Tokens.
//
// Supported signing algorithms: HS256/384/512, RS256/384/512 and
// ES256/384/512. Revocation is optional and goes through the pluggable
// Store interface.
//
//	jwtAuth, err := jwt.New(
//	    jwt.WithKey("your-secret-key-min-32-chars-long"),
//	    jwt.WithExpired(2 * time.Hour),
//	)
//	token, err := jwtAuth.Sign(ctx, "user-123")
//	claims, err := jwtAuth.Verify(ctx, token.GetAccessToken())
package jwt

import (
	"context"
	"crypto/rand"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/kart-io/logger"

	"github.com/kart-io/sentinel-kb/pkg/errors"
	"github.com/kart-io/sentinel-kb/pkg/security/auth"
)

// JWT implements auth.Authenticator using JSON Web Tokens.
type JWT struct {
	opts   *Options
	store  Store
	method jwt.SigningMethod
}

// Option is a functional option for JWT authenticator.
type Option func(*JWT)

// New creates a new JWT authenticator.
func New(opts ...Option) (*JWT, error) {
	j := &JWT{opts: NewOptions()}
	for _, opt := range opts {
		opt(j)
	}

	if err := j.opts.Complete(); err != nil {
		return nil, fmt.Errorf("complete options: %w", err)
	}
	if err := j.opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate options: %w", err)
	}

	j.method = jwt.GetSigningMethod(j.opts.SigningMethod)
	if j.method == nil {
		return nil, fmt.Errorf("unsupported signing method: %s", j.opts.SigningMethod)
	}

	return j, nil
}

// WithOptions sets the JWT options.
func WithOptions(opts *Options) Option {
	return func(j *JWT) {
		if opts != nil {
			j.opts = opts
		}
	}
}

// WithKey sets the signing key.
func WithKey(key string) Option {
	return func(j *JWT) { j.opts.Key = key }
}

// WithSigningMethod sets the signing algorithm.
func WithSigningMethod(method string) Option {
	return func(j *JWT) { j.opts.SigningMethod = method }
}

// WithExpired sets the token expiration duration.
func WithExpired(d time.Duration) Option {
	return func(j *JWT) { j.opts.Expired = d }
}

// WithIssuer sets the token issuer.
func WithIssuer(issuer string) Option {
	return func(j *JWT) { j.opts.Issuer = issuer }
}

// WithStore sets the token store for revocation support.
func WithStore(store Store) Option {
	return func(j *JWT) { j.store = store }
}

// WithMaxRefresh sets the maximum refresh duration.
func WithMaxRefresh(d time.Duration) Option {
	return func(j *JWT) { j.opts.MaxRefresh = d }
}

// WithAudience sets the token audience.
func WithAudience(audience ...string) Option {
	return func(j *JWT) { j.opts.Audience = audience }
}

// WithPublicKey sets the public key for RSA/ECDSA algorithms.
func WithPublicKey(key string) Option {
	return func(j *JWT) { j.opts.PublicKey = key }
}

// WithKeyID sets the key identifier.
func WithKeyID(kid string) Option {
	return func(j *JWT) { j.opts.KeyID = kid }
}

// Type returns the authenticator type.
func (j *JWT) Type() string { return "jwt" }

// IsDisabled returns true if authentication is disabled.
func (j *JWT) IsDisabled() bool { return j.opts.DisableAuth }

// Sign creates a new token for the given subject.
func (j *JWT) Sign(ctx context.Context, subject string, opts ...auth.SignOption) (auth.Token, error) {
	signOpts := &auth.SignOptions{}
	for _, opt := range opts {
		opt(signOpts)
	}

	now := time.Now()
	expiresAt := now.Add(j.opts.Expired)
	if signOpts.ExpiresAt != nil {
		expiresAt = *signOpts.ExpiresAt
	}

	tokenID := signOpts.TokenID
	if tokenID == "" {
		var err error
		if tokenID, err = generateTokenID(); err != nil {
			return nil, err
		}
	}

	audience := j.opts.Audience
	if len(signOpts.Audience) > 0 {
		audience = signOpts.Audience
	}

	claims := &customClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        tokenID,
		},
		Extra: signOpts.Extra,
	}
	if len(audience) > 0 {
		claims.Audience = audience
	}

	token := jwt.NewWithClaims(j.method, claims)
	if j.opts.KeyID != "" {
		token.Header["kid"] = j.opts.KeyID
	}

	signingKey, err := j.getSigningKey()
	if err != nil {
		return nil, err
	}
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err).WithMessage("failed to sign token")
	}

	return &auth.BaseToken{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt.Unix(),
		ExpiresIn:   int64(expiresAt.Sub(now).Seconds()),
	}, nil
}

// Verify validates the token and returns the claims.
func (j *JWT) Verify(ctx context.Context, tokenString string) (*auth.Claims, error) {
	if tokenString == "" {
		return nil, errors.ErrInvalidToken.WithMessage("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &customClaims{}, j.keyFunc)
	if err != nil {
		return nil, j.mapParseError(err)
	}
	if !token.Valid {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*customClaims)
	if !ok {
		return nil, errors.ErrInvalidToken.WithMessage("invalid claims type")
	}

	if err := j.checkRevoked(ctx, tokenString); err != nil {
		return nil, err
	}

	return j.toAuthClaims(claims), nil
}

// Refresh issues a new token from a valid existing one. The old token is
// revoked and the new token gets a fresh ID so a stolen refresh cannot pin
// a session.
func (j *JWT) Refresh(ctx context.Context, tokenString string) (auth.Token, error) {
	claims, err := j.verifyForRefresh(ctx, tokenString)
	if err != nil {
		return nil, err
	}

	if err := j.checkRefreshWindow(claims.IssuedAt); err != nil {
		return nil, err
	}

	j.revokeOldToken(ctx, tokenString)

	var signOpts []auth.SignOption
	if len(claims.Extra) > 0 {
		signOpts = append(signOpts, auth.WithExtra(claims.Extra))
	}
	if len(claims.Audience) > 0 {
		signOpts = append(signOpts, auth.WithAudience(claims.Audience...))
	}
	// 不携带旧的 TokenID,Sign 会生成新 ID。
	return j.Sign(ctx, claims.Subject, signOpts...)
}

// checkRefreshWindow rejects tokens issued longer than MaxRefresh ago.
func (j *JWT) checkRefreshWindow(issuedAtUnix int64) error {
	deadline := time.Unix(issuedAtUnix, 0).Add(j.opts.MaxRefresh)
	if time.Now().After(deadline) {
		return errors.ErrSessionExpired.WithMessage("token refresh window expired")
	}
	return nil
}

// revokeOldToken revokes the old token. Failures are logged only, a dead
// revocation store must not block refresh.
func (j *JWT) revokeOldToken(ctx context.Context, tokenString string) {
	if j.store == nil {
		return
	}
	if err := j.Revoke(ctx, tokenString); err != nil {
		logger.Warnw("failed to revoke old token during refresh",
			"error", err,
			"tokenPrefix", tokenPrefix(tokenString))
	}
}

// tokenPrefix truncates a token for log output.
func tokenPrefix(tokenString string) string {
	if len(tokenString) > 16 {
		return tokenString[:16] + "..."
	}
	return tokenString
}

// parseUnvalidated 解析令牌但跳过时间类校验,签名仍然强制验证。
// 用于 Refresh/Revoke 这类需要接受已过期令牌的路径。
func (j *JWT) parseUnvalidated(tokenString string) (*customClaims, error) {
	if tokenString == "" {
		return nil, errors.ErrInvalidToken.WithMessage("token is empty")
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, err := parser.ParseWithClaims(tokenString, &customClaims{}, j.keyFunc)
	if err != nil {
		return nil, j.mapParseError(err)
	}

	claims, ok := token.Claims.(*customClaims)
	if !ok {
		return nil, errors.ErrInvalidToken.WithMessage("invalid claims type")
	}
	if claims.IssuedAt == nil {
		return nil, errors.ErrInvalidToken.WithMessage("missing issued at claim")
	}
	return claims, nil
}

// verifyForRefresh parses a token skipping expiration checks, but still
// enforcing signature, MaxRefresh window and revocation.
func (j *JWT) verifyForRefresh(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := j.parseUnvalidated(tokenString)
	if err != nil {
		return nil, err
	}

	if time.Now().After(claims.IssuedAt.Add(j.opts.MaxRefresh)) {
		return nil, errors.ErrSessionExpired.WithMessage("token refresh period exceeded")
	}

	if err := j.checkRevoked(ctx, tokenString); err != nil {
		return nil, err
	}

	return j.toAuthClaims(claims), nil
}

// Revoke puts the token on the revocation list until its MaxRefresh window
// closes, so it can neither authenticate nor be refreshed again.
func (j *JWT) Revoke(ctx context.Context, tokenString string) error {
	if j.store == nil {
		return errors.ErrNotImplemented.WithMessage("token revocation requires a store")
	}

	claims, err := j.parseUnvalidated(tokenString)
	if err != nil {
		return err
	}

	ttl := time.Until(claims.IssuedAt.Add(j.opts.MaxRefresh))
	if ttl <= 0 {
		// 已过 MaxRefresh 窗口的令牌本身已失效。
		return nil
	}

	return j.store.Revoke(ctx, tokenString, ttl)
}

// keyFunc checks the algorithm matches the configured one before handing
// out the verification key.
func (j *JWT) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != j.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return j.getVerifyingKey()
}

// checkRevoked consults the store when one is configured.
func (j *JWT) checkRevoked(ctx context.Context, tokenString string) error {
	if j.store == nil {
		return nil
	}
	revoked, err := j.store.IsRevoked(ctx, tokenString)
	if err != nil {
		return errors.ErrInternal.WithCause(err).WithMessage("failed to check token revocation")
	}
	if revoked {
		return errors.ErrTokenRevoked
	}
	return nil
}

// toAuthClaims converts parsed claims, resolving the subject through
// IdentityKey when configured.
func (j *JWT) toAuthClaims(claims *customClaims) *auth.Claims {
	subject := claims.Subject
	if j.opts.IdentityKey != "" && j.opts.IdentityKey != "sub" {
		if val, ok := claims.Extra[j.opts.IdentityKey]; ok {
			if s, ok := val.(string); ok && s != "" {
				subject = s
			} else {
				subject = fmt.Sprintf("%v", val)
			}
		}
	}

	return &auth.Claims{
		Subject:   subject,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		ExpiresAt: claims.ExpiresAt.Unix(),
		IssuedAt:  claims.IssuedAt.Unix(),
		NotBefore: claims.NotBefore.Unix(),
		ID:        claims.ID,
		Extra:     claims.Extra,
	}
}

// getSigningKey returns the key used for signing.
func (j *JWT) getSigningKey() (interface{}, error) {
	if strings.HasPrefix(j.opts.SigningMethod, "HS") {
		return []byte(j.opts.Key), nil
	}

	block, _ := pem.Decode([]byte(j.opts.Key))
	if block == nil {
		return nil, errors.ErrInvalidParam.WithMessage("invalid private key PEM format")
	}

	if strings.HasPrefix(j.opts.SigningMethod, "RS") {
		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			return key, nil
		}
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, errors.ErrInvalidParam.WithCause(err).WithMessage("failed to parse RSA private key")
		}
		return key, nil
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.ErrInvalidParam.WithCause(err).WithMessage("failed to parse ECDSA private key")
	}
	return key, nil
}

// getVerifyingKey returns the key used for verification.
func (j *JWT) getVerifyingKey() (interface{}, error) {
	if strings.HasPrefix(j.opts.SigningMethod, "HS") {
		return []byte(j.opts.Key), nil
	}

	if j.opts.PublicKey == "" {
		return nil, errors.ErrInvalidParam.WithMessage("public key required for RSA/ECDSA verification")
	}

	block, _ := pem.Decode([]byte(j.opts.PublicKey))
	if block == nil {
		return nil, errors.ErrInvalidParam.WithMessage("invalid public key PEM format")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.ErrInvalidParam.WithCause(err).WithMessage("failed to parse public key")
	}
	return key, nil
}

// mapParseError maps golang-jwt parse errors onto the errno registry.
func (j *JWT) mapParseError(err error) *errors.Errno {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "token is expired"):
		return errors.ErrTokenExpired
	case strings.Contains(msg, "signature is invalid"):
		return errors.ErrInvalidToken.WithMessage("invalid signature")
	case strings.Contains(msg, "token is malformed"):
		return errors.ErrInvalidToken.WithMessage("malformed token")
	case strings.Contains(msg, "token is not valid yet"):
		return errors.ErrInvalidToken.WithMessage("token not valid yet")
	default:
		return errors.ErrInvalidToken.WithCause(err)
	}
}

// customClaims extends jwt.RegisteredClaims with extra fields.
type customClaims struct {
	jwt.RegisteredClaims
	Extra map[string]interface{} `json:"extra,omitempty"`
}

func generateTokenID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", errors.ErrInternal.WithCause(err).WithMessage("failed to generate token ID")
	}
	return hex.EncodeToString(b), nil
}
