// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import (
	"context"
	"net/http"
)

// Name is the user's given and family names.
type Name struct {
	GivenName  string `json:"givenName,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
}

// Profile is the user profile a strategy assembles from the id_token claims.
type Profile struct {
	// ID is the Azure object id (oid claim).
	ID          string   `json:"oid,omitempty"`
	Subject     string   `json:"sub,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	UPN         string   `json:"upn,omitempty"`
	Name        Name     `json:"name"`
	Emails      []string `json:"emails,omitempty"`

	// Username is set by the verify function; the host matches it against
	// Config.Users.
	Username string `json:"username,omitempty"`

	// Claims are the raw id_token claims.
	Claims map[string]interface{} `json:"_json,omitempty"`
}

// DoneFunc completes a verification. A nil err and non-nil profile signal a
// successful login.
type DoneFunc func(err error, profile *Profile)

// VerifyFunc is called by a strategy once per authentication attempt, after
// the id_token was validated. iss and sub are the token's issuer and subject.
// Completion is signaled through done, not a return value.
type VerifyFunc func(ctx context.Context, iss, sub string, profile *Profile, done DoneFunc)

// Strategy is a ready to serve login strategy.
type Strategy interface {
	// LoginHandler starts an authentication attempt.
	LoginHandler() http.Handler

	// CallbackHandler receives the identity provider's response at the
	// redirect URL.
	CallbackHandler() http.Handler
}

// StrategyConstructor creates a Strategy from resolved options and the verify
// callback.
type StrategyConstructor interface {
	NewStrategy(ctx context.Context, opts Options, verify VerifyFunc) (Strategy, error)
}

// StrategyConstructorFunc adapts a function to a StrategyConstructor.
type StrategyConstructorFunc func(ctx context.Context, opts Options, verify VerifyFunc) (Strategy, error)

// NewStrategy calls f.
func (f StrategyConstructorFunc) NewStrategy(ctx context.Context, opts Options, verify VerifyFunc) (Strategy, error) {
	return f(ctx, opts, verify)
}

type requestCtxKey struct{}

// WithRequest returns a context carrying the callback request.
func WithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, r)
}

// RequestFromContext returns the callback request when the strategy was
// configured with PassReqToCallback.
func RequestFromContext(ctx context.Context) (*http.Request, bool) {
	r, ok := ctx.Value(requestCtxKey{}).(*http.Request)
	return r, ok
}
