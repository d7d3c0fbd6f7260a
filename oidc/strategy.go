// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	azuread "github.com/hashicorp/cap-azuread"
	sdkHttp "github.com/hashicorp/cap-azuread/sdk/http"
	"golang.org/x/oauth2"
)

// SuccessFunc writes the response for a successful login.
type SuccessFunc func(w http.ResponseWriter, req *http.Request, profile *azuread.Profile)

// ErrorFunc writes the response for a failed login.
type ErrorFunc func(w http.ResponseWriter, req *http.Request, err error)

// AuthenErrorResponse is the error the provider sent to the redirect URL.
type AuthenErrorResponse struct {
	Error       string
	Description string
	Uri         string
}

// DefaultSuccess responds with 200 OK.
func DefaultSuccess(w http.ResponseWriter, _ *http.Request, _ *azuread.Profile) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("login successful"))
}

// DefaultError maps err to a status code without revealing its details.
func DefaultError(w http.ResponseWriter, _ *http.Request, err error) {
	http.Error(w, http.StatusText(StatusCode(err)), StatusCode(err))
}

// StatusCode returns the HTTP status for a login error.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrLoginFailed),
		errors.Is(err, ErrInvalidNonce),
		errors.Is(err, ErrInvalidIssuer),
		errors.Is(err, ErrExchangeFailed),
		errors.Is(err, ErrIdTokenVerificationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrExpiredState),
		errors.Is(err, ErrMissingIdToken),
		errors.Is(err, ErrInvalidCookie),
		errors.Is(err, ErrInvalidParameter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// LoginHandler creates a new authentication attempt and redirects the user
// agent to the provider's authorization endpoint.
func (s *Strategy) LoginHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		const op = "Strategy.Login"
		authURL, err := s.AuthURL(w, req)
		if err != nil {
			s.logger.Error("unable to start login", "op", op, "error", err)
			s.failure(w, req, err)
			return
		}
		http.Redirect(w, req, authURL, http.StatusFound)
	})
}

// AuthURL stores a new State and returns the URL which starts the flow with
// the provider.
func (s *Strategy) AuthURL(w http.ResponseWriter, req *http.Request) (string, error) {
	const op = "Strategy.AuthURL"
	st, err := NewState(s.config.nonceLifetime, WithNow(s.now))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Save(w, req, st); err != nil {
		return "", fmt.Errorf("%s: unable to save state: %w", op, err)
	}
	return s.oauth2Config.AuthCodeURL(st.ID,
		oidc.Nonce(st.Nonce),
		oauth2.SetAuthURLParam("response_type", s.config.ResponseType),
		oauth2.SetAuthURLParam("response_mode", s.config.ResponseMode),
	), nil
}

// CallbackHandler handles the provider's response at the redirect URL. Only
// the configured callback method is accepted.
func (s *Strategy) CallbackHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		const op = "Strategy.Callback"
		if !strings.EqualFold(req.Method, s.config.CallbackMethod) {
			w.Header().Set("Allow", s.config.CallbackMethod)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		profile, err := s.Callback(w, req)
		if err != nil {
			s.logger.Warn("login failed", "op", op, "error", err)
			s.failure(w, req, err)
			return
		}
		if s.config.NoPII() {
			s.logger.Info("login succeeded", "op", op)
		} else {
			s.logger.Info("login succeeded", "op", op, "username", profile.Username, "sub", profile.Subject)
		}
		s.success(w, req, profile)
	})
}

// Callback validates the provider's response, runs the verify func and
// returns the profile it completed with.
func (s *Strategy) Callback(w http.ResponseWriter, req *http.Request) (*azuread.Profile, error) {
	const op = "Strategy.Callback"
	ctx := req.Context()

	// FormValue prioritizes body values, so this covers form_post and query
	if e := req.FormValue("error"); e != "" {
		resp := &AuthenErrorResponse{
			Error:       e,
			Description: req.FormValue("error_description"),
			Uri:         req.FormValue("error_uri"),
		}
		return nil, fmt.Errorf("%s: provider returned %s: %s: %w", op, resp.Error, resp.Description, ErrLoginFailed)
	}

	reqState := req.FormValue("state")
	if reqState == "" {
		return nil, fmt.Errorf("%s: state is missing: %w", op, ErrInvalidParameter)
	}
	st, err := s.store.Load(w, req, reqState)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to load state: %w", op, err)
	}

	rawIDToken := req.FormValue("id_token")
	if s.config.wantsCode() {
		code := req.FormValue("code")
		if code == "" {
			return nil, fmt.Errorf("%s: authorization code is missing: %w", op, ErrInvalidParameter)
		}
		tk, err := s.oauth2Config.Exchange(sdkHttp.OidcClientContext(ctx, s.client), code)
		if err != nil {
			return nil, fmt.Errorf("%s: %v: %w", op, err, ErrExchangeFailed)
		}
		if raw, ok := tk.Extra("id_token").(string); ok && raw != "" {
			rawIDToken = raw
		}
	}
	if rawIDToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIdToken)
	}

	idTk, err := s.verifier.Verify(sdkHttp.OidcClientContext(ctx, s.client), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", op, err, ErrIdTokenVerificationFailed)
	}
	if err := s.checkTimes(idTk); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if idTk.Nonce != st.Nonce {
		return nil, fmt.Errorf("%s: id_token nonce does not match state: %w", op, ErrInvalidNonce)
	}
	claims, profile, err := newProfile(idTk)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.checkIssuer(idTk.Issuer, claims.TenantID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.config.PassReqToCallback {
		ctx = azuread.WithRequest(ctx, req)
	}
	return s.runVerify(ctx, idTk.Issuer, idTk.Subject, profile)
}

type verifyResult struct {
	err     error
	profile *azuread.Profile
}

// runVerify calls the verify func and waits for it to complete through its
// DoneFunc. Only the first completion counts.
func (s *Strategy) runVerify(ctx context.Context, iss, sub string, profile *azuread.Profile) (*azuread.Profile, error) {
	const op = "Strategy.runVerify"
	ch := make(chan verifyResult, 1)
	var once sync.Once
	done := func(err error, p *azuread.Profile) {
		once.Do(func() { ch <- verifyResult{err: err, profile: p} })
	}
	go s.verify(ctx, iss, sub, profile, done)

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case r := <-ch:
		switch {
		case r.err != nil:
			return nil, fmt.Errorf("%s: verify failed: %v: %w", op, r.err, ErrLoginFailed)
		case r.profile == nil:
			return nil, fmt.Errorf("%s: verify returned no user: %w", op, ErrLoginFailed)
		}
		return r.profile, nil
	}
}

// checkTimes validates the id_token's exp and nbf claims. The clock skew
// widens both ends of the validity window.
func (s *Strategy) checkTimes(tk *oidc.IDToken) error {
	const op = "Strategy.checkTimes"
	var claims struct {
		NotBefore *float64 `json:"nbf"`
	}
	if err := tk.Claims(&claims); err != nil {
		return fmt.Errorf("%s: unable to decode claims: %v: %w", op, err, ErrIdTokenVerificationFailed)
	}
	now := s.now()
	skew := s.config.clockSkew
	if now.After(tk.Expiry.Add(skew)) {
		return fmt.Errorf("%s: expired at %s: %w", op, tk.Expiry.UTC().Format(time.RFC3339), ErrExpiredToken)
	}
	if claims.NotBefore != nil {
		nbf := time.Unix(int64(*claims.NotBefore), 0)
		if now.Add(skew).Before(nbf) {
			return fmt.Errorf("%s: not valid before %s: %w", op, nbf.UTC().Format(time.RFC3339), ErrInvalidNotBefore)
		}
	}
	return nil
}

// checkIssuer applies the ValidateIssuer and Issuer options. Azure's
// multi-tenant metadata uses a {tenantid} placeholder which is replaced by
// the token's tid claim.
func (s *Strategy) checkIssuer(iss, tenantID string) error {
	const op = "Strategy.checkIssuer"
	if !s.config.ShouldValidateIssuer() {
		return nil
	}
	allowed := s.config.Issuer
	if len(allowed) == 0 {
		allowed = []string{s.issuer}
	}
	for _, a := range allowed {
		if strings.Contains(a, "{tenantid}") {
			if tenantID == "" {
				continue
			}
			a = strings.ReplaceAll(a, "{tenantid}", tenantID)
		}
		if a == iss {
			return nil
		}
	}
	return fmt.Errorf("%s: issuer %q is not accepted: %w", op, iss, ErrInvalidIssuer)
}

func isHTTPS(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Scheme == "https"
}
