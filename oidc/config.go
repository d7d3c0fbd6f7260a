// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	azuread "github.com/hashicorp/cap-azuread"
	"github.com/hashicorp/go-multierror"
)

// Strategy side defaults for options the descriptor leaves unset.
const (
	DefaultNonceLifetime  = time.Hour
	DefaultNonceMaxAmount = 10
	DefaultClockSkew      = 5 * time.Minute
)

// response types a strategy accepts
const (
	responseTypeCode    = "code"
	responseTypeIDToken = "id_token"
)

// config is the strategy's view of the resolved azuread.Options.
type config struct {
	azuread.Options

	responseTypes  []string
	nonceLifetime  time.Duration
	nonceMaxAmount int
	clockSkew      time.Duration
	cookieKeys     [][]byte
	scopes         []string
}

func (c *config) wantsCode() bool    { return containsString(c.responseTypes, responseTypeCode) }
func (c *config) wantsIDToken() bool { return containsString(c.responseTypes, responseTypeIDToken) }

// newConfig validates opts and applies the strategy defaults. All problems
// are reported together.
func newConfig(opts azuread.Options, verify azuread.VerifyFunc) (*config, error) {
	const op = "oidc.newConfig"
	var errs *multierror.Error

	c := &config{
		Options:        opts,
		responseTypes:  strings.Fields(opts.ResponseType),
		nonceLifetime:  time.Duration(opts.NonceLifetime) * time.Second,
		nonceMaxAmount: opts.NonceMaxAmount,
		clockSkew:      DefaultClockSkew,
	}
	if c.nonceLifetime <= 0 {
		c.nonceLifetime = DefaultNonceLifetime
	}
	if c.nonceMaxAmount <= 0 {
		c.nonceMaxAmount = DefaultNonceMaxAmount
	}
	if opts.ClockSkew != nil {
		c.clockSkew = time.Duration(*opts.ClockSkew) * time.Second
	}

	if c.clockSkew < 0 {
		errs = multierror.Append(errs, fmt.Errorf("clock skew %s is negative: %w", c.clockSkew, ErrInvalidParameter))
	}
	if verify == nil {
		errs = multierror.Append(errs, fmt.Errorf("verify func is nil: %w", ErrNilParameter))
	}
	if opts.ClientID == "" {
		errs = multierror.Append(errs, fmt.Errorf("client id is empty: %w", ErrInvalidParameter))
	}
	if opts.IdentityMetadata == "" {
		errs = multierror.Append(errs, fmt.Errorf("identity metadata URL is empty: %w", ErrInvalidParameter))
	} else if u, err := url.Parse(opts.IdentityMetadata); err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		errs = multierror.Append(errs, fmt.Errorf("identity metadata URL %q is invalid: %w", opts.IdentityMetadata, ErrInvalidParameter))
	}

	switch u, err := url.Parse(opts.RedirectURL); {
	case opts.RedirectURL == "" || err != nil || u.Host == "":
		errs = multierror.Append(errs, fmt.Errorf("redirect URL %q is invalid: %w", opts.RedirectURL, ErrInvalidParameter))
	case u.Scheme == "http" && !opts.AllowHTTPForRedirectURL:
		errs = multierror.Append(errs, fmt.Errorf("redirect URL %q uses http and allowHttpForRedirectUrl is not set: %w", opts.RedirectURL, ErrInvalidParameter))
	case u.Scheme != "https" && u.Scheme != "http":
		errs = multierror.Append(errs, fmt.Errorf("redirect URL %q scheme is not http or https: %w", opts.RedirectURL, ErrInvalidParameter))
	}

	if len(c.responseTypes) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("response type is empty: %w", ErrInvalidParameter))
	}
	for _, rt := range c.responseTypes {
		if rt != responseTypeCode && rt != responseTypeIDToken {
			errs = multierror.Append(errs, fmt.Errorf("unsupported response type %q: %w", rt, ErrInvalidParameter))
		}
	}
	if c.wantsCode() && opts.ClientSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("client secret is required for response type %q: %w", opts.ResponseType, ErrInvalidParameter))
	}

	switch opts.ResponseMode {
	case azuread.ResponseModeFormPost:
	case azuread.ResponseModeQuery:
		if c.wantsIDToken() {
			errs = multierror.Append(errs, fmt.Errorf("response mode %q can't carry an id_token: %w", opts.ResponseMode, ErrInvalidParameter))
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("unsupported response mode %q: %w", opts.ResponseMode, ErrInvalidParameter))
	}

	switch opts.CallbackMethod {
	case http.MethodGet, http.MethodPost:
	case "":
		errs = multierror.Append(errs, fmt.Errorf("callback method is empty: %w", ErrInvalidParameter))
	default:
		// hosts may route other methods; nothing to check
	}

	if opts.UseCookieInsteadOfSession {
		if len(opts.CookieEncryptionKeys) == 0 {
			errs = multierror.Append(errs, fmt.Errorf("cookie encryption keys are required when using cookies instead of session: %w", ErrInvalidParameter))
		}
		for i, k := range opts.CookieEncryptionKeys {
			if len(k.Key) != cookieKeyLen {
				errs = multierror.Append(errs, fmt.Errorf("cookie encryption key %d must be %d bytes: %w", i, cookieKeyLen, ErrInvalidParameter))
				continue
			}
			c.cookieKeys = append(c.cookieKeys, []byte(k.Key))
		}
	}

	c.scopes = append([]string(nil), opts.Scope...)
	if !containsString(c.scopes, oidc.ScopeOpenID) {
		c.scopes = append([]string{oidc.ScopeOpenID}, c.scopes...)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%s: invalid strategy options: %w", op, err)
	}
	return c, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
