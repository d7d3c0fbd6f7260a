// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
Package oidc provides the default azuread.StrategyConstructor. Its Strategy
runs the OpenID Connect login against Azure AD using
github.com/coreos/go-oidc/v3 for discovery and id_token verification and
golang.org/x/oauth2 for the authorization code exchange.

Both "form_post" and "query" response modes are supported, as are the "code",
"id_token" and hybrid response types. Authentication attempts (state and
nonce) are kept in memory, or in an encrypted cookie when the
UseCookieInsteadOfSession option is set.

Example:

	d, err := azuread.NewDescriptor(cfg, oidc.NewConstructor())
	if err != nil {
		// handle error
	}
	s, err := d.NewStrategy(ctx)
	if err != nil {
		// handle error
	}
	defer s.(*oidc.Strategy).Done()

	http.Handle("/auth/strategy", s.LoginHandler())
	http.Handle("/auth/strategy/callback", s.CallbackHandler())
*/
package oidc
