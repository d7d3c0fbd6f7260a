// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package azuread adapts a small set of application options into a strategy
// descriptor that a plugin based authentication host can register to offer
// "Sign in with Azure" through OpenID Connect.
//
// The adapter validates the options, applies the Azure AD defaults (metadata
// URL, response type/mode, callback method and scopes) and references an
// injected StrategyConstructor. The OpenID Connect handshake itself is
// delegated to the constructor; see the oidc sub-package for the default
// implementation built on github.com/coreos/go-oidc/v3.
//
// A minimal registration:
//
//	cfg := &azuread.Config{
//		Tenant:       "contoso",
//		ClientID:     "client-id",
//		ClientSecret: "client-secret",
//		RedirectURL:  "https://example.com/auth/strategy/callback",
//		Users:        []azuread.User{{Username: "Jane Doe", Permissions: azuread.PermissionAll}},
//	}
//	d, err := azuread.NewDescriptor(cfg, oidc.NewConstructor())
//	if err != nil {
//		// abort startup
//	}
//	s, err := d.NewStrategy(ctx)
package azuread
