// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	azuread "github.com/hashicorp/cap-azuread"
)

// azureClaims are the Azure AD id_token claims used to build a Profile.
type azureClaims struct {
	ObjectID          string   `json:"oid"`
	TenantID          string   `json:"tid"`
	Name              string   `json:"name"`
	UPN               string   `json:"upn"`
	PreferredUsername string   `json:"preferred_username"`
	GivenName         string   `json:"given_name"`
	FamilyName        string   `json:"family_name"`
	Email             string   `json:"email"`
	Emails            []string `json:"emails"`
}

func newProfile(tk *oidc.IDToken) (*azureClaims, *azuread.Profile, error) {
	const op = "oidc.newProfile"
	var claims azureClaims
	if err := tk.Claims(&claims); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to decode claims: %v: %w", op, err, ErrIdTokenVerificationFailed)
	}
	var raw map[string]interface{}
	if err := tk.Claims(&raw); err != nil {
		return nil, nil, fmt.Errorf("%s: unable to decode claims: %v: %w", op, err, ErrIdTokenVerificationFailed)
	}

	p := &azuread.Profile{
		ID:          claims.ObjectID,
		Subject:     tk.Subject,
		DisplayName: claims.Name,
		UPN:         claims.UPN,
		Name: azuread.Name{
			GivenName:  claims.GivenName,
			FamilyName: claims.FamilyName,
		},
		Emails: claims.Emails,
		Claims: raw,
	}
	if p.UPN == "" {
		p.UPN = claims.PreferredUsername
	}
	if len(p.Emails) == 0 && claims.Email != "" {
		p.Emails = []string{claims.Email}
	}
	return &claims, p, nil
}
