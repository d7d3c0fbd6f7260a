// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
)

var (
	ErrInvalidParameter          = errors.New("invalid parameter")
	ErrNilParameter              = errors.New("nil parameter")
	ErrInvalidCACert             = errors.New("invalid CA certificate")
	ErrInvalidIssuer             = errors.New("invalid issuer")
	ErrIdGeneratorFailed         = errors.New("id generation failed")
	ErrExpiredState              = errors.New("state is expired")
	ErrMissingIdToken            = errors.New("id_token is missing")
	ErrIdTokenVerificationFailed = errors.New("id_token verification failed")
	ErrExpiredToken              = errors.New("token is expired")
	ErrInvalidNotBefore          = errors.New("invalid not before")
	ErrInvalidNonce              = errors.New("invalid nonce")
	ErrNotFound                  = errors.New("not found")
	ErrLoginFailed               = errors.New("login failed")
	ErrDiscoveryFailed           = errors.New("discovery failed")
	ErrExchangeFailed            = errors.New("code exchange failed")
	ErrInvalidCookie             = errors.New("invalid state cookie")
)
