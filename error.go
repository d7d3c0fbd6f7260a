// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import (
	"errors"
	"strings"
)

var (
	ErrInvalidParameter      = errors.New("invalid parameter")
	ErrNilParameter          = errors.New("nil parameter")
	ErrMissingRequiredOption = errors.New("missing required option")
	ErrMissingClientSecret   = errors.New("missing client secret")
	ErrUnknownPermission     = errors.New("unknown permission")
)

// ConfigError is returned when a Config cannot be turned into a Descriptor.
// Kind is either ErrMissingRequiredOption or ErrMissingClientSecret and
// Missing lists the option names which were absent, in the order they are
// checked.
type ConfigError struct {
	Kind    error
	Missing []string
	Msg     string
}

func newMissingOptionsError(missing []string) *ConfigError {
	return &ConfigError{
		Kind:    ErrMissingRequiredOption,
		Missing: missing,
		Msg:     "missing required options: " + strings.Join(missing, ", "),
	}
}

func newMissingClientSecretError() *ConfigError {
	return &ConfigError{
		Kind:    ErrMissingClientSecret,
		Missing: []string{optClientSecret},
		Msg:     `client secret is mandatory if response type is not "id_token"`,
	}
}

// Error satisfies the error interface.
func (e *ConfigError) Error() string {
	return e.Msg
}

// Unwrap returns the error's kind.
func (e *ConfigError) Unwrap() error {
	return e.Kind
}

// Is reports whether target is the error's kind or ErrInvalidParameter.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidParameter || target == e.Kind
}
