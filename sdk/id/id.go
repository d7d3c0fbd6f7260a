// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package id

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-uuid"
)

// Len is the length of a generated id without its prefix.
const Len = 32

// New generates a random ID with an optional prefix. It's suitable for an
// oidc state id or nonce.
func New(optionalPrefix string) (string, error) {
	u, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := strings.ReplaceAll(u, "-", "")
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
