// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	got, err := NewID("st")
	require.NoError(err)
	assert.True(strings.HasPrefix(got, "st_"))
	other, err := NewID("st")
	require.NoError(err)
	assert.NotEqual(got, other)
}
