// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import "fmt"

// DefaultMetadataVersion is the Azure AD endpoint version used when none is
// given.
const DefaultMetadataVersion = "2.0"

// MetadataURL returns the Azure AD discovery document URL for the tenant. The
// tenant is not escaped. An empty version means DefaultMetadataVersion.
func MetadataURL(tenant, version string) string {
	if version == "" {
		version = DefaultMetadataVersion
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v%s/.well-known/openid-configuration", tenant, version)
}
