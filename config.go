// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// option names as they appear in configuration files and error messages.
const (
	optTenant       = "tenant"
	optClientID     = "clientID"
	optRedirectURL  = "redirectUrl"
	optUsers        = "users"
	optClientSecret = "clientSecret"
)

// ClientSecret is the relying party secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Permission is the set of admin permissions granted to a user.
type Permission string

const (
	PermissionRead Permission = "read"
	PermissionAll  Permission = "*"
)

// known reports whether p is one of the permissions a config file may name.
// Users are passed through to the host, so programmatic configs aren't
// checked.
func (p Permission) known() bool {
	return p == PermissionRead || p == PermissionAll
}

// UnmarshalYAML accepts "read", "*" and the alias "all".
func (p *Permission) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	if s == "all" {
		s = string(PermissionAll)
	}
	if !Permission(s).known() {
		return fmt.Errorf("permission %q (line %d): %w", s, n.Line, ErrUnknownPermission)
	}
	*p = Permission(s)
	return nil
}

// User maps an Azure display name onto host permissions.
type User struct {
	Username    string     `json:"username" yaml:"username"`
	Permissions Permission `json:"permissions" yaml:"permissions"`
}

// CookieEncryptionKey is one entry of the state cookie key ring. Key must be
// 32 bytes. IV is accepted for compatibility with existing configuration; a
// fresh IV is generated for every cookie.
type CookieEncryptionKey struct {
	Key string `json:"key" yaml:"key"`
	IV  string `json:"iv" yaml:"iv"`
}

// Proxy describes an outbound proxy used for calls to the identity provider.
type Proxy struct {
	Host     string `json:"host" yaml:"host"`
	Port     string `json:"port" yaml:"port"`
	Protocol string `json:"protocol" yaml:"protocol"`
}

// URL returns the proxy as a URL string, defaulting the protocol to http.
func (p *Proxy) URL() string {
	if p == nil || p.Host == "" {
		return ""
	}
	protocol := strings.TrimSuffix(p.Protocol, ":")
	if protocol == "" {
		protocol = "http"
	}
	if p.Port == "" {
		return fmt.Sprintf("%s://%s", protocol, p.Host)
	}
	return fmt.Sprintf("%s://%s:%s", protocol, p.Host, p.Port)
}

// Config represents the options an application supplies to register Azure AD
// as a login strategy. Tenant, ClientID, RedirectURL and Users are required;
// everything else is optional and defaulted by NewDescriptor or by the
// strategy.
type Config struct {
	// Tenant is the name or id of the tenant against which users authenticate.
	Tenant string `json:"tenant" yaml:"tenant"`

	// ClientID is the relying party id
	ClientID string `json:"clientID" yaml:"clientID"`

	// ClientSecret is the relying party secret. It's mandatory when
	// ResponseType contains "code".
	ClientSecret ClientSecret `json:"clientSecret,omitempty" yaml:"clientSecret"`

	// RedirectURL is where the identity provider sends its response.
	RedirectURL string `json:"redirectUrl" yaml:"redirectUrl"`

	// Users is passed through to the host for authorization mapping.
	Users []User `json:"users" yaml:"users"`

	// IdentityMetadata is the URL of the provider's discovery document.
	IdentityMetadata string `json:"identityMetadata,omitempty" yaml:"identityMetadata"`

	// ResponseType is one of: "code", "id_token", "id_token code" or "code id_token"
	ResponseType string `json:"responseType,omitempty" yaml:"responseType"`

	// ResponseMode is either "form_post" or "query"
	ResponseMode string `json:"responseMode,omitempty" yaml:"responseMode"`

	// CallbackMethod is the HTTP method the callback route accepts.
	CallbackMethod string `json:"callbackMethod,omitempty" yaml:"callbackMethod"`

	AllowHTTPForRedirectURL bool `json:"allowHttpForRedirectUrl,omitempty" yaml:"allowHttpForRedirectUrl"`

	// Scope is the list of scopes the client requests.
	Scope []string `json:"scope,omitempty" yaml:"scope"`

	// ValidateIssuer defaults to true when nil.
	ValidateIssuer *bool `json:"validateIssuer,omitempty" yaml:"validateIssuer"`

	// IsB2C marks an Azure AD B2C tenant. It is passed through to the host
	// and the strategy unchanged; the client secret rule depends on
	// ResponseType alone.
	IsB2C bool `json:"isB2C,omitempty" yaml:"isB2C"`

	// Issuer is the list of accepted id_token issuers. When empty the issuer
	// of the discovery document is used.
	Issuer []string `json:"issuer,omitempty" yaml:"issuer"`

	// PassReqToCallback makes the callback request available to the verify
	// function through RequestFromContext.
	PassReqToCallback bool `json:"passReqToCallback,omitempty" yaml:"passReqToCallback"`

	// LoggingLevel is one of "info", "warn" or "error"
	LoggingLevel string `json:"loggingLevel,omitempty" yaml:"loggingLevel"`

	// LoggingNoPII defaults to true when nil.
	LoggingNoPII *bool `json:"loggingNoPII,omitempty" yaml:"loggingNoPII"`

	// NonceLifetime is in seconds.
	NonceLifetime int `json:"nonceLifetime,omitempty" yaml:"nonceLifetime"`

	// NonceMaxAmount bounds the outstanding authentication attempts.
	NonceMaxAmount int `json:"nonceMaxAmount,omitempty" yaml:"nonceMaxAmount"`

	UseCookieInsteadOfSession bool                  `json:"useCookieInsteadOfSession,omitempty" yaml:"useCookieInsteadOfSession"`
	CookieSameSite            bool                  `json:"cookieSameSite,omitempty" yaml:"cookieSameSite"`
	CookieEncryptionKeys      []CookieEncryptionKey `json:"cookieEncryptionKeys,omitempty" yaml:"cookieEncryptionKeys"`

	// ClockSkew is in seconds and widens the id_token validity window on
	// both sides. Nil means the strategy default; 0 disables the leeway.
	ClockSkew *int `json:"clockSkew,omitempty" yaml:"clockSkew"`

	Proxy *Proxy `json:"proxy,omitempty" yaml:"proxy"`
}

// ParseConfig decodes a YAML (or JSON) document into a Config. Unknown keys
// are rejected. The result is not validated; see Validate.
func ParseConfig(b []byte) (*Config, error) {
	const op = "azuread.ParseConfig"
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%s: unable to decode config: %w", op, err)
	}
	return &c, nil
}

// Validate the config. Every missing required option is reported in a single
// *ConfigError. When ResponseType contains "code" a ClientSecret is required.
// ResponseType is read as given; the "code" default NewDescriptor applies is
// not considered here.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("azuread.Validate: config is nil: %w", ErrNilParameter)
	}
	var missing []string
	if c.Tenant == "" {
		missing = append(missing, optTenant)
	}
	if c.ClientID == "" {
		missing = append(missing, optClientID)
	}
	if c.RedirectURL == "" {
		missing = append(missing, optRedirectURL)
	}
	if len(c.Users) == 0 {
		missing = append(missing, optUsers)
	}
	if len(missing) > 0 {
		return newMissingOptionsError(missing)
	}
	if strings.Contains(c.ResponseType, "code") && c.ClientSecret == "" {
		return newMissingClientSecretError()
	}
	return nil
}
