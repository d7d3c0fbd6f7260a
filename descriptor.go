// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
)

const (
	// DescriptorType is the discriminator hosts use to recognize a strategy
	// descriptor.
	DescriptorType = "strategy"

	StrategyName  = "azuread-openidconnect"
	StrategyLabel = "Sign in with Azure"
	StrategyIcon  = "fa-windows"
)

// Defaults applied by NewDescriptor.
const (
	DefaultResponseType = "code"
	DefaultResponseMode = "form_post"

	ResponseModeQuery    = "query"
	ResponseModeFormPost = "form_post"
)

// DefaultScope returns the scopes requested when Config.Scope is empty.
func DefaultScope() []string {
	return []string{"openid", "email", "profile"}
}

// Descriptor is what the host registers: a strategy plus the users allowed
// to log in through it.
type Descriptor struct {
	Type     string
	Users    []User
	Strategy StrategyDescriptor
}

// StrategyDescriptor describes the login method and carries everything
// needed to construct it.
type StrategyDescriptor struct {
	Name     string
	Label    string
	Icon     string
	Strategy StrategyConstructor
	Options  Options
}

// Options is the Config with all defaults applied, plus the verify callback
// handed to the strategy.
type Options struct {
	Config

	Verify VerifyFunc
}

// NoPII reports whether personally identifiable information must be kept
// out of logs. It's true unless LoggingNoPII was explicitly set to false.
func (o Options) NoPII() bool {
	return o.LoggingNoPII == nil || *o.LoggingNoPII
}

// ShouldValidateIssuer is true unless ValidateIssuer was explicitly set to
// false.
func (o Options) ShouldValidateIssuer() bool {
	return o.ValidateIssuer == nil || *o.ValidateIssuer
}

// Logger returns an hclog.Logger named name whose level follows LoggingLevel
// (warn when unset or unknown).
func (o Options) Logger(name string) hclog.Logger {
	level := hclog.Warn
	switch strings.ToLower(o.LoggingLevel) {
	case "info":
		level = hclog.Info
	case "error":
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: level,
	})
}

// NewDescriptor validates c and builds the Descriptor for it, referencing
// ctor as the strategy implementation. Defaults:
//
//	IdentityMetadata        MetadataURL(c.Tenant, "2.0")
//	ResponseType            "code"
//	ResponseMode            "form_post"
//	AllowHTTPForRedirectURL false
//	CallbackMethod          c.CallbackMethod, or "GET" when c.ResponseMode is
//	                        "query", otherwise "POST"
//	Scope                   ["openid", "email", "profile"]
//
// CallbackMethod is derived from the ResponseMode as supplied in c, not from
// its default.
//
// Supported options:
//
//	WithLogger
func NewDescriptor(c *Config, ctor StrategyConstructor, opt ...Option) (*Descriptor, error) {
	const op = "azuread.NewDescriptor"
	if err := Validate(c); err != nil {
		return nil, err
	}
	if ctor == nil {
		return nil, fmt.Errorf("%s: strategy constructor is nil: %w", op, ErrNilParameter)
	}
	opts := getDescriptorOpts(opt...)

	resolved := *c
	resolved.Users = append([]User(nil), c.Users...)
	if resolved.IdentityMetadata == "" {
		resolved.IdentityMetadata = MetadataURL(c.Tenant, DefaultMetadataVersion)
	}
	if resolved.ResponseType == "" {
		resolved.ResponseType = DefaultResponseType
	}
	if resolved.ResponseMode == "" {
		resolved.ResponseMode = DefaultResponseMode
	}
	resolved.CallbackMethod = callbackMethod(c)
	if len(resolved.Scope) == 0 {
		resolved.Scope = DefaultScope()
	} else {
		resolved.Scope = append([]string(nil), c.Scope...)
	}

	opts.withLogger.Debug("resolved azure ad strategy options",
		"op", op,
		"identity_metadata", resolved.IdentityMetadata,
		"response_type", resolved.ResponseType,
		"response_mode", resolved.ResponseMode,
		"callback_method", resolved.CallbackMethod,
		"scope", resolved.Scope,
	)

	return &Descriptor{
		Type:  DescriptorType,
		Users: c.Users,
		Strategy: StrategyDescriptor{
			Name:     StrategyName,
			Label:    StrategyLabel,
			Icon:     StrategyIcon,
			Strategy: ctor,
			Options: Options{
				Config: resolved,
				Verify: Verify,
			},
		},
	}, nil
}

// callbackMethod honors an explicit method, otherwise derives it from the
// raw response mode.
func callbackMethod(c *Config) string {
	if c.CallbackMethod != "" {
		return c.CallbackMethod
	}
	if c.ResponseMode == ResponseModeQuery {
		return "GET"
	}
	return "POST"
}

// Verify uses the Azure display name as the host username. It always
// succeeds.
func Verify(_ context.Context, _, _ string, profile *Profile, done DoneFunc) {
	if profile != nil {
		profile.Username = profile.DisplayName
	}
	done(nil, profile)
}

// NewStrategy constructs the strategy described by d.
func (d *Descriptor) NewStrategy(ctx context.Context) (Strategy, error) {
	const op = "azuread.(Descriptor).NewStrategy"
	if d == nil || d.Strategy.Strategy == nil {
		return nil, fmt.Errorf("%s: descriptor has no strategy constructor: %w", op, ErrNilParameter)
	}
	s, err := d.Strategy.Strategy.NewStrategy(ctx, d.Strategy.Options, d.Strategy.Options.Verify)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create %s strategy: %w", op, d.Strategy.Name, err)
	}
	return s, nil
}
