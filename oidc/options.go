// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// WithExpirySkew provides an optional expiry skew duration for: State
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		if v, ok := o.(*stOptions); ok {
			v.withExpirySkew = d
		}
	}
}

// WithNow provides an optional func for determining what the current time it
// is, for: State, Constructor
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *stOptions:
			v.withNowFunc = now
		case *constructorOptions:
			v.withNowFunc = now
		}
	}
}

// constructorOptions is the set of available options for Constructor
type constructorOptions struct {
	withHTTPClient *http.Client
	withProviderCA string
	withLogger     hclog.Logger
	withNowFunc    func() time.Time
	withSuccess    SuccessFunc
	withError      ErrorFunc
}

// constructorDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func constructorDefaults() constructorOptions {
	return constructorOptions{
		withNowFunc: time.Now,
		withSuccess: DefaultSuccess,
		withError:   DefaultError,
	}
}

// getConstructorOpts gets the defaults and applies the opt overrides passed
// in.
func getConstructorOpts(opt ...Option) constructorOptions {
	opts := constructorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithHTTPClient provides an optional http client used for discovery, key
// set and token requests. It takes precedence over WithProviderCA and the
// configured proxy.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*constructorOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithProviderCA provides an optional CA cert for requests to the provider
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*constructorOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithLogger provides an optional logger. When not provided the strategy
// builds one from the LoggingLevel option.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*constructorOptions); ok {
			o.withLogger = l
		}
	}
}

// WithSuccessFunc provides the response writer for a successful login.
func WithSuccessFunc(fn SuccessFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*constructorOptions); ok && fn != nil {
			o.withSuccess = fn
		}
	}
}

// WithErrorFunc provides the response writer for a failed login.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(o interface{}) {
		if o, ok := o.(*constructorOptions); ok && fn != nil {
			o.withError = fn
		}
	}
}
