// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import "github.com/hashicorp/go-hclog"

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// descriptorOptions is the set of available options for NewDescriptor
type descriptorOptions struct {
	withLogger hclog.Logger
}

func descriptorDefaults() descriptorOptions {
	return descriptorOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getDescriptorOpts(opt ...Option) descriptorOptions {
	opts := descriptorDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger used to report the resolved
// defaults.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*descriptorOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
