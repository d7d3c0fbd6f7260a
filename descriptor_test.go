// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package azuread

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStrategy struct {
	opts Options
}

func (testStrategy) LoginHandler() http.Handler    { return http.NotFoundHandler() }
func (testStrategy) CallbackHandler() http.Handler { return http.NotFoundHandler() }

func testConstructor() StrategyConstructor {
	return StrategyConstructorFunc(func(_ context.Context, opts Options, verify VerifyFunc) (Strategy, error) {
		if verify == nil {
			return nil, ErrNilParameter
		}
		return &testStrategy{opts: opts}, nil
	})
}

func testConfig() *Config {
	return &Config{
		Tenant:      "contoso",
		ClientID:    "abc",
		RedirectURL: "https://x/cb",
		Users:       []User{{Username: "a", Permissions: PermissionRead}},
	}
}

func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)

		assert.Equal("strategy", d.Type)
		assert.Equal(c.Users, d.Users)
		assert.Equal("azuread-openidconnect", d.Strategy.Name)
		assert.Equal("Sign in with Azure", d.Strategy.Label)
		assert.Equal("fa-windows", d.Strategy.Icon)
		assert.NotNil(d.Strategy.Strategy)

		o := d.Strategy.Options
		assert.Equal("https://login.microsoftonline.com/contoso/v2.0/.well-known/openid-configuration", o.IdentityMetadata)
		assert.Equal("code", o.ResponseType)
		assert.Equal("form_post", o.ResponseMode)
		assert.Equal("POST", o.CallbackMethod)
		assert.Equal([]string{"openid", "email", "profile"}, o.Scope)
		assert.False(o.AllowHTTPForRedirectURL)
		assert.Equal("abc", o.ClientID)
		assert.Equal("https://x/cb", o.RedirectURL)
		assert.Equal("contoso", o.Tenant)
		assert.NotNil(o.Verify)

		// the input is not modified
		assert.Empty(c.ResponseType)
		assert.Empty(c.IdentityMetadata)
		assert.Empty(c.CallbackMethod)
	})

	t.Run("query-response-mode", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		c.ResponseMode = "query"
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)
		assert.Equal("GET", d.Strategy.Options.CallbackMethod)
		assert.Equal("query", d.Strategy.Options.ResponseMode)
	})

	t.Run("explicit-callback-method", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		c.CallbackMethod = "PUT"
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)
		assert.Equal("PUT", d.Strategy.Options.CallbackMethod)

		c.ResponseMode = "query"
		d, err = NewDescriptor(c, testConstructor())
		require.NoError(err)
		assert.Equal("PUT", d.Strategy.Options.CallbackMethod)
	})

	t.Run("explicit-values-kept", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		c.IdentityMetadata = "https://login.microsoftonline.com/common/v2.0/.well-known/openid-configuration"
		c.ResponseType = "id_token"
		c.ResponseMode = "form_post"
		c.AllowHTTPForRedirectURL = true
		c.Scope = []string{"openid", "offline_access"}
		c.LoggingLevel = "info"
		c.NonceLifetime = 600
		c.Proxy = &Proxy{Host: "proxy", Port: "3128"}
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)
		o := d.Strategy.Options
		assert.Equal(c.IdentityMetadata, o.IdentityMetadata)
		assert.Equal("id_token", o.ResponseType)
		assert.True(o.AllowHTTPForRedirectURL)
		assert.Equal([]string{"openid", "offline_access"}, o.Scope)
		assert.Equal("info", o.LoggingLevel)
		assert.Equal(600, o.NonceLifetime)
		assert.Equal("http://proxy:3128", o.Proxy.URL())
	})

	t.Run("users-pass-through", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		c.Users = []User{
			{Username: "b", Permissions: PermissionAll},
			{Username: "a", Permissions: PermissionRead},
			{Username: "c", Permissions: PermissionRead},
		}
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)
		assert.Equal(c.Users, d.Users)
		assert.Same(&c.Users[0], &d.Users[0])
		assert.Equal(c.Users, d.Strategy.Options.Users)
	})

	t.Run("b2c-pass-through", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := testConfig()
		c.IsB2C = true
		c.ResponseType = "id_token"
		d, err := NewDescriptor(c, testConstructor())
		require.NoError(err)
		assert.True(d.Strategy.Options.IsB2C)
		assert.Equal("id_token", d.Strategy.Options.ResponseType)
	})

	t.Run("invalid-config", func(t *testing.T) {
		assert := assert.New(t)
		c := testConfig()
		c.Tenant = ""
		d, err := NewDescriptor(c, testConstructor())
		assert.Nil(d)
		assert.ErrorIs(err, ErrMissingRequiredOption)
	})

	t.Run("nil-constructor", func(t *testing.T) {
		assert := assert.New(t)
		d, err := NewDescriptor(testConfig(), nil)
		assert.Nil(d)
		assert.ErrorIs(err, ErrNilParameter)
	})

	t.Run("with-logger", func(t *testing.T) {
		require := require.New(t)
		_, err := NewDescriptor(testConfig(), testConstructor(), WithLogger(hclog.NewNullLogger()))
		require.NoError(err)
	})
}

func TestCallbackMethod(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		responseMode   string
		callbackMethod string
		want           string
	}{
		{name: "absent", want: "POST"},
		{name: "form-post", responseMode: "form_post", want: "POST"},
		{name: "query", responseMode: "query", want: "GET"},
		{name: "explicit", responseMode: "query", callbackMethod: "POST", want: "POST"},
		{name: "explicit-put", callbackMethod: "PUT", want: "PUT"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			c := testConfig()
			c.ResponseMode, c.CallbackMethod = tt.responseMode, tt.callbackMethod
			assert.Equal(tt.want, callbackMethod(c))
		})
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	p := &Profile{DisplayName: "Jane Doe", Subject: "sub"}
	var (
		called  int
		gotErr  error
		gotUser *Profile
	)
	Verify(context.Background(), "https://login.microsoftonline.com/tid/v2.0", "sub", p, func(err error, profile *Profile) {
		called++
		gotErr, gotUser = err, profile
	})
	assert.Equal(1, called)
	assert.NoError(gotErr)
	assert.Same(p, gotUser)
	assert.Equal("Jane Doe", gotUser.Username)
}

func TestDescriptor_NewStrategy(t *testing.T) {
	t.Parallel()
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		d, err := NewDescriptor(testConfig(), testConstructor())
		require.NoError(err)
		s, err := d.NewStrategy(context.Background())
		require.NoError(err)
		ts, ok := s.(*testStrategy)
		require.True(ok)
		assert.Equal(d.Strategy.Options.IdentityMetadata, ts.opts.IdentityMetadata)
	})
	t.Run("constructor-error", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		boom := errors.New("boom")
		d, err := NewDescriptor(testConfig(), StrategyConstructorFunc(func(context.Context, Options, VerifyFunc) (Strategy, error) {
			return nil, boom
		}))
		require.NoError(err)
		_, err = d.NewStrategy(context.Background())
		assert.ErrorIs(err, boom)
	})
	t.Run("nil", func(t *testing.T) {
		assert := assert.New(t)
		var d *Descriptor
		_, err := d.NewStrategy(context.Background())
		assert.ErrorIs(err, ErrNilParameter)
	})
}

func TestOptions(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	f, tr := false, true
	var o Options
	assert.True(o.NoPII())
	assert.True(o.ShouldValidateIssuer())
	o.LoggingNoPII, o.ValidateIssuer = &f, &f
	assert.False(o.NoPII())
	assert.False(o.ShouldValidateIssuer())
	o.LoggingNoPII = &tr
	assert.True(o.NoPII())

	assert.True(o.Logger("test").IsWarn())
	assert.False(o.Logger("test").IsInfo())
	o.LoggingLevel = "info"
	assert.True(o.Logger("test").IsInfo())
	o.LoggingLevel = "error"
	assert.False(o.Logger("test").IsWarn())
}
