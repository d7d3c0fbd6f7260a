// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	azuread "github.com/hashicorp/cap-azuread"
	sdkHttp "github.com/hashicorp/cap-azuread/sdk/http"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// maxMetadataSize bounds the discovery document read from the provider.
const maxMetadataSize = 1 << 20

// Constructor is the default azuread.StrategyConstructor. It creates
// strategies which delegate discovery and id_token verification to
// github.com/coreos/go-oidc/v3 and the code exchange to golang.org/x/oauth2.
type Constructor struct {
	opts constructorOptions
}

// ensure that Constructor implements the azuread.StrategyConstructor interface
var _ azuread.StrategyConstructor = (*Constructor)(nil)

// NewConstructor creates a Constructor.
// Supported options:
//
//	WithHTTPClient
//	WithProviderCA
//	WithLogger
//	WithNow
//	WithSuccessFunc
//	WithErrorFunc
func NewConstructor(opt ...Option) *Constructor {
	return &Constructor{opts: getConstructorOpts(opt...)}
}

// Strategy is an Azure AD OpenID Connect login strategy. It must be released
// with Done.
type Strategy struct {
	config       *config
	verify       azuread.VerifyFunc
	client       *http.Client
	provider     *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	issuer       string
	oauth2Config oauth2.Config
	store        stateStore
	logger       hclog.Logger
	now          func() time.Time
	success      SuccessFunc
	failure      ErrorFunc

	mu sync.Mutex

	// backgroundCtx is the context used by the strategy for background
	// activities like refreshing the provider's JWKs key set.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// ensure that Strategy implements the azuread.Strategy interface
var _ azuread.Strategy = (*Strategy)(nil)

// NewStrategy validates opts, fetches the provider's discovery document from
// opts.IdentityMetadata and returns a ready to serve Strategy.
func (c *Constructor) NewStrategy(ctx context.Context, opts azuread.Options, verify azuread.VerifyFunc) (azuread.Strategy, error) {
	const op = "oidc.(Constructor).NewStrategy"
	cfg, err := newConfig(opts, verify)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger := c.opts.withLogger
	if logger == nil {
		logger = opts.Logger("azuread-oidc")
	}

	client := c.opts.withHTTPClient
	if client == nil {
		client, err = sdkHttp.NewClient(c.opts.withProviderCA, opts.Proxy.URL())
		if err != nil {
			if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
				return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
			}
			return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
		}
	}

	md, err := fetchMetadata(sdkHttp.OidcClientContext(ctx, client), client, cfg.IdentityMetadata)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s := &Strategy{
		config:              cfg,
		verify:              verify,
		client:              client,
		issuer:              md.IssuerURL,
		logger:              logger,
		now:                 c.opts.withNowFunc,
		success:             c.opts.withSuccess,
		failure:             c.opts.withError,
		backgroundCtx:       bgCtx,
		backgroundCtxCancel: cancel,
	}
	// the key set fetches keys lazily with this context, so it must outlive
	// the ctx passed to NewStrategy
	s.provider = md.NewProvider(sdkHttp.OidcClientContext(s.backgroundCtx, client))
	s.verifier = s.provider.Verifier(&oidc.Config{
		ClientID:             cfg.ClientID,
		SupportedSigningAlgs: md.Algorithms,
		// issuers are checked by the strategy to support Azure's {tenantid}
		// placeholder and the configured issuer list
		SkipIssuerCheck: true,
		// exp and nbf are checked by the strategy with the configured clock
		// skew applied to both
		SkipExpiryCheck: true,
	})
	s.oauth2Config = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: string(cfg.ClientSecret),
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     s.provider.Endpoint(),
		Scopes:       cfg.scopes,
	}

	if cfg.UseCookieInsteadOfSession {
		s.store, err = newCookieStateStore(cfg.cookieKeys, cfg.nonceMaxAmount, cfg.nonceLifetime, isHTTPS(cfg.RedirectURL), cfg.CookieSameSite, s.now)
		if err != nil {
			s.Done()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		s.store = newMemoryStateStore(cfg.nonceMaxAmount, s.now)
	}

	logger.Info("azure ad strategy ready", "issuer", s.issuer, "response_type", cfg.ResponseType, "response_mode", cfg.ResponseMode)
	return s, nil
}

// Done with the strategy's background resources and must be called for every
// Strategy created
func (s *Strategy) Done() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backgroundCtxCancel != nil {
		s.backgroundCtxCancel()
		s.backgroundCtxCancel = nil
	}
}

// Issuer returns the issuer of the provider's discovery document.
func (s *Strategy) Issuer() string {
	return s.issuer
}

// fetchMetadata reads the discovery document at metadataURL. Unlike
// oidc.NewProvider it takes the full document URL and doesn't require the
// issuer to match it, which Azure's multi-tenant endpoints don't.
func fetchMetadata(ctx context.Context, client *http.Client, metadataURL string) (*oidc.ProviderConfig, error) {
	const op = "oidc.fetchMetadata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to get %s: %v: %w", op, metadataURL, err, ErrDiscoveryFailed)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMetadataSize))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read response body: %v: %w", op, err, ErrDiscoveryFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s returned %s: %w", op, metadataURL, resp.Status, ErrDiscoveryFailed)
	}
	var md oidc.ProviderConfig
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("%s: unable to decode discovery document: %v: %w", op, err, ErrDiscoveryFailed)
	}
	switch {
	case md.IssuerURL == "":
		return nil, fmt.Errorf("%s: discovery document has no issuer: %w", op, ErrDiscoveryFailed)
	case md.AuthURL == "":
		return nil, fmt.Errorf("%s: discovery document has no authorization endpoint: %w", op, ErrDiscoveryFailed)
	case md.JWKSURL == "":
		return nil, fmt.Errorf("%s: discovery document has no jwks_uri: %w", op, ErrDiscoveryFailed)
	}
	return &md, nil
}
