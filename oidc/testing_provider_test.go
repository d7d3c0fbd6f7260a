// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

const (
	testTenant       = "contoso"
	testTenantID     = "9188040d-6c67-4c5b-b112-36a304b66dad"
	testClientID     = "test-client-id"
	testClientSecret = "test-client-secret"
	testKeyID        = "test-kid"
)

// testProvider is a minimal Azure AD look-alike: discovery document, JWKS and
// token endpoint.
type testProvider struct {
	t      *testing.T
	srv    *httptest.Server
	key    *rsa.PrivateKey
	signer jose.Signer

	mu sync.Mutex
	// issuer advertised in the discovery document; may contain {tenantid}
	issuer string
	// codes maps an authorization code to the nonce of its id_token
	codes map[string]string
	// claims are added to every issued id_token
	claims map[string]interface{}
	now    func() time.Time
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()
	require := require.New(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT").WithHeader("kid", testKeyID),
	)
	require.NoError(err)

	p := &testProvider{
		t:      t,
		key:    key,
		signer: signer,
		codes:  map[string]string{},
		claims: map[string]interface{}{
			"oid":                "00000000-0000-0000-66f3-3332eca7ea81",
			"tid":                testTenantID,
			"name":               "Jane Doe",
			"preferred_username": "jane@contoso.com",
			"email":              "jane@contoso.com",
			"given_name":         "Jane",
			"family_name":        "Doe",
		},
		now: time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/"+testTenant+"/v2.0/.well-known/openid-configuration", p.handleDiscovery)
	mux.HandleFunc("/keys", p.handleKeys)
	mux.HandleFunc("/token", p.handleToken)
	p.srv = httptest.NewServer(mux)
	p.issuer = p.srv.URL + "/" + testTenantID + "/v2.0"
	t.Cleanup(p.srv.Close)
	return p
}

func (p *testProvider) metadataURL() string {
	return p.srv.URL + "/" + testTenant + "/v2.0/.well-known/openid-configuration"
}

func (p *testProvider) setIssuer(iss string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuer = iss
}

// tokenIssuer is the issuer written into id_tokens.
func (p *testProvider) tokenIssuer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.ReplaceAll(p.issuer, "{tenantid}", testTenantID)
}

// expectCode registers a code the token endpoint will redeem.
func (p *testProvider) expectCode(code, nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = nonce
}

func (p *testProvider) idToken(nonce string, overrides map[string]interface{}) string {
	p.t.Helper()
	now := p.now()
	claims := map[string]interface{}{
		"iss":   p.tokenIssuer(),
		"aud":   testClientID,
		"sub":   "AAAAAAAAAAAAAAAAAAAAAIkzqFVrSaSaFHy782bbtaQ",
		"nonce": nonce,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	p.mu.Lock()
	for k, v := range p.claims {
		claims[k] = v
	}
	p.mu.Unlock()
	for k, v := range overrides {
		claims[k] = v
	}
	raw, err := jwt.Signed(p.signer).Claims(claims).Serialize()
	require.NoError(p.t, err)
	return raw
}

func (p *testProvider) handleDiscovery(w http.ResponseWriter, _ *http.Request) {
	p.mu.Lock()
	iss := p.issuer
	p.mu.Unlock()
	writeJSON(w, map[string]interface{}{
		"issuer":                                iss,
		"authorization_endpoint":                p.srv.URL + "/authorize",
		"token_endpoint":                        p.srv.URL + "/token",
		"jwks_uri":                              p.srv.URL + "/keys",
		"id_token_signing_alg_values_supported": []string{"RS256"},
		"response_modes_supported":              []string{"query", "fragment", "form_post"},
	})
}

func (p *testProvider) handleKeys(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &p.key.PublicKey,
		KeyID:     testKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
}

func (p *testProvider) handleToken(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, secret, ok := req.BasicAuth()
	if !ok {
		id, secret = req.PostFormValue("client_id"), req.PostFormValue("client_secret")
	}
	if id != testClientID || secret != testClientSecret {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"error": "invalid_client"})
		return
	}
	p.mu.Lock()
	nonce, found := p.codes[req.PostFormValue("code")]
	delete(p.codes, req.PostFormValue("code"))
	p.mu.Unlock()
	if !found {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]string{"error": "invalid_grant"})
		return
	}
	writeJSON(w, map[string]interface{}{
		"access_token": "test-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     p.idToken(nonce, nil),
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	_ = json.NewEncoder(w).Encode(v)
}
