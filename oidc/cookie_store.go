// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v4"
)

// StateCookieName is the name of the cookie holding the encrypted
// authentication attempts when cookies are used instead of the session.
const StateCookieName = "azuread-oidc-state"

// cookieKeyLen is the required length of a cookie encryption key (A256GCM).
const cookieKeyLen = 32

// cookieStateStore keeps up to max states in a single JWE encrypted cookie.
// The first key encrypts, every key is tried for decryption so keys can be
// rotated.
type cookieStateStore struct {
	keys     [][]byte
	max      int
	now      func() time.Time
	secure   bool
	sameSite http.SameSite
	maxAge   time.Duration
}

var _ stateStore = (*cookieStateStore)(nil)

func newCookieStateStore(keys [][]byte, max int, maxAge time.Duration, secure, sameSiteNone bool, now func() time.Time) (*cookieStateStore, error) {
	const op = "oidc.newCookieStateStore"
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: no cookie encryption keys: %w", op, ErrInvalidParameter)
	}
	for i, k := range keys {
		if len(k) != cookieKeyLen {
			return nil, fmt.Errorf("%s: cookie encryption key %d is %d bytes, want %d: %w", op, i, len(k), cookieKeyLen, ErrInvalidParameter)
		}
	}
	if max < 1 {
		max = 1
	}
	s := &cookieStateStore{
		keys:     keys,
		max:      max,
		now:      now,
		secure:   secure,
		sameSite: http.SameSiteLaxMode,
		maxAge:   maxAge,
	}
	if sameSiteNone {
		s.sameSite = http.SameSiteNoneMode
		s.secure = true
	}
	return s, nil
}

func (c *cookieStateStore) Save(w http.ResponseWriter, r *http.Request, s *St) error {
	const op = "cookieStateStore.Save"
	if s == nil {
		return fmt.Errorf("%s: state is nil: %w", op, ErrNilParameter)
	}
	states, err := c.read(r)
	if err != nil {
		// an unreadable cookie is replaced rather than failing the login
		states = nil
	}
	states = append(states, s)
	if len(states) > c.max {
		states = states[len(states)-c.max:]
	}
	if err := c.write(w, states); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *cookieStateStore) Load(w http.ResponseWriter, r *http.Request, id string) (*St, error) {
	const op = "cookieStateStore.Load"
	states, err := c.read(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var found *St
	remaining := make([]*St, 0, len(states))
	for _, s := range states {
		if s.ID == id && found == nil {
			found = s
			continue
		}
		remaining = append(remaining, s)
	}
	if err := c.write(w, remaining); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case found == nil:
		return nil, fmt.Errorf("%s: state %q: %w", op, id, ErrNotFound)
	case found.IsExpired(WithNow(c.now)):
		return nil, fmt.Errorf("%s: state %q: %w", op, id, ErrExpiredState)
	}
	return found, nil
}

// read returns the unexpired states of the request's cookie. A missing
// cookie is not an error.
func (c *cookieStateStore) read(r *http.Request) ([]*St, error) {
	cookie, err := r.Cookie(StateCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidCookie)
	}
	obj, err := jose.ParseEncrypted(cookie.Value, []jose.KeyAlgorithm{jose.DIRECT}, []jose.ContentEncryption{jose.A256GCM})
	if err != nil {
		return nil, fmt.Errorf("unable to parse cookie: %v: %w", err, ErrInvalidCookie)
	}
	var plaintext []byte
	for _, k := range c.keys {
		if plaintext, err = obj.Decrypt(k); err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt cookie: %w", ErrInvalidCookie)
	}
	var states []*St
	if err := json.Unmarshal(plaintext, &states); err != nil {
		return nil, fmt.Errorf("unable to decode cookie: %v: %w", err, ErrInvalidCookie)
	}
	live := states[:0]
	for _, s := range states {
		if s != nil && !s.IsExpired(WithNow(c.now)) {
			live = append(live, s)
		}
	}
	return live, nil
}

func (c *cookieStateStore) write(w http.ResponseWriter, states []*St) error {
	cookie := &http.Cookie{
		Name:     StateCookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
	}
	if len(states) == 0 {
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
		return nil
	}
	plaintext, err := json.Marshal(states)
	if err != nil {
		return fmt.Errorf("unable to encode states: %w", err)
	}
	enc, err := jose.NewEncrypter(jose.A256GCM, jose.Recipient{Algorithm: jose.DIRECT, Key: c.keys[0]}, nil)
	if err != nil {
		return fmt.Errorf("unable to create encrypter: %w", err)
	}
	obj, err := enc.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("unable to encrypt states: %w", err)
	}
	value, err := obj.CompactSerialize()
	if err != nil {
		return fmt.Errorf("unable to serialize cookie: %w", err)
	}
	cookie.Value = value
	cookie.MaxAge = int(c.maxAge.Seconds())
	http.SetCookie(w, cookie)
	return nil
}
