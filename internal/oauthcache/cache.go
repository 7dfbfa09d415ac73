/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package oauthcache implements the OAuth2 client-credentials token cache
// described in spec §4.4: one access token per IdP, refreshed ahead of
// its expiry, with concurrent callers during a refresh collapsed onto a
// single in-flight HTTP request rather than each firing their own.
package oauthcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// expiryBuffer is how far ahead of a token's real expiry this cache
// considers it stale, so an in-flight request never races the IdP's own
// clock (spec §4.4).
const expiryBuffer = 30 * time.Second

// Cache wraps one client-credentials grant's token source with an expiry
// buffer and singleflight-deduplicated refreshes.
type Cache struct {
	cfg clientcredentials.Config

	group singleflight.Group

	mutex   sync.Mutex
	current *oauth2.Token
}

// New constructs a Cache for the given token endpoint and client
// credentials (spec §4.4 / §6 idp.{baseUrl,clientId,clientSecret}).
func New(tokenURL, clientID, clientSecret string, scopes []string) *Cache {
	return &Cache{cfg: clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		Scopes:       scopes,
	}}
}

// Token returns a currently-valid access token, fetching or refreshing it
// as needed. Concurrent callers that arrive while a refresh is already in
// flight all receive that refresh's result instead of each issuing their
// own request.
func (c *Cache) Token(ctx context.Context) (string, error) {
	c.mutex.Lock()
	tok := c.current
	c.mutex.Unlock()

	if tok != nil && tok.Expiry.After(time.Now().Add(expiryBuffer)) {
		return tok.AccessToken, nil
	}

	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		fresh, err := c.cfg.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot obtain access token: %w", err)
		}
		c.mutex.Lock()
		c.current = fresh
		c.mutex.Unlock()
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token, forcing the next Token call to fetch
// a fresh one. Called after a 401 from the IdP's resource API, so the one
// retry spec §4.4 allows uses a token that has not already been rejected.
func (c *Cache) Invalidate() {
	c.mutex.Lock()
	c.current = nil
	c.mutex.Unlock()
}
