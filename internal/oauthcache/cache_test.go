/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package oauthcache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func tokenServer(t *testing.T, issued *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issued.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-` + itoa(issued.Load()) + `","token_type":"bearer","expires_in":3600}`))
	}))
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	var issued atomic.Int64
	srv := tokenServer(t, &issued)
	defer srv.Close()

	cache := New(srv.URL, "client", "secret", nil)
	tok1, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %s", err)
	}
	tok2, err := cache.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %s", err)
	}
	if tok1 != tok2 {
		t.Fatalf("expected the same cached token across calls, got %q then %q", tok1, tok2)
	}
	if issued.Load() != 1 {
		t.Fatalf("expected exactly 1 token request, got %d", issued.Load())
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	var issued atomic.Int64
	srv := tokenServer(t, &issued)
	defer srv.Close()

	cache := New(srv.URL, "client", "secret", nil)
	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("Token: %s", err)
	}
	cache.Invalidate()
	if _, err := cache.Token(context.Background()); err != nil {
		t.Fatalf("Token: %s", err)
	}
	if issued.Load() != 2 {
		t.Fatalf("expected a second token request after Invalidate, got %d", issued.Load())
	}
}
