/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package idp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/veryCrunchy/ldaptoid/internal/oauthcache"
)

func newEntraTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1.0/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"value":[{"id":"u2","userPrincipalName":"bob@example.com","displayName":"Bob","accountEnabled":true}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"value":[{"id":"u1","userPrincipalName":"alice@example.com","displayName":"Alice","accountEnabled":true},{"id":"u0","userPrincipalName":"disabled@example.com","accountEnabled":false}],"@odata.nextLink":"` + srv.URL + `/v1.0/users?page=2"}`))
	})
	mux.HandleFunc("/v1.0/groups", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{"id":"g1","displayName":"admins"}]}`))
	})
	mux.HandleFunc("/v1.0/groups/g1/members", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value":[{"id":"u1","@odata.type":"#microsoft.graph.user"},{"id":"sp1","@odata.type":"#microsoft.graph.servicePrincipal"}]}`))
	})
	srv = httptest.NewServer(mux)
	return srv
}

func TestFetchEntraFollowsPaginationAndFiltersDisabledUsers(t *testing.T) {
	srv := newEntraTestServer(t)
	defer srv.Close()

	tokens := oauthcache.New(srv.URL+"/token", "client", "secret", nil)
	adapter := New(Config{Variant: VariantEntra, BaseURL: srv.URL, Tenant: "tenant"}, tokens)

	result, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %s", err)
	}
	if len(result.Users) != 2 {
		t.Fatalf("expected 2 enabled users across both pages, got %+v", result.Users)
	}
	if len(result.Groups) != 1 || len(result.Groups[0].MemberUserIDs) != 1 {
		t.Fatalf("expected group admins with only the user member, got %+v", result.Groups)
	}
	if result.Groups[0].MemberUserIDs[0] != "u1" {
		t.Fatalf("expected the service principal member to be excluded, got %q", result.Groups[0].MemberUserIDs[0])
	}
}
