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
	"strings"
	"testing"

	"github.com/veryCrunchy/ldaptoid/internal/oauthcache"
)

func newKeycloakTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/admin/realms/test/users", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"u1","username":"alice","email":"alice@example.com","firstName":"Alice","lastName":"Anderson","enabled":true},
			{"id":"u2","username":"disabled","enabled":false}
		]`))
	})
	mux.HandleFunc("/admin/realms/test/groups", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"g1","name":"admins","path":"/admins"}]`))
	})
	mux.HandleFunc("/admin/realms/test/groups/g1/members", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"u1"}]`))
	})
	return httptest.NewServer(mux)
}

func TestFetchKeycloakFiltersDisabledUsers(t *testing.T) {
	srv := newKeycloakTestServer(t)
	defer srv.Close()

	tokens := oauthcache.New(srv.URL+"/token", "client", "secret", nil)
	adapter := New(Config{Variant: VariantKeycloak, BaseURL: srv.URL, Realm: "test"}, tokens)

	result, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %s", err)
	}
	if len(result.Users) != 1 || result.Users[0].Username != "alice" {
		t.Fatalf("expected only the enabled user alice, got %+v", result.Users)
	}
	if !strings.Contains(result.Users[0].DisplayName, "Alice") {
		t.Fatalf("expected display name to use first/last name, got %q", result.Users[0].DisplayName)
	}
	if len(result.Groups) != 1 || len(result.Groups[0].MemberUserIDs) != 1 {
		t.Fatalf("expected group admins with 1 member, got %+v", result.Groups)
	}
}
