/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sapcc/go-bits/logg"
	"github.com/sapcc/go-bits/must"

	"github.com/veryCrunchy/ldaptoid/internal/config"
	"github.com/veryCrunchy/ldaptoid/internal/directory"
	"github.com/veryCrunchy/ldaptoid/internal/health"
	"github.com/veryCrunchy/ldaptoid/internal/idalloc"
	"github.com/veryCrunchy/ldaptoid/internal/idp"
	"github.com/veryCrunchy/ldaptoid/internal/ldapserver"
	"github.com/veryCrunchy/ldaptoid/internal/mapping"
	"github.com/veryCrunchy/ldaptoid/internal/metrics"
	"github.com/veryCrunchy/ldaptoid/internal/oauthcache"
	"github.com/veryCrunchy/ldaptoid/internal/scheduler"
	"github.com/veryCrunchy/ldaptoid/internal/snapshot"
)

func main() {
	logg.ShowDebug = os.Getenv("LDAPTOID_DEBUG") == "true"

	cfg, err := config.LoadFromEnvironment()
	if err != nil {
		logg.Fatal(err.Error())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := must.Return(connectMappingStore(ctx, cfg))
	uidAlloc := idalloc.New(idalloc.Options{Salt: "uid"})
	gidAlloc := idalloc.New(idalloc.Options{Salt: "gid"})

	uidEntries, gidEntries, err := mapping.SeedAllocators(ctx, store)
	if err != nil {
		logg.Fatal("cannot seed id allocators from mapping store: %s", err.Error())
	}
	uidAlloc.Import(uidEntries)
	gidAlloc.Import(gidEntries)

	tokens := oauthcache.New(tokenURL(cfg), cfg.IdPClientID, cfg.IdPClientSecret, nil)
	adapter := idp.New(idp.Config{
		Variant:      idp.Variant(cfg.IdPType),
		BaseURL:      cfg.IdPBaseURL,
		Realm:        cfg.IdPRealm,
		Tenant:       cfg.IdPTenant,
		Organization: cfg.IdPOrganization,
	}, tokens)

	metricsRegistry := metrics.NewRegistry()
	publisher := &snapshot.Publisher{}
	var sequence uint64

	refresh := func(ctx context.Context) error {
		raw, err := adapter.Fetch(ctx)
		if err != nil {
			return err
		}
		sequence++
		snap, buildMetrics := snapshot.Build(raw, uidAlloc, gidAlloc, sequence, snapshot.Options{
			SyntheticPrimaryGroup: hasFeature(cfg.EnabledFeatures, directory.FeatureSyntheticPrimaryGroup),
			MirrorNestedGroups:    hasFeature(cfg.EnabledFeatures, directory.FeatureMirrorNestedGroups),
		})
		publisher.Publish(snap)

		uidMetrics, gidMetrics := uidAlloc.Metrics(), gidAlloc.Metrics()
		metricsRegistry.Set("ldaptoid_uid_collisions_total", uidMetrics.CollisionsTotal)
		metricsRegistry.Set("ldaptoid_uid_fallbacks_total", uidMetrics.FallbacksTotal)
		metricsRegistry.Set("ldaptoid_gid_collisions_total", gidMetrics.CollisionsTotal)
		metricsRegistry.Set("ldaptoid_gid_fallbacks_total", gidMetrics.FallbacksTotal)
		metricsRegistry.Set("ldaptoid_directory_size_users", int64(len(snap.Users)))
		metricsRegistry.Set("ldaptoid_directory_size_groups", int64(len(snap.Groups)))
		metricsRegistry.Add("ldaptoid_group_truncated_total", buildMetrics.GroupsTruncated)

		persistAllocations(ctx, store, uidAlloc, gidAlloc)
		return nil
	}

	sched := scheduler.New(scheduler.Options{
		RefreshInterval: cfg.RefreshInterval,
		MaxBackoff:      cfg.MaxBackoff,
		MaxRetries:      cfg.MaxRetries,
	}, refresh)
	go sched.Run(ctx)

	ldapServer := ldapserver.NewServer(ldapserver.Config{
		BaseDN:    cfg.LDAPBaseDN,
		SizeLimit: cfg.LDAPSizeLimit,
		Auth: ldapserver.StaticAuthenticator{
			BindDN:       cfg.LDAPBindDN,
			BindPassword: cfg.LDAPBindPassword,
			AllowAnon:    cfg.AllowAnonymousBind,
		},
		Snapshots: publisher,
	})
	must.Succeed(ldapServer.Listen(cfg.LDAPPort))
	go func() {
		if err := ldapServer.Serve(ctx); err != nil {
			logg.Fatal(err.Error())
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/", health.Handler(sched))
	mux.Handle("/metrics", metricsRegistry.Handler())
	httpServer := &http.Server{Addr: os.Getenv("LDAPTOID_HTTP_LISTEN"), Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error("health/metrics server failed: %s", err.Error())
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	must.Succeed(httpServer.Shutdown(context.Background()))
}

func connectMappingStore(ctx context.Context, cfg config.Config) (mapping.Store, error) {
	if !cfg.MappingStoreEnabled {
		return mapping.NullStore{}, nil
	}
	store := mapping.NewRedisStore(mapping.RedisOptions{
		Host:     cfg.MappingStoreHost,
		Port:     cfg.MappingStorePort,
		Password: cfg.MappingStorePassword,
		Database: cfg.MappingStoreDatabase,
	})
	if err := store.Connect(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func persistAllocations(ctx context.Context, store mapping.Store, uidAlloc, gidAlloc *idalloc.Allocator) {
	for _, e := range uidAlloc.Export() {
		key := mapping.UserKey(trimPrefix(e.Key, "user:"))
		if err := store.Put(ctx, key, mapping.Record{UID: e.ID}); err != nil {
			logg.Error("cannot persist uid mapping for %s: %s", e.Key, err.Error())
		}
	}
	for _, e := range gidAlloc.Export() {
		groupID := trimPrefix(e.Key, "group:")
		key := mapping.GroupKey(groupID)
		if strings.HasPrefix(groupID, "synthetic-primary:") || strings.HasPrefix(groupID, "mirror:") {
			key = mapping.SyntheticKey(groupID)
		}
		if err := store.Put(ctx, key, mapping.Record{GID: e.ID}); err != nil {
			logg.Error("cannot persist gid mapping for %s: %s", e.Key, err.Error())
		}
	}
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func hasFeature(flags []directory.Feature, want directory.Feature) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

func tokenURL(cfg config.Config) string {
	switch cfg.IdPType {
	case config.IdPKeycloak:
		return cfg.IdPBaseURL + "/realms/" + cfg.IdPRealm + "/protocol/openid-connect/token"
	case config.IdPEntra:
		return "https://login.microsoftonline.com/" + cfg.IdPTenant + "/oauth2/v2.0/token"
	case config.IdPZitadel:
		return cfg.IdPBaseURL + "/oauth/v2/token"
	default:
		return cfg.IdPBaseURL + "/token"
	}
}
