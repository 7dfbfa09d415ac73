/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package config loads and validates the process configuration described
// in spec §6. Every input is an environment variable; CLI argument wiring
// beyond these effective inputs is out of scope (spec §1).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sapcc/go-bits/errext"
	"github.com/veryCrunchy/ldaptoid/internal/directory"
)

// IdPType is one of the three supported identity providers.
type IdPType string

const (
	IdPKeycloak IdPType = "keycloak"
	IdPEntra    IdPType = "entra"
	IdPZitadel  IdPType = "zitadel"
)

// Config is the fully validated, immutable process configuration.
type Config struct {
	IdPType         IdPType
	IdPBaseURL      string
	IdPClientID     string
	IdPClientSecret string
	IdPRealm        string // keycloak
	IdPTenant       string // entra
	IdPOrganization string // zitadel, optional

	LDAPPort            int
	LDAPBaseDN          string
	LDAPBindDN          string
	LDAPBindPassword    string
	AllowAnonymousBind  bool
	LDAPSizeLimit       int

	RefreshInterval time.Duration
	MaxBackoff      time.Duration
	MaxRetries      int

	MappingStoreEnabled  bool
	MappingStoreHost     string
	MappingStorePort     int
	MappingStorePassword string
	MappingStoreDatabase int

	EnabledFeatures []directory.Feature
}

// ConfigError is a fatal startup configuration problem (spec §7).
type ConfigError struct {
	Errors errext.ErrorSet
}

func (e ConfigError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// LoadFromEnvironment reads and validates the configuration described in
// spec §6 from the process environment. All problems are collected before
// returning, via errext.ErrorSet, the same type the teacher's Nexus uses
// to aggregate validation failures in a single pass.
func LoadFromEnvironment() (Config, error) {
	var errs errext.ErrorSet
	var cfg Config

	cfg.IdPType = IdPType(getenv("LDAPTOID_IDP_TYPE", ""))
	switch cfg.IdPType {
	case IdPKeycloak, IdPEntra, IdPZitadel:
	case "":
		errs.Addf("LDAPTOID_IDP_TYPE is required")
	default:
		errs.Addf("LDAPTOID_IDP_TYPE must be one of keycloak, entra, zitadel (got %q)", cfg.IdPType)
	}

	cfg.IdPBaseURL = requireString(&errs, "LDAPTOID_IDP_BASE_URL")
	cfg.IdPClientID = requireString(&errs, "LDAPTOID_IDP_CLIENT_ID")
	cfg.IdPClientSecret = requireString(&errs, "LDAPTOID_IDP_CLIENT_SECRET")

	cfg.IdPRealm = os.Getenv("LDAPTOID_IDP_REALM")
	cfg.IdPTenant = os.Getenv("LDAPTOID_IDP_TENANT")
	cfg.IdPOrganization = os.Getenv("LDAPTOID_IDP_ORGANIZATION")
	switch cfg.IdPType {
	case IdPKeycloak:
		if cfg.IdPRealm == "" {
			errs.Addf("LDAPTOID_IDP_REALM is required when LDAPTOID_IDP_TYPE=keycloak")
		}
	case IdPEntra:
		if cfg.IdPTenant == "" {
			errs.Addf("LDAPTOID_IDP_TENANT is required when LDAPTOID_IDP_TYPE=entra")
		}
	}

	cfg.LDAPPort = intOr(&errs, "LDAPTOID_LDAP_PORT", 389)
	cfg.LDAPBaseDN = requireString(&errs, "LDAPTOID_LDAP_BASE_DN")
	cfg.LDAPBindDN = os.Getenv("LDAPTOID_LDAP_BIND_DN")
	cfg.LDAPBindPassword = os.Getenv("LDAPTOID_LDAP_BIND_PASSWORD")
	cfg.AllowAnonymousBind = os.Getenv("LDAPTOID_ALLOW_ANONYMOUS_BIND") == "true"
	cfg.LDAPSizeLimit = intOr(&errs, "LDAPTOID_LDAP_SIZE_LIMIT", 1000)

	cfg.RefreshInterval = time.Duration(intOr(&errs, "LDAPTOID_REFRESH_INTERVAL_MS", 300000)) * time.Millisecond
	cfg.MaxBackoff = time.Duration(intOr(&errs, "LDAPTOID_MAX_BACKOFF_MS", 600000)) * time.Millisecond
	cfg.MaxRetries = intOr(&errs, "LDAPTOID_MAX_RETRIES", 10)

	cfg.MappingStoreEnabled = os.Getenv("LDAPTOID_MAPPING_STORE_ENABLED") == "true"
	if cfg.MappingStoreEnabled {
		cfg.MappingStoreHost = requireString(&errs, "LDAPTOID_MAPPING_STORE_HOST")
		cfg.MappingStorePort = intOr(&errs, "LDAPTOID_MAPPING_STORE_PORT", 6379)
		cfg.MappingStorePassword = os.Getenv("LDAPTOID_MAPPING_STORE_PASSWORD")
		cfg.MappingStoreDatabase = intOr(&errs, "LDAPTOID_MAPPING_STORE_DATABASE", 0)
	}

	for _, name := range strings.Fields(strings.ReplaceAll(os.Getenv("LDAPTOID_ENABLED_FEATURES"), ",", " ")) {
		switch directory.Feature(name) {
		case directory.FeatureSyntheticPrimaryGroup, directory.FeatureMirrorNestedGroups:
			cfg.EnabledFeatures = append(cfg.EnabledFeatures, directory.Feature(name))
		default:
			errs.Addf("LDAPTOID_ENABLED_FEATURES contains unknown feature %q", name)
		}
	}

	if !errs.IsEmpty() {
		return Config{}, ConfigError{Errors: errs}
	}
	return cfg, nil
}

func getenv(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func requireString(errs *errext.ErrorSet, name string) string {
	v := os.Getenv(name)
	if v == "" {
		errs.Addf("%s is required", name)
	}
	return v
}

func intOr(errs *errext.ErrorSet, name string, fallback int) int {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		errs.Append(errext.ErrorSet{fmt.Errorf("%s must be an integer (got %q)", name, v)})
		return fallback
	}
	return n
}
