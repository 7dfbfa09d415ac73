/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package ldapserver

import "crypto/subtle"

// StaticAuthenticator implements BindAuthenticator against the single
// configured service bind DN and password (spec §4.10, §6). There is no
// notion of per-user LDAP passwords: this directory is read-only and
// projects no credential material from the IdP (spec §1 Non-goals).
type StaticAuthenticator struct {
	BindDN         string
	BindPassword   string
	AllowAnon      bool
}

func (a StaticAuthenticator) Authenticate(dn, password string) bool {
	if a.BindDN == "" {
		return false
	}
	dnMatch := subtle.ConstantTimeCompare([]byte(dn), []byte(a.BindDN)) == 1
	pwMatch := subtle.ConstantTimeCompare([]byte(password), []byte(a.BindPassword)) == 1
	return dnMatch && pwMatch
}

func (a StaticAuthenticator) AllowAnonymous() bool {
	return a.AllowAnon
}

// HasServiceAccount reports whether a bind DN is configured at all. When
// none is configured there is nothing to authorize Search against, so
// the C10 authorization gate (spec §4.10) never applies.
func (a StaticAuthenticator) HasServiceAccount() bool {
	return a.BindDN != ""
}
