/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package dntree builds the fixed DN layout this directory publishes
// (spec §4.11): a RootDSE, two organizational units ("ou=users" and
// "ou=groups") beneath the configured base DN, and one leaf entry per
// user and group. All RDN values are escaped per RFC 4514 using
// go-ldap/v3's escaper, the same library the wire codec borrows its
// tag constants from.
package dntree

import (
	"fmt"
	"strings"

	ldap "github.com/go-ldap/ldap/v3"
)

const (
	OUUsers  = "users"
	OUGroups = "groups"
)

// UsersOU returns the DN of the "ou=users" container under base.
func UsersOU(base string) string {
	return fmt.Sprintf("ou=%s,%s", OUUsers, base)
}

// GroupsOU returns the DN of the "ou=groups" container under base.
func GroupsOU(base string) string {
	return fmt.Sprintf("ou=%s,%s", OUGroups, base)
}

// UserDN returns the leaf DN for a username under base.
func UserDN(base, username string) string {
	return fmt.Sprintf("uid=%s,%s", EscapeRDNValue(username), UsersOU(base))
}

// GroupDN returns the leaf DN for a group name under base.
func GroupDN(base, name string) string {
	return fmt.Sprintf("cn=%s,%s", EscapeRDNValue(name), GroupsOU(base))
}

// EscapeRDNValue escapes a single RDN attribute value per RFC 4514.
func EscapeRDNValue(value string) string {
	return ldap.EscapeDN(value)
}

// IsBelow reports whether dn is base itself or a descendant of it,
// compared case-insensitively per the directory's ASCII DN conventions.
func IsBelow(dn, base string) bool {
	dn, base = strings.ToLower(dn), strings.ToLower(base)
	if dn == base {
		return true
	}
	return strings.HasSuffix(dn, ","+base)
}

// Kind classifies a DN's position in the fixed layout.
type Kind int

const (
	KindOther Kind = iota
	KindRoot
	KindBase
	KindUsersOU
	KindGroupsOU
	KindUser
	KindGroup
)

// Classify determines what dn is relative to base, and — for KindUser and
// KindGroup — extracts the RDN value (unescaped).
func Classify(dn, base string) (kind Kind, rdnValue string) {
	lowerDN, lowerBase := strings.ToLower(dn), strings.ToLower(base)
	switch {
	case dn == "":
		return KindRoot, ""
	case lowerDN == lowerBase:
		return KindBase, ""
	case lowerDN == strings.ToLower(UsersOU(base)):
		return KindUsersOU, ""
	case lowerDN == strings.ToLower(GroupsOU(base)):
		return KindGroupsOU, ""
	}

	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) != 1 {
		return KindOther, ""
	}
	attrType := strings.ToLower(parsed.RDNs[0].Attributes[0].Type)
	value := parsed.RDNs[0].Attributes[0].Value
	switch {
	case attrType == "uid" && IsBelow(dn, UsersOU(base)):
		return KindUser, value
	case attrType == "cn" && IsBelow(dn, GroupsOU(base)):
		return KindGroup, value
	default:
		return KindOther, ""
	}
}
