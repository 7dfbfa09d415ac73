/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package directory

// RawUser is the canonical shape of a user as produced by an IdP adapter,
// before the ID allocator has assigned a uidNumber (spec §4.3). Adapters
// only ever emit active users; inactive ones are filtered during adapter
// output, not later.
type RawUser struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
}

// RawGroup is the canonical shape of a group as produced by an IdP adapter,
// before the ID allocator has assigned a gidNumber. MemberUserIDs may be
// empty when the adapter variant cannot supply group membership cheaply
// (spec §4.3, Open Question 4) — the builder never synthesizes membership
// from user attributes to compensate.
type RawGroup struct {
	ID          string
	Name        string
	Description string

	MemberUserIDs  []string
	MemberGroupIDs []string // nested groups, only when the adapter variant can supply them cheaply
}

// AdapterResult is what an IdP adapter returns from one fetch cycle.
type AdapterResult struct {
	Users  []RawUser
	Groups []RawGroup
}
