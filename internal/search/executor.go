/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
	"github.com/veryCrunchy/ldaptoid/internal/dntree"
	"github.com/veryCrunchy/ldaptoid/internal/wire"
)

// Entry is one synthesized directory entry ready for rendering onto the
// wire as a SearchResultEntry.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Request is the inputs to one search execution: the decoded wire
// request plus the effective size limit, which the caller has already
// set to the lesser of client-requested and server-configured size limits
// (spec §4.9).
type Request struct {
	BaseDN     string
	Scope      wire.Scope
	Filter     wire.Filter
	Attributes []string
	TypesOnly  bool
	SizeLimit  int
}

// Result is the full search output. The Simple Paged Results control
// (spec glossary) is acknowledged for client compatibility but not
// actually paged by this core: every matching entry up to SizeLimit is
// always returned in one response, and the caller echoes back an empty
// cookie unconditionally.
type Result struct {
	Entries   []Entry
	Truncated bool // sizeLimit reached (spec §4.9, returns sizeLimitExceeded)
}

// Execute walks snap's tree rooted at req.BaseDN according to req.Scope,
// evaluates req.Filter against each candidate, and returns the matching
// entries with attribute selection and the size limit applied.
//
// Candidate ordering is fixed and deterministic: the base entry itself
// (wholeSubtree from the suffix only), then the two organizational units
// (when in scope), then users, then groups, each internally sorted by name.
func Execute(snap *directory.Snapshot, baseDN string, req Request) (Result, error) {
	kind, _ := dntree.Classify(req.BaseDN, baseDN)

	candidates, err := collectCandidates(snap, baseDN, req.BaseDN, kind, req.Scope)
	if err != nil {
		return Result{}, err
	}

	matched := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		if Evaluate(req.Filter, c.Attributes) {
			matched = append(matched, Entry{DN: c.DN, Attributes: selectAttributes(c.Attributes, req.Attributes, req.TypesOnly)})
		}
	}

	truncated := false
	if req.SizeLimit > 0 && len(matched) > req.SizeLimit {
		matched = matched[:req.SizeLimit]
		truncated = true
	}

	return Result{Entries: matched, Truncated: truncated}, nil
}

type candidate struct {
	DN         string
	Attributes map[string][]string
}

func collectCandidates(snap *directory.Snapshot, baseDN, requestBase string, kind dntree.Kind, scope wire.Scope) ([]candidate, error) {
	var out []candidate

	includeOUs := scope != wire.ScopeBaseObject || kind == dntree.KindBase
	includeUsers := true
	includeGroups := true

	switch kind {
	case dntree.KindUser, dntree.KindGroup:
		// Base object search rooted directly at a leaf: only that leaf
		// can ever match, regardless of requested scope.
		entry, ok := leafCandidate(snap, baseDN, requestBase, kind)
		if !ok {
			return nil, nil
		}
		return []candidate{entry}, nil
	case dntree.KindUsersOU:
		includeGroups = false
		if scope == wire.ScopeBaseObject {
			return []candidate{ouCandidate(dntree.UsersOU(baseDN))}, nil
		}
	case dntree.KindGroupsOU:
		includeUsers = false
		if scope == wire.ScopeBaseObject {
			return []candidate{ouCandidate(dntree.GroupsOU(baseDN))}, nil
		}
	case dntree.KindRoot:
		return []candidate{rootDSECandidate(baseDN)}, nil
	case dntree.KindBase:
		if scope == wire.ScopeBaseObject {
			return []candidate{baseCandidate(baseDN)}, nil
		}
		if scope == wire.ScopeSingleLevel {
			includeUsers, includeGroups = false, false
		}
	default:
		// A baseObject outside the suffix (spec §4.9) succeeds with zero
		// entries; it is not a protocol error, merely an empty result.
		return nil, nil
	}

	if includeOUs && kind == dntree.KindBase {
		if scope == wire.ScopeWholeSubtree {
			out = append(out, baseCandidate(baseDN))
		}
		out = append(out, ouCandidate(dntree.UsersOU(baseDN)), ouCandidate(dntree.GroupsOU(baseDN)))
	}
	if includeUsers {
		out = append(out, userCandidates(snap, baseDN)...)
	}
	if includeGroups {
		out = append(out, groupCandidates(snap, baseDN)...)
	}
	return out, nil
}

func leafCandidate(snap *directory.Snapshot, baseDN, requestDN string, kind dntree.Kind) (candidate, bool) {
	_, value := dntree.Classify(requestDN, baseDN)
	switch kind {
	case dntree.KindUser:
		u, ok := snap.UserByUsername(value)
		if !ok {
			return candidate{}, false
		}
		return candidate{DN: dntree.UserDN(baseDN, u.Username), Attributes: userAttributes(snap, baseDN, *u)}, true
	case dntree.KindGroup:
		g, ok := snap.GroupByName(value)
		if !ok {
			return candidate{}, false
		}
		return candidate{DN: dntree.GroupDN(baseDN, g.Name), Attributes: groupAttributes(snap, *g)}, true
	}
	return candidate{}, false
}

func userCandidates(snap *directory.Snapshot, baseDN string) []candidate {
	users := append([]directory.User(nil), snap.Users...)
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	out := make([]candidate, 0, len(users))
	for _, u := range users {
		out = append(out, candidate{DN: dntree.UserDN(baseDN, u.Username), Attributes: userAttributes(snap, baseDN, u)})
	}
	return out
}

func groupCandidates(snap *directory.Snapshot, baseDN string) []candidate {
	groups := append([]directory.Group(nil), snap.Groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	out := make([]candidate, 0, len(groups))
	for _, g := range groups {
		out = append(out, candidate{DN: dntree.GroupDN(baseDN, g.Name), Attributes: groupAttributes(snap, g)})
	}
	return out
}

func ouCandidate(dn string) candidate {
	return candidate{DN: dn, Attributes: map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {ouName(dn)},
	}}
}

func ouName(dn string) string {
	i := strings.IndexByte(dn, '=')
	j := strings.IndexByte(dn, ',')
	if i == -1 || j == -1 || j < i {
		return dn
	}
	return dn[i+1 : j]
}

func baseCandidate(dn string) candidate {
	return candidate{DN: dn, Attributes: map[string][]string{
		"objectClass": {"top", "domain"},
	}}
}

func rootDSECandidate(baseDN string) candidate {
	return candidate{DN: "", Attributes: map[string][]string{
		"objectClass":          {"top", "rootDSE"},
		"namingContexts":       {baseDN},
		"supportedLDAPVersion": {"3"},
		"supportedControl":     {wire.PagedResultsControlOID},
		"vendorName":           {"ldaptoid"},
		"vendorVersion":        {"ldaptoid"},
	}}
}

func userAttributes(snap *directory.Snapshot, baseDN string, u directory.User) map[string][]string {
	gidNumber := int32(0)
	if pg, ok := snap.GroupByID(u.PrimaryGroupID); ok {
		gidNumber = pg.GIDNumber
	}
	attrs := map[string][]string{
		"objectClass":   {"top", "posixAccount", "inetOrgPerson", "person", "organizationalPerson"},
		"uid":           {u.Username},
		"cn":            {u.DisplayName},
		"sn":            {surname(u.DisplayName)},
		"displayName":   {u.DisplayName},
		"givenName":     {givenName(u.DisplayName)},
		"uidNumber":     {strconv.FormatInt(int64(u.UIDNumber), 10)},
		"gidNumber":     {strconv.FormatInt(int64(gidNumber), 10)},
		"homeDirectory": {"/home/" + u.Username},
		"loginShell":    {"/bin/bash"},
	}
	if u.Email != "" {
		attrs["mail"] = []string{u.Email}
	}
	if memberOf := memberOfGroups(snap, baseDN, u); len(memberOf) > 0 {
		attrs["memberOf"] = memberOf
	}
	return attrs
}

// memberOfGroups lists the DNs of every group (primary or otherwise) that
// directly lists u as a member, for the memberOf attribute (spec §4.11).
func memberOfGroups(snap *directory.Snapshot, baseDN string, u directory.User) []string {
	var dns []string
	for _, g := range snap.Groups {
		for _, id := range g.MemberUserIDs {
			if id == u.ID {
				dns = append(dns, dntree.GroupDN(baseDN, g.Name))
				break
			}
		}
	}
	sort.Strings(dns)
	return dns
}

func surname(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return displayName
	}
	return fields[len(fields)-1]
}

func givenName(displayName string) string {
	fields := strings.Fields(displayName)
	if len(fields) == 0 {
		return displayName
	}
	return fields[0]
}

func groupAttributes(snap *directory.Snapshot, g directory.Group) map[string][]string {
	attrs := map[string][]string{
		"objectClass": {"top", "posixGroup"},
		"cn":          {g.Name},
		"gidNumber":   {strconv.FormatInt(int64(g.GIDNumber), 10)},
	}
	if len(g.MemberUserIDs) > 0 {
		members := make([]string, 0, len(g.MemberUserIDs))
		for _, id := range g.MemberUserIDs {
			if u, ok := snap.UserByID(id); ok {
				members = append(members, u.Username)
			}
		}
		sort.Strings(members)
		if len(members) > 0 {
			attrs["memberUid"] = members
		}
	}
	return attrs
}

func selectAttributes(all map[string][]string, requested []string, typesOnly bool) map[string][]string {
	wantAll := len(requested) == 0
	for _, a := range requested {
		if a == "*" {
			wantAll = true
		}
	}

	out := make(map[string][]string)
	add := func(name string, values []string) {
		if typesOnly {
			out[name] = nil
		} else {
			out[name] = values
		}
	}
	if wantAll {
		for name, values := range all {
			add(name, values)
		}
		return out
	}
	for _, name := range requested {
		for k, v := range all {
			if strings.EqualFold(k, name) {
				add(k, v)
			}
		}
	}
	return out
}
