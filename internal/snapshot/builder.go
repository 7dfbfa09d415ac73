/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package snapshot

import (
	"sort"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
	"github.com/veryCrunchy/ldaptoid/internal/idalloc"
)

// maxGroupMembers is the group membership clipping threshold (spec §4.5):
// groups with more raw members than this are truncated and flagged rather
// than rendered in full, to bound a single SearchResultEntry's size.
const maxGroupMembers = 5000

// Metrics is the subset of builder-observed counters the process exposes
// (spec §4.5, §6 /metrics).
type Metrics struct {
	GroupsTruncated int64
}

// Options configures one Build call.
type Options struct {
	SyntheticPrimaryGroup bool // spec §4.5 step 3, feature flag synthetic_primary_group
	MirrorNestedGroups    bool // feature flag mirror_nested_groups
}

// Build turns raw adapter output into a finalized, ready-to-publish
// Snapshot: allocating uidNumber/gidNumber via the two allocators,
// synthesizing per-user primary groups when enabled, clipping oversized
// group membership, and sorting everything for deterministic output.
func Build(raw directory.AdapterResult, uidAlloc, gidAlloc *idalloc.Allocator, seq uint64, opts Options) (*directory.Snapshot, Metrics) {
	var metrics Metrics

	users := make([]directory.User, 0, len(raw.Users))
	for _, ru := range raw.Users {
		uidResult := uidAlloc.Allocate("user:" + ru.ID)
		u := directory.User{
			ID:          ru.ID,
			Username:    ru.Username,
			DisplayName: ru.DisplayName,
			Email:       ru.Email,
			UIDNumber:   uidResult.ID,
		}
		if opts.SyntheticPrimaryGroup {
			u.PrimaryGroupID = syntheticGroupID(ru.ID)
		} else {
			u.PrimaryGroupID = directory.PrimaryGroupSentinel
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	groups := make([]directory.Group, 0, len(raw.Groups)+len(raw.Users)+1)

	if !opts.SyntheticPrimaryGroup {
		sentinelGID := gidAlloc.Allocate("group:" + directory.PrimaryGroupSentinel)
		groups = append(groups, directory.Group{
			ID:        directory.PrimaryGroupSentinel,
			Name:      directory.PrimaryGroupSentinel,
			GIDNumber: sentinelGID.ID,
		})
	}

	for _, ru := range raw.Users {
		if !opts.SyntheticPrimaryGroup {
			continue
		}
		gid := gidAlloc.Allocate("group:" + syntheticGroupID(ru.ID))
		groups = append(groups, directory.Group{
			ID:          syntheticGroupID(ru.ID),
			Name:        ru.Username + "-primary",
			GIDNumber:   gid.ID,
			MemberUserIDs: []string{ru.ID},
			IsSynthetic: true,
		})
	}

	for _, rg := range raw.Groups {
		gidResult := gidAlloc.Allocate("group:" + rg.ID)
		g := directory.Group{
			ID:          rg.ID,
			Name:        rg.Name,
			Description: rg.Description,
			GIDNumber:   gidResult.ID,
		}
		g.MemberUserIDs = append([]string(nil), rg.MemberUserIDs...)
		sort.Strings(g.MemberUserIDs)
		g.MemberGroupIDs = rg.MemberGroupIDs
		groups = append(groups, g)
	}

	if opts.MirrorNestedGroups {
		userPrimaryGroup := make(map[string]string, len(users))
		for _, u := range users {
			userPrimaryGroup[u.ID] = u.PrimaryGroupID
		}
		groups = append(groups, mirrorGroups(raw.Groups, userPrimaryGroup, gidAlloc)...)
	}

	for i := range groups {
		members := groups[i].MemberUserIDs
		if len(members) > maxGroupMembers {
			groups[i].MemberUserIDs = append([]string(nil), members[:maxGroupMembers]...)
			groups[i].Truncated = true
			metrics.GroupsTruncated++
		}
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	var flags []directory.Feature
	if opts.SyntheticPrimaryGroup {
		flags = append(flags, directory.FeatureSyntheticPrimaryGroup)
	}
	if opts.MirrorNestedGroups {
		flags = append(flags, directory.FeatureMirrorNestedGroups)
	}

	snap := &directory.Snapshot{
		Users:        users,
		Groups:       groups,
		Sequence:     seq,
		FeatureFlags: flags,
	}
	snap.Finalize()
	return snap, metrics
}

func syntheticGroupID(userID string) string {
	return "synthetic-primary:" + userID
}

// mirrorGroupID derives the id of the mirror group synthesized for a real
// group, as opposed to syntheticGroupID which derives a user's primary
// group id.
func mirrorGroupID(groupID string) string {
	return "mirror:" + groupID
}

// mirrorGroups implements the mirror_nested_groups feature (spec §4.5 step
// 4, GLOSSARY "Mirror group"): for every real group it synthesizes a
// group-of-groups whose members are the primary groups of that group's
// own user members, so that an LDAP client which only ever resolves
// group-to-group nesting (never a group's direct memberUid list) can still
// reach every such user's primary GID. Groups with no user members of
// their own get no mirror.
func mirrorGroups(rawGroups []directory.RawGroup, userPrimaryGroup map[string]string, gidAlloc *idalloc.Allocator) []directory.Group {
	mirrors := make([]directory.Group, 0, len(rawGroups))
	for _, rg := range rawGroups {
		seen := make(map[string]bool, len(rg.MemberUserIDs))
		var memberGroupIDs []string
		for _, uid := range rg.MemberUserIDs {
			pgid, ok := userPrimaryGroup[uid]
			if !ok || seen[pgid] {
				continue
			}
			seen[pgid] = true
			memberGroupIDs = append(memberGroupIDs, pgid)
		}
		if len(memberGroupIDs) == 0 {
			continue
		}
		sort.Strings(memberGroupIDs)

		id := mirrorGroupID(rg.ID)
		gid := gidAlloc.Allocate("group:" + id)
		mirrors = append(mirrors, directory.Group{
			ID:             id,
			Name:           rg.Name + "-mirror",
			MemberGroupIDs: memberGroupIDs,
			GIDNumber:      gid.ID,
			IsSynthetic:    true,
		})
	}
	return mirrors
}
