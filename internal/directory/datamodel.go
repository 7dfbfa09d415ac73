/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package directory contains the data model that is produced by a snapshot
// build and consumed by the LDAP search executor: users, groups, and the
// immutable Snapshot that bundles them.
package directory

import "time"

// User represents a single active IdP principal that has been projected
// into the directory.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`

	UIDNumber      int32   `json:"uid_number"`
	PrimaryGroupID string  `json:"primary_group_id"`
	MemberGroupIDs []string `json:"member_group_ids,omitempty"`
}

// Cloned returns a deep copy of this user.
func (u User) Cloned() User {
	if u.MemberGroupIDs != nil {
		u.MemberGroupIDs = append([]string(nil), u.MemberGroupIDs...)
	}
	return u
}

// Group represents a real IdP group or a group synthesized by the snapshot
// builder (synthetic primary groups, mirror groups).
type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	MemberUserIDs  []string `json:"member_user_ids,omitempty"`
	MemberGroupIDs []string `json:"member_group_ids,omitempty"`

	GIDNumber   int32 `json:"gid_number"`
	IsSynthetic bool  `json:"is_synthetic,omitempty"`
	Truncated   bool  `json:"truncated,omitempty"`
}

// Cloned returns a deep copy of this group.
func (g Group) Cloned() Group {
	if g.MemberUserIDs != nil {
		g.MemberUserIDs = append([]string(nil), g.MemberUserIDs...)
	}
	if g.MemberGroupIDs != nil {
		g.MemberGroupIDs = append([]string(nil), g.MemberGroupIDs...)
	}
	return g
}

// PrimaryGroupSentinel is the constant primaryGroupId used for every user
// when the synthetic_primary_group feature is disabled (spec §4.5 step 3).
const PrimaryGroupSentinel = "users"

// Feature is one of the toggles in spec §4.5 / §6 enabledFeatures.
type Feature string

const (
	FeatureSyntheticPrimaryGroup Feature = "synthetic_primary_group"
	FeatureMirrorNestedGroups    Feature = "mirror_nested_groups"
)

// Snapshot is an immutable publication unit: the entire directory as of one
// successful refresh. Once returned from the builder, a Snapshot and
// everything reachable from it must never be mutated; readers hold a
// pointer to one for the whole lifetime of a Search response (spec §5).
type Snapshot struct {
	Users        []User
	Groups       []Group
	GeneratedAt  time.Time
	Sequence     uint64
	FeatureFlags []Feature

	usersByUsername map[string]*User
	usersByID        map[string]*User
	groupsByName     map[string]*Group
	groupsByID       map[string]*Group
}

// Finalize builds the lookup indexes used by the search executor and the
// filter evaluator. It is called exactly once by the builder before the
// Snapshot is published; after this call the Snapshot must be treated as
// read-only.
func (s *Snapshot) Finalize() {
	s.usersByUsername = make(map[string]*User, len(s.Users))
	s.usersByID = make(map[string]*User, len(s.Users))
	for i := range s.Users {
		u := &s.Users[i]
		s.usersByUsername[u.Username] = u
		s.usersByID[u.ID] = u
	}
	s.groupsByName = make(map[string]*Group, len(s.Groups))
	s.groupsByID = make(map[string]*Group, len(s.Groups))
	for i := range s.Groups {
		g := &s.Groups[i]
		s.groupsByName[g.Name] = g
		s.groupsByID[g.ID] = g
	}
}

// UserByUsername looks up a user by its LDAP-visible uid attribute.
func (s *Snapshot) UserByUsername(name string) (*User, bool) {
	u, ok := s.usersByUsername[name]
	return u, ok
}

// GroupByName looks up a group by its LDAP-visible cn attribute.
func (s *Snapshot) GroupByName(name string) (*Group, bool) {
	g, ok := s.groupsByName[name]
	return g, ok
}

// GroupByID looks up a group by its opaque internal id.
func (s *Snapshot) GroupByID(id string) (*Group, bool) {
	g, ok := s.groupsByID[id]
	return g, ok
}

// UserByID looks up a user by its opaque internal id.
func (s *Snapshot) UserByID(id string) (*User, bool) {
	u, ok := s.usersByID[id]
	return u, ok
}

// HasFeature reports whether the given feature flag was enabled for this
// build.
func (s *Snapshot) HasFeature(f Feature) bool {
	for _, have := range s.FeatureFlags {
		if have == f {
			return true
		}
	}
	return false
}
