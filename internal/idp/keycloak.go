/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package idp

import (
	"context"
	"fmt"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
)

type keycloakUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Enabled   bool   `json:"enabled"`
}

type keycloakGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type keycloakGroupMember struct {
	ID string `json:"id"`
}

// fetchKeycloak implements the Keycloak Admin REST API adapter (spec
// §4.3): GET /admin/realms/{realm}/users (filtering out enabled=false),
// GET /admin/realms/{realm}/groups, and one members call per group.
func (a *Adapter) fetchKeycloak(ctx context.Context) (directory.AdapterResult, error) {
	base := fmt.Sprintf("%s/admin/realms/%s", a.cfg.BaseURL, a.cfg.Realm)

	var kcUsers []keycloakUser
	if err := a.doJSON(ctx, base+"/users?max=-1", &kcUsers); err != nil {
		return directory.AdapterResult{}, err
	}

	var kcGroups []keycloakGroup
	if err := a.doJSON(ctx, base+"/groups?max=-1", &kcGroups); err != nil {
		return directory.AdapterResult{}, err
	}

	result := directory.AdapterResult{}
	for _, u := range kcUsers {
		if !u.Enabled {
			continue
		}
		result.Users = append(result.Users, directory.RawUser{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: displayName(u.FirstName, u.LastName, u.Username),
			Email:       u.Email,
		})
	}

	for _, g := range kcGroups {
		var members []keycloakGroupMember
		if err := a.doJSON(ctx, fmt.Sprintf("%s/groups/%s/members?max=-1", base, g.ID), &members); err != nil {
			return directory.AdapterResult{}, err
		}
		memberIDs := make([]string, 0, len(members))
		for _, m := range members {
			memberIDs = append(memberIDs, m.ID)
		}
		result.Groups = append(result.Groups, directory.RawGroup{
			ID:            g.ID,
			Name:          g.Name,
			MemberUserIDs: memberIDs,
		})
	}

	return result, nil
}

func displayName(first, last, fallback string) string {
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return fallback
	}
}
