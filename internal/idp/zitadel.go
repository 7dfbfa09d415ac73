/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

package idp

import (
	"context"
	"fmt"
	"net/http"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
)

// zitadelUserListRequest is the POST body for ZITADEL v2's /v2/users list
// endpoint (spec §4.3, §6): a pagination query plus an optional
// organization-scoping query. Organization scoping is carried by both this
// Queries slice and the "x-zitadel-orgid" request header, matching the API
// as documented.
type zitadelUserListRequest struct {
	Query   zitadelListQuery            `json:"query"`
	Queries []zitadelOrgIDQueryEnvelope `json:"queries,omitempty"`
}

type zitadelListQuery struct {
	Limit uint32 `json:"limit"`
	Asc   bool   `json:"asc"`
}

type zitadelOrgIDQueryEnvelope struct {
	OrganizationIDQuery zitadelOrgIDQuery `json:"organizationIdQuery"`
}

type zitadelOrgIDQuery struct {
	OrganizationID string `json:"organizationId"`
}

// zitadelUserListLimit bounds one /v2/users page. The core does not chase
// further pages: deployments with more active users than this are expected
// to scope by organization (spec §4.3 Open Question territory, same
// posture as the LDAP-facing Paged Results control's own non-pagination).
const zitadelUserListLimit = 1000

type zitadelUser struct {
	UserID             string `json:"userId"`
	UserName           string `json:"userName"`
	State              string `json:"state"`
	Human              *struct {
		Profile *struct {
			DisplayName string `json:"displayName"`
		} `json:"profile"`
		Email *struct {
			Email string `json:"email"`
		} `json:"email"`
	} `json:"human"`
}

type zitadelUserListResponse struct {
	Result []zitadelUser `json:"result"`
}

type zitadelGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type zitadelGroupListResponse struct {
	Result []zitadelGroup `json:"result"`
}

type zitadelMember struct {
	UserID string `json:"userId"`
}

type zitadelMemberListResponse struct {
	Result []zitadelMember `json:"result"`
}

// zitadelActiveState is the only user state that counts as active (spec
// §4.3, §9 Open Question 3: ZITADEL's USER_STATE has several inactive
// variants — INITIAL, SUSPENDED, DEACTIVATED, LOCKED — and this adapter
// treats every one of them as excluded rather than special-casing each).
const zitadelActiveState = "USER_STATE_ACTIVE"

// fetchZitadel implements the ZITADEL v2 API adapter (spec §4.3): POST
// /v2/users with a query body, GET /v2/groups (organization-scoped when
// cfg.Organization is set), and one members lookup per group.
func (a *Adapter) fetchZitadel(ctx context.Context) (directory.AdapterResult, error) {
	base := a.cfg.BaseURL

	var headers map[string]string
	var orgQueries []zitadelOrgIDQueryEnvelope
	groupsOrg := ""
	if a.cfg.Organization != "" {
		headers = map[string]string{"x-zitadel-orgid": a.cfg.Organization}
		orgQueries = []zitadelOrgIDQueryEnvelope{{OrganizationIDQuery: zitadelOrgIDQuery{OrganizationID: a.cfg.Organization}}}
		groupsOrg = "?organizationId=" + a.cfg.Organization
	}

	var users zitadelUserListResponse
	userListRequest := zitadelUserListRequest{
		Query:   zitadelListQuery{Limit: zitadelUserListLimit, Asc: true},
		Queries: orgQueries,
	}
	if err := a.doJSONRequest(ctx, http.MethodPost, base+"/v2/users", userListRequest, headers, &users); err != nil {
		return directory.AdapterResult{}, err
	}

	var groups zitadelGroupListResponse
	if err := a.doJSON(ctx, base+"/v2/groups"+groupsOrg, &groups); err != nil {
		return directory.AdapterResult{}, err
	}

	result := directory.AdapterResult{}
	for _, u := range users.Result {
		if u.State != zitadelActiveState {
			continue
		}
		displayName, email := u.UserName, ""
		if u.Human != nil {
			if u.Human.Profile != nil && u.Human.Profile.DisplayName != "" {
				displayName = u.Human.Profile.DisplayName
			}
			if u.Human.Email != nil {
				email = u.Human.Email.Email
			}
		}
		result.Users = append(result.Users, directory.RawUser{
			ID:          u.UserID,
			Username:    u.UserName,
			DisplayName: displayName,
			Email:       email,
		})
	}

	for _, g := range groups.Result {
		var members zitadelMemberListResponse
		if err := a.doJSON(ctx, fmt.Sprintf("%s/v2/groups/%s/members", base, g.ID), &members); err != nil {
			return directory.AdapterResult{}, err
		}
		memberIDs := make([]string, 0, len(members.Result))
		for _, m := range members.Result {
			memberIDs = append(memberIDs, m.UserID)
		}
		result.Groups = append(result.Groups, directory.RawGroup{
			ID:            g.ID,
			Name:          g.Name,
			MemberUserIDs: memberIDs,
		})
	}

	return result, nil
}
