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

type entraUser struct {
	ID                string `json:"id"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	AccountEnabled    bool   `json:"accountEnabled"`
}

type entraUserPage struct {
	Value    []entraUser `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

type entraGroup struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type entraGroupPage struct {
	Value    []entraGroup `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type entraMember struct {
	ID   string `json:"id"`
	Type string `json:"@odata.type"`
}

type entraMemberPage struct {
	Value    []entraMember `json:"value"`
	NextLink string        `json:"@odata.nextLink"`
}

// fetchEntra implements the Microsoft Graph adapter for Entra ID (spec
// §4.3): GET /v1.0/users (accountEnabled filter applied client-side,
// since Graph's $filter on accountEnabled requires a consistency-level
// header this minimal client does not send), GET /v1.0/groups, and one
// /members call per group, following @odata.nextLink pagination.
func (a *Adapter) fetchEntra(ctx context.Context) (directory.AdapterResult, error) {
	graphBase := a.cfg.BaseURL

	result := directory.AdapterResult{}

	url := fmt.Sprintf("%s/v1.0/users?$select=id,userPrincipalName,displayName,mail,accountEnabled", graphBase)
	for url != "" {
		var page entraUserPage
		if err := a.doJSON(ctx, url, &page); err != nil {
			return directory.AdapterResult{}, err
		}
		for _, u := range page.Value {
			if !u.AccountEnabled {
				continue
			}
			result.Users = append(result.Users, directory.RawUser{
				ID:          u.ID,
				Username:    u.UserPrincipalName,
				DisplayName: firstNonEmpty(u.DisplayName, u.UserPrincipalName),
				Email:       u.Mail,
			})
		}
		url = page.NextLink
	}

	url = fmt.Sprintf("%s/v1.0/groups?$select=id,displayName", graphBase)
	for url != "" {
		var page entraGroupPage
		if err := a.doJSON(ctx, url, &page); err != nil {
			return directory.AdapterResult{}, err
		}
		for _, g := range page.Value {
			memberIDs, err := a.entraGroupMembers(ctx, graphBase, g.ID)
			if err != nil {
				return directory.AdapterResult{}, err
			}
			result.Groups = append(result.Groups, directory.RawGroup{
				ID:            g.ID,
				Name:          g.DisplayName,
				MemberUserIDs: memberIDs,
			})
		}
		url = page.NextLink
	}

	return result, nil
}

func (a *Adapter) entraGroupMembers(ctx context.Context, graphBase, groupID string) ([]string, error) {
	var memberIDs []string
	url := fmt.Sprintf("%s/v1.0/groups/%s/members?$select=id", graphBase, groupID)
	for url != "" {
		var page entraMemberPage
		if err := a.doJSON(ctx, url, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Value {
			if m.Type == "" || m.Type == "#microsoft.graph.user" {
				memberIDs = append(memberIDs, m.ID)
			}
		}
		url = page.NextLink
	}
	return memberIDs, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
