package graph

import (
	"context"
	"fmt"
	"net/url"
)

// teamProvisioningOption tags a group as backing a Microsoft Team. Graph
// exposes it through the resourceProvisioningOptions extension property,
// which must be selected explicitly.
const teamProvisioningOption = "Team"

// groupSelect covers the group fields the crawler reads, including the
// provisioning options used for team detection.
const groupSelect = "$select=id,displayName,mail,visibility,resourceProvisioningOptions"

// Group represents a directory group from Microsoft Graph.
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Mail        string `json:"mail"`
	Visibility  string `json:"visibility"`
	// ProvisioningOptions is populated at deserialisation time from the
	// resourceProvisioningOptions extension property; it contains "Team"
	// for groups that back a Microsoft Team.
	ProvisioningOptions []string `json:"resourceProvisioningOptions"`
}

// IsTeam reports whether the group backs a Microsoft Team.
func (g *Group) IsTeam() bool {
	for _, opt := range g.ProvisioningOptions {
		if opt == teamProvisioningOption {
			return true
		}
	}
	return false
}

// ListGroups returns the first page of directory groups.
func (c *Client) ListGroups(ctx context.Context) (*Page[Group], error) {
	u := fmt.Sprintf("%s/groups?$top=%d&%s", c.baseURL, defaultPageSize, groupSelect)
	return list[Group](ctx, c, u)
}

// GetGroup fetches one group by id.
func (c *Client) GetGroup(ctx context.Context, id string) (*Group, error) {
	u := fmt.Sprintf("%s/groups/%s?%s", c.baseURL, url.PathEscape(id), groupSelect)
	var group Group
	if err := c.getJSON(ctx, u, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListTeams returns the first page of groups provisioned as Teams.
func (c *Client) ListTeams(ctx context.Context) (*Page[Group], error) {
	filter := url.QueryEscape("resourceProvisioningOptions/Any(x:x eq 'Team')")
	u := fmt.Sprintf("%s/groups?$top=%d&$filter=%s&%s",
		c.baseURL, defaultPageSize, filter, groupSelect)
	return list[Group](ctx, c, u)
}

// GroupIDsByEmail resolves an email address to zero or more group ids. The
// result is cached for the lifetime of the client.
func (c *Client) GroupIDsByEmail(ctx context.Context, email string) ([]string, error) {
	return c.groupIDs.Get(ctx, email)
}

// loadGroupIDsByEmail is the cache loader behind GroupIDsByEmail.
func (c *Client) loadGroupIDsByEmail(ctx context.Context, email string) ([]string, error) {
	filter := url.QueryEscape(fmt.Sprintf("mail eq '%s'", email))
	u := fmt.Sprintf("%s/groups?$filter=%s&$select=id", c.baseURL, filter)

	page, err := list[Group](ctx, c, u)
	if err != nil {
		return nil, err
	}
	groups, err := Drain(ctx, page)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}
