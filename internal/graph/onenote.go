package graph

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// OnenoteScope addresses the OneNote service of a user, group or site.
type OnenoteScope struct {
	kind string
	id   string
}

// UserOnenote scopes OneNote calls to a user's notebooks.
func UserOnenote(userID string) OnenoteScope { return OnenoteScope{kind: "users", id: userID} }

// GroupOnenote scopes OneNote calls to a group's notebooks.
func GroupOnenote(groupID string) OnenoteScope { return OnenoteScope{kind: "groups", id: groupID} }

// SiteOnenote scopes OneNote calls to a site's notebooks.
func SiteOnenote(siteID string) OnenoteScope { return OnenoteScope{kind: "sites", id: siteID} }

// path returns the URL prefix for the scope, e.g. "/users/{id}/onenote".
func (s OnenoteScope) path() string {
	return fmt.Sprintf("/%s/%s/onenote", s.kind, url.PathEscape(s.id))
}

// Notebook is the top level of the notebook → section → page hierarchy.
type Notebook struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	CreatedDateTime  string `json:"createdDateTime"`
	ModifiedDateTime string `json:"lastModifiedDateTime"`
	Links            *struct {
		OneNoteWebURL *struct {
			Href string `json:"href"`
		} `json:"oneNoteWebUrl"`
	} `json:"links,omitempty"`
}

// WebURL returns the browsable URL of the notebook, if present.
func (n *Notebook) WebURL() string {
	if n.Links != nil && n.Links.OneNoteWebURL != nil {
		return n.Links.OneNoteWebURL.Href
	}
	return ""
}

// Section is the middle level of the notebook hierarchy.
type Section struct {
	ID              string `json:"id"`
	DisplayName     string `json:"displayName"`
	CreatedDateTime string `json:"createdDateTime"`
}

// OnenotePage is a leaf page with fetchable HTML content.
type OnenotePage struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ContentURL      string `json:"contentUrl"`
	CreatedDateTime string `json:"createdDateTime"`
}

// ListNotebooks returns the first page of notebooks in a scope.
func (c *Client) ListNotebooks(ctx context.Context, scope OnenoteScope) (*Page[Notebook], error) {
	u := fmt.Sprintf("%s%s/notebooks?$top=%d", c.baseURL, scope.path(), defaultPageSize)
	return list[Notebook](ctx, c, u)
}

// ListSections returns the first page of a notebook's sections.
func (c *Client) ListSections(ctx context.Context, scope OnenoteScope, notebookID string) (*Page[Section], error) {
	u := fmt.Sprintf("%s%s/notebooks/%s/sections?$top=%d",
		c.baseURL, scope.path(), url.PathEscape(notebookID), defaultPageSize)
	return list[Section](ctx, c, u)
}

// ListPages returns the first page of a section's pages.
func (c *Client) ListPages(ctx context.Context, scope OnenoteScope, sectionID string) (*Page[OnenotePage], error) {
	u := fmt.Sprintf("%s%s/sections/%s/pages?$top=%d",
		c.baseURL, scope.path(), url.PathEscape(sectionID), defaultPageSize)
	return list[OnenotePage](ctx, c, u)
}

// GetPageContent streams a page's HTML content. The caller must close the
// reader.
func (c *Client) GetPageContent(ctx context.Context, scope OnenoteScope, pageID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s%s/pages/%s/content", c.baseURL, scope.path(), url.PathEscape(pageID))
	return c.getStream(ctx, u)
}
