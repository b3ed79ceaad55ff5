package graph

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Drive represents a OneDrive or SharePoint document library.
type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// DriveItem represents a file or folder in a drive tree.
type DriveItem struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Size             int64            `json:"size"`
	WebURL           string           `json:"webUrl"`
	ETag             string           `json:"eTag"`
	CTag             string           `json:"cTag"`
	CreatedDateTime  string           `json:"createdDateTime"`
	ModifiedDateTime string           `json:"lastModifiedDateTime"`
	File             *FileInfo        `json:"file,omitempty"`
	Folder           *FolderInfo      `json:"folder,omitempty"`
	ParentReference  *ParentReference `json:"parentReference,omitempty"`
}

// FileInfo contains file-specific metadata. Its presence marks the item as a
// file with fetchable content; absence marks a folder to recurse into.
type FileInfo struct {
	MIMEType string `json:"mimeType"`
	Hashes   *struct {
		QuickXorHash string `json:"quickXorHash"`
		SHA1Hash     string `json:"sha1Hash"`
	} `json:"hashes,omitempty"`
}

// FolderInfo contains folder-specific metadata.
type FolderInfo struct {
	ChildCount int `json:"childCount"`
}

// ParentReference contains parent folder information.
type ParentReference struct {
	DriveID   string `json:"driveId"`
	DriveType string `json:"driveType"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
}

// IsFolder reports whether the item is a folder. A nil mimetype facet means
// folder (recurse, never fetch content).
func (d *DriveItem) IsFolder() bool {
	return d.File == nil
}

// MIMEType returns the file's MIME type, empty for folders.
func (d *DriveItem) MIMEType() string {
	if d.File != nil {
		return d.File.MIMEType
	}
	return ""
}

// Path returns the slash path of the item within its drive.
func (d *DriveItem) Path() string {
	if d.ParentReference != nil && d.ParentReference.Path != "" {
		return d.ParentReference.Path + "/" + d.Name
	}
	return "/" + d.Name
}

// Permission is a sharing grant on a drive item.
type Permission struct {
	ID                    string        `json:"id"`
	Roles                 []string      `json:"roles"`
	GrantedToV2           *IdentitySet  `json:"grantedToV2,omitempty"`
	GrantedToIdentitiesV2 []IdentitySet `json:"grantedToIdentitiesV2,omitempty"`
	Link                  *SharingLink  `json:"link,omitempty"`
}

// Identities returns every identity set the permission grants to, the
// singular grantedToV2 first.
func (p *Permission) Identities() []IdentitySet {
	sets := make([]IdentitySet, 0, 1+len(p.GrantedToIdentitiesV2))
	if p.GrantedToV2 != nil {
		sets = append(sets, *p.GrantedToV2)
	}
	return append(sets, p.GrantedToIdentitiesV2...)
}

// IdentitySet is the set of identities a permission was granted to.
type IdentitySet struct {
	User     *Identity `json:"user,omitempty"`
	Group    *Identity `json:"group,omitempty"`
	SiteUser *Identity `json:"siteUser,omitempty"`
}

// Identity identifies a single user or group principal.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// SharingLink describes a link-type permission.
type SharingLink struct {
	Scope string `json:"scope"`
	Type  string `json:"type"`
}

// ListUserDrives returns the first page of a user's drives.
func (c *Client) ListUserDrives(ctx context.Context, userID string) (*Page[Drive], error) {
	u := fmt.Sprintf("%s/users/%s/drives?$top=%d", c.baseURL, url.PathEscape(userID), defaultPageSize)
	return list[Drive](ctx, c, u)
}

// ListGroupDrives returns the first page of a group's drives.
func (c *Client) ListGroupDrives(ctx context.Context, groupID string) (*Page[Drive], error) {
	u := fmt.Sprintf("%s/groups/%s/drives?$top=%d", c.baseURL, url.PathEscape(groupID), defaultPageSize)
	return list[Drive](ctx, c, u)
}

// ListSiteDrives returns the first page of a site's document libraries.
// Pass "root" for the tenant root site.
func (c *Client) ListSiteDrives(ctx context.Context, siteID string) (*Page[Drive], error) {
	u := fmt.Sprintf("%s/sites/%s/drives?$top=%d", c.baseURL, url.PathEscape(siteID), defaultPageSize)
	return list[Drive](ctx, c, u)
}

// GetDrive fetches one drive by id.
func (c *Client) GetDrive(ctx context.Context, driveID string) (*Drive, error) {
	u := fmt.Sprintf("%s/drives/%s", c.baseURL, url.PathEscape(driveID))
	var drive Drive
	if err := c.getJSON(ctx, u, &drive); err != nil {
		return nil, err
	}
	return &drive, nil
}

// ListItemChildren returns the first page of an item's children. Pass
// "root" for the drive root.
func (c *Client) ListItemChildren(ctx context.Context, driveID, itemID string) (*Page[DriveItem], error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s/children?$top=%d",
		c.baseURL, url.PathEscape(driveID), url.PathEscape(itemID), defaultPageSize)
	return list[DriveItem](ctx, c, u)
}

// GetItemContent streams a file's content. The caller must close the reader.
func (c *Client) GetItemContent(ctx context.Context, driveID, itemID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s/content",
		c.baseURL, url.PathEscape(driveID), url.PathEscape(itemID))
	return c.getStream(ctx, u)
}

// ListItemPermissions returns the first page of sharing grants on an item.
func (c *Client) ListItemPermissions(ctx context.Context, driveID, itemID string) (*Page[Permission], error) {
	u := fmt.Sprintf("%s/drives/%s/items/%s/permissions",
		c.baseURL, url.PathEscape(driveID), url.PathEscape(itemID))
	return list[Permission](ctx, c, u)
}
