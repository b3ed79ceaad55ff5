package walker

import (
	"strings"

	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// CanonicalItemURL returns the browser-facing URL for a drive item.
//
// SharePoint-backed drives answer with viewer redirect URLs under
// /_layouts/ that are useless as stable crawl identities. For those the
// URL is rebuilt from the drive's web URL plus the item's path within the
// drive. Personal OneDrive URLs come back direct and are kept as-is.
func CanonicalItemURL(drive *graph.Drive, item graph.DriveItem) string {
	if !strings.Contains(item.WebURL, "/_layouts/") {
		return item.WebURL
	}
	if drive == nil || drive.WebURL == "" {
		return item.WebURL
	}

	base := strings.TrimRight(drive.WebURL, "/")
	path := itemPathWithinDrive(item)
	if path == "" {
		return base
	}
	return base + path
}

// itemPathWithinDrive extracts "/folder/name" from the item's parent
// reference. Graph paths look like "/drives/{id}/root:/folder"; everything
// up to and including "root:" is drive plumbing.
func itemPathWithinDrive(item graph.DriveItem) string {
	parentPath := ""
	if item.ParentReference != nil {
		if _, after, found := strings.Cut(item.ParentReference.Path, "root:"); found {
			parentPath = after
		}
	}
	if item.Name == "" {
		return parentPath
	}
	return parentPath + "/" + item.Name
}
