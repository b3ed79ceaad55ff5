package crawler

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/roles"
	"github.com/custodia-labs/m365-crawler/internal/walker"
)

// OneDrive crawls drive trees: every user's drives, every group's
// drives, the root site's document libraries, or one explicit drive.
type OneDrive struct {
	base
	filter *ItemFilter
	walker *walker.DriveWalker
}

// NewOneDrive builds a OneDrive orchestrator from shared collaborators
// and a parsed config.
func NewOneDrive(deps Deps, cfg *config.Config) (*OneDrive, error) {
	filter, err := NewItemFilter(cfg.MaxSize, cfg.SupportedMimetypes,
		patternList(cfg.IncludePattern), patternList(cfg.ExcludePattern))
	if err != nil {
		return nil, err
	}
	c := &OneDrive{filter: filter}
	initBase(&c.base, deps, cfg)
	c.walker = walker.NewDriveWalker(c.client, c.log)
	return c, nil
}

// Crawl walks the configured drive scopes, submitting per-item work to a
// bounded pool. It returns once every submitted item has been processed.
func (c *OneDrive) Crawl(ctx context.Context) error {
	log := c.log.With("run", uuid.NewString(), "crawler", "onedrive")
	log.Info("starting OneDrive crawl")

	pool := NewPool(c.cfg.NumberOfThreads, c.cfg.NumberOfThreads*2)
	defer pool.Shutdown()

	var err error
	switch {
	case c.cfg.DriveID != "":
		err = c.crawlExplicitDrive(ctx, pool)
	default:
		err = c.crawlConfiguredScopes(ctx, pool)
	}
	if err != nil {
		return err
	}

	pool.Shutdown()
	err = c.aborted()
	log.Info("OneDrive crawl finished", "error", err)
	return err
}

func (c *OneDrive) crawlExplicitDrive(ctx context.Context, pool *Pool) error {
	drive, err := c.client.GetDrive(ctx, c.cfg.DriveID)
	if err != nil {
		return err
	}
	return c.crawlDrive(ctx, pool, drive)
}

func (c *OneDrive) crawlConfiguredScopes(ctx context.Context, pool *Pool) error {
	if c.cfg.UserDriveCrawler {
		if err := c.crawlUserDrives(ctx, pool); err != nil {
			return err
		}
	}
	if c.cfg.GroupDriveCrawler {
		if err := c.crawlGroupDrives(ctx, pool); err != nil {
			return err
		}
	}
	if c.cfg.SiteDriveCrawler {
		if err := c.crawlSiteDrives(ctx, pool); err != nil {
			return err
		}
	}
	return nil
}

func (c *OneDrive) crawlUserDrives(ctx context.Context, pool *Pool) error {
	page, err := c.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	return graph.EachPage(ctx, page, func(users []graph.User) error {
		for _, user := range users {
			if err := c.aborted(); err != nil {
				return err
			}
			if err := c.crawlOwnedDrives(ctx, pool, func(ctx context.Context) (*graph.Page[graph.Drive], error) {
				return c.client.ListUserDrives(ctx, user.ID)
			}, "user", user.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *OneDrive) crawlGroupDrives(ctx context.Context, pool *Pool) error {
	page, err := c.client.ListGroups(ctx)
	if err != nil {
		return err
	}
	return graph.EachPage(ctx, page, func(groups []graph.Group) error {
		for _, group := range groups {
			if err := c.aborted(); err != nil {
				return err
			}
			if err := c.crawlOwnedDrives(ctx, pool, func(ctx context.Context) (*graph.Page[graph.Drive], error) {
				return c.client.ListGroupDrives(ctx, group.ID)
			}, "group", group.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *OneDrive) crawlSiteDrives(ctx context.Context, pool *Pool) error {
	return c.crawlOwnedDrives(ctx, pool, func(ctx context.Context) (*graph.Page[graph.Drive], error) {
		return c.client.ListSiteDrives(ctx, "root")
	}, "site", "root")
}

// crawlOwnedDrives lists one owner's drives and walks each. Owners whose
// drives cannot be listed are logged and skipped; drive provisioning is
// uneven enough that a missing drive service is routine.
func (c *OneDrive) crawlOwnedDrives(ctx context.Context, pool *Pool,
	listDrives func(ctx context.Context) (*graph.Page[graph.Drive], error),
	ownerKind, ownerID string,
) error {
	page, err := listDrives(ctx)
	if err != nil {
		if graph.IsNotFound(err) {
			return nil
		}
		c.log.Warn("failed to list drives, skipping owner",
			ownerKind, ownerID, "error", err)
		return nil
	}
	drives, err := graph.Drain(ctx, page)
	if err != nil {
		c.log.Warn("failed to drain drive listing, skipping owner",
			ownerKind, ownerID, "error", err)
		return nil
	}
	for i := range drives {
		if err := c.crawlDrive(ctx, pool, &drives[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *OneDrive) crawlDrive(ctx context.Context, pool *Pool, drive *graph.Drive) error {
	c.log.Debug("walking drive", "drive", drive.ID, "name", drive.Name)
	return c.walker.Walk(ctx, drive.ID, func(ctx context.Context, item graph.DriveItem) error {
		if err := c.aborted(); err != nil {
			return err
		}
		if item.IsFolder() {
			if c.cfg.IgnoreFolder {
				return nil
			}
			pool.Submit(func(poolCtx context.Context) {
				if ctx.Err() != nil || poolCtx.Err() != nil {
					return
				}
				c.storeFolder(ctx, drive, item)
			})
			return nil
		}

		url := walker.CanonicalItemURL(drive, item)
		if !c.filter.AllowURL(url) || !c.filter.AllowMIME(item.MIMEType()) || !c.filter.AllowSize(item.Size) {
			c.log.Debug("item filtered out", "url", url, "mimetype", item.MIMEType(), "size", item.Size)
			return nil
		}
		pool.Submit(func(poolCtx context.Context) {
			if ctx.Err() != nil || poolCtx.Err() != nil {
				return
			}
			c.processFile(ctx, drive, item, url)
		})
		return nil
	})
}

// processFile fetches and extracts one file, resolves its view roles and
// stores the document. Runs on a pool worker. Content failures degrade
// to an empty document in ignore-error mode; oversize items are always
// recorded and skipped.
func (c *OneDrive) processFile(ctx context.Context, drive *graph.Drive, item graph.DriveItem, url string) {
	content, err := c.fileContent(ctx, drive.ID, item)
	if err != nil {
		c.log.Warn("failed to read item content", "url", url, "error", err)
		if errors.Is(err, extract.ErrMaxLengthExceeded) || !c.cfg.IgnoreError {
			c.recordFailure(ctx, url, err)
			return
		}
		content = ""
	}

	doc := Document{
		FieldURL:      url,
		FieldTitle:    item.Name,
		FieldContent:  content,
		FieldMimetype: item.MIMEType(),
		FieldFiletype: filetype(item.Name),
		FieldCreated:  item.CreatedDateTime,
		FieldModified: item.ModifiedDateTime,
		FieldSize:     item.Size,
		FieldRoles:    c.itemRoles(ctx, drive.ID, item),
	}
	if item.Description != "" {
		doc[FieldDescription] = item.Description
	}
	c.store(ctx, doc)
}

// storeFolder stores a content-less document for a folder.
func (c *OneDrive) storeFolder(ctx context.Context, drive *graph.Drive, item graph.DriveItem) {
	c.store(ctx, Document{
		FieldURL:      walker.CanonicalItemURL(drive, item),
		FieldTitle:    item.Name,
		FieldContent:  "",
		FieldCreated:  item.CreatedDateTime,
		FieldModified: item.ModifiedDateTime,
		FieldRoles:    c.itemRoles(ctx, drive.ID, item),
	})
}

func (c *OneDrive) fileContent(ctx context.Context, driveID string, item graph.DriveItem) (string, error) {
	body, err := c.client.GetItemContent(ctx, driveID, item.ID)
	if err != nil {
		return "", err
	}
	defer body.Close()
	return c.extractor.Extract(ctx, body, item.MIMEType())
}

// itemRoles resolves the sharing grants on an item into search roles.
// A failed permission listing degrades to the default permissions.
func (c *OneDrive) itemRoles(ctx context.Context, driveID string, item graph.DriveItem) []string {
	page, err := c.client.ListItemPermissions(ctx, driveID, item.ID)
	if err != nil {
		c.log.Warn("failed to list item permissions", "item", item.Name, "error", err)
		return c.withDefaults(nil)
	}
	perms, err := graph.Drain(ctx, page)
	if err != nil {
		c.log.Warn("failed to drain item permissions", "item", item.Name, "error", err)
		return c.withDefaults(nil)
	}

	var resolved []string
	for i := range perms {
		for _, set := range perms[i].Identities() {
			if principal, ok := principalOf(set); ok {
				resolved = append(resolved, c.resolver.Resolve(ctx, principal)...)
			}
		}
	}
	return c.withDefaults(resolved)
}

// principalOf picks the identity out of a grant, preferring the user
// facet, then group, then SharePoint site user.
func principalOf(set graph.IdentitySet) (roles.Principal, bool) {
	for _, id := range []*graph.Identity{set.User, set.Group, set.SiteUser} {
		if id != nil && (id.ID != "" || id.Email != "") {
			return roles.Principal{ID: id.ID, Email: id.Email}, true
		}
	}
	return roles.Principal{}, false
}

// filetype returns the lowercase filename extension without the dot.
func filetype(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return strings.ToLower(ext)
}

// patternList wraps a single optional pattern into a filter list.
func patternList(pattern string) []string {
	if pattern == "" {
		return nil
	}
	return []string{pattern}
}
