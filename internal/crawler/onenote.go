package crawler

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/roles"
	"github.com/custodia-labs/m365-crawler/internal/walker"
)

// OneNote crawls notebooks across user, group and site scopes, one
// flattened document per notebook.
type OneNote struct {
	base
	walker *walker.NotebookWalker
}

// NewOneNote builds a OneNote orchestrator from shared collaborators and
// a parsed config.
func NewOneNote(deps Deps, cfg *config.Config) *OneNote {
	c := &OneNote{}
	initBase(&c.base, deps, cfg)
	c.walker = walker.NewNotebookWalker(c.client, c.extractor, c.log)
	return c
}

// Crawl enumerates notebooks in every configured scope and flattens each
// on a pool worker. It returns once every notebook has been processed.
func (c *OneNote) Crawl(ctx context.Context) error {
	log := c.log.With("run", uuid.NewString(), "crawler", "onenote")
	log.Info("starting OneNote crawl")

	pool := NewPool(c.cfg.NumberOfThreads, c.cfg.NumberOfThreads*2)
	defer pool.Shutdown()

	if c.cfg.UserDriveCrawler {
		if err := c.crawlUserNotebooks(ctx, pool); err != nil {
			return err
		}
	}
	if c.cfg.GroupDriveCrawler {
		if err := c.crawlGroupNotebooks(ctx, pool); err != nil {
			return err
		}
	}
	if c.cfg.SiteDriveCrawler {
		if err := c.crawlScope(ctx, pool, graph.SiteOnenote("root"), nil); err != nil {
			return err
		}
	}

	pool.Shutdown()
	err := c.aborted()
	log.Info("OneNote crawl finished", "error", err)
	return err
}

func (c *OneNote) crawlUserNotebooks(ctx context.Context, pool *Pool) error {
	page, err := c.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	return graph.EachPage(ctx, page, func(users []graph.User) error {
		for _, user := range users {
			if err := c.aborted(); err != nil {
				return err
			}
			owner := &roles.Principal{ID: user.ID, Email: user.GetEmail()}
			if err := c.crawlScope(ctx, pool, graph.UserOnenote(user.ID), owner); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *OneNote) crawlGroupNotebooks(ctx context.Context, pool *Pool) error {
	page, err := c.client.ListGroups(ctx)
	if err != nil {
		return err
	}
	return graph.EachPage(ctx, page, func(groups []graph.Group) error {
		for _, group := range groups {
			if err := c.aborted(); err != nil {
				return err
			}
			owner := &roles.Principal{ID: group.ID, Email: group.Mail}
			if err := c.crawlScope(ctx, pool, graph.GroupOnenote(group.ID), owner); err != nil {
				return err
			}
		}
		return nil
	})
}

// crawlScope lists one scope's notebooks and submits each for
// flattening. Scopes without a OneNote service are routine and skipped;
// other listing failures are logged and skipped.
func (c *OneNote) crawlScope(ctx context.Context, pool *Pool, scope graph.OnenoteScope, owner *roles.Principal) error {
	page, err := c.client.ListNotebooks(ctx, scope)
	if err != nil {
		if !graph.IsNotFound(err) {
			c.log.Warn("failed to list notebooks, skipping scope", "error", err)
		}
		return nil
	}

	docRoles := c.ownerRoles(ctx, owner)
	return graph.EachPage(ctx, page, func(notebooks []graph.Notebook) error {
		for _, notebook := range notebooks {
			if err := c.aborted(); err != nil {
				return err
			}
			nb := notebook
			pool.Submit(func(poolCtx context.Context) {
				if ctx.Err() != nil || poolCtx.Err() != nil {
					return
				}
				c.processNotebook(ctx, scope, nb, docRoles)
			})
		}
		return nil
	})
}

// processNotebook flattens one notebook and stores it. Runs on a pool
// worker.
func (c *OneNote) processNotebook(ctx context.Context, scope graph.OnenoteScope, notebook graph.Notebook, docRoles []string) {
	url := notebook.WebURL()
	content, err := c.walker.Content(ctx, scope, notebook.ID)
	if err != nil {
		c.log.Warn("failed to flatten notebook", "notebook", notebook.DisplayName, "error", err)
		c.recordFailure(ctx, url, err)
		return
	}

	c.store(ctx, Document{
		FieldURL:      url,
		FieldTitle:    notebook.DisplayName,
		FieldContent:  content,
		FieldMimetype: "text/html",
		FieldCreated:  notebook.CreatedDateTime,
		FieldModified: notebook.ModifiedDateTime,
		FieldSize:     int64(len(content)),
		FieldRoles:    docRoles,
	})
}

// ownerRoles resolves the scope owner into search roles. Site scopes
// have no single owner and carry the default permissions only.
func (c *OneNote) ownerRoles(ctx context.Context, owner *roles.Principal) []string {
	if owner == nil {
		return c.withDefaults(nil)
	}
	return c.withDefaults(c.resolver.Resolve(ctx, *owner))
}
