package crawler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
	"github.com/custodia-labs/m365-crawler/internal/graph"
	"github.com/custodia-labs/m365-crawler/internal/roles"
	"github.com/custodia-labs/m365-crawler/internal/walker"
)

// Teams crawls team channel conversations, one document per message, and
// optionally one chat merged into a single document.
type Teams struct {
	base
	walker *walker.ConversationWalker
	titles titleFormatter
}

// NewTeams builds a Teams orchestrator from shared collaborators and a
// parsed config.
func NewTeams(deps Deps, cfg *config.Config) *Teams {
	c := &Teams{titles: newTitleFormatter(cfg.TitleDateformat, cfg.TitleTimezoneOffset)}
	initBase(&c.base, deps, cfg)
	w := walker.NewConversationWalker(c.client, c.extractor, c.log)
	w.IncludeAttachments = cfg.AppendAttachment
	w.IgnoreReplies = cfg.IgnoreReplies
	w.IncludeSystemEvents = !cfg.IgnoreSystemEvents
	c.walker = w
	return c
}

// Crawl walks the configured teams and chat. It returns once every
// submitted message has been processed.
func (c *Teams) Crawl(ctx context.Context) error {
	log := c.log.With("run", uuid.NewString(), "crawler", "teams")
	log.Info("starting Teams crawl")

	pool := NewPool(c.cfg.NumberOfThreads, c.cfg.NumberOfThreads*2)
	defer pool.Shutdown()

	if err := c.crawlTeams(ctx, pool); err != nil {
		return err
	}
	if c.cfg.ChatID != "" {
		if err := c.crawlChat(ctx, pool, c.cfg.ChatID); err != nil {
			return err
		}
	}

	pool.Shutdown()
	err := c.aborted()
	log.Info("Teams crawl finished", "error", err)
	return err
}

func (c *Teams) crawlTeams(ctx context.Context, pool *Pool) error {
	if c.cfg.TeamID != "" {
		team, err := c.client.GetGroup(ctx, c.cfg.TeamID)
		if err != nil {
			return err
		}
		return c.crawlTeam(ctx, pool, *team)
	}

	excluded := c.excludedTeamIDs(ctx)
	page, err := c.client.ListTeams(ctx)
	if err != nil {
		return err
	}
	return graph.EachPage(ctx, page, func(teams []graph.Group) error {
		for _, team := range teams {
			if err := c.aborted(); err != nil {
				return err
			}
			if !c.teamAllowed(team, excluded) {
				c.log.Debug("team filtered out", "team", team.DisplayName, "visibility", team.Visibility)
				continue
			}
			if err := c.crawlTeam(ctx, pool, team); err != nil {
				return err
			}
		}
		return nil
	})
}

// excludedTeamIDs resolves the exclude list into group IDs. Entries that
// look like addresses go through the mail lookup; anything else is taken
// as an ID already.
func (c *Teams) excludedTeamIDs(ctx context.Context) map[string]struct{} {
	excluded := make(map[string]struct{}, len(c.cfg.ExcludeTeamIDs))
	for _, entry := range c.cfg.ExcludeTeamIDs {
		if !strings.Contains(entry, "@") {
			excluded[entry] = struct{}{}
			continue
		}
		ids, err := c.client.GroupIDsByEmail(ctx, entry)
		if err != nil {
			c.log.Warn("failed to resolve excluded team address", "address", entry, "error", err)
			continue
		}
		for _, id := range ids {
			excluded[id] = struct{}{}
		}
	}
	return excluded
}

// teamAllowed applies the exclude list and the case-insensitive
// visibility allow-list. An empty allow-list admits every visibility.
func (c *Teams) teamAllowed(team graph.Group, excluded map[string]struct{}) bool {
	if _, ok := excluded[team.ID]; ok {
		return false
	}
	if len(c.cfg.IncludeVisibility) == 0 {
		return true
	}
	for _, v := range c.cfg.IncludeVisibility {
		if strings.EqualFold(v, team.Visibility) {
			return true
		}
	}
	return false
}

func (c *Teams) crawlTeam(ctx context.Context, pool *Pool, team graph.Group) error {
	c.log.Debug("walking team", "team", team.DisplayName)
	teamRoles := c.teamMemberRoles(ctx, team.ID)

	if c.cfg.ChannelID != "" {
		channel, err := c.client.GetChannel(ctx, team.ID, c.cfg.ChannelID)
		if err != nil {
			return err
		}
		return c.crawlChannel(ctx, pool, team.ID, *channel, teamRoles)
	}

	page, err := c.client.ListChannels(ctx, team.ID)
	if err != nil {
		c.log.Warn("failed to list channels, skipping team", "team", team.DisplayName, "error", err)
		return nil
	}
	return graph.EachPage(ctx, page, func(channels []graph.Channel) error {
		for _, channel := range channels {
			if err := c.aborted(); err != nil {
				return err
			}
			if err := c.crawlChannel(ctx, pool, team.ID, channel, teamRoles); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Teams) crawlChannel(ctx context.Context, pool *Pool, teamID string, channel graph.Channel, teamRoles []string) error {
	docRoles := c.channelRoles(ctx, teamID, channel, teamRoles)
	return c.walker.WalkChannelMessages(ctx, teamID, channel.ID, func(ctx context.Context, msg walker.Message) error {
		if err := c.aborted(); err != nil {
			return err
		}
		pool.Submit(func(poolCtx context.Context) {
			if ctx.Err() != nil || poolCtx.Err() != nil {
				return
			}
			c.store(ctx, c.messageDocument(msg, docRoles))
		})
		return nil
	})
}

// crawlChat merges one chat's history into a single document.
func (c *Teams) crawlChat(ctx context.Context, pool *Pool, chatID string) error {
	chat, err := c.client.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	msg, err := c.walker.MergedChat(ctx, *chat)
	if err != nil {
		c.log.Warn("failed to merge chat", "chat", chatID, "error", err)
		c.recordFailure(ctx, chat.WebURL, err)
		return c.aborted()
	}
	if msg == nil {
		return nil
	}

	docRoles := c.withDefaults(c.memberRoles(ctx, func(ctx context.Context) (*graph.Page[graph.ConversationMember], error) {
		return c.client.ListChatMembers(ctx, chatID)
	}))
	pool.Submit(func(poolCtx context.Context) {
		if ctx.Err() != nil || poolCtx.Err() != nil {
			return
		}
		c.store(ctx, c.messageDocument(*msg, docRoles))
	})
	return nil
}

// messageDocument builds the field map for one materialised message.
// Untitled messages get a title from the sender and local creation time.
// Replies carry their parent's field map so downstream consumers read
// the parent's normalised fields rather than the raw message.
func (c *Teams) messageDocument(msg walker.Message, docRoles []string) Document {
	title := msg.Title
	if title == "" {
		title = c.titles.format(msg.Sender, msg.Created)
	}
	doc := Document{
		FieldURL:      msg.WebURL,
		FieldTitle:    title,
		FieldContent:  msg.Content,
		FieldSender:   msg.Sender,
		FieldCreated:  msg.Created,
		FieldModified: msg.Modified,
		FieldSize:     int64(len(msg.Content)),
		FieldRoles:    docRoles,
	}
	if msg.Parent != nil {
		doc[FieldParentID] = msg.Parent.ID
		doc[FieldParent] = c.messageDocument(*msg.Parent, docRoles)
	}
	return doc
}

// teamMemberRoles resolves a team's membership into search roles.
func (c *Teams) teamMemberRoles(ctx context.Context, teamID string) []string {
	return c.withDefaults(c.memberRoles(ctx, func(ctx context.Context) (*graph.Page[graph.ConversationMember], error) {
		return c.client.ListTeamMembers(ctx, teamID)
	}))
}

// channelRoles resolves a channel's own membership, falling back to the
// team roles for standard channels whose member list is empty or
// unavailable. Shared and private channels carry their own membership.
func (c *Teams) channelRoles(ctx context.Context, teamID string, channel graph.Channel, teamRoles []string) []string {
	members := c.memberRoles(ctx, func(ctx context.Context) (*graph.Page[graph.ConversationMember], error) {
		return c.client.ListChannelMembers(ctx, teamID, channel.ID)
	})
	if len(members) == 0 {
		return teamRoles
	}
	return c.withDefaults(members)
}

// memberRoles drains a membership listing and resolves each member.
// Listing failures degrade to no roles.
func (c *Teams) memberRoles(ctx context.Context, listMembers func(ctx context.Context) (*graph.Page[graph.ConversationMember], error)) []string {
	page, err := listMembers(ctx)
	if err != nil {
		c.log.Warn("failed to list conversation members", "error", err)
		return nil
	}
	members, err := graph.Drain(ctx, page)
	if err != nil {
		c.log.Warn("failed to drain conversation members", "error", err)
		return nil
	}

	var resolved []string
	for _, m := range members {
		if m.UserID == "" && m.Email == "" {
			continue
		}
		resolved = append(resolved, c.resolver.Resolve(ctx, roles.Principal{ID: m.UserID, Email: m.Email})...)
	}
	return resolved
}
