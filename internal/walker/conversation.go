package walker

import (
	"context"
	"log/slog"
	"strings"

	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
)

// Message is a materialised conversation document ready for indexing.
// Channel messages produce one Message per post and one per reply; chats
// produce a single merged Message per chat.
type Message struct {
	ID       string
	Title    string
	Content  string
	Sender   string
	Created  string
	Modified string
	WebURL   string

	// Parent points at the materialised top-level message a reply
	// belongs to, nil for top-level messages and merged chats.
	Parent *Message
}

// MessageVisitor receives each materialised message of a channel walk.
// Returning an error aborts the walk.
type MessageVisitor func(ctx context.Context, msg Message) error

// ConversationWalker walks Teams channel threads and chat histories.
type ConversationWalker struct {
	client    *graph.Client
	extractor extract.Extractor
	log       *slog.Logger

	// IncludeAttachments controls whether attachment content is fetched
	// and appended to message bodies.
	IncludeAttachments bool

	// IgnoreReplies skips reply threads under channel messages.
	IgnoreReplies bool

	// IncludeSystemEvents keeps Teams system event messages that are
	// skipped by default.
	IncludeSystemEvents bool
}

// skip reports whether a message should be dropped from the walk.
func (w *ConversationWalker) skip(m graph.ChatMessage) bool {
	return !w.IncludeSystemEvents && IsSystemEvent(m)
}

// NewConversationWalker creates a conversation walker. A nil logger uses
// slog's default.
func NewConversationWalker(client *graph.Client, extractor extract.Extractor, log *slog.Logger) *ConversationWalker {
	if log == nil {
		log = slog.Default()
	}
	return &ConversationWalker{client: client, extractor: extractor, log: log}
}

// WalkChannelMessages visits every human-authored message in a channel,
// each top-level post followed by its replies. System event messages are
// skipped. Reply listings that fail are logged and skipped so one broken
// thread cannot sink the channel.
func (w *ConversationWalker) WalkChannelMessages(ctx context.Context, teamID, channelID string, visit MessageVisitor) error {
	page, err := w.client.ListChannelMessages(ctx, teamID, channelID)
	if err != nil {
		if graph.IsNotFound(err) {
			w.log.Debug("channel not found, skipping", "team", teamID, "channel", channelID)
			return nil
		}
		return err
	}

	return graph.EachPage(ctx, page, func(messages []graph.ChatMessage) error {
		for _, m := range messages {
			if w.skip(m) {
				continue
			}
			msg := w.materialise(ctx, m, nil)
			if err := visit(ctx, msg); err != nil {
				return err
			}
			if w.IgnoreReplies {
				continue
			}
			if err := w.walkReplies(ctx, teamID, channelID, &msg, visit); err != nil {
				return err
			}
		}
		return nil
	})
}

// walkReplies visits the reply thread under one channel message. Each
// reply carries the parent's materialised form, not the raw message.
func (w *ConversationWalker) walkReplies(ctx context.Context, teamID, channelID string, parent *Message, visit MessageVisitor) error {
	page, err := w.client.ListMessageReplies(ctx, teamID, channelID, parent.ID)
	if err != nil {
		if !graph.IsNotFound(err) {
			w.log.Warn("failed to list message replies, skipping thread",
				"channel", channelID, "message", parent.ID, "error", err)
		}
		return nil
	}
	return graph.EachPage(ctx, page, func(replies []graph.ChatMessage) error {
		for _, r := range replies {
			if w.skip(r) {
				continue
			}
			if err := visit(ctx, w.materialise(ctx, r, parent)); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergedChat flattens a chat's whole history into one document in
// chronological order. Graph lists chat messages newest first, so the
// drained history is reversed before merging. The merged body is the
// concatenation of the normalised message bodies alone; attachments
// stay out of the merge even when IncludeAttachments is set, and all
// other metadata comes from the oldest message. Returns nil when the
// chat holds no human-authored messages.
func (w *ConversationWalker) MergedChat(ctx context.Context, chat graph.Chat) (*Message, error) {
	page, err := w.client.ListChatMessages(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	history, err := graph.Drain(ctx, page)
	if err != nil {
		return nil, err
	}
	reverse(history)

	var (
		lines  []string
		oldest *graph.ChatMessage
	)
	for i := range history {
		m := history[i]
		if w.skip(m) {
			continue
		}
		if oldest == nil {
			oldest = &history[i]
		}
		if line := NormaliseBody(m.Body); line != "" {
			lines = append(lines, line)
		}
	}
	if oldest == nil {
		return nil, nil
	}

	title := chat.Topic
	if title == "" {
		title = chatMemberTitle(ctx, w.client, chat.ID)
	}
	return &Message{
		ID:       chat.ID,
		Title:    title,
		Content:  strings.Join(lines, "\n"),
		Sender:   oldest.SenderName(),
		Created:  oldest.CreatedDateTime,
		Modified: oldest.ModifiedDateTime,
		WebURL:   oldest.WebURL,
	}, nil
}

// chatMemberTitle builds a fallback title for topicless chats from member
// display names.
func chatMemberTitle(ctx context.Context, client *graph.Client, chatID string) string {
	page, err := client.ListChatMembers(ctx, chatID)
	if err != nil {
		return ""
	}
	members, err := graph.Drain(ctx, page)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		if m.DisplayName != "" {
			names = append(names, m.DisplayName)
		}
	}
	return strings.Join(names, ", ")
}

// materialise builds an indexable Message from a channel message.
func (w *ConversationWalker) materialise(ctx context.Context, m graph.ChatMessage, parent *Message) Message {
	title := m.Subject
	if title == "" {
		title = m.Summary
	}
	return Message{
		ID:       m.ID,
		Parent:   parent,
		Title:    title,
		Content:  w.messageContent(ctx, m),
		Sender:   m.SenderName(),
		Created:  m.CreatedDateTime,
		Modified: m.ModifiedDateTime,
		WebURL:   m.WebURL,
	}
}

// messageContent returns the plain-text content of one message, with
// attachment content appended when enabled.
func (w *ConversationWalker) messageContent(ctx context.Context, m graph.ChatMessage) string {
	parts := []string{NormaliseBody(m.Body)}
	if w.IncludeAttachments {
		for _, a := range m.Attachments {
			if text := w.attachmentText(ctx, a); text != "" {
				parts = append(parts, text)
			}
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// attachmentText extracts one attachment's content. Card attachments
// carry their content inline; file attachments are resolved through the
// shares endpoint via their content URL. Failures are logged and yield
// an empty string.
func (w *ConversationWalker) attachmentText(ctx context.Context, a graph.Attachment) string {
	if a.Content != "" {
		return strings.TrimSpace(extract.StripHTML(a.Content))
	}
	if a.ContentURL == "" {
		return ""
	}

	body, err := w.client.GetSharedItemContent(ctx, graph.SharingID(a.ContentURL))
	if err != nil {
		w.log.Warn("failed to fetch attachment content",
			"attachment", a.Name, "error", err)
		return ""
	}
	defer body.Close()

	text, err := w.extractor.Extract(ctx, body, a.ContentType)
	if err != nil {
		w.log.Warn("failed to extract attachment content",
			"attachment", a.Name, "error", err)
		return ""
	}
	return text
}
