package graph

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Channel represents a Teams channel.
type Channel struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	WebURL         string `json:"webUrl"`
	MembershipType string `json:"membershipType"`
}

// Chat represents a 1:1 or group chat.
type Chat struct {
	ID       string `json:"id"`
	Topic    string `json:"topic"`
	ChatType string `json:"chatType"`
	WebURL   string `json:"webUrl"`
}

// ChatMessage is a node in a channel or chat conversation. Channel messages
// carry a one-level reply tree; Graph flattens deeper threads.
type ChatMessage struct {
	ID               string       `json:"id"`
	ReplyToID        string       `json:"replyToId"`
	Subject          string       `json:"subject"`
	Summary          string       `json:"summary"`
	CreatedDateTime  string       `json:"createdDateTime"`
	ModifiedDateTime string       `json:"lastModifiedDateTime"`
	WebURL           string       `json:"webUrl"`
	From             *MessageFrom `json:"from,omitempty"`
	Body             *ItemBody    `json:"body,omitempty"`
	Attachments      []Attachment `json:"attachments,omitempty"`
	Mentions         []Mention    `json:"mentions,omitempty"`
}

// MessageFrom identifies the sender of a message.
type MessageFrom struct {
	User        *Identity `json:"user,omitempty"`
	Application *Identity `json:"application,omitempty"`
}

// SenderName returns the display name of the sender, if known.
func (m *ChatMessage) SenderName() string {
	if m.From == nil {
		return ""
	}
	if m.From.User != nil {
		return m.From.User.DisplayName
	}
	if m.From.Application != nil {
		return m.From.Application.DisplayName
	}
	return ""
}

// ItemBody is a message body with its declared content type.
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// IsHTML reports whether the body is declared as HTML.
func (b *ItemBody) IsHTML() bool {
	return b != nil && strings.EqualFold(b.ContentType, "html")
}

// Attachment is a message attachment. Content is inline for card-type
// attachments; file attachments carry only a ContentURL resolved through
// the shares endpoint.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	ContentURL  string `json:"contentUrl"`
	Content     string `json:"content"`
}

// Mention is an @-mention within a message body.
type Mention struct {
	ID          int    `json:"id"`
	MentionText string `json:"mentionText"`
}

// ConversationMember is a member of a team, channel or chat.
type ConversationMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
}

// ListChannels returns the first page of a team's channels.
func (c *Client) ListChannels(ctx context.Context, teamID string) (*Page[Channel], error) {
	u := fmt.Sprintf("%s/teams/%s/channels", c.baseURL, url.PathEscape(teamID))
	return list[Channel](ctx, c, u)
}

// GetChannel fetches one channel by id.
func (c *Client) GetChannel(ctx context.Context, teamID, channelID string) (*Channel, error) {
	u := fmt.Sprintf("%s/teams/%s/channels/%s",
		c.baseURL, url.PathEscape(teamID), url.PathEscape(channelID))
	var channel Channel
	if err := c.getJSON(ctx, u, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// ListChannelMessages returns the first page of a channel's top-level messages.
func (c *Client) ListChannelMessages(ctx context.Context, teamID, channelID string) (*Page[ChatMessage], error) {
	u := fmt.Sprintf("%s/teams/%s/channels/%s/messages?$top=%d",
		c.baseURL, url.PathEscape(teamID), url.PathEscape(channelID), defaultPageSize)
	return list[ChatMessage](ctx, c, u)
}

// ListMessageReplies returns the first page of replies to a channel message.
func (c *Client) ListMessageReplies(ctx context.Context, teamID, channelID, messageID string) (*Page[ChatMessage], error) {
	u := fmt.Sprintf("%s/teams/%s/channels/%s/messages/%s/replies?$top=%d",
		c.baseURL, url.PathEscape(teamID), url.PathEscape(channelID),
		url.PathEscape(messageID), defaultPageSize)
	return list[ChatMessage](ctx, c, u)
}

// ListChannelMembers returns the first page of a channel's members.
func (c *Client) ListChannelMembers(ctx context.Context, teamID, channelID string) (*Page[ConversationMember], error) {
	u := fmt.Sprintf("%s/teams/%s/channels/%s/members",
		c.baseURL, url.PathEscape(teamID), url.PathEscape(channelID))
	return list[ConversationMember](ctx, c, u)
}

// ListTeamMembers returns the first page of a team's members.
func (c *Client) ListTeamMembers(ctx context.Context, teamID string) (*Page[ConversationMember], error) {
	u := fmt.Sprintf("%s/teams/%s/members", c.baseURL, url.PathEscape(teamID))
	return list[ConversationMember](ctx, c, u)
}

// ListChats returns the first page of chats visible to the application.
func (c *Client) ListChats(ctx context.Context) (*Page[Chat], error) {
	u := fmt.Sprintf("%s/chats?$top=%d", c.baseURL, defaultPageSize)
	return list[Chat](ctx, c, u)
}

// GetChat fetches one chat by id.
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	u := fmt.Sprintf("%s/chats/%s", c.baseURL, url.PathEscape(chatID))
	var chat Chat
	if err := c.getJSON(ctx, u, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChatMessages returns the first page of a chat's messages.
func (c *Client) ListChatMessages(ctx context.Context, chatID string) (*Page[ChatMessage], error) {
	u := fmt.Sprintf("%s/chats/%s/messages?$top=%d",
		c.baseURL, url.PathEscape(chatID), defaultPageSize)
	return list[ChatMessage](ctx, c, u)
}

// ListChatMembers returns the first page of a chat's members.
func (c *Client) ListChatMembers(ctx context.Context, chatID string) (*Page[ConversationMember], error) {
	u := fmt.Sprintf("%s/chats/%s/members", c.baseURL, url.PathEscape(chatID))
	return list[ConversationMember](ctx, c, u)
}

// SharingID encodes a file URL as a Graph sharing id: base64 of the URL
// with padding stripped, '/' mapped to '_', '+' mapped to '-', prefixed
// with "u!". Attachments without inline content are resolved this way.
func SharingID(contentURL string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(contentURL))
	encoded = strings.TrimRight(encoded, "=")
	encoded = strings.ReplaceAll(encoded, "/", "_")
	encoded = strings.ReplaceAll(encoded, "+", "-")
	return "u!" + encoded
}

// GetSharedItemContent streams the drive item behind a sharing id. The
// caller must close the reader.
func (c *Client) GetSharedItemContent(ctx context.Context, sharingID string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/shares/%s/driveItem/content", c.baseURL, url.PathEscape(sharingID))
	return c.getStream(ctx, u)
}
