package walker

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/m365-crawler/internal/extract"
	"github.com/custodia-labs/m365-crawler/internal/graph"
)

func TestConversationWalker_ChannelMessagesWithReplies(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","subject":"Standup","body":{"contentType":"html","content":"<p>morning all</p>"},
			 "from":{"user":{"id":"u1","displayName":"Ada"}}},
			{"id":"m2","body":{"contentType":"html","content":"<systemEventMessage/>"}}
		]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"r1","replyToId":"m1","body":{"contentType":"text","content":"on it"},
			 "from":{"user":{"id":"u2","displayName":"Bob"}}}
		]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m2/replies", func(w http.ResponseWriter, r *http.Request) {
		t.Error("replies should not be listed for skipped system events")
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	var visited []Message
	err := cw.WalkChannelMessages(context.Background(), "t1", "c1", func(ctx context.Context, msg Message) error {
		visited = append(visited, msg)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, visited, 2)

	assert.Equal(t, "m1", visited[0].ID)
	assert.Nil(t, visited[0].Parent)
	assert.Equal(t, "Standup", visited[0].Title)
	assert.Equal(t, "morning all", visited[0].Content)
	assert.Equal(t, "Ada", visited[0].Sender)

	assert.Equal(t, "r1", visited[1].ID)
	assert.Equal(t, "on it", visited[1].Content)
	assert.Equal(t, "Bob", visited[1].Sender)
	require.NotNil(t, visited[1].Parent)
	assert.Equal(t, "m1", visited[1].Parent.ID)
	assert.Equal(t, "Standup", visited[1].Parent.Title)
	assert.Equal(t, "morning all", visited[1].Parent.Content)
}

func TestConversationWalker_BrokenReplyThreadSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","body":{"contentType":"text","content":"first"}},
			{"id":"m2","body":{"contentType":"text","content":"second"}}
		]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":"generalException","message":"boom"}}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m2/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	var visited []string
	err := cw.WalkChannelMessages(context.Background(), "t1", "c1", func(ctx context.Context, msg Message) error {
		visited = append(visited, msg.ID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, visited)
}

func TestConversationWalker_MergedChat(t *testing.T) {
	mux := http.NewServeMux()
	// Graph returns chat history newest first.
	mux.HandleFunc("/chats/ch1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m3","createdDateTime":"2026-02-01T10:00:00Z","lastModifiedDateTime":"2026-02-01T10:00:00Z",
			 "body":{"contentType":"text","content":"bye"},"from":{"user":{"displayName":"Bob"}}},
			{"id":"m2","body":{"contentType":"html","content":"<systemEventMessage/>"}},
			{"id":"m1","createdDateTime":"2026-01-01T09:00:00Z","lastModifiedDateTime":"2026-01-01T09:00:00Z",
			 "webUrl":"https://teams.microsoft.com/l/message/ch1/m1",
			 "body":{"contentType":"html","content":"<p>hello</p>"},"from":{"user":{"displayName":"Ada"}}}
		]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	msg, err := cw.MergedChat(context.Background(), graph.Chat{ID: "ch1", Topic: "Planning"})

	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "ch1", msg.ID)
	assert.Equal(t, "Planning", msg.Title)
	assert.Equal(t, "hello\nbye", msg.Content)
	assert.Equal(t, "Ada", msg.Sender)
	assert.Equal(t, "2026-01-01T09:00:00Z", msg.Created)
	assert.Equal(t, "2026-01-01T09:00:00Z", msg.Modified)
	assert.Equal(t, "https://teams.microsoft.com/l/message/ch1/m1", msg.WebURL)
}

func TestConversationWalker_MergedChat_BodyExcludesSendersAndAttachments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/ch1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m2","body":{"contentType":"text","content":"second"},
			 "from":{"user":{"displayName":"Bob"}},
			 "attachments":[{"id":"1","name":"card","content":"ATTACHMENT-TEXT"}]},
			{"id":"m1","body":{"contentType":"text","content":"first"},
			 "from":{"user":{"displayName":"Ada"}}}
		]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)
	cw.IncludeAttachments = true

	msg, err := cw.MergedChat(context.Background(), graph.Chat{ID: "ch1", Topic: "Planning"})

	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "first\nsecond", msg.Content)
}

func TestConversationWalker_MergedChat_TopiclessUsesMemberNames(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/ch1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","body":{"contentType":"text","content":"hi"},"from":{"user":{"displayName":"Ada"}}}
		]}`)
	})
	mux.HandleFunc("/chats/ch1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"mb1","displayName":"Ada"},
			{"id":"mb2","displayName":"Bob"}
		]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	msg, err := cw.MergedChat(context.Background(), graph.Chat{ID: "ch1"})

	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "Ada, Bob", msg.Title)
}

func TestConversationWalker_MergedChat_OnlySystemEventsYieldsNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/ch1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","body":{"contentType":"html","content":"<systemEventMessage/>"}}
		]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	msg, err := cw.MergedChat(context.Background(), graph.Chat{ID: "ch1", Topic: "Empty"})

	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestConversationWalker_AttachmentsAppendedWhenEnabled(t *testing.T) {
	sharedURL := "https://contoso.sharepoint.com/sites/eng/report.txt"

	mux := http.NewServeMux()
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"value":[
			{"id":"m1","body":{"contentType":"html","content":"see <attachment id=\"1\"></attachment>"},
			 "attachments":[
				{"id":"1","name":"report.txt","contentType":"text/plain","contentUrl":%q},
				{"id":"2","name":"card","contentType":"application/vnd.microsoft.card.hero","content":"<b>card text</b>"}
			 ]}
		]}`, sharedURL)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/shares/"+graph.SharingID(sharedURL)+"/driveItem/content", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "quarterly numbers")
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)
	cw.IncludeAttachments = true

	var visited []Message
	err := cw.WalkChannelMessages(context.Background(), "t1", "c1", func(ctx context.Context, msg Message) error {
		visited = append(visited, msg)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, visited, 1)
	assert.Equal(t, "see\nquarterly numbers\ncard text", visited[0].Content)
}

func TestConversationWalker_AttachmentsIgnoredByDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","body":{"contentType":"text","content":"note"},
			 "attachments":[{"id":"1","name":"card","content":"card text"}]}
		]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})

	cw := NewConversationWalker(newWalkerClient(t, mux), extract.NewText(-1), nil)

	var visited []Message
	err := cw.WalkChannelMessages(context.Background(), "t1", "c1", func(ctx context.Context, msg Message) error {
		visited = append(visited, msg)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, visited, 1)
	assert.Equal(t, "note", visited[0].Content)
}
