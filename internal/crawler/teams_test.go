package crawler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/m365-crawler/internal/crawler/config"
)

func teamsConfig(t *testing.T, extra map[string]string) *config.Config {
	t.Helper()
	params := map[string]string{}
	for k, v := range extra {
		params[k] = v
	}
	cfg, err := config.Parse(params)
	require.NoError(t, err)
	return cfg
}

func TestTeams_CrawlChannelMessages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		switch {
		case strings.Contains(filter, "old@contoso.com"):
			fmt.Fprint(w, `{"value":[{"id":"t2","displayName":"Old Team"}]}`)
		case strings.Contains(filter, "mail eq"):
			fmt.Fprint(w, `{"value":[]}`)
		default:
			fmt.Fprint(w, `{"value":[
				{"id":"t1","displayName":"Engineering","visibility":"Public",
				 "resourceProvisioningOptions":["Team"]},
				{"id":"t2","displayName":"Old Team","visibility":"Public",
				 "resourceProvisioningOptions":["Team"]},
				{"id":"t3","displayName":"Secret","visibility":"Private",
				 "resourceProvisioningOptions":["Team"]}
			]}`)
		}
	})
	mux.HandleFunc("/teams/t1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"mbr1","displayName":"Bob","userId":"u2","email":"bob@contoso.com"}]}`)
	})
	mux.HandleFunc("/users/u2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u2","displayName":"Bob"}`)
	})
	mux.HandleFunc("/teams/t1/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"c1","displayName":"General","membershipType":"standard"}]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m1","createdDateTime":"2026-01-15T09:30:00Z","lastModifiedDateTime":"2026-01-15T09:30:00Z",
			 "webUrl":"https://teams.microsoft.com/l/message/c1/m1",
			 "from":{"user":{"id":"u2","displayName":"Bob"}},
			 "body":{"contentType":"html","content":"<p>ship it</p>"}}
		]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	for _, excluded := range []string{"t2", "t3"} {
		path := "/teams/" + excluded + "/channels"
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("filtered team should not be crawled: %s", r.URL.Path)
		})
	}

	deps, callback, sink := newTestDeps(t, mux)

	c := NewTeams(deps, teamsConfig(t, map[string]string{
		"exclude_team_ids":   "old@contoso.com",
		"include_visibility": "public",
	}))
	require.NoError(t, c.Crawl(context.Background()))

	docs := callback.stored()
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "https://teams.microsoft.com/l/message/c1/m1", doc[FieldURL])
	assert.Equal(t, "Bob 2026/01/15 09:30", doc[FieldTitle])
	assert.Equal(t, "ship it", doc[FieldContent])
	assert.Equal(t, "Bob", doc[FieldSender])
	assert.NotContains(t, doc, FieldParentID)
	assert.Equal(t, []string{
		"user:u2",
		"user:bob@contoso.com",
		"group:bob@contoso.com",
	}, doc[FieldRoles])

	assert.Empty(t, sink.recorded())
}

func TestTeams_RepliesCarryParentReference(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get("$filter"), "mail eq") {
			fmt.Fprint(w, `{"value":[]}`)
			return
		}
		fmt.Fprint(w, `{"value":[{"id":"t1","displayName":"Engineering",
			"resourceProvisioningOptions":["Team"]}]}`)
	})
	mux.HandleFunc("/teams/t1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/teams/t1/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"c1","displayName":"General"}]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"m1","subject":"Plan",
			"body":{"contentType":"text","content":"first"}}]}`)
	})
	mux.HandleFunc("/teams/t1/channels/c1/messages/m1/replies", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"r1","replyToId":"m1",
			"body":{"contentType":"text","content":"second"}}]}`)
	})

	deps, callback, _ := newTestDeps(t, mux)

	c := NewTeams(deps, teamsConfig(t, nil))
	require.NoError(t, c.Crawl(context.Background()))

	docs := callback.stored()
	require.Len(t, docs, 2)

	byContent := make(map[string]Document)
	for _, doc := range docs {
		byContent[doc[FieldContent].(string)] = doc
	}
	assert.NotContains(t, byContent["first"], FieldParentID)
	assert.NotContains(t, byContent["first"], FieldParent)

	reply := byContent["second"]
	assert.Equal(t, "m1", reply[FieldParentID])
	parent, ok := reply[FieldParent].(Document)
	require.True(t, ok)
	assert.Equal(t, "Plan", parent[FieldTitle])
	assert.Equal(t, "first", parent[FieldContent])
}

func TestTeams_CrawlMergedChat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/chats/ch1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ch1","topic":"Planning","chatType":"group"}`)
	})
	mux.HandleFunc("/chats/ch1/messages", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[
			{"id":"m2","createdDateTime":"2026-02-01T10:00:00Z","lastModifiedDateTime":"2026-02-01T10:00:00Z",
			 "body":{"contentType":"text","content":"bye"},"from":{"user":{"displayName":"Bob"}}},
			{"id":"m1","createdDateTime":"2026-01-01T09:00:00Z","lastModifiedDateTime":"2026-01-01T09:00:00Z",
			 "webUrl":"https://teams.microsoft.com/l/chat/ch1",
			 "body":{"contentType":"html","content":"<p>hello</p>"},"from":{"user":{"displayName":"Ada"}}}
		]}`)
	})
	mux.HandleFunc("/chats/ch1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[{"id":"mbr1","displayName":"Ada","userId":"u1"}]}`)
	})
	mux.HandleFunc("/users/u1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"u1","displayName":"Ada"}`)
	})

	deps, callback, _ := newTestDeps(t, mux)

	c := NewTeams(deps, teamsConfig(t, map[string]string{"chat_id": "ch1"}))
	require.NoError(t, c.Crawl(context.Background()))

	docs := callback.stored()
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "Planning", doc[FieldTitle])
	assert.Equal(t, "hello\nbye", doc[FieldContent])
	assert.Equal(t, "Ada", doc[FieldSender])
	assert.Equal(t, "2026-01-01T09:00:00Z", doc[FieldCreated])
	assert.Equal(t, "2026-01-01T09:00:00Z", doc[FieldModified])
	assert.Equal(t, []string{"user:u1"}, doc[FieldRoles])
}

func TestTeams_ExplicitTeamOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/groups", func(w http.ResponseWriter, r *http.Request) {
		t.Error("team listing should be skipped when team_id is set")
	})
	mux.HandleFunc("/groups/t1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"t1","displayName":"Engineering"}`)
	})
	mux.HandleFunc("/teams/t1/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})
	mux.HandleFunc("/teams/t1/channels", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	})

	deps, callback, _ := newTestDeps(t, mux)

	c := NewTeams(deps, teamsConfig(t, map[string]string{"team_id": "t1"}))
	require.NoError(t, c.Crawl(context.Background()))
	assert.Empty(t, callback.stored())
}
