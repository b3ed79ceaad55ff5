package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.AccessTimeout)
	assert.Equal(t, 3540*time.Second, cfg.RefreshTokenInterval)
	assert.Equal(t, 10000, cfg.UserTypeCacheSize)
	assert.Equal(t, 10000, cfg.GroupIDCacheSize)
	assert.Equal(t, 1, cfg.NumberOfThreads)
	assert.Equal(t, int64(-1), cfg.MaxContentLength)
	assert.Equal(t, int64(10485760), cfg.MaxSize)
	assert.True(t, cfg.IgnoreFolder)
	assert.True(t, cfg.IgnoreError)
	assert.True(t, cfg.UserDriveCrawler)
	assert.True(t, cfg.GroupDriveCrawler)
	assert.True(t, cfg.SiteDriveCrawler)
	assert.False(t, cfg.IgnoreReplies)
	assert.False(t, cfg.AppendAttachment)
	assert.True(t, cfg.IgnoreSystemEvents)
	assert.Equal(t, "2006/01/02 15:04", cfg.TitleDateformat)
	assert.Zero(t, cfg.TitleTimezoneOffset)
	assert.Empty(t, cfg.SupportedMimetypes)
	assert.Empty(t, cfg.DefaultPermissions)
}

func TestParse_AllKeys(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"tenant":                 "contoso",
		"client_id":              "app-id",
		"client_secret":          "s3cret",
		"access_timeout":         "5000",
		"refresh_token_interval": "600",
		"user_type_cache_size":   "50",
		"group_id_cache_size":    "60",
		"number_of_threads":      "4",
		"max_content_length":     "1048576",
		"max_size":               "2048",
		"ignore_folder":          "false",
		"ignore_error":           "false",
		"supported_mimetypes":    "text/.*, application/pdf",
		"include_pattern":        `sharepoint\.com`,
		"exclude_pattern":        "/archive/",
		"default_permissions":    "role:everyone, role:admin",
		"drive_id":               "d1",
		"user_drive_crawler":     "false",
		"team_id":                "t1",
		"exclude_team_ids":       "t2,t3",
		"include_visibility":     "Public,Private",
		"channel_id":             "c1",
		"chat_id":                "ch1",
		"ignore_replies":         "true",
		"append_attachment":      "true",
		"ignore_system_events":   "false",
		"title_dateformat":       "2006-01-02",
		"title_timezone_offset":  "540",
	})
	require.NoError(t, err)

	assert.Equal(t, "contoso", cfg.Tenant)
	assert.Equal(t, "app-id", cfg.ClientID)
	assert.Equal(t, "s3cret", cfg.ClientSecret)
	assert.Equal(t, 5*time.Second, cfg.AccessTimeout)
	assert.Equal(t, 10*time.Minute, cfg.RefreshTokenInterval)
	assert.Equal(t, 50, cfg.UserTypeCacheSize)
	assert.Equal(t, 60, cfg.GroupIDCacheSize)
	assert.Equal(t, 4, cfg.NumberOfThreads)
	assert.Equal(t, int64(1048576), cfg.MaxContentLength)
	assert.Equal(t, int64(2048), cfg.MaxSize)
	assert.False(t, cfg.IgnoreFolder)
	assert.False(t, cfg.IgnoreError)
	assert.Equal(t, []string{"text/.*", "application/pdf"}, cfg.SupportedMimetypes)
	assert.Equal(t, `sharepoint\.com`, cfg.IncludePattern)
	assert.Equal(t, "/archive/", cfg.ExcludePattern)
	assert.Equal(t, []string{"role:everyone", "role:admin"}, cfg.DefaultPermissions)
	assert.Equal(t, "d1", cfg.DriveID)
	assert.False(t, cfg.UserDriveCrawler)
	assert.True(t, cfg.GroupDriveCrawler)
	assert.Equal(t, "t1", cfg.TeamID)
	assert.Equal(t, []string{"t2", "t3"}, cfg.ExcludeTeamIDs)
	assert.Equal(t, []string{"Public", "Private"}, cfg.IncludeVisibility)
	assert.Equal(t, "c1", cfg.ChannelID)
	assert.Equal(t, "ch1", cfg.ChatID)
	assert.True(t, cfg.IgnoreReplies)
	assert.True(t, cfg.AppendAttachment)
	assert.False(t, cfg.IgnoreSystemEvents)
	assert.Equal(t, "2006-01-02", cfg.TitleDateformat)
	assert.Equal(t, 540, cfg.TitleTimezoneOffset)
}

func TestParse_MalformedValues(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{"bad int", map[string]string{"number_of_threads": "many"}},
		{"bad int64", map[string]string{"max_size": "big"}},
		{"bad bool", map[string]string{"ignore_error": "nope"}},
		{"bad duration", map[string]string{"access_timeout": "30s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.params)
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg, err := Parse(map[string]string{
		"tenant":        "contoso",
		"client_id":     "app-id",
		"client_secret": "s3cret",
	})
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	for _, missing := range []string{"tenant", "client_id", "client_secret"} {
		t.Run("missing "+missing, func(t *testing.T) {
			params := map[string]string{
				"tenant":        "contoso",
				"client_id":     "app-id",
				"client_secret": "s3cret",
			}
			delete(params, missing)
			cfg, err := Parse(params)
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}
