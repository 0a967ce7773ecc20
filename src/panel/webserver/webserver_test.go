package webserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botpanel/botpanel/src/panel/config"
	"github.com/botpanel/botpanel/src/panel/data"
	"github.com/botpanel/botpanel/src/panel/discord"
	"github.com/botpanel/botpanel/src/panel/storage"
)

// stubGateway counts external calls so tests can assert that rejected
// requests never reach the SDK.
type stubGateway struct {
	user        discord.BotUser
	guilds      []discord.GuildInfo
	calls       atomic.Int64
	sendErr     error
	leaveErr    error
	sentContent string
}

func (s *stubGateway) Open() error  { return nil }
func (s *stubGateway) Close() error { return nil }

func (s *stubGateway) Self() (discord.BotUser, error) { return s.user, nil }
func (s *stubGateway) Latency() time.Duration         { return 25 * time.Millisecond }
func (s *stubGateway) GuildCount() int                { return len(s.guilds) }
func (s *stubGateway) UserCount() int                 { return 10 }

func (s *stubGateway) Guilds() ([]discord.GuildInfo, error) {
	s.calls.Add(1)
	return s.guilds, nil
}

func (s *stubGateway) Guild(guildID string) (discord.GuildInfo, error) {
	s.calls.Add(1)
	for _, g := range s.guilds {
		if g.ID == guildID {
			return g, nil
		}
	}
	return discord.GuildInfo{}, fmt.Errorf("%w: %s", discord.ErrGuildNotFound, guildID)
}

func (s *stubGateway) GuildChannels(string) ([]discord.ChannelInfo, error) {
	s.calls.Add(1)
	return []discord.ChannelInfo{{ID: "c1", Name: "general", Type: 0, Position: 0}}, nil
}

func (s *stubGateway) ChannelMessages(string, int) ([]discord.MessageInfo, error) {
	s.calls.Add(1)
	return nil, nil
}

func (s *stubGateway) SendChannelMessage(_, content string) error {
	s.calls.Add(1)
	s.sentContent = content
	return s.sendErr
}

func (s *stubGateway) SendUserMessage(_, content string) error {
	s.calls.Add(1)
	s.sentContent = content
	return s.sendErr
}

func (s *stubGateway) LeaveGuild(string) error {
	s.calls.Add(1)
	return s.leaveErr
}

func (s *stubGateway) UpdateStatus(string) error {
	s.calls.Add(1)
	return nil
}

func (s *stubGateway) UpdateActivity(string, discord.ActivityKind) error {
	s.calls.Add(1)
	return nil
}

func (s *stubGateway) Subscribe(discord.EventHandler) {}

type testEnv struct {
	router *gin.Engine
	store  *storage.MemStorage
	gw     *stubGateway
	svc    *discord.Service
	hub    *Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := &stubGateway{
		user:   discord.BotUser{ID: "bot1", Username: "panelbot", Discriminator: "0000"},
		guilds: []discord.GuildInfo{{ID: "g1", Name: "Guild One", MemberCount: 3}},
	}
	store := storage.NewMemStorage()
	hub := NewHub()
	svc := discord.NewService(store, hub, discord.WithGatewayFactory(func(string) (discord.Gateway, error) {
		return gw, nil
	}))
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AllowedOrigins: []string{"http://localhost:3000"},
		SessionTTL:     time.Hour,
	}
	router := New(cfg, svc, store, data.NewMemorySessions(), hub)
	return &testEnv{router: router, store: store, gw: gw, svc: svc, hub: hub}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	w := e.request(t, http.MethodPost, "/api/auth/bot", "", gin.H{"token": "bot-token"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestGatedEndpointsRejectUnauthenticated(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/session"},
		{http.MethodPost, "/api/auth/disconnect"},
		{http.MethodPost, "/api/bot/status"},
		{http.MethodGet, "/api/bot/stats"},
		{http.MethodPost, "/api/bot/message"},
		{http.MethodGet, "/api/bot/messages"},
		{http.MethodGet, "/api/bot/guilds"},
		{http.MethodPost, "/api/bot/guilds/g1/invite"},
		{http.MethodPost, "/api/bot/guilds/g1/leave"},
		{http.MethodGet, "/api/bot/guilds/g1/channels"},
		{http.MethodGet, "/api/bot/channels/c1/messages"},
		{http.MethodGet, "/api/bot/chat"},
		{http.MethodPost, "/api/bot/chat"},
		{http.MethodPost, "/api/bot/custom-status"},
	}
	for _, tc := range cases {
		w := env.request(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
	assert.Zero(t, env.gw.calls.Load(), "no external call for unauthenticated requests")
}

func TestLoginIssuesSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		BotID   string `json:"botId"`
		Session struct {
			BotUsername string `json:"botUsername"`
			IsActive    bool   `json:"isActive"`
		} `json:"session"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bot1", resp.BotID)
	assert.Equal(t, "panelbot", resp.Session.BotUsername)
	assert.True(t, resp.Session.IsActive)

	// The credential token is never echoed back.
	assert.NotContains(t, w.Body.String(), "bot-token")
}

func TestDisconnectUnbindsSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodPost, "/api/auth/disconnect", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodGet, "/api/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "revoked token no longer binds")

	assert.False(t, env.svc.Connected("bot1"))
}

func TestSendMessageFailureLogged(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	env.gw.sendErr = fmt.Errorf("%w: unknown channel", discord.ErrTargetNotFound)

	w := env.request(t, http.MethodPost, "/api/bot/message", token, gin.H{
		"targetType": "channel", "targetId": "nope", "content": "hello",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	msgs := env.store.GetBotMessages("bot1", 10)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Success)
}

func TestSendMessageContentVerbatim(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	// Plain text with characters an HTML filter would mangle.
	content := "you & me <3 a<b && \"quotes\""
	w := env.request(t, http.MethodPost, "/api/bot/message", token, gin.H{
		"targetType": "channel", "targetId": "c1", "content": content,
	})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, content, env.gw.sentContent, "SDK receives the content exactly as submitted")

	msgs := env.store.GetBotMessages("bot1", 10)
	require.Len(t, msgs, 1)
	assert.Equal(t, content, msgs[0].Content, "log matches what was sent")
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	before := env.gw.calls.Load()

	w := env.request(t, http.MethodPost, "/api/bot/message", token, gin.H{
		"targetType": "webhook", "targetId": "x", "content": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, env.gw.calls.Load(), "validation failures skip the SDK")
	assert.Empty(t, env.store.GetBotMessages("bot1", 10))
}

func TestGuildsExcludesInactive(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	require.NoError(t, env.svc.LeaveGuild("bot1", "g1"))

	w := env.request(t, http.MethodGet, "/api/bot/guilds", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Guilds []struct {
			GuildID string `json:"guildId"`
		} `json:"guilds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Guilds)

	// Departed row still exists in storage.
	all := env.store.GetBotGuilds("bot1")
	require.Len(t, all, 1)
	assert.False(t, all[0].IsActive)
}

func TestCustomStatusValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	before := env.gw.calls.Load()

	w := env.request(t, http.MethodPost, "/api/bot/custom-status", token, gin.H{
		"text": "hacking", "type": "SLEEPING",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, before, env.gw.calls.Load())

	w = env.request(t, http.MethodPost, "/api/bot/custom-status", token, gin.H{
		"text": "", "type": "PLAYING",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty text rejected")

	w = env.request(t, http.MethodPost, "/api/bot/custom-status", token, gin.H{
		"text": "the dashboard", "type": "WATCHING",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatsNullBeforeFirstTick(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodGet, "/api/bot/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp["stats"])
}

func TestChatRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	// Test messages round-trip verbatim, angle brackets and all.
	content := "ping <3 & pong"
	w := env.request(t, http.MethodPost, "/api/bot/chat", token, gin.H{"content": content})
	require.Equal(t, http.StatusOK, w.Code)
	var sendResp struct {
		Success bool `json:"success"`
		Message struct {
			Username  string `json:"username"`
			IsFromBot bool   `json:"isFromBot"`
		} `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sendResp))
	assert.True(t, sendResp.Success)
	assert.Equal(t, "Test User", sendResp.Message.Username)
	assert.False(t, sendResp.Message.IsFromBot)

	w = env.request(t, http.MethodGet, "/api/bot/chat", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listResp struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Messages, 1)
	assert.Equal(t, content, listResp.Messages[0].Content)
}

func TestGuildChannels(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodGet, "/api/bot/guilds/g1/channels", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success  bool `json:"success"`
		Channels []struct {
			ID string `json:"id"`
		} `json:"channels"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Channels, 1)
	assert.Equal(t, "c1", resp.Channels[0].ID)
}

func TestInviteForUnknownGuild(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.request(t, http.MethodPost, "/api/bot/guilds/unknown/invite", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.request(t, http.MethodPost, "/api/bot/guilds/g1/invite", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success   bool   `json:"success"`
		InviteURL string `json:"inviteUrl"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Contains(t, resp.InviteURL, "client_id=bot1")
}
