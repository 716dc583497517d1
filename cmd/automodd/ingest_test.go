package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chatguard/chatguard/automod/consumer"
	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"

	"github.com/stretchr/testify/assert"
)

func testServer(t *testing.T, token string) (*Server, *policy.MemPolicyStore, *engine.MockChatClient) {
	eng, policies, chat := engine.EngineTestFixture()
	s := &Server{
		logger:      slog.Default(),
		engine:      eng,
		policies:    policies,
		dispatcher:  consumer.NewDispatcher(2, 10, "test", eng.ProcessContentItem),
		ingestToken: token,
	}
	s.setupEcho(":0")
	t.Cleanup(s.dispatcher.Shutdown)
	return s, policies, chat
}

func doRequest(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

const forbiddenMessage = `{
	"op": 0,
	"t": "ChatMessageCreated",
	"d": {
		"serverId": "srv1",
		"message": {
			"id": "m-1",
			"type": "default",
			"channelId": "ch1",
			"content": "this is forbidden",
			"createdBy": "u1",
			"createdAt": "2024-01-01T00:00:00Z"
		}
	}
}`

func TestIngestEvent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, policies, chat := testServer(t, "")

	assert.NoError(policies.Put(ctx, &policy.ServerPolicy{
		ServerID:      "srv1",
		Enabled:       true,
		WordBlacklist: []string{"forbidden"},
	}))

	rec := doRequest(s, http.MethodGet, "/_health", "", "")
	assert.Equal(http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/events", forbiddenMessage, "")
	assert.Equal(http.StatusAccepted, rec.Code)
	var status GenericStatus
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("queued", status.Status)

	// drain workers before checking side effects
	s.dispatcher.Shutdown()
	assert.Equal([]string{"m-1"}, chat.Deleted)

	rec = doRequest(s, http.MethodPost, "/v1/events", `{"op": 0, "t": "TeamMemberUpdated", "d": {"serverId": "srv1"}}`, "")
	assert.Equal(http.StatusAccepted, rec.Code)
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal("ignored", status.Status)

	rec = doRequest(s, http.MethodPost, "/v1/events", `{"op": 0, "t": "ChatMessageCreated", "d": {}}`, "")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/events", `not json`, "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestIngestAuth(t *testing.T) {
	assert := assert.New(t)
	s, _, _ := testServer(t, "sekret")

	rec := doRequest(s, http.MethodPost, "/v1/servers/srv1/left", "", "")
	assert.NotEqual(http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/servers/srv1/left", "", "wrong")
	assert.Equal(http.StatusUnauthorized, rec.Code)

	rec = doRequest(s, http.MethodPost, "/v1/servers/srv1/left", "", "sekret")
	assert.Equal(http.StatusOK, rec.Code)

	// health check is always open
	rec = doRequest(s, http.MethodGet, "/_health", "", "")
	assert.Equal(http.StatusOK, rec.Code)
}

func TestPolicyAdmin(t *testing.T) {
	assert := assert.New(t)
	s, policies, _ := testServer(t, "")

	rec := doRequest(s, http.MethodGet, "/v1/servers/srv9/policy", "", "")
	assert.Equal(http.StatusNotFound, rec.Code)

	rec = doRequest(s, http.MethodPut, "/v1/servers/srv9/policy", `{"enabled": true, "toxicityThreshold": 300, "spamLimit": 5}`, "")
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodPut, "/v1/servers/srv9/policy", `{"serverId": "other", "enabled": true, "toxicityThreshold": 180, "spamLimit": 5}`, "")
	assert.Equal(http.StatusOK, rec.Code)

	stored, err := policies.Get(context.Background(), "srv9")
	assert.NoError(err)
	assert.Equal("srv9", stored.ServerID)
	assert.Equal(uint8(100), stored.ToxicityThreshold)
	assert.Equal(uint32(5), stored.SpamLimit)

	rec = doRequest(s, http.MethodGet, "/v1/servers/srv9/policy", "", "")
	assert.Equal(http.StatusOK, rec.Code)
	var got policy.ServerPolicy
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(got.Enabled)

	rec = doRequest(s, http.MethodDelete, "/v1/servers/srv9/policy", "", "")
	assert.Equal(http.StatusNoContent, rec.Code)
	_, err = policies.Get(context.Background(), "srv9")
	assert.ErrorIs(err, policy.ErrNoPolicy)
}
