package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chatguard/chatguard/automod/cooldown"
	"github.com/chatguard/chatguard/automod/policy"
)

// Rule used by the test fixture: blocks any text containing the word "forbidden", if the server has word filtering configured.
func simpleRule(c *EvalContext) error {
	if len(c.Policy.WordBlacklist) == 0 {
		return nil
	}
	for _, frag := range c.Item.TextFragments {
		if strings.Contains(strings.ToLower(frag), "forbidden") {
			c.Block(Violation{
				Rule:   policy.RuleWordBlacklist,
				Reason: "Filtered Word Detected",
			})
			return nil
		}
	}
	return nil
}

// In-memory ChatClient which records every call. Intentionally exported, for use in other packages.
type MockChatClient struct {
	mu       sync.Mutex
	Deleted  []string
	Replies  []string
	Logs     map[string][]LogEntry
	History  []HistoryMessage
	FailWith error
}

var _ ChatClient = (*MockChatClient)(nil)

func NewMockChatClient() *MockChatClient {
	return &MockChatClient{
		Logs: make(map[string][]LogEntry),
	}
}

func (m *MockChatClient) Delete(ctx context.Context, item *ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Deleted = append(m.Deleted, item.ID)
	return nil
}

func (m *MockChatClient) ReplyPrivately(ctx context.Context, item *ContentItem, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Replies = append(m.Replies, fmt.Sprintf("%s: %s", item.AuthorID, text))
	return nil
}

func (m *MockChatClient) SendLog(ctx context.Context, channel string, entry *LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Logs[channel] = append(m.Logs[channel], *entry)
	return nil
}

func (m *MockChatClient) ChannelHistory(ctx context.Context, channel string, before time.Time, limit int) ([]HistoryMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []HistoryMessage
	for _, h := range m.History {
		if h.CreatedAt.Before(before) && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

// Engine with in-memory stores, a mock chat client, and a single simple rule. Policies for server "srv1" can be added to the returned store.
func EngineTestFixture() (*Engine, *policy.MemPolicyStore, *MockChatClient) {
	rules := RuleSet{
		Rules: []Rule{
			{Name: policy.RuleWordBlacklist, Func: simpleRule},
		},
	}
	store := policy.NewMemPolicyStore()
	chat := NewMockChatClient()
	eng := Engine{
		Logger:    slog.Default(),
		Rules:     rules,
		Policies:  store,
		Cooldowns: cooldown.NewMemCooldownStore(),
		Matchers:  NewMatcherCache(),
		Chat:      chat,
	}
	return &eng, store, chat
}
