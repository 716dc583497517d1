package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/chatguard/chatguard/automod/engine"
	"github.com/chatguard/chatguard/automod/policy"
	"github.com/chatguard/chatguard/util"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/go-querystring/query"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultHost = "https://www.guilded.gg/api"

// Embed colors for log channel entries
const (
	colorBlocked = 0xE74C3C
	colorFlagged = 0xF1C40F
)

// REST client for the chat platform bot API. Implements both the engine's outbound actions and author permission lookup.
type Client struct {
	Host  string
	Token string
	// Used for lookups (GET), which are retried on transient failures
	Client *http.Client
	// Used for moderation actions. Actions are attempted exactly once: the platform may have applied a request which appeared to fail
	ActionClient *http.Client
	Logger       *slog.Logger
}

var _ engine.ChatClient = (*Client)(nil)
var _ policy.PermissionResolver = (*Client)(nil)

func NewClient(host, token string) *Client {
	hc := util.RobustHTTPClient()
	hc.Transport = otelhttp.NewTransport(hc.Transport)
	ac := util.SingleAttemptHTTPClient()
	ac.Transport = otelhttp.NewTransport(ac.Transport)
	return &Client{
		Host:         host,
		Token:        token,
		Client:       hc,
		ActionClient: ac,
		Logger:       slog.Default().With("system", "chatclient"),
	}
}

// Error response from the platform API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("chat API request failed statusCode=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("chat API request failed statusCode=%d", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return engine.ErrNotFound
	}
	return nil
}

// Sends one API request. `body` is JSON-encoded if non-nil, and the response decoded in to `out` if non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Host+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "chatguard-automod/"+versioninfo.Short())
	req.Header.Set("Authorization", "Bearer "+c.Token)

	hc := c.Client
	if method != http.MethodGet && c.ActionClient != nil {
		hc = c.ActionClient
	}

	start := time.Now()
	resp, err := hc.Do(req)
	chatAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		chatAPICount.WithLabelValues(method, "error").Inc()
		return fmt.Errorf("chat API request failed: %w", err)
	}
	defer resp.Body.Close()
	chatAPICount.WithLabelValues(method, fmt.Sprint(resp.StatusCode)).Inc()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// error bodies are informational only
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse chat API response: %w", err)
	}
	return nil
}

// API path of the content item itself.
func itemPath(item *engine.ContentItem) (string, error) {
	switch item.Kind {
	case engine.KindMessage:
		return fmt.Sprintf("/v1/channels/%s/messages/%s", item.ChannelID, item.ID), nil
	case engine.KindForumTopic:
		return fmt.Sprintf("/v1/channels/%s/topics/%s", item.ChannelID, item.ID), nil
	case engine.KindForumReply:
		return fmt.Sprintf("/v1/channels/%s/topics/%s/comments/%s", item.ChannelID, item.ParentID, item.ID), nil
	case engine.KindDocReply:
		return fmt.Sprintf("/v1/channels/%s/docs/%s/comments/%s", item.ChannelID, item.ParentID, item.ID), nil
	case engine.KindCalendarReply:
		return fmt.Sprintf("/v1/channels/%s/events/%s/comments/%s", item.ChannelID, item.ParentID, item.ID), nil
	default:
		return "", fmt.Errorf("deleting %s items is not supported", item.Kind)
	}
}

func (c *Client) Delete(ctx context.Context, item *engine.ContentItem) error {
	path, err := itemPath(item)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

type createMessage struct {
	Content         string   `json:"content,omitempty"`
	IsPrivate       bool     `json:"isPrivate,omitempty"`
	IsSilent        bool     `json:"isSilent,omitempty"`
	ReplyMessageIDs []string `json:"replyMessageIds,omitempty"`
	Embeds          []embed  `json:"embeds,omitempty"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embedFooter struct {
	Text string `json:"text"`
}

// Private replies are only possible to chat messages. Other item kinds have no private channel back to the author, so the notice is skipped.
func (c *Client) ReplyPrivately(ctx context.Context, item *engine.ContentItem, text string) error {
	if item.Kind != engine.KindMessage {
		c.Logger.Debug("skipping private reply for non-message item", "kind", item.Kind, "item", item.ID)
		return nil
	}
	msg := createMessage{
		Content:         text,
		IsPrivate:       true,
		IsSilent:        true,
		ReplyMessageIDs: []string{item.ID},
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/channels/%s/messages", item.ChannelID), msg, nil)
}

func logEmbed(entry *engine.LogEntry) embed {
	e := embed{
		Title:       entry.Title,
		Description: entry.Content,
		URL:         entry.ShareURL,
		Color:       colorBlocked,
		Footer:      &embedFooter{Text: fmt.Sprintf("%s %s", entry.Kind, entry.ItemID)},
	}
	if entry.Flagged {
		e.Color = colorFlagged
	}
	if !entry.CreatedAt.IsZero() {
		e.Timestamp = entry.CreatedAt.UTC().Format(time.RFC3339)
	}
	if entry.Reason != "" {
		e.Fields = append(e.Fields, embedField{Name: "Reason", Value: entry.Reason, Inline: true})
	}
	e.Fields = append(e.Fields,
		embedField{Name: "Author", Value: fmt.Sprintf("<@%s>", entry.AuthorID), Inline: true},
		embedField{Name: "Channel", Value: entry.ChannelID, Inline: true},
	)
	if entry.Certainty != nil {
		e.Fields = append(e.Fields, embedField{Name: "Certainty", Value: fmt.Sprintf("%.0f%%", *entry.Certainty), Inline: true})
	}
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Fields = append(e.Fields, embedField{Name: k, Value: entry.Fields[k]})
	}
	return e
}

func (c *Client) SendLog(ctx context.Context, channel string, entry *engine.LogEntry) error {
	msg := createMessage{
		IsSilent: true,
		Embeds:   []embed{logEmbed(entry)},
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/channels/%s/messages", channel), msg, nil)
}

type historyQuery struct {
	Before         string `url:"before,omitempty"`
	Limit          int    `url:"limit,omitempty"`
	IncludePrivate bool   `url:"includePrivate,omitempty"`
}

type historyMessage struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type historyResponse struct {
	Messages []historyMessage `json:"messages"`
}

func (c *Client) ChannelHistory(ctx context.Context, channel string, before time.Time, limit int) ([]engine.HistoryMessage, error) {
	q := historyQuery{Limit: limit}
	if !before.IsZero() {
		q.Before = before.UTC().Format(time.RFC3339Nano)
	}
	params, err := query.Values(q)
	if err != nil {
		return nil, err
	}
	var out historyResponse
	path := fmt.Sprintf("/v1/channels/%s/messages?%s", channel, params.Encode())
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	msgs := make([]engine.HistoryMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, engine.HistoryMessage{
			ID:        m.ID,
			AuthorID:  m.CreatedBy,
			CreatedAt: m.CreatedAt,
		})
	}
	return msgs, nil
}

type memberResponse struct {
	Member struct {
		RoleIDs []int `json:"roleIds"`
		IsOwner bool  `json:"isOwner"`
	} `json:"member"`
}

type permissionsResponse struct {
	Permissions struct {
		Permissions []string `json:"permissions"`
	} `json:"serverMemberPermissions"`
}

// Platform permission which lets a member skip automod entirely.
const BypassPermission = "CanManageServer"

// Resolves the author's roles and owner status. Members who can manage the server are treated as bypassing filters; server-configured bypass roles are folded in later by the policy.
func (c *Client) Resolve(ctx context.Context, server, author string) (*policy.AuthorPermissions, error) {
	var member memberResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/servers/%s/members/%s", server, author), nil, &member); err != nil {
		return nil, err
	}
	perms := &policy.AuthorPermissions{
		IsOwner: member.Member.IsOwner,
	}
	for _, r := range member.Member.RoleIDs {
		perms.RoleIDs = append(perms.RoleIDs, fmt.Sprint(r))
	}
	if perms.IsOwner {
		return perms, nil
	}

	var pr permissionsResponse
	path := fmt.Sprintf("/v1/servers/%s/members/%s/permissions?ids=%s", server, author, BypassPermission)
	err := c.do(ctx, http.MethodGet, path, nil, &pr)
	if err != nil {
		// missing permission lookup degrades to role-based bypass only
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
			c.Logger.Warn("member permission lookup forbidden", "server", server, "author", author)
			return perms, nil
		}
		return nil, err
	}
	for _, p := range pr.Permissions.Permissions {
		if p == BypassPermission {
			perms.BypassFilter = true
		}
	}
	return perms, nil
}
