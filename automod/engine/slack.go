package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

type SlackNotifier struct {
	SlackWebhookURL string
	Client          *http.Client
}

var _ Notifier = (*SlackNotifier)(nil)

func (n *SlackNotifier) SendBlock(ctx context.Context, entry *LogEntry) error {
	return n.sendSlackMsg(ctx, slackBody("⚠️ Automod Action ⚠️\n", entry))
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) sendSlackMsg(ctx context.Context, msg string) error {
	// loosely based on: https://golangcode.com/send-slack-messages-without-a-library/

	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(header string, entry *LogEntry) string {
	msg := header
	msg += fmt.Sprintf("*%s*: %s\n", entry.Title, entry.Reason)
	msg += fmt.Sprintf("server `%s` / channel `%s` / author `%s`\n", entry.ServerID, entry.ChannelID, entry.AuthorID)
	if entry.Certainty != nil {
		msg += fmt.Sprintf("Certainty: `%.0f%%`\n", *entry.Certainty)
	}
	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msg += fmt.Sprintf("%s: `%s`\n", k, entry.Fields[k])
	}
	if entry.ShareURL != "" {
		msg += fmt.Sprintf("<%s|%s %s>\n", entry.ShareURL, entry.Kind, entry.ItemID)
	}
	return msg
}
