package event

import (
	"encoding/json"
	"time"
)

// Event type names, as delivered by the platform gateway.
const (
	TypeMessageCreated       = "ChatMessageCreated"
	TypeMessageUpdated       = "ChatMessageUpdated"
	TypeForumTopicCreated    = "ForumTopicCreated"
	TypeForumTopicUpdated    = "ForumTopicUpdated"
	TypeForumReplyCreated    = "ForumTopicCommentCreated"
	TypeForumReplyUpdated    = "ForumTopicCommentUpdated"
	TypeDocReplyCreated      = "DocCommentCreated"
	TypeDocReplyUpdated      = "DocCommentUpdated"
	TypeCalendarReplyCreated = "CalendarEventCommentCreated"
	TypeCalendarReplyUpdated = "CalendarEventCommentUpdated"
	TypeMediaCreated         = "MediaCreated"
	TypeServerLeft           = "BotServerMembershipDeleted"
)

// Gateway opcodes
const (
	OpEvent   = 0
	OpWelcome = 1
	OpResume  = 2
	OpError   = 8
)

// Gateway message wrapper. For events (Op 0), the payload shape depends on Type.
type Envelope struct {
	Op   int             `json:"op"`
	Type string          `json:"t,omitempty"`
	Data json.RawMessage `json:"d"`
	// Message ID, which can be used to resume the stream after reconnecting
	MessageID string `json:"s,omitempty"`
}

// Payload of OpWelcome messages.
type Welcome struct {
	HeartbeatIntervalMs int    `json:"heartbeatIntervalMs"`
	LastMessageID       string `json:"lastMessageId"`
	BotID               string `json:"botId"`
}

type payload struct {
	ServerID             string       `json:"serverId"`
	Message              *ChatMessage `json:"message,omitempty"`
	ForumTopic           *ForumTopic  `json:"forumTopic,omitempty"`
	ForumTopicComment    *Reply       `json:"forumTopicComment,omitempty"`
	DocComment           *Reply       `json:"docComment,omitempty"`
	CalendarEventComment *Reply       `json:"calendarEventComment,omitempty"`
	Media                *Media       `json:"media,omitempty"`
}

// Author fields shared by all user-generated objects.
type Authorship struct {
	CreatedBy          string    `json:"createdBy"`
	CreatedByBotID     string    `json:"createdByBotId,omitempty"`
	CreatedByWebhookID string    `json:"createdByWebhookId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	// Role IDs of the author, when the gateway includes them
	AuthorRoleIDs []string `json:"authorRoleIds,omitempty"`
}

func (a *Authorship) byBot() bool {
	return a.CreatedByBotID != "" || a.CreatedByWebhookID != ""
}

type ChatMessage struct {
	Authorship
	ID        string `json:"id"`
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
	Embeds    []struct {
		Title       string `json:"title,omitempty"`
		Description string `json:"description,omitempty"`
	} `json:"embeds,omitempty"`
}

type ForumTopic struct {
	Authorship
	ID        int    `json:"id"`
	ChannelID string `json:"channelId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// Reply to a forum topic, doc or calendar event. Exactly one of the parent IDs is set.
type Reply struct {
	Authorship
	ID              int    `json:"id"`
	ChannelID       string `json:"channelId"`
	Content         string `json:"content"`
	ForumTopicID    int    `json:"forumTopicId,omitempty"`
	DocID           int    `json:"docId,omitempty"`
	CalendarEventID int    `json:"calendarEventId,omitempty"`
}

type Media struct {
	Authorship
	ID          int    `json:"id"`
	ChannelID   string `json:"channelId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Src         string `json:"src"`
}
