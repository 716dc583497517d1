package engine

import (
	"strings"
	"time"
)

// Identifies which platform object a ContentItem was derived from, so the chat client can address it. Rules never branch on this.
type ItemKind string

const (
	KindMessage       ItemKind = "message"
	KindForumTopic    ItemKind = "forum_topic"
	KindForumReply    ItemKind = "forum_reply"
	KindDocReply      ItemKind = "doc_reply"
	KindCalendarReply ItemKind = "calendar_reply"
	KindMedia         ItemKind = "media"
)

// Uniform view of any moderable object. Created once per inbound event and discarded after evaluation.
type ContentItem struct {
	ID   string
	Kind ItemKind
	// Parent object for replies (forum topic, doc or calendar event ID)
	ParentID  string
	ServerID  string
	ChannelID string
	AuthorID  string

	// Role and permission snapshot included with the event, if any. Only used when the engine has no PermissionResolver.
	AuthorRoleIDs             []string
	AuthorHasBypassPermission bool
	AuthorIsBot               bool

	// Message body, plus title for forum topics, or description for media
	TextFragments   []string
	AttachmentLinks []string

	CreatedAt time.Time
	ShareURL  string
}

// All text fragments joined by newlines.
func (i *ContentItem) Text() string {
	return strings.Join(i.TextFragments, "\n")
}
