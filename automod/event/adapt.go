package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/chatguard/chatguard/automod/engine"
)

var (
	ErrUnsupportedEvent = errors.New("unsupported event type")
	ErrMalformedEvent   = errors.New("malformed event payload")
)

// Base URL for links back to moderated content in audit entries.
var ShareBaseURL = "https://www.guilded.gg"

// markdown image embeds, which is how uploaded media appears in content
var imageEmbedRegex = regexp.MustCompile(`!\[[^\]]*\]\((\S+?)\)`)

func embeddedMedia(text string) []string {
	var out []string
	for _, m := range imageEmbedRegex.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func nonEmpty(frags ...string) []string {
	var out []string
	for _, f := range frags {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func shareURL(server, channel string, query url.Values) string {
	u := fmt.Sprintf("%s/teams/%s/channels/%s", ShareBaseURL, url.PathEscape(server), url.PathEscape(channel))
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func baseItem(server, channel string, a *Authorship) *engine.ContentItem {
	return &engine.ContentItem{
		ServerID:      server,
		ChannelID:     channel,
		AuthorID:      a.CreatedBy,
		AuthorRoleIDs: a.AuthorRoleIDs,
		AuthorIsBot:   a.byBot(),
		CreatedAt:     a.CreatedAt,
	}
}

func MessageItem(server string, m *ChatMessage) *engine.ContentItem {
	item := baseItem(server, m.ChannelID, &m.Authorship)
	item.ID = m.ID
	item.Kind = engine.KindMessage
	frags := []string{m.Content}
	for _, e := range m.Embeds {
		frags = append(frags, e.Title, e.Description)
	}
	item.TextFragments = nonEmpty(frags...)
	item.AttachmentLinks = embeddedMedia(m.Content)
	if m.Type == "system" {
		item.AuthorIsBot = true
	}
	item.ShareURL = shareURL(server, m.ChannelID, url.Values{"messageId": {m.ID}})
	return item
}

func ForumTopicItem(server string, t *ForumTopic) *engine.ContentItem {
	item := baseItem(server, t.ChannelID, &t.Authorship)
	item.ID = strconv.Itoa(t.ID)
	item.Kind = engine.KindForumTopic
	item.TextFragments = nonEmpty(t.Title, t.Content)
	item.AttachmentLinks = embeddedMedia(t.Content)
	item.ShareURL = shareURL(server, t.ChannelID, nil) + "/forums/" + item.ID
	return item
}

func replyItem(server string, r *Reply, kind engine.ItemKind, parent int) *engine.ContentItem {
	item := baseItem(server, r.ChannelID, &r.Authorship)
	item.ID = strconv.Itoa(r.ID)
	item.Kind = kind
	item.ParentID = strconv.Itoa(parent)
	item.TextFragments = nonEmpty(r.Content)
	item.AttachmentLinks = embeddedMedia(r.Content)
	return item
}

func ForumReplyItem(server string, r *Reply) *engine.ContentItem {
	item := replyItem(server, r, engine.KindForumReply, r.ForumTopicID)
	item.ShareURL = shareURL(server, r.ChannelID, nil) + "/forums/" + item.ParentID
	return item
}

func DocReplyItem(server string, r *Reply) *engine.ContentItem {
	item := replyItem(server, r, engine.KindDocReply, r.DocID)
	item.ShareURL = shareURL(server, r.ChannelID, nil) + "/docs/" + item.ParentID
	return item
}

func CalendarReplyItem(server string, r *Reply) *engine.ContentItem {
	item := replyItem(server, r, engine.KindCalendarReply, r.CalendarEventID)
	item.ShareURL = shareURL(server, r.ChannelID, nil) + "/calendar/" + item.ParentID
	return item
}

func MediaItem(server string, m *Media) *engine.ContentItem {
	item := baseItem(server, m.ChannelID, &m.Authorship)
	item.ID = strconv.Itoa(m.ID)
	item.Kind = engine.KindMedia
	item.TextFragments = nonEmpty(m.Title, m.Description)
	if m.Src != "" {
		item.AttachmentLinks = []string{m.Src}
	}
	item.ShareURL = shareURL(server, m.ChannelID, nil) + "/media/" + item.ID
	return item
}

// Result of decoding a gateway event: either a content item to evaluate, or a server lifecycle event (Item nil).
type Decoded struct {
	Type     string
	ServerID string
	Item     *engine.ContentItem
}

func (d *Decoded) ServerLeft() bool {
	return d.Type == TypeServerLeft
}

// Parses a gateway envelope. Created and updated events of the same object type produce the same kind of item.
func Decode(env *Envelope) (*Decoded, error) {
	var p payload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	if p.ServerID == "" {
		return nil, fmt.Errorf("%w: missing serverId", ErrMalformedEvent)
	}
	out := &Decoded{Type: env.Type, ServerID: p.ServerID}
	missing := func(field string) (*Decoded, error) {
		return nil, fmt.Errorf("%w: %s event without %s", ErrMalformedEvent, env.Type, field)
	}

	switch env.Type {
	case TypeServerLeft:
		return out, nil
	case TypeMessageCreated, TypeMessageUpdated:
		if p.Message == nil {
			return missing("message")
		}
		out.Item = MessageItem(p.ServerID, p.Message)
	case TypeForumTopicCreated, TypeForumTopicUpdated:
		if p.ForumTopic == nil {
			return missing("forumTopic")
		}
		out.Item = ForumTopicItem(p.ServerID, p.ForumTopic)
	case TypeForumReplyCreated, TypeForumReplyUpdated:
		if p.ForumTopicComment == nil {
			return missing("forumTopicComment")
		}
		out.Item = ForumReplyItem(p.ServerID, p.ForumTopicComment)
	case TypeDocReplyCreated, TypeDocReplyUpdated:
		if p.DocComment == nil {
			return missing("docComment")
		}
		out.Item = DocReplyItem(p.ServerID, p.DocComment)
	case TypeCalendarReplyCreated, TypeCalendarReplyUpdated:
		if p.CalendarEventComment == nil {
			return missing("calendarEventComment")
		}
		out.Item = CalendarReplyItem(p.ServerID, p.CalendarEventComment)
	case TypeMediaCreated:
		if p.Media == nil {
			return missing("media")
		}
		out.Item = MediaItem(p.ServerID, p.Media)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, env.Type)
	}
	return out, nil
}
