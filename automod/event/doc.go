// Gateway event decoding. Each moderable platform object (chat message, forum topic, forum/doc/calendar reply, media) is reduced to a uniform engine.ContentItem, so rules never branch on the source type.
package event
