// Client for the chat platform's bot REST API: deleting content, private replies, log channel embeds, channel history and member permissions.
package chatclient
