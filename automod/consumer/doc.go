// Event intake: a websocket gateway consumer, and a bounded worker pool which evaluates content items off the receipt path.
package consumer
