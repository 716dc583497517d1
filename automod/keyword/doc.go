// Text normalization and word-list matching for profanity filtering.
//
// Includes the tokenizer, the Matcher used for both default (per-language) and per-server custom word lists, and a loader for the default lists.
package keyword
