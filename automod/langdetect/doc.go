// Language identification for user text, so that per-language profanity lists are only applied to text in that language.
package langdetect
