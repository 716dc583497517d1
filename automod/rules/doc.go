// The automod rule pipeline: spam, profanity, word blacklist, malicious URL, invite, API key, mass mention, toxicity, NSFW image and untrusted attachment checks, in that order.
package rules
