// Small helpers shared by automod rules and classifier clients: text cleanup, link extraction, hashing, and readiness tracking.
package helpers
