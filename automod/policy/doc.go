// Per-server automod configuration: which rules are enabled, thresholds, and per-rule restrictions.
//
// Includes a store interface with in-memory, SQL (gorm), and cached implementations, and the author permission snapshot resolved for each content item.
package policy
