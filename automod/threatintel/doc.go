// Threat intelligence feeds: known-malicious URLs (URLhaus), and the platform's own first-party paths (from its sitemap) which must not be mistaken for invite links.
//
// The Index serves lookups from an atomically swapped snapshot; the Refresher keeps it current in the background.
package threatintel
