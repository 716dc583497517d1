// Clients for image nudity scoring services, used by the NSFW rule.
package visual
