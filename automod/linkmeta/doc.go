// Link metadata resolution: decides whether a link in a message points at an image, video, audio or other media, so untrusted members can be kept from posting blocked attachment types by link.
package linkmeta
