package policy

import (
	"context"
)

// Snapshot of an author's standing in a server, resolved once per content item.
type AuthorPermissions struct {
	RoleIDs []string
	IsOwner bool
	// Author has the platform-level permission to bypass filters
	BypassFilter bool
	// Author may post attachment types which are blocked for untrusted members
	Trusted bool
}

type PermissionResolver interface {
	Resolve(ctx context.Context, server, author string) (*AuthorPermissions, error)
}

func hasAnyRole(roles, set []string) bool {
	for _, r := range roles {
		for _, s := range set {
			if r == s {
				return true
			}
		}
	}
	return false
}

// Folds server-level role configuration in to platform-resolved permissions. Server owners always bypass, and bypassing members are always trusted.
func (p *ServerPolicy) ApplyRoles(perms AuthorPermissions) AuthorPermissions {
	if perms.IsOwner || hasAnyRole(perms.RoleIDs, p.BypassRoles) {
		perms.BypassFilter = true
	}
	if perms.BypassFilter || hasAnyRole(perms.RoleIDs, p.TrustedRoles) {
		perms.Trusted = true
	}
	return perms
}
