// Package service contains the application services: identity resolution,
// store discovery, change monitoring and the local authority itself.
package service

import (
	"log/slog"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// Resolver expands identities against the OS identity databases. A failed
// lookup never aborts a resolution; it contributes nothing and logs a
// warning.
type Resolver struct {
	dir    identity.Directory
	logger *slog.Logger
}

// NewResolver creates a resolver over the given directory.
func NewResolver(dir identity.Directory, logger *slog.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// GroupsForUser returns the group identities of the user's primary and
// supplementary groups. Order follows the OS and is not deterministic;
// duplicates are possible and harmless to the decision fold.
func (r *Resolver) GroupsForUser(u identity.Identity) []identity.Identity {
	rec, err := r.dir.LookupUserID(u.UID)
	if err != nil {
		r.logger.Warn("no user with uid", "uid", u.UID, "error", err)
		return nil
	}

	gids, err := r.dir.GroupsOfUser(rec.Name, rec.PrimaryGID)
	if err != nil {
		r.logger.Warn("failed to look up groups for user", "uid", u.UID, "error", err)
		return nil
	}

	groups := make([]identity.Identity, 0, len(gids))
	for _, gid := range gids {
		name := ""
		if grp, err := r.dir.LookupGroupID(gid); err == nil {
			name = grp.Name
		}
		groups = append(groups, identity.Group(gid, name))
	}
	return groups
}

// UsersInGroup returns the user identities of the group's members, in
// database order. The member "root" is skipped unless includeRoot is set;
// member names that fail to resolve are skipped with a warning.
func (r *Resolver) UsersInGroup(g identity.Identity, includeRoot bool) []identity.Identity {
	rec, err := r.dir.LookupGroupID(g.GID)
	if err != nil {
		r.logger.Warn("failed to look up group", "gid", g.GID, "error", err)
		return nil
	}

	var users []identity.Identity
	for _, name := range rec.Members {
		if !includeRoot && name == "root" {
			continue
		}
		u, err := r.dir.LookupUserName(name)
		if err != nil {
			r.logger.Warn("unknown username in group", "username", name, "group", rec.Name, "error", err)
			continue
		}
		users = append(users, identity.User(u.UID, u.Name))
	}
	return users
}

// UsersInNetgroup returns the user identities named by the netgroup's
// triples, in database order. Triples whose user field is empty or the
// literal "-" (which matches nothing) are skipped. The host and domain
// fields are not filtered; a hostname-scoped entry counts on every host.
func (r *Resolver) UsersInNetgroup(n identity.Identity, includeRoot bool) []identity.Identity {
	triples, err := r.dir.Netgroup(n.Name)
	if err != nil {
		r.logger.Warn("failed to look up netgroup", "netgroup", n.Name, "error", err)
		return nil
	}

	var users []identity.Identity
	for _, t := range triples {
		if t.User == "" || t.User == "-" {
			continue
		}
		if !includeRoot && t.User == "root" {
			continue
		}
		u, err := r.dir.LookupUserName(t.User)
		if err != nil {
			r.logger.Warn("unknown username in netgroup", "username", t.User, "netgroup", n.Name, "error", err)
			continue
		}
		users = append(users, identity.User(u.UID, u.Name))
	}
	return users
}
