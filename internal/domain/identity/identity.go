// Package identity contains the Unix identity value types shared by the
// authority, the identity resolver and the authorization stores.
package identity

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the identity variants.
type Kind string

const (
	// KindUser is a concrete Unix user (keyed by uid).
	KindUser Kind = "unix-user"
	// KindGroup is a Unix group (keyed by gid).
	KindGroup Kind = "unix-group"
	// KindNetgroup is a Unix netgroup (keyed by name).
	KindNetgroup Kind = "unix-netgroup"
)

// Identity is an immutable Unix identity. The zero value is not a valid
// identity; construct one with User, Group or Netgroup, or parse one with
// FromString.
type Identity struct {
	// Kind selects which key field is authoritative.
	Kind Kind
	// UID is the user id. Valid only for KindUser.
	UID int
	// GID is the group id. Valid only for KindGroup.
	GID int
	// Name is the user, group or netgroup name. For users and groups it is
	// informational (resolved from the id when available); for netgroups it
	// is the key.
	Name string
}

// User returns the identity for a Unix user.
func User(uid int, name string) Identity {
	return Identity{Kind: KindUser, UID: uid, Name: name}
}

// Group returns the identity for a Unix group.
func Group(gid int, name string) Identity {
	return Identity{Kind: KindGroup, GID: gid, Name: name}
}

// Netgroup returns the identity for a Unix netgroup.
func Netgroup(name string) Identity {
	return Identity{Kind: KindNetgroup, Name: name}
}

// String returns the canonical string form: "unix-user:NAME",
// "unix-group:NAME" or "unix-netgroup:NAME". Users and groups whose name is
// unknown render their numeric id instead.
func (i Identity) String() string {
	key := i.Name
	if key == "" {
		switch i.Kind {
		case KindUser:
			key = strconv.Itoa(i.UID)
		case KindGroup:
			key = strconv.Itoa(i.GID)
		}
	}
	return string(i.Kind) + ":" + key
}

// Equal reports whether two identities denote the same principal. Users
// compare by uid, groups by gid, netgroups by name; the rendered string is
// never consulted.
func (i Identity) Equal(o Identity) bool {
	if i.Kind != o.Kind {
		return false
	}
	switch i.Kind {
	case KindUser:
		return i.UID == o.UID
	case KindGroup:
		return i.GID == o.GID
	default:
		return i.Name == o.Name
	}
}

// IsUser reports whether the identity is a Unix user.
func (i Identity) IsUser() bool { return i.Kind == KindUser }

// IsGroup reports whether the identity is a Unix group.
func (i Identity) IsGroup() bool { return i.Kind == KindGroup }

// IsNetgroup reports whether the identity is a Unix netgroup.
func (i Identity) IsNetgroup() bool { return i.Kind == KindNetgroup }

// FromString parses the canonical identity grammar. The key part of a user
// or group may be a name or a numeric id; names are resolved against dir so
// the returned identity carries its numeric key. A numeric user or group key
// is accepted even when no such record exists (the id is the key; the name
// stays empty).
func FromString(s string, dir Directory) (Identity, error) {
	kind, key, ok := strings.Cut(s, ":")
	if !ok || key == "" {
		return Identity{}, fmt.Errorf("malformed identity %q", s)
	}
	switch Kind(kind) {
	case KindUser:
		if uid, err := strconv.Atoi(key); err == nil {
			u, lerr := dir.LookupUserID(uid)
			if lerr != nil {
				return User(uid, ""), nil
			}
			return User(u.UID, u.Name), nil
		}
		u, err := dir.LookupUserName(key)
		if err != nil {
			return Identity{}, fmt.Errorf("no user with name %q: %w", key, err)
		}
		return User(u.UID, u.Name), nil
	case KindGroup:
		if gid, err := strconv.Atoi(key); err == nil {
			g, lerr := dir.LookupGroupID(gid)
			if lerr != nil {
				return Group(gid, ""), nil
			}
			return Group(g.GID, g.Name), nil
		}
		g, err := dir.LookupGroupName(key)
		if err != nil {
			return Identity{}, fmt.Errorf("no group with name %q: %w", key, err)
		}
		return Group(g.GID, g.Name), nil
	case KindNetgroup:
		return Netgroup(key), nil
	default:
		return Identity{}, fmt.Errorf("unsupported identity kind in %q", s)
	}
}
