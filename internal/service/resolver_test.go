package service

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDirectory is an in-memory identity.Directory with a small fixture
// population shared by the service tests.
type fakeDirectory struct {
	users     map[string]identity.UserRecord
	groups    map[int]identity.GroupRecord
	gidsOf    map[string][]int
	netgroups map[string][]identity.NetgroupTriple
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]identity.UserRecord{
			"root":  {UID: 0, Name: "root", PrimaryGID: 0},
			"john":  {UID: 1000, Name: "john", PrimaryGID: 1000},
			"jane":  {UID: 1001, Name: "jane", PrimaryGID: 1001},
			"sally": {UID: 1002, Name: "sally", PrimaryGID: 1002},
		},
		groups: map[int]identity.GroupRecord{
			0:    {GID: 0, Name: "root"},
			10:   {GID: 10, Name: "admin", Members: []string{"root", "jane"}},
			100:  {GID: 100, Name: "users", Members: []string{"john", "jane", "sally"}},
			1000: {GID: 1000, Name: "john"},
			1001: {GID: 1001, Name: "jane"},
			1002: {GID: 1002, Name: "sally"},
		},
		gidsOf: map[string][]int{
			"root":  {0},
			"john":  {1000, 100},
			"jane":  {1001, 100},
			"sally": {1002, 100},
		},
		netgroups: map[string][]identity.NetgroupTriple{
			"baz": {
				{Host: "host1", User: "john", Domain: "example.com"},
				{User: "jane"},
			},
			"bar": {
				{User: "root"},
				{User: "-"},
				{User: "john"},
			},
		},
	}
}

func (d *fakeDirectory) LookupUserID(uid int) (identity.UserRecord, error) {
	for _, u := range d.users {
		if u.UID == uid {
			return u, nil
		}
	}
	return identity.UserRecord{}, fmt.Errorf("no user with uid %d", uid)
}

func (d *fakeDirectory) LookupUserName(name string) (identity.UserRecord, error) {
	u, ok := d.users[name]
	if !ok {
		return identity.UserRecord{}, fmt.Errorf("no user %q", name)
	}
	return u, nil
}

func (d *fakeDirectory) LookupGroupID(gid int) (identity.GroupRecord, error) {
	g, ok := d.groups[gid]
	if !ok {
		return identity.GroupRecord{}, fmt.Errorf("no group with gid %d", gid)
	}
	return g, nil
}

func (d *fakeDirectory) LookupGroupName(name string) (identity.GroupRecord, error) {
	for _, g := range d.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return identity.GroupRecord{}, fmt.Errorf("no group %q", name)
}

func (d *fakeDirectory) GroupsOfUser(name string, primaryGID int) ([]int, error) {
	gids, ok := d.gidsOf[name]
	if !ok {
		return nil, fmt.Errorf("no memberships for %q", name)
	}
	return gids, nil
}

func (d *fakeDirectory) Netgroup(name string) ([]identity.NetgroupTriple, error) {
	triples, ok := d.netgroups[name]
	if !ok {
		return nil, fmt.Errorf("no netgroup %q", name)
	}
	return triples, nil
}

func (d *fakeDirectory) user(t *testing.T, name string) identity.Identity {
	t.Helper()
	u, ok := d.users[name]
	if !ok {
		t.Fatalf("fixture has no user %q", name)
	}
	return identity.User(u.UID, u.Name)
}

func TestGroupsForUser(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, discardLogger())

	groups := r.GroupsForUser(dir.user(t, "john"))
	if len(groups) != 2 {
		t.Fatalf("GroupsForUser(john) = %v, want 2 groups", groups)
	}
	if !groups[0].Equal(identity.Group(1000, "")) || groups[0].Name != "john" {
		t.Errorf("groups[0] = %+v, want the primary group", groups[0])
	}
	if !groups[1].Equal(identity.Group(100, "")) || groups[1].Name != "users" {
		t.Errorf("groups[1] = %+v, want gid 100 with its name resolved", groups[1])
	}
}

func TestGroupsForUserUnknownUID(t *testing.T) {
	r := NewResolver(newFakeDirectory(), discardLogger())

	if groups := r.GroupsForUser(identity.User(4242, "")); len(groups) != 0 {
		t.Errorf("GroupsForUser(unknown) = %v, want empty", groups)
	}
}

func TestUsersInGroup(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, discardLogger())
	admin := identity.Group(10, "admin")

	users := r.UsersInGroup(admin, false)
	if len(users) != 1 || !users[0].Equal(identity.User(1001, "")) {
		t.Errorf("UsersInGroup(admin, false) = %v, want [unix-user:jane]", users)
	}

	users = r.UsersInGroup(admin, true)
	if len(users) != 2 || !users[0].Equal(identity.User(0, "")) {
		t.Errorf("UsersInGroup(admin, true) = %v, root should be included", users)
	}
}

func TestUsersInGroupSkipsUnresolvableMembers(t *testing.T) {
	dir := newFakeDirectory()
	dir.groups[10] = identity.GroupRecord{GID: 10, Name: "admin", Members: []string{"ghost", "jane"}}
	r := NewResolver(dir, discardLogger())

	users := r.UsersInGroup(identity.Group(10, "admin"), false)
	if len(users) != 1 || users[0].Name != "jane" {
		t.Errorf("UsersInGroup() = %v, the unresolvable member should be skipped", users)
	}
}

func TestUsersInGroupUnknownGID(t *testing.T) {
	r := NewResolver(newFakeDirectory(), discardLogger())

	if users := r.UsersInGroup(identity.Group(4242, ""), false); len(users) != 0 {
		t.Errorf("UsersInGroup(unknown) = %v, want empty", users)
	}
}

func TestUsersInNetgroup(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, discardLogger())
	bar := identity.Netgroup("bar")

	// "root" is excluded, "-" matches nothing, john survives.
	users := r.UsersInNetgroup(bar, false)
	if len(users) != 1 || users[0].Name != "john" {
		t.Errorf("UsersInNetgroup(bar, false) = %v, want [unix-user:john]", users)
	}

	users = r.UsersInNetgroup(bar, true)
	if len(users) != 2 || users[0].Name != "root" || users[1].Name != "john" {
		t.Errorf("UsersInNetgroup(bar, true) = %v, want [root john] in order", users)
	}
}

func TestUsersInNetgroupUnknown(t *testing.T) {
	r := NewResolver(newFakeDirectory(), discardLogger())

	if users := r.UsersInNetgroup(identity.Netgroup("nope"), false); len(users) != 0 {
		t.Errorf("UsersInNetgroup(unknown) = %v, want empty", users)
	}
}
