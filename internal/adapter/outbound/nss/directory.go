// Package nss provides the OS-backed implementation of identity.Directory.
//
// User and group lookups go through os/user, which follows the platform's
// name service configuration. Group member lists and netgroups have no
// portable API, so they are read from the group and netgroup database files
// directly; the paths are injectable for tests.
package nss

import (
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// Default database file locations.
const (
	DefaultGroupFile    = "/etc/group"
	DefaultNetgroupFile = "/etc/netgroup"
)

// Directory implements identity.Directory against the local OS databases.
type Directory struct {
	// GroupFile is the group(5) database used for member lists.
	GroupFile string
	// NetgroupFile is the netgroup(5) database.
	NetgroupFile string
}

// NewDirectory returns a Directory using the standard file locations.
func NewDirectory() *Directory {
	return &Directory{
		GroupFile:    DefaultGroupFile,
		NetgroupFile: DefaultNetgroupFile,
	}
}

// LookupUserID resolves a user by uid via os/user.
func (d *Directory) LookupUserID(uid int) (identity.UserRecord, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return identity.UserRecord{}, err
	}
	return userRecord(u)
}

// LookupUserName resolves a user by name via os/user.
func (d *Directory) LookupUserName(name string) (identity.UserRecord, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return identity.UserRecord{}, err
	}
	return userRecord(u)
}

func userRecord(u *user.User) (identity.UserRecord, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return identity.UserRecord{}, fmt.Errorf("non-numeric uid %q for user %s", u.Uid, u.Username)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return identity.UserRecord{}, fmt.Errorf("non-numeric gid %q for user %s", u.Gid, u.Username)
	}
	return identity.UserRecord{UID: uid, Name: u.Username, PrimaryGID: gid}, nil
}

// LookupGroupID resolves a group by gid. The member list comes from the
// group file; a group known to os/user but absent from the file resolves
// with an empty member list.
func (d *Directory) LookupGroupID(gid int) (identity.GroupRecord, error) {
	if rec, ok, err := d.groupFromFile(func(r identity.GroupRecord) bool { return r.GID == gid }); err == nil && ok {
		return rec, nil
	}
	g, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return identity.GroupRecord{}, err
	}
	return identity.GroupRecord{GID: gid, Name: g.Name}, nil
}

// LookupGroupName resolves a group by name, like LookupGroupID.
func (d *Directory) LookupGroupName(name string) (identity.GroupRecord, error) {
	if rec, ok, err := d.groupFromFile(func(r identity.GroupRecord) bool { return r.Name == name }); err == nil && ok {
		return rec, nil
	}
	g, err := user.LookupGroup(name)
	if err != nil {
		return identity.GroupRecord{}, err
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return identity.GroupRecord{}, fmt.Errorf("non-numeric gid %q for group %s", g.Gid, name)
	}
	return identity.GroupRecord{GID: gid, Name: name}, nil
}

// GroupsOfUser returns the user's primary and supplementary gids via
// os/user, falling back to a group-file scan when the platform cannot
// enumerate memberships.
func (d *Directory) GroupsOfUser(name string, primaryGID int) ([]int, error) {
	if u, err := user.Lookup(name); err == nil {
		if ids, err := u.GroupIds(); err == nil {
			gids := make([]int, 0, len(ids))
			for _, id := range ids {
				gid, err := strconv.Atoi(id)
				if err != nil {
					continue
				}
				gids = append(gids, gid)
			}
			return gids, nil
		}
	}

	gids := []int{primaryGID}
	records, err := d.readGroupFile()
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.GID == primaryGID {
			continue
		}
		for _, m := range rec.Members {
			if m == name {
				gids = append(gids, rec.GID)
				break
			}
		}
	}
	return gids, nil
}

func (d *Directory) groupFromFile(match func(identity.GroupRecord) bool) (identity.GroupRecord, bool, error) {
	records, err := d.readGroupFile()
	if err != nil {
		return identity.GroupRecord{}, false, err
	}
	for _, rec := range records {
		if match(rec) {
			return rec, true, nil
		}
	}
	return identity.GroupRecord{}, false, nil
}

// readGroupFile parses group(5) lines: name:password:gid:member,member,...
func (d *Directory) readGroupFile() ([]identity.GroupRecord, error) {
	f, err := os.Open(d.GroupFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []identity.GroupRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 4 {
			continue
		}
		gid, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		rec := identity.GroupRecord{GID: gid, Name: fields[0]}
		for _, m := range strings.Split(fields[3], ",") {
			if m = strings.TrimSpace(m); m != "" {
				rec.Members = append(rec.Members, m)
			}
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Netgroup returns the member triples of the named netgroup from the
// netgroup file, flattening nested netgroups. Unknown netgroups are an
// error; membership cycles are tolerated (each netgroup expands once).
func (d *Directory) Netgroup(name string) ([]identity.NetgroupTriple, error) {
	db, err := d.readNetgroupFile()
	if err != nil {
		return nil, err
	}
	if _, ok := db[name]; !ok {
		return nil, fmt.Errorf("no netgroup with name %q", name)
	}
	var triples []identity.NetgroupTriple
	expandNetgroup(db, name, map[string]bool{}, &triples)
	return triples, nil
}

func expandNetgroup(db map[string][]string, name string, seen map[string]bool, out *[]identity.NetgroupTriple) {
	if seen[name] {
		return
	}
	seen[name] = true
	for _, member := range db[name] {
		if strings.HasPrefix(member, "(") && strings.HasSuffix(member, ")") {
			inner := member[1 : len(member)-1]
			parts := strings.Split(inner, ",")
			if len(parts) != 3 {
				continue
			}
			*out = append(*out, identity.NetgroupTriple{
				Host:   strings.TrimSpace(parts[0]),
				User:   strings.TrimSpace(parts[1]),
				Domain: strings.TrimSpace(parts[2]),
			})
			continue
		}
		// Bare word: a nested netgroup.
		expandNetgroup(db, member, seen, out)
	}
}

// readNetgroupFile parses netgroup(5) lines: name member..., where a member
// is a (host,user,domain) triple or the name of another netgroup.
// Backslash line continuations are honored.
func (d *Directory) readNetgroupFile() (map[string][]string, error) {
	f, err := os.Open(d.NetgroupFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	db := make(map[string][]string)
	scanner := bufio.NewScanner(f)
	var pending string
	for scanner.Scan() {
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if strings.HasSuffix(line, "\\") {
			pending += strings.TrimSuffix(line, "\\") + " "
			continue
		}
		line = pending + line
		pending = ""
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 1 {
			continue
		}
		db[fields[0]] = append(db[fields[0]], fields[1:]...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return db, nil
}
