package identity

// UserRecord is one entry of the user database.
type UserRecord struct {
	UID        int
	Name       string
	PrimaryGID int
}

// GroupRecord is one entry of the group database. Members lists usernames in
// the order the database provides them.
type GroupRecord struct {
	GID     int
	Name    string
	Members []string
}

// NetgroupTriple is one (host, user, domain) member of a netgroup. Empty
// fields were wildcards in the database.
type NetgroupTriple struct {
	Host   string
	User   string
	Domain string
}

// Directory abstracts the OS identity databases (passwd, group, netgroup).
// Implementations may be backed by network directory services and can block
// for unbounded time; callers needing bounded latency must wrap calls with
// their own timeout mechanism.
type Directory interface {
	// LookupUserID resolves a user by uid.
	LookupUserID(uid int) (UserRecord, error)
	// LookupUserName resolves a user by name.
	LookupUserName(name string) (UserRecord, error)
	// LookupGroupID resolves a group, including its member list, by gid.
	LookupGroupID(gid int) (GroupRecord, error)
	// LookupGroupName resolves a group, including its member list, by name.
	LookupGroupName(name string) (GroupRecord, error)
	// GroupsOfUser returns the gids of the user's primary and supplementary
	// groups. Order is database-dependent and duplicates are possible.
	GroupsOfUser(name string, primaryGID int) ([]int, error)
	// Netgroup returns the member triples of a netgroup, with nested
	// netgroups flattened. The returned order follows the database.
	Netgroup(name string) ([]NetgroupTriple, error)
}
