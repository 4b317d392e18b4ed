// Package pkla implements the file-backed authorization store: one store
// per directory, scoped to rule files with a fixed suffix (conventionally
// ".pkla"). Rule files are key-file format; each section is one entry:
//
//	[Let admins do everything]
//	Identity=unix-group:admin;unix-user:joe
//	Action=com.example.awesomeproduct.*
//	ResultAny=no
//	ResultInactive=auth_self
//	ResultActive=yes
//
// Identity and Action values are ;-separated glob patterns. Result keys are
// optional; an absent key means unknown. Files are applied in sorted
// filename order, sections in file order, and the last matching entry in
// the store wins.
//
// A unix-netgroup identity pattern is special: it matches a user identity
// by netgroup membership, not by string comparison, so a netgroup entry
// applies directly to the subject without the caller expanding the
// netgroup.
package pkla

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/authorization"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// entry is one parsed rule-file section.
type entry struct {
	// origin is "file:section", for log messages.
	origin        string
	identityGlobs []string
	actionGlobs   []string
	result        authorization.TriState
}

// Store is an authorization store bound to one directory and one rule-file
// suffix. Entries load lazily on first lookup; Reload drops them so the
// next lookup re-reads the directory. Safe for concurrent use.
type Store struct {
	dir    string
	suffix string
	idDB   identity.Directory
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	entries []entry
}

// NewStore creates a store for the given directory. The directory does not
// need to exist yet; a missing directory yields an empty store. idDB backs
// netgroup-membership matching and may be nil, in which case netgroup
// identity patterns never match.
func NewStore(dir, suffix string, idDB identity.Directory, logger *slog.Logger) *Store {
	return &Store{dir: dir, suffix: suffix, idDB: idDB, logger: logger}
}

// Dir returns the directory the store is bound to.
func (s *Store) Dir() string { return s.dir }

// Reload discards the parsed entries; the next Lookup re-reads the
// directory.
func (s *Store) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.entries = nil
}

// Lookup scans the store's entries in order for ones matching the identity
// and action, returning the tri-state result of the last match. A nil
// identity performs a default-entry lookup: only entries whose identity
// list contains the literal "*" apply. The details argument is accepted for
// interface compatibility and not consulted; rule files carry no
// detail-matching syntax.
func (s *Store) Lookup(id *identity.Identity, actionID string, details map[string]string) (authorization.TriState, bool) {
	s.mu.Lock()
	if !s.loaded {
		s.entries = s.load()
		s.loaded = true
	}
	entries := s.entries
	s.mu.Unlock()

	var (
		result authorization.TriState
		found  bool
	)
	for _, e := range entries {
		if !s.matchesIdentity(e, id) || !matchAny(e.actionGlobs, actionID) {
			continue
		}
		result = e.result
		found = true
	}
	return result, found
}

const netgroupPrefix = string(identity.KindNetgroup) + ":"

func (s *Store) matchesIdentity(e entry, id *identity.Identity) bool {
	if id == nil {
		for _, g := range e.identityGlobs {
			if g == "*" {
				return true
			}
		}
		return false
	}

	str := id.String()
	for _, g := range e.identityGlobs {
		if name, ok := strings.CutPrefix(g, netgroupPrefix); ok {
			// Netgroup entries match users by membership, never by string.
			if id.IsUser() && s.userInNetgroup(name, id.Name) {
				return true
			}
			continue
		}
		if matchOne(g, str) {
			return true
		}
	}
	return false
}

// userInNetgroup checks netgroup membership the way innetgr(3) does with
// only the user field set: an empty user field in a triple is a wildcard,
// the literal "-" matches nothing.
func (s *Store) userInNetgroup(netgroup, user string) bool {
	if s.idDB == nil || user == "" {
		return false
	}
	triples, err := s.idDB.Netgroup(netgroup)
	if err != nil {
		return false
	}
	for _, t := range triples {
		if t.User == "-" {
			continue
		}
		if t.User == user || t.User == "" {
			return true
		}
	}
	return false
}

// matchAny reports whether any glob pattern matches s.
func matchAny(globs []string, s string) bool {
	for _, g := range globs {
		if matchOne(g, s) {
			return true
		}
	}
	return false
}

// matchOne reports whether the glob pattern matches s. A malformed pattern
// degrades to exact comparison.
func matchOne(g, s string) bool {
	if ok, err := path.Match(g, s); err == nil {
		return ok
	}
	return g == s
}

// load parses every rule file in the directory, in sorted filename order.
// Unreadable or malformed files and sections contribute nothing; the rest
// of the store still works.
func (s *Store) load() []entry {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read authorization store directory", "dir", s.dir, "error", err)
		}
		return nil
	}

	var names []string
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), s.suffix) {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Strings(names)

	var entries []entry
	for _, name := range names {
		entries = append(entries, s.loadFile(filepath.Join(s.dir, name))...)
	}
	return entries
}

func (s *Store) loadFile(path string) []entry {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
	if err != nil {
		s.logger.Warn("skipping malformed rule file", "path", path, "error", err)
		return nil
	}

	var entries []entry
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		sec := f.Section(name)
		e, ok := s.parseSection(path, name, sec)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (s *Store) parseSection(path, name string, sec *ini.Section) (entry, bool) {
	e := entry{origin: path + ":" + name}

	if !sec.HasKey("Identity") {
		s.logger.Warn("rule entry is missing the Identity key", "entry", e.origin)
		return entry{}, false
	}
	if !sec.HasKey("Action") {
		s.logger.Warn("rule entry is missing the Action key", "entry", e.origin)
		return entry{}, false
	}
	e.identityGlobs = splitList(sec.Key("Identity").String())
	e.actionGlobs = splitList(sec.Key("Action").String())
	if len(e.identityGlobs) == 0 || len(e.actionGlobs) == 0 {
		s.logger.Warn("rule entry has an empty Identity or Action list", "entry", e.origin)
		return entry{}, false
	}

	for key, dst := range map[string]*authorization.Implicit{
		"ResultAny":      &e.result.Any,
		"ResultInactive": &e.result.Inactive,
		"ResultActive":   &e.result.Active,
	} {
		if !sec.HasKey(key) {
			continue
		}
		v, err := authorization.ImplicitFromString(sec.Key(key).String())
		if err != nil {
			s.logger.Warn("rule entry has a malformed result", "entry", e.origin, "key", key, "error", err)
			return entry{}, false
		}
		*dst = v
	}
	return e, true
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
