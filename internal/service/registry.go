package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/adapter/outbound/pkla"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/authorization"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// RuleFileSuffix is the suffix of rule files inside a store directory.
const RuleFileSuffix = ".pkla"

// Registry is an immutable, ordered sequence of authorization stores. The
// order is the application order of the decision fold: when two stores both
// match, the later one wins. Rebuilding replaces the whole registry; a
// decision call in flight keeps using the snapshot it started with.
type Registry struct {
	stores []authorization.Store
	dirs   []string
}

// Stores returns the stores in application order. Callers must not mutate
// the returned slice.
func (r *Registry) Stores() []authorization.Store { return r.stores }

// Dirs returns the store directories in application order.
func (r *Registry) Dirs() []string { return r.dirs }

// Len returns the number of stores.
func (r *Registry) Len() int { return len(r.stores) }

// discoveredDir is a store directory with its precedence key.
type discoveredDir struct {
	// name is the subdirectory name, the primary sort key.
	name string
	// rootIndex is the index of the search root the directory came from,
	// the secondary sort key. Among same-named directories the one from the
	// later-configured root sorts later and therefore wins the fold.
	rootIndex int
	path      string
}

// Discover enumerates the immediate children of every search root and
// builds a registry with one store per subdirectory, sorted by the
// (name, rootIndex) precedence key. Entries that are not directories are
// ignored; a root that cannot be enumerated is logged and skipped without
// aborting discovery of the other roots. dir backs the stores'
// netgroup-membership matching.
func Discover(roots []string, dir identity.Directory, logger *slog.Logger) *Registry {
	var dirs []discoveredDir
	for i, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			logger.Warn("failed to enumerate authorization store root", "root", root, "error", err)
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dirs = append(dirs, discoveredDir{
				name:      e.Name(),
				rootIndex: i,
				path:      filepath.Join(root, e.Name()),
			})
		}
	}

	sort.Slice(dirs, func(i, j int) bool {
		if dirs[i].name != dirs[j].name {
			return dirs[i].name < dirs[j].name
		}
		return dirs[i].rootIndex < dirs[j].rootIndex
	})

	reg := &Registry{}
	for _, d := range dirs {
		logger.Debug("added local authorization store", "dir", d.path)
		reg.stores = append(reg.stores, pkla.NewStore(d.path, RuleFileSuffix, dir, logger))
		reg.dirs = append(reg.dirs, d.path)
	}
	return reg
}
