package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

// ErrKeyNotFound is returned by Source lookups when no configuration
// fragment carries the requested key. Callers treat it as "not configured",
// not as a failure.
var ErrKeyNotFound = errors.New("configuration key not found")

// Source reads a directory of key-file configuration fragments the way
// pklocalauthority(8) does: every *.conf file, in sorted filename order,
// with values from later files overriding earlier ones. Nothing is cached;
// each lookup re-reads the directory so configuration edits take effect
// immediately.
type Source struct {
	dir    string
	logger *slog.Logger
}

// NewSource creates a config source for the given directory.
func NewSource(dir string, logger *slog.Logger) *Source {
	return &Source{dir: dir, logger: logger}
}

// Dir returns the fragment directory.
func (s *Source) Dir() string { return s.dir }

// StringList returns the ;-separated string list stored under
// [section] key. Returns ErrKeyNotFound when no fragment defines the key.
func (s *Source) StringList(section, key string) ([]string, error) {
	value, err := s.value(section, key)
	if err != nil {
		return nil, err
	}
	return SplitPaths(value), nil
}

// value merges all fragments and returns the winning raw value for the key.
func (s *Source) value(section, key string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("failed to read config directory %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".conf") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	found := false
	var value string
	for _, name := range names {
		path := s.dir + "/" + name
		// Inline comments are disabled: values are ;-separated lists and a
		// bare ; must not start a comment.
		f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, path)
		if err != nil {
			s.logger.Warn("skipping malformed config fragment", "path", path, "error", err)
			continue
		}
		sec, err := f.GetSection(section)
		if err != nil {
			continue
		}
		if !sec.HasKey(key) {
			continue
		}
		value = sec.Key(key).String()
		found = true
	}

	if !found {
		return "", fmt.Errorf("%w: [%s] %s in %s", ErrKeyNotFound, section, key, s.dir)
	}
	return value, nil
}
