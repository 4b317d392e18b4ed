package service

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/config"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/authorization"
	"github.com/openEuler-BaseService/polkit-pkla-compat/internal/domain/identity"
)

// DefaultAdmin is the built-in fallback admin identity. When admin identity
// resolution yields nothing (absent configuration, unparseable specifiers,
// empty expansions), the expanded listing is exactly this identity so a
// misconfiguration can never lock out all administrators.
var DefaultAdmin = identity.User(0, "root")

// Configuration key carrying the admin identity specifiers.
const (
	adminSection = "Configuration"
	adminKey     = "AdminIdentities"
)

// AuthorityConfig is the construct-only configuration of a LocalAuthority.
type AuthorityConfig struct {
	// StorePaths are the authorization store search roots in configuration
	// order.
	StorePaths []string
	// ConfigDir is the localauthority.conf.d fragment directory.
	ConfigDir string
	// CacheSize enables the decision cache when positive.
	CacheSize int
	// CacheTTL bounds the lifetime of cached decisions.
	CacheTTL time.Duration
}

// LocalAuthority is the policy decision engine: it combines OS identity
// expansion with the prioritized stack of file-backed authorization stores
// and resolves the configured admin identities. Decision calls are
// re-entrant; the registry is the only shared mutable state and is swapped
// wholesale, so an in-flight call observes either the old or the new
// registry in full.
type LocalAuthority struct {
	cfg      AuthorityConfig
	source   *config.Source
	resolver *Resolver
	dir      identity.Directory
	metrics  *Metrics
	cache    *DecisionCache
	logger   *slog.Logger

	registry atomic.Pointer[Registry]
	monitor  *Monitor

	obsMu     sync.Mutex
	observers []func()
}

var _ authorization.Authority = (*LocalAuthority)(nil)

// NewLocalAuthority creates the authority and performs the initial store
// discovery. metrics may be nil to disable recording.
func NewLocalAuthority(cfg AuthorityConfig, dir identity.Directory, metrics *Metrics, logger *slog.Logger) *LocalAuthority {
	a := &LocalAuthority{
		cfg:      cfg,
		source:   config.NewSource(cfg.ConfigDir, logger),
		resolver: NewResolver(dir, logger),
		dir:      dir,
		metrics:  metrics,
		logger:   logger,
	}
	if cfg.CacheSize > 0 {
		a.cache = NewDecisionCache(cfg.CacheSize, cfg.CacheTTL)
	}
	a.install(Discover(cfg.StorePaths, dir, logger))
	return a
}

// Snapshot returns the current registry.
func (a *LocalAuthority) Snapshot() *Registry {
	return a.registry.Load()
}

// Subscribe registers a callback invoked after every registry rebuild, so
// upstream caches can invalidate. Callbacks run on the rebuilding
// goroutine.
func (a *LocalAuthority) Subscribe(fn func()) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, fn)
}

// Rebuild purges the registry, re-runs discovery, installs the new registry
// and notifies subscribers. The swap is atomic with respect to concurrent
// decision calls.
func (a *LocalAuthority) Rebuild() {
	a.logger.Debug("purging all local authorization stores")
	a.install(Discover(a.cfg.StorePaths, a.dir, a.logger))
	if a.cache != nil {
		a.cache.Clear()
	}
	if a.metrics != nil {
		a.metrics.RegistryRebuildsTotal.Inc()
	}

	a.obsMu.Lock()
	observers := make([]func(), len(a.observers))
	copy(observers, a.observers)
	a.obsMu.Unlock()
	for _, fn := range observers {
		fn()
	}
}

func (a *LocalAuthority) install(reg *Registry) {
	a.registry.Store(reg)
	if a.metrics != nil {
		a.metrics.AuthorizationStores.Set(float64(reg.Len()))
	}
}

// StartMonitor begins watching the search roots for directory changes,
// rebuilding the registry on every change. Safe to skip for one-shot
// callers.
func (a *LocalAuthority) StartMonitor() error {
	m, err := NewMonitor(a.cfg.StorePaths, a.Rebuild, a.logger)
	if err != nil {
		return err
	}
	a.monitor = m
	return nil
}

// Close stops the change monitor, if started.
func (a *LocalAuthority) Close() error {
	if a.monitor == nil {
		return nil
	}
	return a.monitor.Close()
}

// CheckAuthorization computes the implicit authorization verdict for the
// subject and action by folding the per-store answers across three identity
// levels: the caller-supplied seed, each group of the subject, and the
// subject itself. Within each level, stores apply in registry order and a
// later non-unknown answer overwrites an earlier one; the user level
// outranks the group level, which outranks the seed. A subject with no
// matching rule anywhere gets back exactly seed.
func (a *LocalAuthority) CheckAuthorization(subject authorization.Subject, actionID string, details map[string]string, seed authorization.Implicit) authorization.Implicit {
	reqID := uuid.NewString()
	a.logger.Debug("checking authorization",
		"request_id", reqID,
		"user", subject.User.String(),
		"local", subject.IsLocal,
		"active", subject.IsActive,
		"action_id", actionID)

	var cacheKey uint64
	if a.cache != nil {
		cacheKey = decisionCacheKey(subject.User.String(), subject.IsLocal, subject.IsActive, actionID, seed)
		if verdict, ok := a.cache.Get(cacheKey); ok {
			if a.metrics != nil {
				a.metrics.CacheHitsTotal.Inc()
			}
			return verdict
		}
		if a.metrics != nil {
			a.metrics.CacheMissesTotal.Inc()
		}
	}

	snapshot := a.registry.Load()
	verdict := seed

	for _, group := range a.resolver.GroupsForUser(subject.User) {
		verdict = a.foldStores(snapshot, group, subject, actionID, details, verdict)
	}
	verdict = a.foldStores(snapshot, subject.User, subject, actionID, details, verdict)

	a.logger.Debug("authorization decided",
		"request_id", reqID,
		"action_id", actionID,
		"verdict", verdict.String())
	if a.metrics != nil {
		a.metrics.DecisionsTotal.WithLabelValues(verdict.String()).Inc()
	}
	if a.cache != nil {
		a.cache.Put(cacheKey, verdict)
	}
	return verdict
}

// foldStores runs one identity level of the fold: every store in registry
// order, overwriting the verdict on each non-unknown selected component.
func (a *LocalAuthority) foldStores(reg *Registry, id identity.Identity, subject authorization.Subject, actionID string, details map[string]string, verdict authorization.Implicit) authorization.Implicit {
	for _, store := range reg.Stores() {
		answer, ok := store.Lookup(&id, actionID, details)
		if !ok {
			continue
		}
		if selected := answer.Select(subject.IsLocal, subject.IsActive); selected != authorization.Unknown {
			verdict = selected
		}
	}
	return verdict
}

// RawAdminIdentities returns the configured admin identity specifiers,
// parsed but unexpanded, in configuration order. An absent configuration
// key yields an empty list silently: another configuration source (e.g. a
// scripted rule source) may supply admin identities instead.
func (a *LocalAuthority) RawAdminIdentities() []identity.Identity {
	specifiers, err := a.source.StringList(adminSection, adminKey)
	if err != nil {
		if errors.Is(err, config.ErrKeyNotFound) {
			a.logger.Debug("no admin identities configured", "error", err)
		} else {
			a.logger.Warn("failed to read admin identities configuration", "error", err)
		}
		return nil
	}

	var ids []identity.Identity
	for _, s := range specifiers {
		id, err := identity.FromString(s, a.dir)
		if err != nil {
			a.logger.Warn("failed to parse admin identity", "identity", s, "error", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// AdminIdentities returns the concrete user identities permitted to
// authenticate as administrator: user specifiers pass through, group and
// netgroup specifiers expand (excluding root), and an empty result defaults
// to DefaultAdmin.
func (a *LocalAuthority) AdminIdentities() []identity.Identity {
	var users []identity.Identity
	for _, id := range a.RawAdminIdentities() {
		switch {
		case id.IsUser():
			users = append(users, id)
		case id.IsGroup():
			users = append(users, a.resolver.UsersInGroup(id, false)...)
		case id.IsNetgroup():
			users = append(users, a.resolver.UsersInNetgroup(id, false)...)
		default:
			a.logger.Warn("unsupported admin identity", "identity", id.String())
		}
	}

	if len(users) == 0 {
		users = append(users, DefaultAdmin)
	}
	return users
}
