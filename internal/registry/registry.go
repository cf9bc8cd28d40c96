// Package registry owns discovery and caching of breaking-change rules.
// Rules are declared in a compile-time table of id -> factory; adding a rule
// means adding a table entry, not dropping a file into a scanned directory.
package registry

import (
	"fmt"
	"sync"
	"time"

	expirable "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/schemaflow/schemaflow/internal/events"
	"github.com/schemaflow/schemaflow/internal/rules"
	"github.com/schemaflow/schemaflow/internal/store"
	"github.com/schemaflow/schemaflow/pkg/database"
	"github.com/schemaflow/schemaflow/pkg/logger"
)

// DefaultTTL bounds how long a loaded rule set is served before factories
// run again.
const DefaultTTL = 5 * time.Minute

const cacheSize = 16

// Deps are the collaborators a rule factory may wire in. Factories take the
// whole struct and use only what they declare a need for.
type Deps struct {
	Store     store.Store
	Cache     *database.Redis
	Publisher events.Publisher
	Logger    *logger.Logger
}

// Factory constructs one rule instance with its collaborators
type Factory func(deps Deps) (rules.Rule, error)

// builtinFactories is the static rule catalog, in registration order.
var builtinFactories = []struct {
	id    string
	build Factory
}{
	{"data-type-change", func(deps Deps) (rules.Rule, error) {
		return rules.NewDataTypeChangeRule(), nil
	}},
	{"unique-constraint-addition", func(deps Deps) (rules.Rule, error) {
		return rules.NewUniqueConstraintAdditionRule(deps.Store), nil
	}},
	{"index-removal", func(deps Deps) (rules.Rule, error) {
		return rules.NewIndexRemovalRule(), nil
	}},
	{"required-addition", func(deps Deps) (rules.Rule, error) {
		return rules.NewRequiredAdditionRule(), nil
	}},
	{"property-removal", func(deps Deps) (rules.Rule, error) {
		return rules.NewPropertyRemovalRule(), nil
	}},
}

// scopeSets names which rule ids each scope loads. The default scope loads
// the full catalog.
var scopeSets = map[string][]string{
	"constraints": {"unique-constraint-addition", "required-addition"},
	"structural":  {"data-type-change", "property-removal", "index-removal"},
}

// Registry serves named collections of constructed rule instances. Loaded
// sets are cached per scope with a TTL so rule changes are picked up without
// a restart; concurrent loads may race and rebuild redundantly, which is
// safe because construction is idempotent and last-writer-wins.
type Registry struct {
	deps   Deps
	logger *logger.Logger

	cache *expirable.LRU[string, []rules.Rule]

	mu          sync.RWMutex
	custom      map[string]rules.Rule
	customOrder []string
}

// New creates a registry. A ttl of zero selects DefaultTTL.
func New(deps Deps, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		deps:   deps,
		logger: deps.Logger,
		cache:  expirable.NewLRU[string, []rules.Rule](cacheSize, nil, ttl),
		custom: make(map[string]rules.Rule),
	}
}

func (r *Registry) cacheKey(scope string) string {
	// Collaborator identity keeps sets built against different stores apart
	return fmt.Sprintf("%s|%p|%p", scope, r.deps.Store, r.deps.Cache)
}

// Load returns the rule set for a scope, constructing it when the cache has
// expired. Per-rule construction failures are logged and skipped; Load never
// fails as a whole. An empty result is an alertable signal, not an error.
func (r *Registry) Load(scope string) []rules.Rule {
	if scope == "" {
		scope = "default"
	}
	key := r.cacheKey(scope)

	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	loaded := r.build(scope)
	if len(loaded) == 0 {
		r.logger.Warnf("Rule registry loaded zero rules for scope %s", scope)
	}
	r.cache.Add(key, loaded)
	return loaded
}

func (r *Registry) build(scope string) []rules.Rule {
	wanted := func(id string) bool { return true }
	if ids, ok := scopeSets[scope]; ok {
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		wanted = func(id string) bool {
			_, ok := set[id]
			return ok
		}
	}

	seen := make(map[string]struct{})
	var loaded []rules.Rule

	for _, entry := range builtinFactories {
		if !wanted(entry.id) {
			continue
		}
		if _, dup := seen[entry.id]; dup {
			continue
		}
		rule, err := entry.build(r.deps)
		if err != nil {
			r.logger.Errorf("Failed to construct rule %s: %v", entry.id, err)
			continue
		}
		if rule.ID() != entry.id {
			r.logger.Errorf("Rule factory %s produced mismatched id %s, skipping", entry.id, rule.ID())
			continue
		}
		seen[entry.id] = struct{}{}
		loaded = append(loaded, rule)
	}

	r.mu.RLock()
	for _, id := range r.customOrder {
		if _, dup := seen[id]; dup {
			continue
		}
		if !wanted(id) && scope != "default" {
			continue
		}
		seen[id] = struct{}{}
		loaded = append(loaded, r.custom[id])
	}
	r.mu.RUnlock()

	return loaded
}

// Get returns the rule with the given id from the default scope
func (r *Registry) Get(id string) (rules.Rule, bool) {
	for _, rule := range r.Load("default") {
		if rule.ID() == id {
			return rule, true
		}
	}
	return nil, false
}

// Register adds a custom rule. Registering the same id again replaces the
// previous instance; the registry never holds two instances with one id.
func (r *Registry) Register(rule rules.Rule) {
	r.mu.Lock()
	if _, exists := r.custom[rule.ID()]; !exists {
		r.customOrder = append(r.customOrder, rule.ID())
	}
	r.custom[rule.ID()] = rule
	r.mu.Unlock()

	r.cache.Purge()
}

// Unregister removes a custom rule by id. Unknown ids are a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	if _, exists := r.custom[id]; exists {
		delete(r.custom, id)
		for i, existing := range r.customOrder {
			if existing == id {
				r.customOrder = append(r.customOrder[:i], r.customOrder[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	r.cache.Purge()
}

// Invalidate drops every cached rule set; the next Load reconstructs
func (r *Registry) Invalidate() {
	r.cache.Purge()
}
