package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/firmkeeper/internal/model"
)

type registered struct {
	rule Rule
	seq  int
}

// Registry is an ordered collection of rules keyed by name.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*registered
	next   int

	// plans memoizes ExecutionOrder per type; reset by Add.
	plans map[model.EntityType][]Rule
}

// NewRegistry creates a registry holding rules in the given order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*registered),
		plans:  make(map[model.EntityType][]Rule),
	}
	for _, rule := range rules {
		if err := r.Add(rule); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add inserts rule, or replaces the rule with the same name in place.
// Cyclic dependencies are accepted; see AnalyzeCycles.
func (r *Registry) Add(rule Rule) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !rule.EntityType.Valid() {
		return fmt.Errorf("rule %s: unknown entity type %q", rule.Name, rule.EntityType)
	}
	if rule.Validate == nil {
		return fmt.Errorf("rule %s: validate function is required", rule.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[rule.Name]; ok {
		existing.rule = rule
	} else {
		r.byName[rule.Name] = &registered{rule: rule, seq: r.next}
		r.next++
	}
	r.plans = make(map[model.EntityType][]Rule)
	return nil
}

// Get returns the rule registered under name.
func (r *Registry) Get(name string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byName[name]
	if !ok {
		return Rule{}, false
	}
	return reg.rule, true
}

// All returns every rule in insertion order.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(*registered) bool { return true }, false)
}

// ForType returns the rules targeting t, priority descending. Ties keep
// insertion order.
func (r *Registry) ForType(t model.EntityType) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.forTypeLocked(t)
}

func (r *Registry) forTypeLocked(t model.EntityType) []Rule {
	return r.sorted(func(reg *registered) bool { return reg.rule.EntityType == t }, true)
}

func (r *Registry) sorted(keep func(*registered) bool, byPriority bool) []Rule {
	regs := make([]*registered, 0, len(r.byName))
	for _, reg := range r.byName {
		if keep(reg) {
			regs = append(regs, reg)
		}
	}
	sort.Slice(regs, func(i, j int) bool {
		if byPriority && regs[i].rule.Priority != regs[j].rule.Priority {
			return regs[i].rule.Priority > regs[j].rule.Priority
		}
		return regs[i].seq < regs[j].seq
	})
	out := make([]Rule, len(regs))
	for i, reg := range regs {
		out[i] = reg.rule
	}
	return out
}

// ExecutionOrder returns the rules for t in the order they must run: a
// topological order of declared dependencies, breaking ties by priority.
// With no dependencies it equals ForType.
func (r *Registry) ExecutionOrder(t model.EntityType) []Rule {
	r.mu.RLock()
	if plan, ok := r.plans[t]; ok {
		r.mu.RUnlock()
		return plan
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if plan, ok := r.plans[t]; ok {
		return plan
	}
	plan := topologicalOrder(r.forTypeLocked(t))
	r.plans[t] = plan
	return plan
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}
