package rules

import (
	"fmt"
	"strings"

	"github.com/roach88/firmkeeper/internal/model"
)

// DependencyWarning describes a problem with declared rule dependencies.
//
// Warnings never block registration: a cyclic rule still runs, in priority
// order after the acyclic part of its type's plan.
type DependencyWarning struct {
	EntityType model.EntityType `json:"entityType"`
	Path       []string         `json:"path"`    // ["rule-a", "rule-b", "rule-a"]
	Message    string           `json:"message"` // human-readable description
	Level      string           `json:"level"`   // "warning" or "info"
}

// dependencyGraph maps rule name → names of same-type rules it depends on.
type dependencyGraph map[string][]string

// buildDependencyGraph constructs the graph for rules of a single type.
// Dependencies on rules outside the set are dropped; duplicates are removed.
func buildDependencyGraph(rules []Rule) dependencyGraph {
	known := make(map[string]bool, len(rules))
	for _, rule := range rules {
		known[rule.Name] = true
	}

	graph := make(dependencyGraph, len(rules))
	for _, rule := range rules {
		seen := make(map[string]bool, len(rule.Dependencies))
		edges := []string{}
		for _, dep := range rule.Dependencies {
			if !known[dep] || seen[dep] {
				continue
			}
			seen[dep] = true
			edges = append(edges, dep)
		}
		graph[rule.Name] = edges
	}
	return graph
}

// topologicalOrder orders rules so each runs after its dependencies.
// rules must already be in priority order; among ready rules the earliest
// in that order is taken. Rules that can never become ready (cycles) are
// appended in priority order.
func topologicalOrder(rules []Rule) []Rule {
	graph := buildDependencyGraph(rules)

	pending := make(map[string]int, len(rules))
	dependents := make(map[string][]string, len(rules))
	for _, rule := range rules {
		for _, dep := range graph[rule.Name] {
			pending[rule.Name]++
			dependents[dep] = append(dependents[dep], rule.Name)
		}
	}

	done := make([]bool, len(rules))
	order := make([]Rule, 0, len(rules))
	for {
		picked := -1
		for i, rule := range rules {
			if !done[i] && pending[rule.Name] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			break
		}
		done[picked] = true
		order = append(order, rules[picked])
		for _, dependent := range dependents[rules[picked].Name] {
			pending[dependent]--
		}
	}

	for i, rule := range rules {
		if !done[i] {
			order = append(order, rule)
		}
	}
	return order
}

// AnalyzeCycles reports dependency cycles and unresolved dependencies.
//
// The algorithm, per entity type:
//  1. Build rule → dependency graph from declared dependencies
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle warning
//
// Dependencies naming unknown rules, or rules of another type, are reported
// at info level.
func AnalyzeCycles(all []Rule) []DependencyWarning {
	warnings := []DependencyWarning{}

	typeOf := make(map[string]model.EntityType, len(all))
	for _, rule := range all {
		typeOf[rule.Name] = rule.EntityType
	}
	for _, rule := range all {
		for _, dep := range rule.Dependencies {
			depType, ok := typeOf[dep]
			switch {
			case !ok:
				warnings = append(warnings, DependencyWarning{
					EntityType: rule.EntityType,
					Path:       []string{rule.Name, dep},
					Message:    fmt.Sprintf("rule %s depends on unknown rule %s", rule.Name, dep),
					Level:      "info",
				})
			case depType != rule.EntityType:
				warnings = append(warnings, DependencyWarning{
					EntityType: rule.EntityType,
					Path:       []string{rule.Name, dep},
					Message:    fmt.Sprintf("rule %s depends on %s rule %s; cross-type dependencies are ignored", rule.Name, depType, dep),
					Level:      "info",
				})
			}
		}
	}

	for _, t := range model.AllEntityTypes {
		var rules []Rule
		for _, rule := range all {
			if rule.EntityType == t {
				rules = append(rules, rule)
			}
		}
		if len(rules) == 0 {
			continue
		}

		nodes := make([]string, len(rules))
		for i, rule := range rules {
			nodes[i] = rule.Name
		}
		graph := buildDependencyGraph(rules)

		for _, scc := range tarjanSCC(nodes, graph) {
			if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
				warnings = append(warnings, cycleSCCToWarning(t, scc, graph))
			}
		}
	}

	return warnings
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in the given order so results are deterministic.
func tarjanSCC(nodes []string, graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(t model.EntityType, scc []string, graph dependencyGraph) DependencyWarning {
	if len(scc) == 1 {
		name := scc[0]
		return DependencyWarning{
			EntityType: t,
			Path:       []string{name, name},
			Message:    fmt.Sprintf("rule depends on itself: %s → %s", name, name),
			Level:      "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return DependencyWarning{
		EntityType: t,
		Path:       path,
		Message:    fmt.Sprintf("dependency cycle detected: %s", strings.Join(path, " → ")),
		Level:      "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first member
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
