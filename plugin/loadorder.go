package plugin

import (
	"fmt"
	"sort"
)

// ErrCyclicDependency is returned by TopoSort when the manifests' declared
// dependencies form a cycle.
type ErrCyclicDependency struct {
	Remaining []string
}

func (e *ErrCyclicDependency) Error() string {
	return fmt.Sprintf("plugin: cyclic dependency among %v", e.Remaining)
}

// TopoSort orders manifests by declared dependency (a plugin loads after
// everything it depends on), with commonPluginName forced first among any
// plugins that (transitively) depend on it -- the common plugin owns
// NGX/DRS/frame-core state every other plugin's begin/end path reads
// through the tag store and constants store, so it must already be loaded
// before a dependent's slOnPluginStartup runs.
func TopoSort(manifests map[string]Manifest, commonPluginName string) ([]string, error) {
	indegree := make(map[string]int, len(manifests))
	dependents := make(map[string][]string, len(manifests))
	for name := range manifests {
		indegree[name] = 0
	}
	for name, m := range manifests {
		for _, dep := range m.Dependencies {
			if _, ok := manifests[dep]; !ok {
				continue // dependency not present among discovered plugins; ignored
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	if _, ok := manifests[commonPluginName]; ok && indegree[commonPluginName] == 0 {
		ready = append(ready, commonPluginName)
	}
	var roots []string
	for name := range manifests {
		if name == commonPluginName {
			continue
		}
		if indegree[name] == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	ready = append(ready, roots...)
	for _, ds := range dependents {
		sort.Strings(ds)
	}

	order := make([]string, 0, len(manifests))
	visited := make(map[string]bool, len(manifests))
	for len(ready) > 0 {
		// Pop in a stable, deterministic order: the common plugin (placed
		// first above when it has no in-edges), then the other roots in
		// lexical order, then dependents as they become ready, each
		// plugin's dependents taken in lexical order.
		next := ready[0]
		ready = ready[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(manifests) {
		var remaining []string
		for name := range manifests {
			if !visited[name] {
				remaining = append(remaining, name)
			}
		}
		return nil, &ErrCyclicDependency{Remaining: remaining}
	}
	return order, nil
}
