// Package dag builds the prompt import graph, orders it topologically,
// detects cycles and output conflicts, and computes regeneration closures,
// per spec.md §4.3. The construction follows the same Kahn's-algorithm
// shape as Soochol-Upal's internal/dag package: adjacency maps built from
// declared edges, then a lexicographically-ordered queue drain so ties are
// broken deterministically.
package dag

import (
	"fmt"
	"sort"

	"github.com/clintonboys/lit/internal/promptfile"
)

// Node is one prompt's place in the graph.
type Node struct {
	Path     string
	Outputs  []string
	Imports  []string // forward edges: prompts this one depends on
	Dependents []string // reverse edges: prompts that depend on this one
}

// DAG is the prompt import graph.
type DAG struct {
	nodes map[string]*Node
	// topoOrder is upstream-first: for every edge A -> B (A imported by B,
	// i.e. B depends on A), A appears before B.
	topoOrder []string
}

// CycleError reports a detected import cycle with a concrete witness path.
type CycleError struct {
	Witness []string
}

func (e *CycleError) Error() string {
	s := ""
	for i, p := range e.Witness {
		if i > 0 {
			s += " → "
		}
		s += p
	}
	return fmt.Sprintf("Cycle: %s", s)
}

// OutputConflictError reports an output path claimed by more than one prompt.
type OutputConflictError struct {
	Path      string
	Claimants []string
}

func (e *OutputConflictError) Error() string {
	return fmt.Sprintf("OutputConflict: %q claimed by %v", e.Path, e.Claimants)
}

// Build constructs the DAG from a set of parsed prompts.
func Build(prompts []*promptfile.Prompt) (*DAG, error) {
	d := &DAG{nodes: make(map[string]*Node, len(prompts))}

	for _, p := range prompts {
		d.nodes[p.Path] = &Node{
			Path:    p.Path,
			Outputs: append([]string(nil), p.Outputs...),
			Imports: append([]string(nil), p.Imports...),
		}
	}

	// Reverse edges (dependents): for each prompt B importing A, A gains B
	// as a dependent.
	for _, n := range d.nodes {
		for _, imp := range n.Imports {
			target, ok := d.nodes[imp]
			if !ok {
				return nil, fmt.Errorf("prompt %s imports unknown node %q", n.Path, imp)
			}
			target.Dependents = append(target.Dependents, n.Path)
		}
	}
	for _, n := range d.nodes {
		sort.Strings(n.Dependents)
	}

	if err := d.checkOutputConflicts(); err != nil {
		return nil, err
	}

	order, err := d.topoSort()
	if err != nil {
		return nil, err
	}
	d.topoOrder = order

	return d, nil
}

func (d *DAG) checkOutputConflicts() error {
	claimants := make(map[string][]string)
	for _, n := range d.nodes {
		for _, out := range n.Outputs {
			claimants[out] = append(claimants[out], n.Path)
		}
	}
	var conflicted []string
	for out, owners := range claimants {
		if len(owners) > 1 {
			conflicted = append(conflicted, out)
		}
	}
	if len(conflicted) == 0 {
		return nil
	}
	sort.Strings(conflicted)
	first := conflicted[0]
	owners := append([]string(nil), claimants[first]...)
	sort.Strings(owners)
	return &OutputConflictError{Path: first, Claimants: owners}
}

// topoSort runs Kahn's algorithm with a lexicographically-sorted frontier,
// so that within any level, ties are broken by prompt path — matching
// spec.md §4.3's "Ordering within a level is by lexicographic prompt path".
func (d *DAG) topoSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id, n := range d.nodes {
		inDegree[id] = len(n.Imports)
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, dep := range d.nodes[id].Dependents {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
		sort.Strings(queue)
	}

	if len(order) != len(d.nodes) {
		return nil, &CycleError{Witness: d.findCycleWitness()}
	}
	return order, nil
}

// findCycleWitness locates one concrete cycle by DFS, for use in the
// Cycle error once Kahn's algorithm has determined a cycle exists.
func (d *DAG) findCycleWitness() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(d.nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range d.nodes[id].Dependents {
			switch color[dep] {
			case white:
				if w := visit(dep); w != nil {
					return w
				}
			case gray:
				// Found the back-edge id -> dep; extract the cycle from
				// the stack starting at dep.
				for i, s := range stack {
					if s == dep {
						cyc := append([]string(nil), stack[i:]...)
						return append(cyc, dep)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if w := visit(id); w != nil {
				return w
			}
		}
	}
	return nil
}

// TopologicalOrder returns the upstream-first topological order of all
// prompts in the DAG.
func (d *DAG) TopologicalOrder() []string {
	return d.topoOrder
}

// Node returns the node for a prompt path, or nil if absent.
func (d *DAG) Node(path string) *Node {
	return d.nodes[path]
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Nodes returns every node in topological order, for callers that need a
// full snapshot of the graph (e.g. the generation record).
func (d *DAG) Nodes() []*Node {
	out := make([]*Node, 0, len(d.topoOrder))
	for _, id := range d.topoOrder {
		out = append(out, d.nodes[id])
	}
	return out
}

// RegenerationSet computes the transitive downstream closure of changed,
// union changed itself, per spec.md §4.3: a forward-BFS over reverse
// edges (dependents) starting at the changed set.
func (d *DAG) RegenerationSet(changed []string) map[string]bool {
	set := make(map[string]bool, len(changed))
	var queue []string
	for _, c := range changed {
		if !set[c] {
			set[c] = true
			queue = append(queue, c)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := d.nodes[id]
		if !ok {
			continue
		}
		for _, dep := range n.Dependents {
			if !set[dep] {
				set[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return set
}

// Levels partitions a node subset into topological levels: maximal
// antichains where every node's imports within the subset have already
// appeared in an earlier level. Each level is itself lexicographically
// ordered, matching spec.md §4.7's "a level is a maximal antichain".
func (d *DAG) Levels(subset map[string]bool) [][]string {
	remaining := make(map[string]int, len(subset))
	for id := range subset {
		n := d.nodes[id]
		count := 0
		for _, imp := range n.Imports {
			if subset[imp] {
				count++
			}
		}
		remaining[id] = count
	}

	var levels [][]string
	for len(remaining) > 0 {
		var level []string
		for id, deg := range remaining {
			if deg == 0 {
				level = append(level, id)
			}
		}
		sort.Strings(level)
		for _, id := range level {
			delete(remaining, id)
		}
		for _, id := range level {
			for _, dep := range d.nodes[id].Dependents {
				if _, ok := remaining[dep]; ok {
					remaining[dep]--
				}
			}
		}
		levels = append(levels, level)
	}
	return levels
}
