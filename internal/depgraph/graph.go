// Package depgraph builds the directed dependency graph over changes and
// collapses it into an acyclic condensation of atomic groups.
//
// Cycles among changes are real and expected (mutual recursion). They are
// represented as explicit atomic groups produced once by SCC collapse; the
// rest of the pipeline only ever sees the acyclic condensed graph.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/patchforge/patchforge/internal/models"
)

// Graph is the condensed dependency graph for one run. Nodes of the
// condensation are atomic groups; every query the splitter needs
// (membership, group edges, reachability) is answered here.
type Graph struct {
	changes []*models.Change
	edges   []models.Dependency
	index   map[string]int // change id -> position in original order
	groups  []models.AtomicGroup
	groupOf map[string]int     // change id -> group id
	succ    [][]int            // group id -> distinct successor group ids (deps it points at)
	edgeMax map[[2]int]float64 // strongest change-level edge between two groups
	closure []bitset           // reachability over groups, including indirect
}

// Build constructs the graph from changes and resolved edges.
//
// Atomic groups come from two sources, folded into one SCC pass: real
// dependency cycles, and strength-1.0 edges whose endpoints must
// co-locate. The 1.0 edges are walked in both directions during SCC, so
// any cycle they induce through weaker edges still collapses, keeping the
// condensation acyclic.
func Build(changes []*models.Change, edges []models.Dependency) *Graph {
	g := &Graph{
		changes: changes,
		edges:   edges,
		index:   make(map[string]int, len(changes)),
		groupOf: make(map[string]int, len(changes)),
		edgeMax: make(map[[2]int]float64),
	}
	for i, c := range changes {
		g.index[c.ID] = i
	}

	n := len(changes)
	adj := make([][]int, n)
	addArc := func(from, to int) {
		adj[from] = append(adj[from], to)
	}
	for _, e := range edges {
		src, okS := g.index[e.Source]
		tgt, okT := g.index[e.Target]
		if !okS || !okT || src == tgt {
			continue
		}
		addArc(src, tgt)
		if e.Strength >= 1.0 {
			addArc(tgt, src) // co-location: mutually reachable by construction
		}
	}

	comp := tarjanSCC(n, adj)

	// Assign group ids in ascending order of each group's first change, so
	// ids are stable across runs on identical input.
	members := make(map[int][]int)
	for node, c := range comp {
		members[c] = append(members[c], node)
	}
	type rawGroup struct {
		first int
		nodes []int
	}
	raws := make([]rawGroup, 0, len(members))
	for _, nodes := range members {
		sort.Ints(nodes)
		raws = append(raws, rawGroup{first: nodes[0], nodes: nodes})
	}
	sort.Slice(raws, func(i, j int) bool { return raws[i].first < raws[j].first })

	for gid, raw := range raws {
		ids := make([]string, len(raw.nodes))
		for i, node := range raw.nodes {
			ids[i] = changes[node].ID
			g.groupOf[changes[node].ID] = gid
		}
		reason := "independent change"
		if len(ids) > 1 {
			reason = fmt.Sprintf("%d mutually dependent changes", len(ids))
		}
		g.groups = append(g.groups, models.AtomicGroup{
			ID:      gid,
			Changes: ids,
			Reason:  reason,
		})
	}

	// Condensed edges over the original (non-augmented) dependencies
	g.succ = make([][]int, len(g.groups))
	seen := make(map[[2]int]bool)
	for _, e := range edges {
		srcIdx, okS := g.index[e.Source]
		tgtIdx, okT := g.index[e.Target]
		if !okS || !okT {
			continue
		}
		from := g.groupOf[changes[srcIdx].ID]
		to := g.groupOf[changes[tgtIdx].ID]
		if from == to {
			continue
		}
		key := [2]int{from, to}
		if e.Strength > g.edgeMax[key] {
			g.edgeMax[key] = e.Strength
		}
		if !seen[key] {
			seen[key] = true
			g.succ[from] = append(g.succ[from], to)
		}
	}
	for _, s := range g.succ {
		sort.Ints(s)
	}

	g.computeClosure()
	return g
}

// Groups returns the atomic groups; they partition the change set.
func (g *Graph) Groups() []models.AtomicGroup {
	return g.groups
}

// GroupByID returns a single atomic group by id
func (g *Graph) GroupByID(id int) models.AtomicGroup {
	return g.groups[id]
}

// GroupOf returns the atomic group id owning a change
func (g *Graph) GroupOf(changeID string) int {
	return g.groupOf[changeID]
}

// Edges returns the change-level dependency edges the graph was built from
func (g *Graph) Edges() []models.Dependency {
	return g.edges
}

// Successors returns the groups this group depends on (points at)
func (g *Graph) Successors(group int) []int {
	return g.succ[group]
}

// EdgeStrength returns the strongest change-level edge from one group to
// another, 0 when no edge exists.
func (g *Graph) EdgeStrength(from, to int) float64 {
	return g.edgeMax[[2]int{from, to}]
}

// Reaches reports whether from transitively depends on to. O(1) after the
// closure precomputation.
func (g *Graph) Reaches(from, to int) bool {
	if from == to {
		return true
	}
	return g.closure[from].has(to)
}

// computeClosure fills the reachability bitsets by propagating successor
// sets in reverse topological order. The condensation is acyclic, so a
// single pass suffices.
func (g *Graph) computeClosure() {
	n := len(g.groups)
	g.closure = make([]bitset, n)
	for i := range g.closure {
		g.closure[i] = newBitset(n)
	}

	for _, gid := range g.topoOrder() {
		for _, s := range g.succ[gid] {
			g.closure[gid].set(s)
			g.closure[gid].or(g.closure[s])
		}
	}
}

// topoOrder returns group ids so that every successor precedes its
// predecessors (reverse topological over the dependency direction).
func (g *Graph) topoOrder() []int {
	n := len(g.groups)
	state := make([]int, n) // 0 unvisited, 1 in progress, 2 done
	order := make([]int, 0, n)

	var visit func(int)
	visit = func(u int) {
		if state[u] != 0 {
			return
		}
		state[u] = 1
		for _, v := range g.succ[u] {
			visit(v)
		}
		state[u] = 2
		order = append(order, u)
	}
	for u := 0; u < n; u++ {
		visit(u)
	}
	return order
}

// tarjanSCC computes strongly connected components; returns the component
// id per node. Iterative to keep large diffs off the call stack.
func tarjanSCC(n int, adj [][]int) []int {
	const unvisited = -1
	indexOf := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range indexOf {
		indexOf[i] = unvisited
		comp[i] = unvisited
	}

	var stack []int
	counter := 0
	compCount := 0

	type frame struct {
		node, childIdx int
	}

	for start := 0; start < n; start++ {
		if indexOf[start] != unvisited {
			continue
		}
		callStack := []frame{{start, 0}}
		indexOf[start] = counter
		lowlink[start] = counter
		counter++
		stack = append(stack, start)
		onStack[start] = true

		for len(callStack) > 0 {
			f := &callStack[len(callStack)-1]
			u := f.node

			if f.childIdx < len(adj[u]) {
				v := adj[u][f.childIdx]
				f.childIdx++
				if indexOf[v] == unvisited {
					indexOf[v] = counter
					lowlink[v] = counter
					counter++
					stack = append(stack, v)
					onStack[v] = true
					callStack = append(callStack, frame{v, 0})
				} else if onStack[v] {
					if indexOf[v] < lowlink[u] {
						lowlink[u] = indexOf[v]
					}
				}
				continue
			}

			// All children explored
			callStack = callStack[:len(callStack)-1]
			if len(callStack) > 0 {
				parent := callStack[len(callStack)-1].node
				if lowlink[u] < lowlink[parent] {
					lowlink[parent] = lowlink[u]
				}
			}
			if lowlink[u] == indexOf[u] {
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = compCount
					if w == u {
						break
					}
				}
				compCount++
			}
		}
	}

	return comp
}

// bitset is a fixed-size bit vector over group ids
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) or(other bitset) {
	for i := range b {
		b[i] |= other[i]
	}
}
