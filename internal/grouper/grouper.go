// Package grouper clusters atomic groups by semantic cohesion: file
// proximity, shared symbols, and recognizable refactor shapes.
package grouper

import (
	"sort"
	"strings"

	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/depgraph"
	"github.com/patchforge/patchforge/internal/models"
)

// Cluster is a cohesion-scored candidate set of atomic groups the splitter
// should try to keep together. Clusters are suggestions, not constraints.
type Cluster struct {
	Groups []int
	Score  float64
}

// Grouper computes pairwise cohesion and agglomerates candidate clusters.
type Grouper struct {
	cfg   config.CohesionConfig
	graph *depgraph.Graph
	nodes []*nodeInfo
}

// nodeInfo caches per-atomic-group features used in scoring
type nodeInfo struct {
	id           int
	files        map[string]bool
	symbols      map[string]bool
	addedDefs    map[string]bool // definition names added (new side)
	oldDefs      map[string]bool // definition names deleted (old side)
	addedLines   map[string]bool // normalized added lines
	deletedLines map[string]bool
	sortKey      nodeKey
}

// nodeKey is the deterministic tie-break: lowest file path, then first
// hunk's original line position.
type nodeKey struct {
	file string
	line int
}

func (k nodeKey) less(other nodeKey) bool {
	if k.file != other.file {
		return k.file < other.file
	}
	return k.line < other.line
}

// New creates a Grouper over the condensed graph
func New(cfg config.CohesionConfig, graph *depgraph.Graph, changes []*models.Change) *Grouper {
	byID := make(map[string]*models.Change, len(changes))
	for _, c := range changes {
		byID[c.ID] = c
	}

	g := &Grouper{cfg: cfg, graph: graph}
	for _, group := range graph.Groups() {
		info := &nodeInfo{
			id:           group.ID,
			files:        make(map[string]bool),
			symbols:      make(map[string]bool),
			addedDefs:    make(map[string]bool),
			oldDefs:      make(map[string]bool),
			addedLines:   make(map[string]bool),
			deletedLines: make(map[string]bool),
			sortKey:      nodeKey{file: "\xff", line: 1 << 30},
		}
		for _, id := range group.Changes {
			change := byID[id]
			if change == nil {
				continue
			}
			info.files[change.File] = true
			key := nodeKey{file: change.File, line: change.Range.OldStart}
			if key.less(info.sortKey) {
				info.sortKey = key
			}
			for _, sym := range change.Symbols {
				info.symbols[sym.Name] = true
				if sym.Role == models.RoleDefinition {
					if sym.Side == models.SideNew {
						info.addedDefs[sym.Name] = true
					} else {
						info.oldDefs[sym.Name] = true
					}
				}
			}
			collectBodyLines(change.Body, info.addedLines, info.deletedLines)
		}
		g.nodes = append(g.nodes, info)
	}

	return g
}

// Clusters runs greedy agglomeration: repeatedly merge the
// highest-cohesion pair whose union still respects the dependency partial
// order, until no pair clears the threshold. Ties break by the lowest
// file path, then line position, for determinism.
func (g *Grouper) Clusters() []Cluster {
	type workCluster struct {
		members  []int
		scoreSum float64
		merges   int
		key      nodeKey
	}

	clusters := make([]*workCluster, len(g.nodes))
	for i, n := range g.nodes {
		clusters[i] = &workCluster{members: []int{n.id}, key: n.sortKey}
	}

	for {
		bestI, bestJ := -1, -1
		bestScore := 0.0
		var bestKey nodeKey

		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				score := g.clusterCohesion(clusters[i].members, clusters[j].members)
				if score < g.cfg.Threshold {
					continue
				}
				key := clusters[i].key
				if clusters[j].key.less(key) {
					key = clusters[j].key
				}
				better := score > bestScore ||
					(score == bestScore && bestI >= 0 && key.less(bestKey))
				if !better {
					continue
				}
				if !g.mergeRespectsOrder(clusters[i].members, clusters[j].members) {
					continue
				}
				bestI, bestJ, bestScore, bestKey = i, j, score, key
			}
		}

		if bestI < 0 {
			break
		}

		a, b := clusters[bestI], clusters[bestJ]
		a.members = append(a.members, b.members...)
		sort.Ints(a.members)
		a.scoreSum += bestScore
		a.merges++
		if b.key.less(a.key) {
			a.key = b.key
		}
		clusters = append(clusters[:bestJ], clusters[bestJ+1:]...)
	}

	var out []Cluster
	for _, c := range clusters {
		if len(c.members) < 2 {
			continue
		}
		out = append(out, Cluster{
			Groups: c.members,
			Score:  c.scoreSum / float64(c.merges),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Groups[0] < out[j].Groups[0]
	})
	return out
}

// Cohesion scores one pair of atomic groups in [0,1]
func (g *Grouper) Cohesion(a, b int) float64 {
	na, nb := g.nodes[a], g.nodes[b]

	score := g.cfg.FileWeight*jaccard(na.files, nb.files) +
		g.cfg.SymbolWeight*jaccard(na.symbols, nb.symbols) +
		g.cfg.PatternWeight*g.patternScore(na, nb)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// clusterCohesion is the max pairwise cohesion across two member sets
func (g *Grouper) clusterCohesion(a, b []int) float64 {
	best := 0.0
	for _, x := range a {
		for _, y := range b {
			if s := g.Cohesion(x, y); s > best {
				best = s
			}
		}
	}
	return best
}

// mergeRespectsOrder rejects a merge when some outside group sits strictly
// between the two sides of the dependency partial order: co-locating the
// endpoints would leave no valid position for the middle group.
func (g *Grouper) mergeRespectsOrder(a, b []int) bool {
	inMerge := make(map[int]bool, len(a)+len(b))
	for _, x := range a {
		inMerge[x] = true
	}
	for _, y := range b {
		inMerge[y] = true
	}

	for _, group := range g.graph.Groups() {
		z := group.ID
		if inMerge[z] {
			continue
		}
		for _, x := range a {
			for _, y := range b {
				if (g.graph.Reaches(x, z) && g.graph.Reaches(z, y)) ||
					(g.graph.Reaches(y, z) && g.graph.Reaches(z, x)) {
					return false
				}
			}
		}
	}
	return true
}

// patternScore detects refactor shapes between two groups: a rename moves
// a definition of the same name from one file to another; an extraction
// re-creates deleted lines as a new definition elsewhere.
func (g *Grouper) patternScore(a, b *nodeInfo) float64 {
	if detectRename(a, b) || detectRename(b, a) {
		return 1.0
	}
	if detectExtraction(a, b) || detectExtraction(b, a) {
		return 1.0
	}
	return 0.0
}

// detectRename: a definition name deleted in a reappears as an added
// definition in b, in a different file.
func detectRename(a, b *nodeInfo) bool {
	for name := range a.oldDefs {
		if b.addedDefs[name] && !sharesFile(a, b) {
			return true
		}
	}
	return false
}

// detectExtraction: b's added lines closely echo lines deleted in a.
// Requires enough overlapping material to mean something.
const extractionMinLines = 3
const extractionMinOverlap = 0.6

func detectExtraction(a, b *nodeInfo) bool {
	if len(b.addedDefs) == 0 {
		return false
	}
	smaller := len(a.deletedLines)
	if len(b.addedLines) < smaller {
		smaller = len(b.addedLines)
	}
	if smaller < extractionMinLines {
		return false
	}

	overlap := 0
	for line := range b.addedLines {
		if a.deletedLines[line] {
			overlap++
		}
	}
	return float64(overlap) >= extractionMinOverlap*float64(smaller)
}

func sharesFile(a, b *nodeInfo) bool {
	for f := range a.files {
		if b.files[f] {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// collectBodyLines records normalized added and deleted lines of a hunk
func collectBodyLines(body string, added, deleted map[string]bool) {
	for _, line := range strings.Split(body, "\n") {
		if len(line) < 2 {
			continue
		}
		normalized := strings.Join(strings.Fields(line[1:]), " ")
		if normalized == "" {
			continue
		}
		switch line[0] {
		case '+':
			added[normalized] = true
		case '-':
			deleted[normalized] = true
		}
	}
}
