// Package splitter assembles atomic groups into ordered patches of
// roughly uniform size, honoring the dependency partial order.
package splitter

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/depgraph"
	"github.com/patchforge/patchforge/internal/grouper"
	"github.com/patchforge/patchforge/internal/models"
)

// Splitter merges atomic groups into patch buckets and orders them.
type Splitter struct {
	cfg     config.SplitConfig
	graph   *depgraph.Graph
	changes map[string]*models.Change
}

func New(cfg config.SplitConfig, graph *depgraph.Graph, changes []*models.Change) *Splitter {
	byID := make(map[string]*models.Change, len(changes))
	for _, c := range changes {
		byID[c.ID] = c
	}
	return &Splitter{cfg: cfg, graph: graph, changes: byID}
}

// bucket is a patch under construction
type bucket struct {
	groups []int
	size   int
	key    bucketKey
}

type bucketKey struct {
	file string
	line int
}

func (k bucketKey) less(other bucketKey) bool {
	if k.file != other.file {
		return k.file < other.file
	}
	return k.line < other.line
}

// Split produces the final ordered patch list plus advisory warnings.
func (s *Splitter) Split(clusters []grouper.Cluster) ([]*models.Patch, []string, error) {
	var warnings []string

	maxSize := int(float64(s.cfg.TargetSize) * s.cfg.MaxFactor)
	minSize := int(float64(s.cfg.TargetSize) * s.cfg.MinFactor)

	buckets, groupBucket := s.seed(&warnings, maxSize)

	// Strongest dependency edges merge first so tightly coupled changes
	// land in the same patch whenever size permits.
	s.mergeByDependency(buckets, groupBucket, maxSize)

	// Cohesion clusters are softer suggestions, applied next.
	s.mergeByCohesion(buckets, groupBucket, clusters, maxSize)

	// Fold undersized buckets into a compatible neighbor.
	s.mergeUndersized(buckets, groupBucket, minSize, maxSize)

	live := compact(buckets)

	if s.cfg.MaxPatches > 0 && len(live) > s.cfg.MaxPatches {
		live = s.coalesceToLimit(live, groupBucket, &warnings)
	}

	ordered, err := s.order(live)
	if err != nil {
		return nil, warnings, err
	}

	patches := s.build(ordered, &warnings)
	return patches, warnings, nil
}

// seed creates one bucket per atomic group. A group already past the size
// ceiling cannot be split, so it stays whole and gets flagged.
func (s *Splitter) seed(warnings *[]string, maxSize int) ([]*bucket, []int) {
	groups := s.graph.Groups()
	buckets := make([]*bucket, len(groups))
	groupBucket := make([]int, len(groups))

	for _, g := range groups {
		b := &bucket{groups: []int{g.ID}, key: bucketKey{file: "\xff", line: 1 << 30}}
		for _, id := range g.Changes {
			change := s.changes[id]
			if change == nil {
				continue
			}
			b.size += change.SizeLines()
			k := bucketKey{file: change.File, line: change.Range.OldStart}
			if k.less(b.key) {
				b.key = k
			}
		}
		if b.size > maxSize {
			*warnings = append(*warnings, fmt.Sprintf(
				"atomic group at %s:%d spans %d changed lines, above the %d line ceiling; kept whole",
				b.key.file, b.key.line, b.size, maxSize))
		}
		buckets[g.ID] = b
		groupBucket[g.ID] = g.ID
	}
	return buckets, groupBucket
}

// depEdge is an inter-group dependency candidate for merging
type depEdge struct {
	from, to int
	strength float64
}

func (s *Splitter) mergeByDependency(buckets []*bucket, groupBucket []int, maxSize int) {
	var edges []depEdge
	for _, g := range s.graph.Groups() {
		for _, succ := range s.graph.Successors(g.ID) {
			edges = append(edges, depEdge{
				from:     g.ID,
				to:       succ,
				strength: s.graph.EdgeStrength(g.ID, succ),
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].strength != edges[j].strength {
			return edges[i].strength > edges[j].strength
		}
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})

	for _, e := range edges {
		s.tryMerge(buckets, groupBucket, e.from, e.to, maxSize)
	}
}

func (s *Splitter) mergeByCohesion(buckets []*bucket, groupBucket []int, clusters []grouper.Cluster, maxSize int) {
	for _, cluster := range clusters {
		anchor := cluster.Groups[0]
		for _, g := range cluster.Groups[1:] {
			s.tryMerge(buckets, groupBucket, anchor, g, maxSize)
		}
	}
}

func (s *Splitter) mergeUndersized(buckets []*bucket, groupBucket []int, minSize, maxSize int) {
	for {
		merged := false
		for _, b := range compact(buckets) {
			if b.size >= minSize {
				continue
			}
			target := s.bestNeighbor(buckets, groupBucket, b, maxSize)
			if target < 0 {
				continue
			}
			if s.tryMerge(buckets, groupBucket, b.groups[0], target, maxSize) {
				merged = true
				break
			}
		}
		if !merged {
			return
		}
	}
}

// bestNeighbor finds the smallest dependency-linked bucket the undersized
// bucket could join without breaching the ceiling.
func (s *Splitter) bestNeighbor(buckets []*bucket, groupBucket []int, b *bucket, maxSize int) int {
	best := -1
	bestSize := maxSize + 1
	consider := func(other int) {
		ob := buckets[find(groupBucket, other)]
		if ob == nil || sameBucket(groupBucket, b.groups[0], other) {
			return
		}
		if b.size+ob.size > maxSize {
			return
		}
		if ob.size < bestSize || (ob.size == bestSize && best >= 0 && ob.key.less(buckets[find(groupBucket, best)].key)) {
			best, bestSize = other, ob.size
		}
	}
	for _, g := range b.groups {
		for _, succ := range s.graph.Successors(g) {
			consider(succ)
		}
	}
	for _, other := range allGroups(groupBucket) {
		for _, succ := range s.graph.Successors(other) {
			if sameBucket(groupBucket, b.groups[0], succ) {
				consider(other)
			}
		}
	}
	return best
}

// coalesceToLimit keeps merging the two smallest order-compatible buckets
// until the patch count fits the configured cap. The size ceiling yields
// here; the cap is explicit user intent.
func (s *Splitter) coalesceToLimit(live []*bucket, groupBucket []int, warnings *[]string) []*bucket {
	count := len(live)
	for count > s.cfg.MaxPatches {
		sort.Slice(live, func(i, j int) bool {
			if live[i].size != live[j].size {
				return live[i].size < live[j].size
			}
			return live[i].key.less(live[j].key)
		})
		merged := false
		for i := 0; i < len(live) && !merged; i++ {
			for j := i + 1; j < len(live); j++ {
				if s.tryMerge(nil, groupBucket, live[i].groups[0], live[j].groups[0], 1<<30) {
					live[i].groups = append(live[i].groups, live[j].groups...)
					live[i].size += live[j].size
					if live[j].key.less(live[i].key) {
						live[i].key = live[j].key
					}
					live = append(live[:j], live[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			*warnings = append(*warnings, fmt.Sprintf(
				"dependency order prevents reducing below %d patches; max-patches=%d not met", count, s.cfg.MaxPatches))
			return live
		}
		count--
	}
	return live
}

// tryMerge unions the buckets holding groups a and b when size and the
// partial order allow it. Passing nil buckets skips the bookkeeping merge
// and only updates membership.
func (s *Splitter) tryMerge(buckets []*bucket, groupBucket []int, a, b int, maxSize int) bool {
	ra, rb := find(groupBucket, a), find(groupBucket, b)
	if ra == rb {
		return false
	}
	if buckets != nil {
		ba, bb := buckets[ra], buckets[rb]
		if ba.size+bb.size > maxSize {
			return false
		}
		if !s.orderCompatible(groupBucket, ba.groups, bb.groups) {
			return false
		}
		ba.groups = append(ba.groups, bb.groups...)
		ba.size += bb.size
		if bb.key.less(ba.key) {
			ba.key = bb.key
		}
		buckets[rb] = nil
	} else {
		var ga, gb []int
		for g := range groupBucket {
			switch find(groupBucket, g) {
			case ra:
				ga = append(ga, g)
			case rb:
				gb = append(gb, g)
			}
		}
		if !s.orderCompatible(groupBucket, ga, gb) {
			return false
		}
	}
	groupBucket[rb] = ra
	return true
}

// orderCompatible rejects a merge when a third bucket lies strictly
// between the two sides: the merged patch could then neither precede nor
// follow it.
func (s *Splitter) orderCompatible(groupBucket []int, a, b []int) bool {
	ra := find(groupBucket, a[0])
	for _, z := range allGroups(groupBucket) {
		rz := find(groupBucket, z)
		if rz == ra || rz == find(groupBucket, b[0]) {
			continue
		}
		for _, x := range a {
			for _, y := range b {
				if (s.graph.Reaches(x, z) && s.graph.Reaches(z, y)) ||
					(s.graph.Reaches(y, z) && s.graph.Reaches(z, x)) {
					return false
				}
			}
		}
	}
	return true
}

// order runs Kahn's algorithm over bucket dependencies. A bucket is ready
// once every bucket it depends on has been emitted; ties break on the
// lowest file path, then line. The group-level condensation is acyclic,
// and merges preserve that, so a stall here is an internal error.
func (s *Splitter) order(live []*bucket) ([]*bucket, error) {
	index := make(map[int]int) // group id -> live index
	for i, b := range live {
		for _, g := range b.groups {
			index[g] = i
		}
	}

	// pending[i] = distinct buckets i still depends on
	pending := make([]map[int]bool, len(live))
	dependents := make([]map[int]bool, len(live))
	for i := range live {
		pending[i] = make(map[int]bool)
		dependents[i] = make(map[int]bool)
	}
	for i, b := range live {
		for _, g := range b.groups {
			for _, succ := range s.graph.Successors(g) {
				j := index[succ]
				if j != i {
					pending[i][j] = true
					dependents[j][i] = true
				}
			}
		}
	}

	emitted := make([]bool, len(live))
	var ordered []*bucket
	for len(ordered) < len(live) {
		pick := -1
		for i := range live {
			if emitted[i] || len(pending[i]) > 0 {
				continue
			}
			if pick < 0 || live[i].key.less(live[pick].key) {
				pick = i
			}
		}
		if pick < 0 {
			return nil, fmt.Errorf("patch ordering stalled with %d of %d patches placed", len(ordered), len(live))
		}
		emitted[pick] = true
		ordered = append(ordered, live[pick])
		for dep := range dependents[pick] {
			delete(pending[dep], pick)
		}
	}
	return ordered, nil
}

// build materializes patches from ordered buckets: sequential zero-based
// ids, dependsOn links, intra-patch change ordering, and generated names.
func (s *Splitter) build(ordered []*bucket, warnings *[]string) []*models.Patch {
	patchOf := make(map[int]int) // group id -> patch id
	for i, b := range ordered {
		for _, g := range b.groups {
			patchOf[g] = i
		}
	}

	patches := make([]*models.Patch, 0, len(ordered))
	for i, b := range ordered {
		id := i

		var changes []*models.Change
		for _, g := range b.groups {
			for _, cid := range s.graph.GroupByID(g).Changes {
				if c := s.changes[cid]; c != nil {
					changes = append(changes, c)
				}
			}
		}
		changes = s.orderChanges(id, changes, warnings)

		deps := make(map[int]bool)
		for _, g := range b.groups {
			for _, succ := range s.graph.Successors(g) {
				if p := patchOf[succ]; p != id {
					deps[p] = true
				}
			}
		}
		dependsOn := keysSorted(deps)

		size := 0
		fileSet := make(map[string]bool)
		var patchWarnings []string
		for _, c := range changes {
			size += c.SizeLines()
			fileSet[c.File] = true
			patchWarnings = append(patchWarnings, c.Warnings...)
		}
		files := keysSortedStr(fileSet)

		patches = append(patches, &models.Patch{
			ID:          id,
			Name:        patchName(id, files),
			Description: patchDescription(changes, files),
			Changes:     changes,
			DependsOn:   dependsOn,
			SizeLines:   size,
			Files:       files,
			Warnings:    patchWarnings,
		})
	}
	return patches
}

// orderChanges sorts a patch's changes file-first: files in dependency
// order where intra-patch edges point across files, then by original line
// within each file. A file cycle breaks at the lowest path.
func (s *Splitter) orderChanges(patchID int, changes []*models.Change, warnings *[]string) []*models.Change {
	files := make(map[string][]*models.Change)
	for _, c := range changes {
		files[c.File] = append(files[c.File], c)
	}
	inPatch := make(map[string]string, len(changes)) // change id -> file
	for _, c := range changes {
		inPatch[c.ID] = c.File
	}

	// file-level dependency edges inside this patch
	deps := make(map[string]map[string]bool)
	for _, e := range s.graph.Edges() {
		sf, sok := inPatch[e.Source]
		tf, tok := inPatch[e.Target]
		if !sok || !tok || sf == tf {
			continue
		}
		if deps[sf] == nil {
			deps[sf] = make(map[string]bool)
		}
		deps[sf][tf] = true
	}

	var fileOrder []string
	placed := make(map[string]bool)
	remaining := keysSortedStr(mapFileKeys(files))
	for len(fileOrder) < len(files) {
		pick := ""
		for _, f := range remaining {
			if placed[f] {
				continue
			}
			ready := true
			for dep := range deps[f] {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				pick = f
				break
			}
		}
		if pick == "" {
			// cycle between files; break at the lowest path
			for _, f := range remaining {
				if !placed[f] {
					pick = f
					break
				}
			}
			*warnings = append(*warnings, fmt.Sprintf(
				"patch %d has circular file dependencies; ordering broken at %s", patchID, pick))
		}
		placed[pick] = true
		fileOrder = append(fileOrder, pick)
	}

	var out []*models.Change
	for _, f := range fileOrder {
		group := files[f]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Range.OldStart < group[j].Range.OldStart
		})
		out = append(out, group...)
	}
	return out
}

func patchName(id int, files []string) string {
	if len(files) == 0 {
		return fmt.Sprintf("patch-%03d", id)
	}
	if len(files) == 1 {
		return fmt.Sprintf("patch-%03d-%s", id, slug(path.Base(files[0])))
	}
	dir := commonDir(files)
	if dir != "" && dir != "." {
		return fmt.Sprintf("patch-%03d-%s", id, slug(path.Base(dir)))
	}
	return fmt.Sprintf("patch-%03d-%s", id, slug(path.Base(files[0])))
}

func patchDescription(changes []*models.Change, files []string) string {
	added, deleted := 0, 0
	for _, c := range changes {
		added += c.Added
		deleted += c.Deleted
	}
	noun := "files"
	if len(files) == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s, +%d/-%d lines: %s",
		len(files), noun, added, deleted, strings.Join(files, ", "))
}

func slug(name string) string {
	name = strings.TrimSuffix(name, path.Ext(name))
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func commonDir(files []string) string {
	dir := path.Dir(files[0])
	for _, f := range files[1:] {
		d := path.Dir(f)
		for dir != "." && dir != d && !strings.HasPrefix(d+"/", dir+"/") {
			dir = path.Dir(dir)
		}
	}
	return dir
}

func find(groupBucket []int, g int) int {
	for groupBucket[g] != g {
		groupBucket[g] = groupBucket[groupBucket[g]]
		g = groupBucket[g]
	}
	return g
}

func sameBucket(groupBucket []int, a, b int) bool {
	return find(groupBucket, a) == find(groupBucket, b)
}

func allGroups(groupBucket []int) []int {
	out := make([]int, len(groupBucket))
	for i := range groupBucket {
		out[i] = i
	}
	return out
}

func compact(buckets []*bucket) []*bucket {
	var live []*bucket
	for _, b := range buckets {
		if b != nil {
			live = append(live, b)
		}
	}
	return live
}

func keysSorted(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func keysSortedStr(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func mapFileKeys(m map[string][]*models.Change) map[string]bool {
	out := make(map[string]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}
