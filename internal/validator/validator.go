// Package validator checks the final patch list for structural defects
// and computes advisory quality metrics.
package validator

import (
	"math"

	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/depgraph"
	"github.com/patchforge/patchforge/internal/errors"
	"github.com/patchforge/patchforge/internal/models"
)

// Validator verifies ordering and atomic-group containment, then scores
// the split. Fatal findings here indicate splitter bugs, not user error.
type Validator struct {
	cfg config.SplitConfig
}

func New(cfg config.SplitConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs the fatal checks and fills in metrics. The metrics are
// advisory and never block output.
func (v *Validator) Validate(patches []*models.Patch, graph *depgraph.Graph) (models.Metrics, error) {
	if err := v.checkOrdering(patches); err != nil {
		return models.Metrics{}, err
	}
	if err := v.checkAtomicGroups(patches, graph); err != nil {
		return models.Metrics{}, err
	}
	return v.metrics(patches), nil
}

// checkOrdering: every dependsOn entry must name a strictly lower id.
func (v *Validator) checkOrdering(patches []*models.Patch) error {
	for _, p := range patches {
		for _, dep := range p.DependsOn {
			if dep >= p.ID {
				return errors.OrderingViolationf(
					"patch %d depends on patch %d, which does not precede it", p.ID, dep)
			}
			if dep < 0 {
				return errors.OrderingViolationf(
					"patch %d depends on unknown patch id %d", p.ID, dep)
			}
		}
	}
	return nil
}

// checkAtomicGroups: every atomic group lives wholly inside one patch.
func (v *Validator) checkAtomicGroups(patches []*models.Patch, graph *depgraph.Graph) error {
	patchOfGroup := make(map[int]int)
	for _, p := range patches {
		for _, c := range p.Changes {
			group := graph.GroupOf(c.ID)
			if prev, seen := patchOfGroup[group]; seen && prev != p.ID {
				return errors.AtomicGroupSplitf(
					"atomic group %d is split across patches %d and %d", group, prev, p.ID)
			}
			patchOfGroup[group] = p.ID
		}
	}
	return nil
}

func (v *Validator) metrics(patches []*models.Patch) models.Metrics {
	if len(patches) == 0 {
		return models.Metrics{BalanceScore: 1.0, ReviewabilityScore: 1.0}
	}

	depth := maxDependencyDepth(patches)

	sizes := make([]float64, len(patches))
	total := 0.0
	for i, p := range patches {
		sizes[i] = float64(p.SizeLines)
		total += sizes[i]
	}
	mean := total / float64(len(sizes))

	balance := 1.0
	if mean > 0 && len(sizes) > 1 {
		variance := 0.0
		for _, s := range sizes {
			variance += (s - mean) * (s - mean)
		}
		variance /= float64(len(sizes))
		balance = 1.0 - math.Sqrt(variance)/mean
		if balance < 0 {
			balance = 0
		}
	}

	// Reviewability blends how close the average patch lands to the
	// target, how manageable the patch count is, and how shallow the
	// dependency chains run.
	sizeScore := proximity(mean, float64(v.cfg.TargetSize))
	countScore := 1.0 / (1.0 + float64(len(patches))/10.0)
	depthScore := 1.0 / (1.0 + float64(depth)/4.0)
	reviewability := 0.5*sizeScore + 0.25*countScore + 0.25*depthScore

	return models.Metrics{
		BalanceScore:       round2(balance),
		ReviewabilityScore: round2(reviewability),
		MaxDependencyDepth: depth,
	}
}

// maxDependencyDepth is the longest dependsOn chain. Ids are already
// validated to only point backwards, so one forward pass suffices.
func maxDependencyDepth(patches []*models.Patch) int {
	depth := make(map[int]int, len(patches))
	max := 0
	for _, p := range patches {
		d := 0
		for _, dep := range p.DependsOn {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[p.ID] = d
		if d > max {
			max = d
		}
	}
	return max
}

// proximity maps value/target ratio to [0,1], peaking at 1.0 when equal
func proximity(value, target float64) float64 {
	if target <= 0 || value <= 0 {
		return 0
	}
	ratio := value / target
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return ratio
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
