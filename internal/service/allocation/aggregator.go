package allocation

import (
	"math"

	"github.com/ougirez/placealloc/internal/domain"
)

// Predicate selects the dataset rows of one scope.
type Predicate func(p domain.Practice) bool

// MemberOf matches practices whose code or display name is in ids.
func MemberOf(ids []string) Predicate {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(p domain.Practice) bool {
		if _, ok := set[p.Code]; ok {
			return true
		}
		_, ok := set[p.Display]
		return ok
	}
}

// InICB matches practices of an ICB, by name or by code.
func InICB(icb string) Predicate {
	return func(p domain.Practice) bool {
		return p.ICBName == icb || (p.ICBCode != "" && p.ICBCode == icb)
	}
}

// Aggregate reduces the rows matched by pred into a single row labelled with label.
// Zero matches is legal and yields zero values.
func Aggregate(
	ds *domain.Dataset,
	pred Predicate,
	label string,
	spec domain.ReductionSpec,
) ([]domain.Practice, domain.Aggregate) {
	var matched []domain.Practice
	totals := make([]float64, len(spec))

	for _, p := range ds.Rows() {
		if !pred(p) {
			continue
		}
		matched = append(matched, p)
		for i, r := range spec {
			totals[i] += p.Metrics[r.Metric]
		}
	}

	agg := domain.Aggregate{
		ScopeLabel: label,
		Rows:       len(matched),
		Metrics:    spec.Metrics(),
		Sums:       make(map[domain.Metric]int64, len(spec)),
	}
	for i, r := range spec {
		v := totals[i]
		if r.Reduction == domain.ReductionMean {
			if len(matched) == 0 {
				v = 0
			} else {
				v /= float64(len(matched))
			}
		}
		agg.Sums[r.Metric] = int64(math.Trunc(v))
	}

	return matched, agg
}
