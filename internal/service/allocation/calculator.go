package allocation

import (
	"fmt"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

// Calculator runs the place pipeline: aggregate each place and its ICB, derive the
// indices, assemble the table. It holds no state between calls.
type Calculator struct {
	reductions domain.ReductionSpec
	indices    domain.IndexSpec
}

func NewCalculator(reductions domain.ReductionSpec, indices domain.IndexSpec) *Calculator {
	return &Calculator{reductions: reductions, indices: indices}
}

func NewDefaultCalculator() *Calculator {
	return NewCalculator(domain.DefaultReductionSpec(), domain.DefaultIndexSpec())
}

// Validate fails fast when the dataset or the reduction spec misses a metric the
// index spec needs.
func (c *Calculator) Validate(ds *domain.Dataset) error {
	reduced := make(map[domain.Metric]struct{}, len(c.reductions))
	for _, r := range c.reductions {
		reduced[r.Metric] = struct{}{}
	}
	for _, m := range c.indices.Metrics() {
		if _, ok := reduced[m]; !ok {
			return fmt.Errorf("%w: index metric %q is not aggregated", constants.ErrUnknownMetric, m)
		}
	}

	return ds.Require(c.reductions.Metrics()...)
}

func (c *Calculator) Calculate(ds *domain.Dataset, places []domain.Place) domain.Table {
	icbResults := make(map[string]ICBResult)
	var icbOrder []string

	placeResults := make([]PlaceResult, 0, len(places))
	for _, place := range places {
		icb, ok := icbResults[place.ICB]
		if !ok {
			icb = c.calculateICB(ds, place.ICB)
			icbResults[place.ICB] = icb
			icbOrder = append(icbOrder, place.ICB)
		}
		placeResults = append(placeResults, c.calculatePlace(ds, place, icb))
	}

	icbs := make([]ICBResult, 0, len(icbOrder))
	for _, name := range icbOrder {
		icbs = append(icbs, icbResults[name])
	}

	return Assemble(c.reductions.Metrics(), c.indices.Names(), icbs, placeResults)
}

func (c *Calculator) calculateICB(ds *domain.Dataset, icb string) ICBResult {
	_, agg := Aggregate(ds, InICB(icb), icb, c.reductions)
	idx, err := ComputeICBIndex(agg, c.indices)
	return ICBResult{ICB: icb, Aggregate: agg, Index: idx, Err: err}
}

func (c *Calculator) calculatePlace(ds *domain.Dataset, place domain.Place, icb ICBResult) PlaceResult {
	_, agg := Aggregate(ds, MemberOf(place.Practices), place.Label, c.reductions)
	res := PlaceResult{Place: place, Aggregate: agg}
	if icb.Err != nil {
		res.Err = icb.Err
		return res
	}

	res.Index, res.Err = computePlaceIndex(agg, icb.Index, c.indices)
	return res
}
