package allocation

import (
	"fmt"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

// ComputeICBIndex derives the ICB baseline rates. Every index of the ICB against
// itself is rate/rate, i.e. 1. A zero population fails the row; a zero rate fails
// only its own index, for the ICB and every place normalised against it.
func ComputeICBIndex(icb domain.Aggregate, spec domain.IndexSpec) (domain.IndexRow, error) {
	pop := icb.Value(spec.Denominator)
	if pop == 0 {
		return domain.IndexRow{}, fmt.Errorf("%w: ICB %q has zero %s", constants.ErrDivisionByZero, icb.ScopeLabel, spec.Denominator)
	}

	row := newIndexRow(icb.ScopeLabel, icb.ScopeLabel, spec)
	for _, idx := range spec.Indices {
		rate := float64(icb.Value(idx.Numerator)) / float64(pop)
		if rate == 0 {
			row.Errors[idx.Name] = fmt.Errorf("%w: ICB %q has zero %s", constants.ErrDivisionByZero, icb.ScopeLabel, idx.Numerator)
			continue
		}
		row.Rates[idx.Name] = rate
		row.Values[idx.Name] = rate / rate
	}

	return row, nil
}

// ComputeIndices returns the place row, normalised against the ICB, and the ICB row.
func ComputeIndices(place, icb domain.Aggregate, spec domain.IndexSpec) (domain.IndexRow, domain.IndexRow, error) {
	icbRow, err := ComputeICBIndex(icb, spec)
	if err != nil {
		return domain.IndexRow{}, domain.IndexRow{}, err
	}

	placeRow, err := computePlaceIndex(place, icbRow, spec)
	if err != nil {
		return domain.IndexRow{}, domain.IndexRow{}, err
	}

	return placeRow, icbRow, nil
}

func computePlaceIndex(place domain.Aggregate, icbRow domain.IndexRow, spec domain.IndexSpec) (domain.IndexRow, error) {
	pop := place.Value(spec.Denominator)
	if pop == 0 {
		return domain.IndexRow{}, fmt.Errorf("%w: place %q has zero %s", constants.ErrDivisionByZero, place.ScopeLabel, spec.Denominator)
	}

	row := newIndexRow(place.ScopeLabel, icbRow.Scope, spec)
	for _, idx := range spec.Indices {
		if err, ok := icbRow.Errors[idx.Name]; ok {
			row.Errors[idx.Name] = err
			continue
		}
		rate := float64(place.Value(idx.Numerator)) / float64(pop)
		row.Rates[idx.Name] = rate
		row.Values[idx.Name] = rate / icbRow.Rates[idx.Name]
	}

	return row, nil
}

func newIndexRow(scope, parent string, spec domain.IndexSpec) domain.IndexRow {
	return domain.IndexRow{
		Scope:       scope,
		ParentScope: parent,
		Names:       spec.Names(),
		Values:      make(map[string]float64, len(spec.Indices)),
		Rates:       make(map[string]float64, len(spec.Indices)),
		Errors:      make(map[string]error),
	}
}
