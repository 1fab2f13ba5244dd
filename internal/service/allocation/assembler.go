package allocation

import (
	"strings"

	"github.com/ougirez/placealloc/internal/domain"
)

type ICBResult struct {
	ICB       string
	Aggregate domain.Aggregate
	Index     domain.IndexRow
	Err       error
}

type PlaceResult struct {
	Place     domain.Place
	Aggregate domain.Aggregate
	Index     domain.IndexRow
	Err       error
}

// Assemble merges per-ICB and per-place results into one table. ICB blocks follow the
// order in which places first reference them; within a block the ICB row comes first,
// then its places in registry order.
func Assemble(metrics []domain.Metric, indices []string, icbs []ICBResult, places []PlaceResult) domain.Table {
	byICB := make(map[string]ICBResult, len(icbs))
	for _, r := range icbs {
		byICB[r.ICB] = r
	}

	var order []string
	blocks := make(map[string][]PlaceResult)
	for _, p := range places {
		if _, ok := blocks[p.Place.ICB]; !ok {
			order = append(order, p.Place.ICB)
		}
		blocks[p.Place.ICB] = append(blocks[p.Place.ICB], p)
	}

	table := domain.Table{
		Metrics: append([]domain.Metric(nil), metrics...),
		Indices: append([]string(nil), indices...),
		Rows:    make([]domain.Row, 0, len(order)+len(places)),
	}
	for _, icb := range order {
		r := byICB[icb]
		icbRow := domain.Row{
			Kind:  domain.RowKindICB,
			ICB:   icb,
			Label: icb,
			Sums:  r.Aggregate.Sums,
		}
		fillIndex(&icbRow, r.Index, r.Err)
		table.Rows = append(table.Rows, icbRow)

		for _, p := range blocks[icb] {
			placeRow := domain.Row{
				Kind:  domain.RowKindPlace,
				ICB:   icb,
				Label: p.Place.Label,
				Sums:  p.Aggregate.Sums,
			}
			fillIndex(&placeRow, p.Index, p.Err)
			table.Rows = append(table.Rows, placeRow)
		}
	}

	return table
}

func fillIndex(row *domain.Row, idx domain.IndexRow, err error) {
	if err != nil {
		row.Err = err
		row.Error = err.Error()
		return
	}
	row.Indices = idx.Values
	if len(idx.Errors) == 0 {
		return
	}

	row.IndexErrors = make(map[string]string, len(idx.Errors))
	var msgs []string
	for _, name := range idx.Names {
		if e, ok := idx.Errors[name]; ok {
			row.IndexErrors[name] = e.Error()
			msgs = append(msgs, name+": "+e.Error())
		}
	}
	row.Error = strings.Join(msgs, "; ")
}
