package domain

import (
	"github.com/shopspring/decimal"
)

// Aggregate is the reduction of a set of practice rows. Values are truncated to integers.
type Aggregate struct {
	ScopeLabel string
	Rows       int
	Metrics    []Metric
	Sums       map[Metric]int64
}

func (a Aggregate) Value(m Metric) int64 {
	return a.Sums[m]
}

// IndexRow holds the relative need indices of one scope against its parent ICB.
// Rates are the per-capita weighted populations the indices are derived from.
// Errors holds the indices that could not be derived; they have no value or rate.
type IndexRow struct {
	Scope       string
	ParentScope string
	Names       []string
	Values      map[string]float64
	Rates       map[string]float64
	Errors      map[string]error
}

type RowKind string

const (
	RowKindICB   RowKind = "icb"
	RowKindPlace RowKind = "place"
)

type Row struct {
	Kind    RowKind            `json:"kind"`
	ICB     string             `json:"icb"`
	Label   string             `json:"label"`
	Sums    map[Metric]int64   `json:"sums,omitempty"`
	Indices map[string]float64 `json:"indices,omitempty"`
	Error   string             `json:"error,omitempty"`
	Err     error              `json:"-"`

	IndexErrors map[string]string `json:"index_errors,omitempty"`
}

// Index returns the value of a single index, false when it is missing or failed.
func (r Row) Index(name string) (float64, bool) {
	v, ok := r.Indices[name]
	return v, ok
}

// Table is the assembled output: per ICB block, the ICB row first then its places.
type Table struct {
	Metrics []Metric `json:"metrics"`
	Indices []string `json:"indices"`
	Rows    []Row    `json:"rows"`
}

func (t Table) Find(icb, label string) (Row, bool) {
	for _, r := range t.Rows {
		if r.ICB == icb && r.Label == label {
			return r, true
		}
	}
	return Row{}, false
}

// FindPlace returns the first place row with the given label.
func (t Table) FindPlace(label string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Kind == RowKindPlace && r.Label == label {
			return r, true
		}
	}
	return Row{}, false
}

// Round returns a copy of the table with every index rounded to the given decimal places.
func (t Table) Round(places int32) Table {
	res := Table{
		Metrics: append([]Metric(nil), t.Metrics...),
		Indices: append([]string(nil), t.Indices...),
		Rows:    make([]Row, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		rounded := r
		if r.Indices != nil {
			rounded.Indices = make(map[string]float64, len(r.Indices))
			for name, v := range r.Indices {
				rounded.Indices[name] = RoundFloat(v, places)
			}
		}
		res.Rows = append(res.Rows, rounded)
	}
	return res
}

func RoundFloat(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
