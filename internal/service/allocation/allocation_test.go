package allocation

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

const tolerance = 1e-9

// practice builds a row carrying every canonical metric. Weighted columns default to the
// GP pop unless overridden.
func practice(code, icb string, pop float64, overrides map[domain.Metric]float64) domain.Practice {
	metrics := make(map[domain.Metric]float64, len(domain.SummedMetrics))
	for _, m := range domain.SummedMetrics {
		metrics[m] = pop
	}
	for m, v := range overrides {
		metrics[m] = v
	}
	return domain.Practice{Code: code, Name: "Practice " + code, ICBName: icb, Metrics: metrics}
}

func scenarioDataset(t *testing.T) *domain.Dataset {
	t.Helper()
	ds, err := domain.NewDataset([]domain.Practice{
		practice("P1", "R1", 100, map[domain.Metric]float64{domain.MetricWeightedGA: 120}),
		practice("P2", "R1", 200, map[domain.Metric]float64{domain.MetricWeightedGA: 180}),
		practice("P3", "R2", 50, map[domain.Metric]float64{domain.MetricWeightedGA: 40}),
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	return ds
}

func gaSpec() domain.IndexSpec {
	return domain.IndexSpec{
		Denominator: domain.MetricGPPop,
		Indices:     []domain.IndexDef{{Name: domain.IndexGA, Numerator: domain.MetricWeightedGA}},
	}
}

func TestAggregateScopes(t *testing.T) {
	ds := scenarioDataset(t)
	spec := domain.DefaultReductionSpec()

	rows, group := Aggregate(ds, MemberOf([]string{"P1"}), "G1", spec)
	if len(rows) != 1 || group.Rows != 1 {
		t.Fatalf("group matched %d rows, want 1", len(rows))
	}
	if group.ScopeLabel != "G1" {
		t.Errorf("scope label = %q, want G1", group.ScopeLabel)
	}
	if group.Value(domain.MetricGPPop) != 100 || group.Value(domain.MetricWeightedGA) != 120 {
		t.Errorf("group sums = %v", group.Sums)
	}

	_, icb := Aggregate(ds, InICB("R1"), "R1", spec)
	if icb.Value(domain.MetricGPPop) != 300 || icb.Value(domain.MetricWeightedGA) != 300 {
		t.Errorf("icb sums = %v", icb.Sums)
	}
	if !reflect.DeepEqual(icb.Metrics, spec.Metrics()) {
		t.Errorf("metrics order = %v", icb.Metrics)
	}
}

func TestAggregateMatchesDisplayName(t *testing.T) {
	ds := scenarioDataset(t)
	_, agg := Aggregate(ds, MemberOf([]string{"P2: Practice P2"}), "G", domain.DefaultReductionSpec())
	if agg.Value(domain.MetricGPPop) != 200 {
		t.Errorf("GP pop = %d, want 200", agg.Value(domain.MetricGPPop))
	}
}

func TestAggregateNoMatches(t *testing.T) {
	ds := scenarioDataset(t)
	rows, agg := Aggregate(ds, MemberOf([]string{"missing"}), "Empty", domain.DefaultReductionSpec())
	if len(rows) != 0 {
		t.Fatalf("matched %d rows, want 0", len(rows))
	}
	for _, m := range domain.SummedMetrics {
		if agg.Value(m) != 0 {
			t.Errorf("%s = %d, want 0", m, agg.Value(m))
		}
	}
}

func TestAggregateTruncatesAndAverages(t *testing.T) {
	a := practice("A", "R", 10.7, nil)
	a.Metrics[domain.MetricEACAIndex] = 1.5
	b := practice("B", "R", 10.6, nil)
	b.Metrics[domain.MetricEACAIndex] = 2.7
	ds, err := domain.NewDataset([]domain.Practice{a, b})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	_, agg := Aggregate(ds, InICB("R"), "R", domain.DefaultReductionSpec().WithEACA())
	if got := agg.Value(domain.MetricGPPop); got != 21 {
		t.Errorf("GP pop = %d, want 21 (truncated 21.3)", got)
	}
	if got := agg.Value(domain.MetricEACAIndex); got != 2 {
		t.Errorf("EACA mean = %d, want 2 (truncated 2.1)", got)
	}

	_, empty := Aggregate(ds, InICB("none"), "none", domain.DefaultReductionSpec().WithEACA())
	if got := empty.Value(domain.MetricEACAIndex); got != 0 {
		t.Errorf("EACA mean of no rows = %d, want 0", got)
	}
}

func TestComputeIndicesScenario(t *testing.T) {
	ds := scenarioDataset(t)
	spec := domain.DefaultReductionSpec()
	_, group := Aggregate(ds, MemberOf([]string{"P1"}), "G1", spec)
	_, icb := Aggregate(ds, InICB("R1"), "R1", spec)

	placeRow, icbRow, err := ComputeIndices(group, icb, gaSpec())
	if err != nil {
		t.Fatalf("ComputeIndices: %v", err)
	}

	if got := icbRow.Rates[domain.IndexGA]; math.Abs(got-1.0) > tolerance {
		t.Errorf("ICB G&A rate = %v, want 1.0", got)
	}
	if got := placeRow.Rates[domain.IndexGA]; math.Abs(got-1.2) > tolerance {
		t.Errorf("place G&A rate = %v, want 1.2", got)
	}
	if got := placeRow.Values[domain.IndexGA]; math.Abs(got-1.2) > tolerance {
		t.Errorf("place G&A index = %v, want 1.2", got)
	}
	if placeRow.ParentScope != "R1" {
		t.Errorf("parent scope = %q, want R1", placeRow.ParentScope)
	}
}

func TestICBIndexIsOne(t *testing.T) {
	aggs := []domain.Aggregate{
		{ScopeLabel: "a", Sums: map[domain.Metric]int64{domain.MetricGPPop: 300, domain.MetricWeightedGA: 300}},
		{ScopeLabel: "b", Sums: map[domain.Metric]int64{domain.MetricGPPop: 7, domain.MetricWeightedGA: 13}},
		{ScopeLabel: "c", Sums: map[domain.Metric]int64{domain.MetricGPPop: 987654321, domain.MetricWeightedGA: 3}},
	}
	for _, agg := range aggs {
		row, err := ComputeICBIndex(agg, gaSpec())
		if err != nil {
			t.Fatalf("%s: %v", agg.ScopeLabel, err)
		}
		for name, v := range row.Values {
			if math.Abs(v-1.0) > tolerance {
				t.Errorf("%s %s = %v, want 1.0", agg.ScopeLabel, name, v)
			}
		}
	}
}

func TestDivisionByZero(t *testing.T) {
	zeroICB := domain.Aggregate{ScopeLabel: "R0", Sums: map[domain.Metric]int64{}}
	group := domain.Aggregate{ScopeLabel: "G", Sums: map[domain.Metric]int64{domain.MetricGPPop: 10, domain.MetricWeightedGA: 10}}

	if _, _, err := ComputeIndices(group, zeroICB, gaSpec()); !errors.Is(err, constants.ErrDivisionByZero) {
		t.Errorf("zero ICB pop err = %v, want ErrDivisionByZero", err)
	}

	icb := domain.Aggregate{ScopeLabel: "R1", Sums: map[domain.Metric]int64{domain.MetricGPPop: 10, domain.MetricWeightedGA: 10}}
	emptyGroup := domain.Aggregate{ScopeLabel: "G", Sums: map[domain.Metric]int64{}}
	if _, _, err := ComputeIndices(emptyGroup, icb, gaSpec()); !errors.Is(err, constants.ErrDivisionByZero) {
		t.Errorf("zero place pop err = %v, want ErrDivisionByZero", err)
	}

	zeroRate := domain.Aggregate{ScopeLabel: "R1", Sums: map[domain.Metric]int64{domain.MetricGPPop: 10}}
	placeRow, icbRow, err := ComputeIndices(group, zeroRate, gaSpec())
	if err != nil {
		t.Fatalf("zero ICB rate should fail the index only: %v", err)
	}
	for _, row := range []domain.IndexRow{placeRow, icbRow} {
		if !errors.Is(row.Errors[domain.IndexGA], constants.ErrDivisionByZero) {
			t.Errorf("%s G&A err = %v, want ErrDivisionByZero", row.Scope, row.Errors[domain.IndexGA])
		}
		if _, ok := row.Values[domain.IndexGA]; ok {
			t.Errorf("%s G&A should have no value", row.Scope)
		}
	}
}

func TestCalculateIsolatesZeroRateIndex(t *testing.T) {
	ds, err := domain.NewDataset([]domain.Practice{
		practice("P1", "R1", 100, map[domain.Metric]float64{domain.MetricWeightedGA: 120, domain.MetricWeightedMaternity: 0}),
		practice("P2", "R1", 200, map[domain.Metric]float64{domain.MetricWeightedGA: 180, domain.MetricWeightedMaternity: 0}),
		practice("P3", "R2", 50, nil),
	})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	place := domain.Place{Label: "G1", ICB: "R1", Practices: []string{"P1"}}
	table := NewDefaultCalculator().Calculate(ds, []domain.Place{
		place,
		{Label: "G2", ICB: "R2", Practices: []string{"P3"}},
	})

	for _, label := range []string{"R1", "G1"} {
		row, _ := table.Find("R1", label)
		if row.Err != nil {
			t.Fatalf("%s failed as a whole: %v", label, row.Err)
		}
		if _, ok := row.Index(domain.IndexMaternity); ok {
			t.Errorf("%s maternity index should be missing", label)
		}
		if row.IndexErrors[domain.IndexMaternity] == "" || row.Error == "" {
			t.Errorf("%s should report the maternity failure: %+v", label, row)
		}
	}

	g1, _ := table.Find("R1", "G1")
	if got, _ := g1.Index(domain.IndexGA); math.Abs(got-1.2) > tolerance {
		t.Errorf("G1 G&A = %v, want 1.2", got)
	}

	g2, _ := table.Find("R2", "G2")
	if _, ok := g2.Index(domain.IndexMaternity); !ok || g2.Error != "" {
		t.Errorf("R2 block should be unaffected: %+v", g2)
	}

	summary, err := Headline(table, place, 2)
	if err != nil {
		t.Fatalf("Headline: %v", err)
	}
	for _, m := range summary.SubIndex {
		if m.Name == "Maternity" && m.Error == "" {
			t.Errorf("maternity headline should carry the error: %+v", m)
		}
		if m.Name == "Gen & Acute" && m.Value != 1.2 {
			t.Errorf("G&A headline = %+v, want 1.2", m)
		}
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	ds := scenarioDataset(t)
	calc := NewDefaultCalculator()
	places := []domain.Place{
		{Label: "G1", ICB: "R1", Practices: []string{"P1"}},
		{Label: "G2", ICB: "R2", Practices: []string{"P3"}},
	}

	first := calc.Calculate(ds, places)
	second := calc.Calculate(ds, places)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between runs:\n%v\n%v", first, second)
	}
}

func TestCalculateAssemblesByICB(t *testing.T) {
	ds := scenarioDataset(t)
	calc := NewDefaultCalculator()
	table := calc.Calculate(ds, []domain.Place{
		{Label: "A", ICB: "R1", Practices: []string{"P1"}},
		{Label: "B", ICB: "R2", Practices: []string{"P3"}},
		{Label: "C", ICB: "R1", Practices: []string{"P2"}},
	})

	want := []struct {
		kind  domain.RowKind
		label string
	}{
		{domain.RowKindICB, "R1"},
		{domain.RowKindPlace, "A"},
		{domain.RowKindPlace, "C"},
		{domain.RowKindICB, "R2"},
		{domain.RowKindPlace, "B"},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(table.Rows), len(want))
	}
	for i, w := range want {
		if table.Rows[i].Kind != w.kind || table.Rows[i].Label != w.label {
			t.Errorf("row %d = %s/%s, want %s/%s", i, table.Rows[i].Kind, table.Rows[i].Label, w.kind, w.label)
		}
	}

	for _, r := range table.Rows {
		if r.Kind != domain.RowKindICB {
			continue
		}
		for _, name := range table.Indices {
			if math.Abs(r.Indices[name]-1.0) > tolerance {
				t.Errorf("ICB %s %s = %v, want 1.0", r.Label, name, r.Indices[name])
			}
		}
	}

	a, _ := table.Find("R1", "A")
	if math.Abs(a.Indices[domain.IndexGA]-1.2) > tolerance {
		t.Errorf("A G&A index = %v, want 1.2", a.Indices[domain.IndexGA])
	}
}

func TestCalculateIsolatesFailures(t *testing.T) {
	ds := scenarioDataset(t)
	calc := NewDefaultCalculator()
	table := calc.Calculate(ds, []domain.Place{
		{Label: "Good", ICB: "R1", Practices: []string{"P1"}},
		{Label: "Ghost", ICB: "R1", Practices: []string{"missing"}},
		{Label: "Nowhere", ICB: "R9", Practices: []string{"P1"}},
	})

	good, _ := table.Find("R1", "Good")
	if good.Err != nil {
		t.Errorf("Good row failed: %v", good.Err)
	}

	ghost, _ := table.Find("R1", "Ghost")
	if !errors.Is(ghost.Err, constants.ErrDivisionByZero) {
		t.Errorf("Ghost err = %v, want ErrDivisionByZero", ghost.Err)
	}
	if ghost.Indices != nil || ghost.Error == "" {
		t.Errorf("failed row should carry a message and no indices: %+v", ghost)
	}

	nowhere, _ := table.Find("R9", "Nowhere")
	icb9, _ := table.Find("R9", "R9")
	if !errors.Is(nowhere.Err, constants.ErrDivisionByZero) || !errors.Is(icb9.Err, constants.ErrDivisionByZero) {
		t.Errorf("R9 rows should fail with ErrDivisionByZero: %v / %v", icb9.Err, nowhere.Err)
	}
}

func TestCalculatorValidate(t *testing.T) {
	ds, err := domain.NewDataset([]domain.Practice{{
		Code:    "P1",
		ICBName: "R1",
		Metrics: map[domain.Metric]float64{domain.MetricGPPop: 1},
	}})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	if err := NewDefaultCalculator().Validate(ds); !errors.Is(err, constants.ErrUnknownMetric) {
		t.Errorf("err = %v, want ErrUnknownMetric", err)
	}

	partial := NewCalculator(
		domain.ReductionSpec{{Metric: domain.MetricGPPop}},
		gaSpec(),
	)
	if err := partial.Validate(ds); !errors.Is(err, constants.ErrUnknownMetric) {
		t.Errorf("unaggregated numerator err = %v, want ErrUnknownMetric", err)
	}

	if err := NewDefaultCalculator().Validate(scenarioDataset(t)); err != nil {
		t.Errorf("complete dataset should validate: %v", err)
	}
}

func TestHeadline(t *testing.T) {
	ds := scenarioDataset(t)
	place := domain.Place{Label: "G1", ICB: "R1", Practices: []string{"P1"}}
	table := NewDefaultCalculator().Calculate(ds, []domain.Place{place})

	summary, err := Headline(table, place, 2)
	if err != nil {
		t.Fatalf("Headline: %v", err)
	}
	if len(summary.SubIndex) != 5 {
		t.Fatalf("sub indices = %d, want 5", len(summary.SubIndex))
	}
	ga := summary.SubIndex[0]
	if ga.Name != "Gen & Acute" || ga.Value != 1.2 || ga.Delta != 0.2 {
		t.Errorf("G&A headline = %+v, want 1.2 / 0.2", ga)
	}
	if summary.Core.Value != 1 || summary.Core.Delta != 0 {
		t.Errorf("core headline = %+v, want 1 / 0", summary.Core)
	}

	if _, err := Headline(table, domain.Place{Label: "missing", ICB: "R1"}, 2); !errors.Is(err, constants.ErrNotFound) {
		t.Errorf("missing place err = %v, want ErrNotFound", err)
	}
}

type datasetFunc func(ctx context.Context) (*domain.Dataset, error)

func (f datasetFunc) Dataset(ctx context.Context) (*domain.Dataset, error) {
	return f(ctx)
}

func TestServiceValidate(t *testing.T) {
	complete := scenarioDataset(t)
	partial, err := domain.NewDataset([]domain.Practice{{
		Code:    "P1",
		ICBName: "R1",
		Metrics: map[domain.Metric]float64{domain.MetricGPPop: 1},
	}})
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}
	notReady := errors.New("no file")

	tests := []struct {
		name    string
		ds      *domain.Dataset
		loadErr error
		want    error
	}{
		{"complete", complete, nil, nil},
		{"missing column", partial, nil, constants.ErrUnknownMetric},
		{"load failure", nil, notReady, notReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAllocationService(datasetFunc(func(context.Context) (*domain.Dataset, error) {
				return tt.ds, tt.loadErr
			}), NewDefaultCalculator(), 3, 2)

			err := svc.Validate(context.Background())
			if tt.want == nil && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
