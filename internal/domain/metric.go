package domain

// Metric is the canonical name of a numeric practice column.
type Metric string

const (
	MetricGPPop                      Metric = "GP pop"
	MetricWeightedGA                 Metric = "Weighted G&A pop"
	MetricWeightedCommunity          Metric = "Weighted Community pop"
	MetricWeightedMentalHealth       Metric = "Weighted Mental Health pop"
	MetricWeightedMaternity          Metric = "Weighted Maternity pop"
	MetricWeightedPrescribing        Metric = "Weighted Prescribing pop"
	MetricOverallWeighted            Metric = "Overall Weighted pop"
	MetricWeightedPrimaryCare        Metric = "Weighted Primary Care"
	MetricWeightedHealthInequalities Metric = "Weighted Health Inequalities pop"

	// MetricEACAIndex is a legacy per-practice index column. It is averaged, not summed.
	MetricEACAIndex Metric = "EACA index"
)

// SummedMetrics is the canonical, ordered set of population columns aggregated for every scope.
var SummedMetrics = []Metric{
	MetricGPPop,
	MetricWeightedGA,
	MetricWeightedCommunity,
	MetricWeightedMentalHealth,
	MetricWeightedMaternity,
	MetricWeightedPrescribing,
	MetricOverallWeighted,
	MetricWeightedPrimaryCare,
	MetricWeightedHealthInequalities,
}

type Reduction int

const (
	ReductionSum Reduction = iota
	ReductionMean
)

func (r Reduction) String() string {
	switch r {
	case ReductionSum:
		return "sum"
	case ReductionMean:
		return "mean"
	}
	return "unknown"
}

type MetricReduction struct {
	Metric    Metric
	Reduction Reduction
}

// ReductionSpec is the ordered list of columns an aggregate carries.
type ReductionSpec []MetricReduction

func (s ReductionSpec) Metrics() []Metric {
	res := make([]Metric, 0, len(s))
	for _, r := range s {
		res = append(res, r.Metric)
	}
	return res
}

// DefaultReductionSpec sums every canonical metric.
func DefaultReductionSpec() ReductionSpec {
	spec := make(ReductionSpec, 0, len(SummedMetrics))
	for _, m := range SummedMetrics {
		spec = append(spec, MetricReduction{Metric: m, Reduction: ReductionSum})
	}
	return spec
}

// WithEACA appends the legacy mean-reduced EACA column.
func (s ReductionSpec) WithEACA() ReductionSpec {
	res := make(ReductionSpec, len(s), len(s)+1)
	copy(res, s)
	return append(res, MetricReduction{Metric: MetricEACAIndex, Reduction: ReductionMean})
}

type IndexDef struct {
	Name      string
	Numerator Metric
}

type IndexSpec struct {
	Denominator Metric
	Indices     []IndexDef
}

const (
	IndexGA                 = "G&A Index"
	IndexCommunity          = "Community Index"
	IndexMentalHealth       = "Mental Health Index"
	IndexMaternity          = "Maternity Index"
	IndexPrescribing        = "Prescribing Index"
	IndexOverallCore        = "Overall Core Index"
	IndexPrimaryCare        = "Primary Care Index"
	IndexHealthInequalities = "Health Inequalities Index"
)

func DefaultIndexSpec() IndexSpec {
	return IndexSpec{
		Denominator: MetricGPPop,
		Indices: []IndexDef{
			{Name: IndexGA, Numerator: MetricWeightedGA},
			{Name: IndexCommunity, Numerator: MetricWeightedCommunity},
			{Name: IndexMentalHealth, Numerator: MetricWeightedMentalHealth},
			{Name: IndexMaternity, Numerator: MetricWeightedMaternity},
			{Name: IndexPrescribing, Numerator: MetricWeightedPrescribing},
			{Name: IndexOverallCore, Numerator: MetricOverallWeighted},
			{Name: IndexPrimaryCare, Numerator: MetricWeightedPrimaryCare},
			{Name: IndexHealthInequalities, Numerator: MetricWeightedHealthInequalities},
		},
	}
}

func (s IndexSpec) Names() []string {
	res := make([]string, 0, len(s.Indices))
	for _, idx := range s.Indices {
		res = append(res, idx.Name)
	}
	return res
}

// Metrics lists the denominator followed by every numerator.
func (s IndexSpec) Metrics() []Metric {
	res := make([]Metric, 0, len(s.Indices)+1)
	res = append(res, s.Denominator)
	for _, idx := range s.Indices {
		res = append(res, idx.Numerator)
	}
	return res
}
