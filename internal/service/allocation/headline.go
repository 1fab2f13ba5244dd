package allocation

import (
	"fmt"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

var subIndexNames = []struct {
	index string
	name  string
}{
	{domain.IndexGA, "Gen & Acute"},
	{domain.IndexCommunity, "Community*"},
	{domain.IndexMentalHealth, "Mental Health"},
	{domain.IndexMaternity, "Maternity"},
	{domain.IndexPrescribing, "Prescribing"},
}

// Headline builds the headline metrics of a place: the core index, its sub indices and
// the health inequalities index, each rounded with its distance from the ICB (1.0).
func Headline(table domain.Table, place domain.Place, places int32) (dto.PlaceSummary, error) {
	row, ok := table.Find(place.ICB, place.Label)
	if !ok || row.Kind != domain.RowKindPlace {
		return dto.PlaceSummary{}, fmt.Errorf("%w: %q", constants.ErrNotFound, place.Label)
	}
	if row.Err != nil {
		return dto.PlaceSummary{}, row.Err
	}

	metric := func(index, name string) dto.HeadlineMetric {
		raw, ok := row.Index(index)
		if !ok {
			return dto.HeadlineMetric{Name: name, Error: row.IndexErrors[index]}
		}
		v := domain.RoundFloat(raw, places)
		return dto.HeadlineMetric{
			Name:  name,
			Value: v,
			Delta: domain.RoundFloat(v-1, places),
		}
	}

	summary := dto.PlaceSummary{
		Label:     place.Label,
		ICB:       place.ICB,
		Practices: append([]string(nil), place.Practices...),
		Core:      metric(domain.IndexOverallCore, "Core Index"),
		Inequal:   metric(domain.IndexHealthInequalities, "Health Inequalities"),
	}
	for _, s := range subIndexNames {
		summary.SubIndex = append(summary.SubIndex, metric(s.index, s.name))
	}

	return summary, nil
}
