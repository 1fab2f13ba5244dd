package allocation

import (
	"context"
	"fmt"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/logger"
)

type DatasetProvider interface {
	Dataset(ctx context.Context) (*domain.Dataset, error)
}

type Service struct {
	datasets     DatasetProvider
	calc         *Calculator
	roundPlaces  int32
	metricPlaces int32
}

func NewAllocationService(datasets DatasetProvider, calc *Calculator, roundPlaces, metricPlaces int32) *Service {
	return &Service{
		datasets:     datasets,
		calc:         calc,
		roundPlaces:  roundPlaces,
		metricPlaces: metricPlaces,
	}
}

// Validate loads the dataset and checks it carries every metric the calculator needs.
func (s *Service) Validate(ctx context.Context) error {
	ds, err := s.datasets.Dataset(ctx)
	if err != nil {
		return fmt.Errorf("datasets.Dataset: %w", err)
	}
	if err := s.calc.Validate(ds); err != nil {
		return fmt.Errorf("calc.Validate: %w", err)
	}
	return nil
}

// Results computes the unrounded table for the given places.
func (s *Service) Results(ctx context.Context, places []domain.Place) (domain.Table, error) {
	ds, err := s.datasets.Dataset(ctx)
	if err != nil {
		return domain.Table{}, fmt.Errorf("datasets.Dataset: %w", err)
	}
	if err := s.calc.Validate(ds); err != nil {
		return domain.Table{}, fmt.Errorf("calc.Validate: %w", err)
	}

	table := s.calc.Calculate(ds, places)
	for _, row := range table.Rows {
		if row.Error != "" {
			logger.Warnf(ctx, "%s row %q of %q failed: %s", row.Kind, row.Label, row.ICB, row.Error)
		}
	}

	return table, nil
}

// RoundedResults is Results rounded for display and download.
func (s *Service) RoundedResults(ctx context.Context, places []domain.Place) (domain.Table, error) {
	table, err := s.Results(ctx, places)
	if err != nil {
		return domain.Table{}, err
	}
	return table.Round(s.roundPlaces), nil
}

func (s *Service) Summary(ctx context.Context, places []domain.Place, place domain.Place) (dto.PlaceSummary, error) {
	table, err := s.Results(ctx, places)
	if err != nil {
		return dto.PlaceSummary{}, err
	}
	return Headline(table, place, s.metricPlaces)
}
