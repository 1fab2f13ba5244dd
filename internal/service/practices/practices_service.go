package practices

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/store"
)

const (
	backfillBatchSize = 500
	backfillWorkers   = 4
)

type Config struct {
	Source string
	Path   string
	Sheet  string
	Fill   bool
}

// Service owns the practice dataset. The dataset is loaded once, from a file or from
// postgres, and shared read-only by every session.
type Service struct {
	store store.Store
	cfg   Config

	mx sync.Mutex
	ds *domain.Dataset
}

func NewPracticesService(store store.Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// NewStaticService serves an already built dataset.
func NewStaticService(ds *domain.Dataset) *Service {
	return &Service{ds: ds}
}

func (s *Service) Dataset(ctx context.Context) (*domain.Dataset, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	if s.ds != nil {
		return s.ds, nil
	}

	rows, err := s.load(ctx)
	if err != nil {
		logger.Errorf(ctx, "load dataset: %s", err.Error())
		return nil, fmt.Errorf("%w: %s", constants.ErrDatasetNotReady, err.Error())
	}

	ds, err := domain.NewDataset(rows)
	if err != nil {
		logger.Errorf(ctx, "domain.NewDataset: %s", err.Error())
		return nil, fmt.Errorf("%w: %s", constants.ErrDatasetNotReady, err.Error())
	}

	logger.Infof(ctx, "dataset loaded from %s: %d practices", s.cfg.Source, ds.Len())
	s.ds = ds
	return ds, nil
}

func (s *Service) load(ctx context.Context) ([]domain.Practice, error) {
	switch s.cfg.Source {
	case constants.DatasetSourcePostgres:
		if s.store == nil {
			return nil, fmt.Errorf("postgres source without a store")
		}
		return s.store.ListPractices(ctx, store.ListPracticesOpts{})
	case constants.DatasetSourceFile, "":
		if s.cfg.Path == "" {
			return nil, fmt.Errorf("dataset path is not set")
		}
		return LoadFile(s.cfg.Path, s.cfg.Sheet, s.cfg.Fill)
	default:
		return nil, fmt.Errorf("unknown dataset source %q", s.cfg.Source)
	}
}

// Backfill loads a practice file and upserts it into postgres in parallel batches.
// The cached dataset is dropped so the next read sees the new rows.
func (s *Service) Backfill(ctx context.Context, path, sheet string) (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("%w: no postgres store configured", constants.ErrInvalidInput)
	}

	rows, err := LoadFile(path, sheet, s.cfg.Fill)
	if err != nil {
		return 0, fmt.Errorf("LoadFile: %w", err)
	}
	// same checks as a live load, before anything is written
	if _, err := domain.NewDataset(rows); err != nil {
		return 0, fmt.Errorf("%w: %s", constants.ErrInvalidInput, err.Error())
	}

	if err := s.store.Migrate(ctx); err != nil {
		return 0, err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(backfillWorkers)
	for start := 0; start < len(rows); start += backfillBatchSize {
		from, to := start, min(start+backfillBatchSize, len(rows))

		g.Go(func() error {
			if err := s.store.UpsertPractices(gCtx, rows[from:to]); err != nil {
				return fmt.Errorf("UpsertPractices [%d:%d]: %w", from, to, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Errorf(ctx, "backfill %s: %s", path, err.Error())
		return 0, err
	}

	s.mx.Lock()
	if s.cfg.Source == constants.DatasetSourcePostgres {
		s.ds = nil
	}
	s.mx.Unlock()

	logger.Infof(ctx, "backfilled %d practices from %s", len(rows), path)
	return len(rows), nil
}

func (s *Service) ICBs(ctx context.Context) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	return ds.ICBs(), nil
}

func (s *Service) Districts(ctx context.Context, icb string) ([]string, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if !hasICB(ds, icb) {
		return nil, fmt.Errorf("%w: ICB %q", constants.ErrNotFound, icb)
	}
	return ds.Districts(icb), nil
}

// Practices lists the practices of an ICB, restricted to districts when any are given.
func (s *Service) Practices(ctx context.Context, icb string, districts []string) ([]dto.PracticeOption, error) {
	ds, err := s.Dataset(ctx)
	if err != nil {
		return nil, err
	}
	if !hasICB(ds, icb) {
		return nil, fmt.Errorf("%w: ICB %q", constants.ErrNotFound, icb)
	}

	rows := ds.PracticesIn(icb, districts)
	res := make([]dto.PracticeOption, 0, len(rows))
	for _, p := range rows {
		res = append(res, dto.PracticeOption{Code: p.Code, Display: p.Display, District: p.LADName})
	}
	return res, nil
}

// Selection expands a place request into practice codes. With selectAll every practice
// of the ICB (within districts, if given) is taken, otherwise the explicit list is used.
func (s *Service) Selection(ctx context.Context, icb string, districts, practices []string, selectAll bool) ([]string, error) {
	if !selectAll {
		return practices, nil
	}

	options, err := s.Practices(ctx, icb, districts)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(options))
	for _, o := range options {
		res = append(res, o.Code)
	}
	return res, nil
}

func hasICB(ds *domain.Dataset, icb string) bool {
	for _, name := range ds.ICBs() {
		if name == icb {
			return true
		}
	}
	return false
}
