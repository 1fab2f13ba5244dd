package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/registry"
)

// Service owns the place registry of every session. Registries live in the store as
// places documents and are rebuilt per request.
type Service struct {
	store    Store
	datasets allocation.DatasetProvider
	opts     []registry.Option
}

func NewSessionService(store Store, datasets allocation.DatasetProvider, opts ...registry.Option) *Service {
	return &Service{store: store, datasets: datasets, opts: opts}
}

// Create starts a session holding only the default place.
func (s *Service) Create(ctx context.Context) (string, []domain.Place, error) {
	id := uuid.NewString()
	reg := registry.New(s.opts...)

	if err := s.store.Save(ctx, id, reg.Export()); err != nil {
		logger.Errorf(ctx, "store.Save: %s", err.Error())
		return "", nil, fmt.Errorf("store.Save: %w", err)
	}

	logger.Infof(ctx, "session %s created", id)
	return id, reg.List(), nil
}

// Places returns the places of a session in registry order.
func (s *Service) Places(ctx context.Context, id string) ([]domain.Place, error) {
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.ToPlaces()
}

func (s *Service) Document(ctx context.Context, id string) (*dto.PlacesDocument, error) {
	return s.store.Load(ctx, id)
}

// Mutate runs fn on the session registry under the session lock and stores the result.
// Nothing is stored when fn fails.
func (s *Service) Mutate(ctx context.Context, id string, fn func(reg *registry.Registry) error) ([]domain.Place, error) {
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			logger.Warnf(ctx, "unlock session %s: %s", id, err.Error())
		}
	}()

	reg, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, id, reg.Export()); err != nil {
		logger.Errorf(ctx, "store.Save: %s", err.Error())
		return nil, fmt.Errorf("store.Save: %w", err)
	}
	return reg.List(), nil
}

func (s *Service) CreatePlace(ctx context.Context, id string, place domain.Place) ([]domain.Place, error) {
	return s.Mutate(ctx, id, func(reg *registry.Registry) error {
		return reg.Create(place.Label, place.ICB, place.Practices)
	})
}

func (s *Service) DeletePlace(ctx context.Context, id, label string) ([]domain.Place, error) {
	return s.Mutate(ctx, id, func(reg *registry.Registry) error {
		return reg.Delete(label)
	})
}

func (s *Service) Reset(ctx context.Context, id string) ([]domain.Place, error) {
	return s.Mutate(ctx, id, func(reg *registry.Registry) error {
		reg.Reset()
		return nil
	})
}

// Import replaces the session places with the document's.
func (s *Service) Import(ctx context.Context, id string, doc *dto.PlacesDocument) ([]domain.Place, error) {
	return s.Mutate(ctx, id, func(reg *registry.Registry) error {
		return reg.Import(doc)
	})
}

// Delete removes the session under its lock, so a mutation in flight cannot store it again.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock, err := s.store.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			logger.Warnf(ctx, "unlock session %s: %s", id, err.Error())
		}
	}()

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	logger.Infof(ctx, "session %s deleted", id)
	return nil
}

func (s *Service) open(ctx context.Context, id string) (*registry.Registry, error) {
	doc, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := s.opts
	if s.datasets != nil {
		ds, err := s.datasets.Dataset(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(append([]registry.Option(nil), s.opts...), registry.WithResolver(ds))
	}

	reg := registry.New(opts...)
	if err := reg.Import(doc); err != nil {
		return nil, fmt.Errorf("stored document of session %s: %w", id, err)
	}
	return reg, nil
}
