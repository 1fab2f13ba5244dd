package store

import (
	"context"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/store/xpgx"
)

type Pool = xpgx.Pool

type Store interface {
	Migrate(ctx context.Context) error
	UpsertPractices(ctx context.Context, practices []domain.Practice) error
	ListPractices(ctx context.Context, opts ListPracticesOpts) ([]domain.Practice, error)
}

type store struct {
	pool Pool
}

func NewStore(pool Pool) Store {
	return &store{pool}
}
