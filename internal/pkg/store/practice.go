package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/bytedance/sonic"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/store/xpgx"
)

const schema = `
create table if not exists practices (
	code          text primary key,
	name          text not null default '',
	display       text not null default '',
	postcode      text not null default '',
	pcn_code      text not null default '',
	pcn_name      text not null default '',
	location_code text not null default '',
	location_name text not null default '',
	icb_code      text not null default '',
	icb_name      text not null,
	region_code   text not null default '',
	region_name   text not null default '',
	lad_code      text not null default '',
	lad_name      text not null default '',
	latitude      double precision not null default 0,
	longitude     double precision not null default 0,
	metrics       jsonb not null default '{}',
	created_at    timestamptz not null default now(),
	updated_at    timestamptz not null default now()
);
create index if not exists practices_icb_name_idx on practices (icb_name);
`

var practiceColumns = []string{
	"code", "name", "display", "postcode", "pcn_code", "pcn_name",
	"location_code", "location_name", "icb_code", "icb_name",
	"region_code", "region_name", "lad_code", "lad_name",
	"latitude", "longitude", "metrics",
}

type ListPracticesOpts struct {
	ICBName *string
	Codes   []string
}

type practiceRow struct {
	domain.Practice
	Metrics map[string]float64 `db:"metrics"`
}

func (r practiceRow) toDomain() domain.Practice {
	p := r.Practice
	p.Metrics = make(map[domain.Metric]float64, len(r.Metrics))
	for k, v := range r.Metrics {
		p.Metrics[domain.Metric(k)] = v
	}
	return p
}

func (s *store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		logger.Errorf(ctx, "migrate: %s", err.Error())
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *store) UpsertPractices(ctx context.Context, practices []domain.Practice) error {
	if len(practices) == 0 {
		return nil
	}

	query, err := upsertPracticesQuery(practices)
	if err != nil {
		return err
	}

	if _, err := s.pool.Execx(ctx, query); err != nil {
		logger.Error(ctx, err.Error())
		return err
	}

	return nil
}

func upsertPracticesQuery(practices []domain.Practice) (sq.InsertBuilder, error) {
	query := builder().Insert(tablePractices).
		Columns(practiceColumns...)

	for _, p := range practices {
		metrics := make(map[string]float64, len(p.Metrics))
		for k, v := range p.Metrics {
			metrics[string(k)] = v
		}
		metricsJSON, err := sonic.Marshal(metrics)
		if err != nil {
			return query, fmt.Errorf("failed to marshal metrics of %s: %w", p.Code, err)
		}

		query = query.Values(
			p.Code, p.Name, p.Display, p.Postcode, p.PCNCode, p.PCNName,
			p.LocationCode, p.LocationName, p.ICBCode, p.ICBName,
			p.RegionCode, p.RegionName, p.LADCode, p.LADName,
			p.Latitude, p.Longitude, metricsJSON,
		)
	}

	return query.Suffix(`
on conflict (code)
do update
set
	name = excluded.name,
	display = excluded.display,
	postcode = excluded.postcode,
	pcn_code = excluded.pcn_code,
	pcn_name = excluded.pcn_name,
	location_code = excluded.location_code,
	location_name = excluded.location_name,
	icb_code = excluded.icb_code,
	icb_name = excluded.icb_name,
	region_code = excluded.region_code,
	region_name = excluded.region_name,
	lad_code = excluded.lad_code,
	lad_name = excluded.lad_name,
	latitude = excluded.latitude,
	longitude = excluded.longitude,
	metrics = excluded.metrics,
	updated_at = now()`), nil
}

func listPracticesQuery(opts ListPracticesOpts) sq.SelectBuilder {
	query := builder().Select(practiceColumns...).
		From(tablePractices).
		OrderBy("icb_name, code")

	if opts.ICBName != nil {
		query = query.Where(sq.Eq{"icb_name": *opts.ICBName})
	}
	if len(opts.Codes) > 0 {
		query = query.Where(sq.Eq{"code": opts.Codes})
	}

	return query
}

func (s *store) ListPractices(ctx context.Context, opts ListPracticesOpts) ([]domain.Practice, error) {
	rows, err := xpgx.Selectx[practiceRow](ctx, s.pool, listPracticesQuery(opts))
	if err != nil {
		logger.Error(ctx, err.Error())
		return nil, wrapErr(err)
	}

	res := make([]domain.Practice, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.toDomain())
	}
	return res, nil
}
