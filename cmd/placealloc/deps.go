package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/pkg/config"
	"github.com/ougirez/placealloc/internal/pkg/constants"
	"github.com/ougirez/placealloc/internal/pkg/logger"
	"github.com/ougirez/placealloc/internal/pkg/store"
	"github.com/ougirez/placealloc/internal/pkg/store/xpgx"
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/auth"
	"github.com/ougirez/placealloc/internal/service/practices"
	"github.com/ougirez/placealloc/internal/service/registry"
	"github.com/ougirez/placealloc/internal/service/session"
)

const connectRetries = 5

type deps struct {
	pool  xpgx.Pool
	redis *redis.Client

	practices  *practices.Service
	sessions   *session.Service
	allocation *allocation.Service
	auth       *auth.Service
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// validate fails on a dataset that cannot be loaded or misses a metric column.
func (d *deps) validate(ctx context.Context) error {
	if err := d.allocation.Validate(ctx); err != nil {
		return fmt.Errorf("dataset check: %w", err)
	}
	return nil
}

func retry(ctx context.Context, what string, op func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), connectRetries), ctx)
	return backoff.RetryNotify(op, b, func(err error, next time.Duration) {
		logger.Warnf(ctx, "connect %s: %s, retrying in %s", what, err.Error(), next)
	})
}

func connectPostgres(ctx context.Context) (xpgx.Pool, error) {
	dsn := viper.GetString(constants.ViperPostgresDSNKey)
	if dsn == "" {
		return nil, fmt.Errorf("%w: %s is not set", constants.ErrInvalidInput, constants.ViperPostgresDSNKey)
	}

	var pool xpgx.Pool
	err := retry(ctx, "postgres", func() error {
		p, err := xpgx.NewPool(ctx, dsn)
		if err != nil {
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func connectRedis(ctx context.Context) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: viper.GetString(constants.ViperRedisAddrKey),
	})
	err := retry(ctx, "redis", func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func practicesConfig() practices.Config {
	return practices.Config{
		Source: viper.GetString(constants.ViperDatasetSourceKey),
		Path:   viper.GetString(constants.ViperDatasetPathKey),
		Sheet:  viper.GetString(constants.ViperDatasetSheetKey),
		Fill:   viper.GetBool(constants.ViperDatasetFillKey),
	}
}

func registryOptions() ([]registry.Option, error) {
	def, err := config.DefaultPlace()
	if err != nil {
		return nil, err
	}
	return []registry.Option{
		registry.WithDefault(def),
		registry.WithExclusiveMembership(viper.GetBool(constants.ViperPlacesExclusiveKey)),
	}, nil
}

func newDeps(ctx context.Context) (*deps, error) {
	d := &deps{}

	var st store.Store
	if viper.GetString(constants.ViperDatasetSourceKey) == constants.DatasetSourcePostgres ||
		viper.GetString(constants.ViperPostgresDSNKey) != "" {
		pool, err := connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		st = store.NewStore(pool)
	}
	d.practices = practices.NewPracticesService(st, practicesConfig())

	var sessionStore session.Store
	switch mode := viper.GetString(constants.ViperSessionStoreKey); mode {
	case constants.SessionStoreRedis:
		client, err := connectRedis(ctx)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.redis = client
		sessionStore = session.NewRedisStore(client, viper.GetDuration(constants.ViperSessionTTLKey))
	case constants.SessionStoreMemory, "":
		sessionStore = session.NewMemoryStore(viper.GetDuration(constants.ViperSessionTTLKey))
	default:
		d.Close()
		return nil, fmt.Errorf("%w: unknown session store %q", constants.ErrInvalidInput, mode)
	}

	opts, err := registryOptions()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.sessions = session.NewSessionService(sessionStore, d.practices, opts...)
	d.allocation = allocation.NewAllocationService(
		d.practices,
		allocation.NewDefaultCalculator(),
		config.RoundPlaces(),
		config.MetricPlaces(),
	)
	d.auth = auth.NewAuthService(viper.GetString(constants.ViperSecretKey))

	return d, nil
}
