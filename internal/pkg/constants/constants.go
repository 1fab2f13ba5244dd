package constants

const (
	ViperHTTPAddrKey         = "http.addr"
	ViperHTTPAllowOriginsKey = "http.allow_origins"
	ViperLoggerModeKey       = "logger.mode"
	ViperSecretKey           = "secret_key"

	ViperDatasetPathKey   = "dataset.path"
	ViperDatasetSourceKey = "dataset.source"
	ViperDatasetSheetKey  = "dataset.sheet"
	ViperDatasetFillKey   = "dataset.fill_missing"

	ViperPlacesExclusiveKey       = "places.exclusive_membership"
	ViperPlacesDefaultLabelKey    = "places.default.label"
	ViperPlacesDefaultICBKey      = "places.default.icb"
	ViperPlacesDefaultPracticeKey = "places.default.practices"

	ViperSessionStoreKey = "session.store"
	ViperSessionTTLKey   = "session.ttl"
	ViperRedisAddrKey    = "redis.addr"
	ViperPostgresDSNKey  = "postgres.dsn"

	ViperExportRoundKey  = "export.round_places"
	ViperExportMetricKey = "export.metric_places"
)

const (
	CookieKeySecretToken = "secret_token"
	AdminTokenSubject    = "admin"
	HeaderSessionID      = "X-Session-ID"
)

const (
	DatasetSourceFile     = "file"
	DatasetSourcePostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)
