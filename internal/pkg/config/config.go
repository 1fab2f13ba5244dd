package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

const EnvPrefix = "PLACEALLOC"

func setDefaults() {
	def := domain.DefaultPlace()

	viper.SetDefault(constants.ViperHTTPAddrKey, ":8080")
	viper.SetDefault(constants.ViperHTTPAllowOriginsKey, []string{"http://localhost:3000"})
	viper.SetDefault(constants.ViperLoggerModeKey, "dev")
	viper.SetDefault(constants.ViperSecretKey, "")

	viper.SetDefault(constants.ViperDatasetSourceKey, constants.DatasetSourceFile)
	viper.SetDefault(constants.ViperDatasetPathKey, "data/wp_data_2022LAD.csv")
	viper.SetDefault(constants.ViperDatasetSheetKey, "")
	viper.SetDefault(constants.ViperDatasetFillKey, true)

	viper.SetDefault(constants.ViperPlacesExclusiveKey, false)
	viper.SetDefault(constants.ViperPlacesDefaultLabelKey, def.Label)
	viper.SetDefault(constants.ViperPlacesDefaultICBKey, def.ICB)
	viper.SetDefault(constants.ViperPlacesDefaultPracticeKey, def.Practices)

	viper.SetDefault(constants.ViperSessionStoreKey, constants.SessionStoreMemory)
	viper.SetDefault(constants.ViperSessionTTLKey, 24*time.Hour)
	viper.SetDefault(constants.ViperRedisAddrKey, "localhost:6379")
	viper.SetDefault(constants.ViperPostgresDSNKey, "")

	viper.SetDefault(constants.ViperExportRoundKey, 3)
	viper.SetDefault(constants.ViperExportMetricKey, 2)
}

// Init registers defaults, binds PLACEALLOC_* env variables and reads the config file
// when one is given.
func Init(path string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("viper.ReadInConfig: %w", err)
	}
	return nil
}

// DefaultPlace builds the built-in place from config.
func DefaultPlace() (domain.Place, error) {
	p := domain.Place{
		Label:     strings.TrimSpace(viper.GetString(constants.ViperPlacesDefaultLabelKey)),
		ICB:       strings.TrimSpace(viper.GetString(constants.ViperPlacesDefaultICBKey)),
		Practices: viper.GetStringSlice(constants.ViperPlacesDefaultPracticeKey),
	}
	if p.Label == "" || p.ICB == "" || len(p.Practices) == 0 {
		return domain.Place{}, fmt.Errorf("%w: default place needs a label, an icb and practices", constants.ErrInvalidInput)
	}
	return p, nil
}

func RoundPlaces() int32 {
	return viper.GetInt32(constants.ViperExportRoundKey)
}

func MetricPlaces() int32 {
	return viper.GetInt32(constants.ViperExportMetricKey)
}
