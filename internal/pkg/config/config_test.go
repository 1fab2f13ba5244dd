package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/viper"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

func TestInitDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := Init(""); err != nil {
		t.Fatalf("Init: %v", err)
	}

	p, err := DefaultPlace()
	if err != nil {
		t.Fatalf("DefaultPlace: %v", err)
	}
	if !reflect.DeepEqual(p, domain.DefaultPlace()) {
		t.Errorf("default place = %+v", p)
	}
	if RoundPlaces() != 3 || MetricPlaces() != 2 {
		t.Errorf("rounding = %d/%d, want 3/2", RoundPlaces(), MetricPlaces())
	}
	if viper.GetString(constants.ViperSessionStoreKey) != constants.SessionStoreMemory {
		t.Errorf("session store = %q", viper.GetString(constants.ViperSessionStoreKey))
	}
}

func TestInitFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
places:
  exclusive_membership: true
  default:
    label: Home
    icb: R1
    practices: [P1, P2]
export:
  round_places: 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("PLACEALLOC_HTTP_ADDR", ":9999")

	if err := Init(path); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := viper.GetString(constants.ViperHTTPAddrKey); got != ":9999" {
		t.Errorf("http.addr = %q, want env override", got)
	}
	if !viper.GetBool(constants.ViperPlacesExclusiveKey) {
		t.Error("exclusive membership not read from file")
	}
	if RoundPlaces() != 4 {
		t.Errorf("round places = %d, want 4", RoundPlaces())
	}

	p, err := DefaultPlace()
	if err != nil {
		t.Fatalf("DefaultPlace: %v", err)
	}
	want := domain.Place{Label: "Home", ICB: "R1", Practices: []string{"P1", "P2"}}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("default place = %+v, want %+v", p, want)
	}
}

func TestInitMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := Init(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
