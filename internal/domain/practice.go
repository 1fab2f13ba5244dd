package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ougirez/placealloc/internal/pkg/constants"
)

// Practice is one GP practice row of the weighted population dataset.
type Practice struct {
	Code         string             `db:"code" json:"code"`
	Name         string             `db:"name" json:"name"`
	Display      string             `db:"display" json:"display"`
	Postcode     string             `db:"postcode" json:"postcode,omitempty"`
	PCNCode      string             `db:"pcn_code" json:"pcn_code,omitempty"`
	PCNName      string             `db:"pcn_name" json:"pcn_name,omitempty"`
	LocationCode string             `db:"location_code" json:"location_code,omitempty"`
	LocationName string             `db:"location_name" json:"location_name,omitempty"`
	ICBCode      string             `db:"icb_code" json:"icb_code,omitempty"`
	ICBName      string             `db:"icb_name" json:"icb_name"`
	RegionCode   string             `db:"region_code" json:"region_code,omitempty"`
	RegionName   string             `db:"region_name" json:"region_name,omitempty"`
	LADCode      string             `db:"lad_code" json:"lad_code,omitempty"`
	LADName      string             `db:"lad_name" json:"lad_name,omitempty"`
	Latitude     float64            `db:"latitude" json:"latitude,omitempty"`
	Longitude    float64            `db:"longitude" json:"longitude,omitempty"`
	Metrics      map[Metric]float64 `db:"-" json:"metrics"`
}

func DisplayName(code, name string) string {
	return code + ": " + name
}

// RegionID is the ICB the practice is normalised against.
func (p Practice) RegionID() string {
	return p.ICBName
}

// Dataset is an immutable, indexed set of practices. It is safe for concurrent reads.
// Its metric columns are those carried by any row; a row without a column counts as 0.
type Dataset struct {
	practices []Practice
	byCode    map[string]int
	byDisplay map[string]int
	metrics   map[Metric]struct{}
}

func NewDataset(practices []Practice) (*Dataset, error) {
	ds := &Dataset{
		practices: make([]Practice, 0, len(practices)),
		byCode:    make(map[string]int, len(practices)),
		byDisplay: make(map[string]int, len(practices)),
		metrics:   make(map[Metric]struct{}),
	}

	for i, p := range practices {
		p.Code = strings.TrimSpace(p.Code)
		if p.Code == "" {
			return nil, fmt.Errorf("row %d: empty practice code", i)
		}
		if strings.TrimSpace(p.ICBName) == "" {
			return nil, fmt.Errorf("practice %s: empty ICB", p.Code)
		}
		if _, ok := ds.byCode[p.Code]; ok {
			return nil, fmt.Errorf("practice %s: duplicate code", p.Code)
		}
		if p.Display == "" {
			p.Display = DisplayName(p.Code, p.Name)
		}

		ds.byCode[p.Code] = len(ds.practices)
		ds.byDisplay[p.Display] = len(ds.practices)
		ds.practices = append(ds.practices, p)

		for m := range p.Metrics {
			ds.metrics[m] = struct{}{}
		}
	}

	return ds, nil
}

func (d *Dataset) Len() int {
	return len(d.practices)
}

// Rows returns the practices in load order. Callers must not modify the result.
func (d *Dataset) Rows() []Practice {
	return d.practices
}

// Lookup resolves a practice by code or by display name.
func (d *Dataset) Lookup(id string) (Practice, bool) {
	if i, ok := d.byCode[id]; ok {
		return d.practices[i], true
	}
	if i, ok := d.byDisplay[id]; ok {
		return d.practices[i], true
	}
	return Practice{}, false
}

// Resolve maps a code or display name to the practice code and its ICB.
func (d *Dataset) Resolve(id string) (code string, icb string, ok bool) {
	p, ok := d.Lookup(id)
	if !ok {
		return "", "", false
	}
	return p.Code, p.RegionID(), true
}

func (d *Dataset) HasMetric(m Metric) bool {
	_, ok := d.metrics[m]
	return ok
}

// Require fails with ErrUnknownMetric naming every metric the dataset does not carry.
func (d *Dataset) Require(metrics ...Metric) error {
	var missing []string
	seen := make(map[Metric]struct{}, len(metrics))
	for _, m := range metrics {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		if !d.HasMetric(m) {
			missing = append(missing, string(m))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", constants.ErrUnknownMetric, strings.Join(missing, ", "))
	}
	return nil
}

// ICBs returns the sorted distinct ICB names.
func (d *Dataset) ICBs() []string {
	return d.distinct(func(p Practice) (string, bool) { return p.ICBName, true })
}

// Districts returns the sorted distinct LA districts of an ICB.
func (d *Dataset) Districts(icb string) []string {
	return d.distinct(func(p Practice) (string, bool) {
		return p.LADName, p.ICBName == icb && p.LADName != ""
	})
}

// PracticesIn returns the practices of an ICB, optionally restricted to some districts.
func (d *Dataset) PracticesIn(icb string, districts []string) []Practice {
	filter := make(map[string]struct{}, len(districts))
	for _, lad := range districts {
		filter[lad] = struct{}{}
	}

	var res []Practice
	for _, p := range d.practices {
		if p.ICBName != icb {
			continue
		}
		if len(filter) > 0 {
			if _, ok := filter[p.LADName]; !ok {
				continue
			}
		}
		res = append(res, p)
	}
	return res
}

func (d *Dataset) distinct(key func(Practice) (string, bool)) []string {
	seen := make(map[string]struct{})
	var res []string
	for _, p := range d.practices {
		k, ok := key(p)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
