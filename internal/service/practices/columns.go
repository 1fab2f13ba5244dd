package practices

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

const (
	colCode         = "GP Practice code"
	colName         = "GP Practice name"
	colPostcode     = "GP Practice postcode"
	colPCNCode      = "PCN code"
	colPCNName      = "PCN name"
	colLocationCode = "Location code"
	colLocationName = "Location name"
	colICBCode      = "ICB code"
	colICBName      = "ICB name"
	colRegionCode   = "Region code"
	colRegionName   = "Region name"
	colLADCode      = "LA District code"
	colLADName      = "LA District name"
	colLatitude     = "Latitude"
	colLongitude    = "Longitude"
)

// sourceColumns maps the headers of the published weighted population files to
// canonical column names. Canonical names map to themselves.
var sourceColumns = map[string]string{
	"Practice_Code":     colCode,
	"GP_Practice_Name":  colName,
	"GP practice name":  colName,
	"Practice_Postcode": colPostcode,
	"PCN_Code":          colPCNCode,
	"PCN_Name":          colPCNName,
	"LOC22":             colLocationCode,
	"LOC22name":         colLocationName,
	"ICS22":             colICBCode,
	"ICS22name":         colICBName,
	"ICS name":          colICBName,
	"R22":               colRegionCode,
	"Region22":          colRegionName,
	"LAD21":             colLADCode,
	"LTLA21":            colLADName,

	"pop 2022/23":    string(domain.MetricGPPop),
	"G&A WP":         string(domain.MetricWeightedGA),
	"CS WP":          string(domain.MetricWeightedCommunity),
	"MH WP":          string(domain.MetricWeightedMentalHealth),
	"Mat WP":         string(domain.MetricWeightedMaternity),
	"Health Ineq WP": string(domain.MetricWeightedHealthInequalities),
	"Prescr WP":      string(domain.MetricWeightedPrescribing),
	"Final WP":       string(domain.MetricOverallWeighted),
	"Final PMC WP":   string(domain.MetricWeightedPrimaryCare),

	// legacy extract
	"GP_pop":     string(domain.MetricGPPop),
	"WP_G&A":     string(domain.MetricWeightedGA),
	"WP_CS":      string(domain.MetricWeightedCommunity),
	"WP_MH":      string(domain.MetricWeightedMentalHealth),
	"WP_Mat":     string(domain.MetricWeightedMaternity),
	"WP_Presc":   string(domain.MetricWeightedPrescribing),
	"WP_HI":      string(domain.MetricWeightedHealthInequalities),
	"WP_Overall": string(domain.MetricOverallWeighted),
}

var textColumns = map[string]func(p *domain.Practice, v string){
	colCode:         func(p *domain.Practice, v string) { p.Code = v },
	colName:         func(p *domain.Practice, v string) { p.Name = v },
	colPostcode:     func(p *domain.Practice, v string) { p.Postcode = v },
	colPCNCode:      func(p *domain.Practice, v string) { p.PCNCode = v },
	colPCNName:      func(p *domain.Practice, v string) { p.PCNName = v },
	colLocationCode: func(p *domain.Practice, v string) { p.LocationCode = v },
	colLocationName: func(p *domain.Practice, v string) { p.LocationName = v },
	colICBCode:      func(p *domain.Practice, v string) { p.ICBCode = v },
	colICBName:      func(p *domain.Practice, v string) { p.ICBName = v },
	colRegionCode:   func(p *domain.Practice, v string) { p.RegionCode = v },
	colRegionName:   func(p *domain.Practice, v string) { p.RegionName = v },
	colLADCode:      func(p *domain.Practice, v string) { p.LADCode = v },
	colLADName:      func(p *domain.Practice, v string) { p.LADName = v },
}

var coordColumns = map[string]func(p *domain.Practice, v float64){
	colLatitude:  func(p *domain.Practice, v float64) { p.Latitude = v },
	colLongitude: func(p *domain.Practice, v float64) { p.Longitude = v },
}

var metricColumns = func() map[string]domain.Metric {
	res := make(map[string]domain.Metric, len(domain.SummedMetrics)+1)
	for _, m := range domain.SummedMetrics {
		res[string(m)] = m
	}
	res[string(domain.MetricEACAIndex)] = domain.MetricEACAIndex
	return res
}()

func canonicalColumn(header string) string {
	header = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	if c, ok := sourceColumns[header]; ok {
		return c
	}
	return header
}

// parseRecords turns a header row and its data rows into practices. Unknown columns
// are ignored. Every row carries every metric column of the header: empty cells are 0,
// or 1 with fill set, which also lifts zero cells to 1.
func parseRecords(header []string, records [][]string, fill bool) ([]domain.Practice, error) {
	columns := make([]string, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		columns[i] = canonicalColumn(h)
		seen[columns[i]] = struct{}{}
	}
	for _, required := range []string{colCode, colICBName} {
		if _, ok := seen[required]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", constants.ErrInvalidInput, required)
		}
	}

	res := make([]domain.Practice, 0, len(records))
	for n, record := range records {
		if isBlank(record) {
			continue
		}

		p := domain.Practice{Metrics: make(map[domain.Metric]float64)}
		for i, col := range columns {
			var cell string
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}

			if set, ok := textColumns[col]; ok {
				set(&p, cell)
				continue
			}
			if set, ok := coordColumns[col]; ok && cell != "" {
				v, err := parseNumber(cell)
				if err != nil {
					return nil, fmt.Errorf("%w: row %d column %q: %s", constants.ErrInvalidInput, n+2, col, err.Error())
				}
				set(&p, v)
				continue
			}
			m, ok := metricColumns[col]
			if !ok {
				continue
			}

			if cell == "" {
				p.Metrics[m] = 0
				if fill {
					p.Metrics[m] = 1
				}
				continue
			}
			v, err := parseNumber(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %s", constants.ErrInvalidInput, n+2, col, err.Error())
			}
			if v == 0 && fill {
				v = 1
			}
			p.Metrics[m] = v
		}

		p.Display = domain.DisplayName(p.Code, p.Name)
		res = append(res, p)
	}

	return res, nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
