package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

// PlacesDocumentKey is the key holding the ordered label list in a places document.
const PlacesDocumentKey = "places"

type PlaceEntry struct {
	GPs []string `json:"gps"`
	ICB string   `json:"icb"`
}

// PlacesDocument is the import/export form of a place registry:
//
//	{"<label>": {"gps": [...], "icb": "..."}, ..., "places": ["<label>", ...]}
//
// Places is authoritative for order; Entries supply membership and ICB binding.
type PlacesDocument struct {
	Places  []string
	Entries map[string]PlaceEntry
}

func NewPlacesDocument(places []domain.Place) *PlacesDocument {
	doc := &PlacesDocument{
		Places:  make([]string, 0, len(places)),
		Entries: make(map[string]PlaceEntry, len(places)),
	}
	for _, p := range places {
		doc.Places = append(doc.Places, p.Label)
		doc.Entries[p.Label] = PlaceEntry{
			GPs: append([]string(nil), p.Practices...),
			ICB: p.ICB,
		}
	}
	return doc
}

// Validate checks the document shape without touching any registry.
func (d *PlacesDocument) Validate() error {
	if d == nil || len(d.Places) == 0 {
		return fmt.Errorf("%w: empty %q list", constants.ErrMalformedDocument, PlacesDocumentKey)
	}

	seen := make(map[string]struct{}, len(d.Places))
	for _, label := range d.Places {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: empty place label", constants.ErrMalformedDocument)
		}
		if label == PlacesDocumentKey {
			return fmt.Errorf("%w: reserved label %q", constants.ErrMalformedDocument, label)
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: duplicate place %q", constants.ErrMalformedDocument, label)
		}
		seen[label] = struct{}{}

		entry, ok := d.Entries[label]
		if !ok {
			return fmt.Errorf("%w: missing entry for %q", constants.ErrMalformedDocument, label)
		}
		if strings.TrimSpace(entry.ICB) == "" {
			return fmt.Errorf("%w: place %q has no icb", constants.ErrMalformedDocument, label)
		}
		if len(entry.GPs) == 0 {
			return fmt.Errorf("%w: place %q has no gps", constants.ErrMalformedDocument, label)
		}
		for _, gp := range entry.GPs {
			if strings.TrimSpace(gp) == "" {
				return fmt.Errorf("%w: place %q has an empty gp", constants.ErrMalformedDocument, label)
			}
		}
	}

	return nil
}

// ToPlaces returns the places in document order.
func (d *PlacesDocument) ToPlaces() ([]domain.Place, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	res := make([]domain.Place, 0, len(d.Places))
	for _, label := range d.Places {
		entry := d.Entries[label]
		res = append(res, domain.Place{
			Label:     label,
			ICB:       entry.ICB,
			Practices: append([]string(nil), entry.GPs...),
		})
	}
	return res, nil
}

func (d PlacesDocument) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, label := range d.Places {
		key, err := json.Marshal(label)
		if err != nil {
			return nil, err
		}
		entry := d.Entries[label]
		if entry.GPs == nil {
			entry.GPs = []string{}
		}
		val, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		buf.WriteByte(',')
	}

	places := d.Places
	if places == nil {
		places = []string{}
	}
	val, err := json.Marshal(places)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + PlacesDocumentKey + `":`)
	buf.Write(val)
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes only the entries named by the places list; other keys are ignored.
func (d *PlacesDocument) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("%w: %s", constants.ErrMalformedDocument, err.Error())
	}

	rawPlaces, ok := raw[PlacesDocumentKey]
	if !ok {
		return fmt.Errorf("%w: missing %q key", constants.ErrMalformedDocument, PlacesDocumentKey)
	}

	var places []string
	if err := json.Unmarshal(rawPlaces, &places); err != nil {
		return fmt.Errorf("%w: %q must be a list of labels", constants.ErrMalformedDocument, PlacesDocumentKey)
	}

	entries := make(map[string]PlaceEntry, len(places))
	for _, label := range places {
		rawEntry, ok := raw[label]
		if !ok {
			return fmt.Errorf("%w: missing entry for %q", constants.ErrMalformedDocument, label)
		}

		var entry struct {
			GPs *[]string `json:"gps"`
			ICB *string   `json:"icb"`
		}
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			return fmt.Errorf("%w: entry %q: %s", constants.ErrMalformedDocument, label, err.Error())
		}
		if entry.GPs == nil || entry.ICB == nil {
			return fmt.Errorf("%w: entry %q needs gps and icb", constants.ErrMalformedDocument, label)
		}
		entries[label] = PlaceEntry{GPs: *entry.GPs, ICB: *entry.ICB}
	}

	parsed := PlacesDocument{Places: places, Entries: entries}
	if err := parsed.Validate(); err != nil {
		return err
	}

	*d = parsed
	return nil
}
