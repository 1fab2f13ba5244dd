package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ougirez/placealloc/internal/domain"
	"github.com/ougirez/placealloc/internal/domain/dto"
	"github.com/ougirez/placealloc/internal/pkg/constants"
)

// PracticeResolver maps a practice identifier (code or display name) to its code and ICB.
type PracticeResolver interface {
	Resolve(id string) (code string, icb string, ok bool)
}

type Option func(*Registry)

// WithDefault overrides the built-in default place.
func WithDefault(p domain.Place) Option {
	return func(r *Registry) {
		r.defaultPlace = p.Clone()
	}
}

// WithExclusiveMembership rejects places that share a practice with another place.
func WithExclusiveMembership(exclusive bool) Option {
	return func(r *Registry) {
		r.exclusive = exclusive
	}
}

// WithResolver enables practice and ICB checks on Create.
func WithResolver(resolver PracticeResolver) Option {
	return func(r *Registry) {
		r.resolver = resolver
	}
}

// Registry is the ordered set of places of one session. It is never empty: when the
// last place goes, the default place comes back.
type Registry struct {
	mx           sync.RWMutex
	places       []domain.Place
	defaultPlace domain.Place
	exclusive    bool
	resolver     PracticeResolver
}

func New(opts ...Option) *Registry {
	r := &Registry{defaultPlace: domain.DefaultPlace()}
	for _, opt := range opts {
		opt(r)
	}
	r.places = []domain.Place{r.defaultPlace.Clone()}
	return r
}

func (r *Registry) DefaultLabel() string {
	return r.defaultPlace.Label
}

func (r *Registry) isReserved(label string) bool {
	return label == r.defaultPlace.Label || label == dto.PlacesDocumentKey
}

// Create appends a new place. The default place is dropped when it is the only one.
func (r *Registry) Create(label, icb string, practices []string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("%w: place label is empty", constants.ErrInvalidInput)
	}
	if r.isReserved(label) {
		return fmt.Errorf("%w: %q is reserved, please rename the place", constants.ErrInvalidInput, label)
	}
	if strings.TrimSpace(icb) == "" {
		return fmt.Errorf("%w: place ICB is empty", constants.ErrInvalidInput)
	}

	members := dedupe(practices)
	if len(members) == 0 {
		return constants.ErrEmptySelection
	}

	r.mx.Lock()
	defer r.mx.Unlock()

	if r.indexOf(label) >= 0 {
		return fmt.Errorf("%w: %q", constants.ErrDuplicateLabel, label)
	}

	if r.resolver != nil {
		resolved, err := r.resolveMembers(icb, members)
		if err != nil {
			return err
		}
		members = resolved
	}

	replaceDefault := r.onlyDefault()
	if r.exclusive && !replaceDefault {
		if err := r.checkOverlap(members); err != nil {
			return err
		}
	}

	place := domain.Place{Label: label, ICB: icb, Practices: members}
	if replaceDefault {
		r.places = []domain.Place{place}
	} else {
		r.places = append(r.places, place)
	}

	return nil
}

// Delete removes a place, reinstating the default place if the registry would become empty.
func (r *Registry) Delete(label string) error {
	r.mx.Lock()
	defer r.mx.Unlock()

	i := r.indexOf(label)
	if i < 0 {
		return fmt.Errorf("%w: %q", constants.ErrNotFound, label)
	}

	r.places = append(r.places[:i:i], r.places[i+1:]...)
	if len(r.places) == 0 {
		r.places = []domain.Place{r.defaultPlace.Clone()}
	}

	return nil
}

func (r *Registry) Get(label string) (domain.Place, error) {
	r.mx.RLock()
	defer r.mx.RUnlock()

	i := r.indexOf(label)
	if i < 0 {
		return domain.Place{}, fmt.Errorf("%w: %q", constants.ErrNotFound, label)
	}
	return r.places[i].Clone(), nil
}

// List returns a snapshot of the places in insertion order.
func (r *Registry) List() []domain.Place {
	r.mx.RLock()
	defer r.mx.RUnlock()

	res := make([]domain.Place, 0, len(r.places))
	for _, p := range r.places {
		res = append(res, p.Clone())
	}
	return res
}

func (r *Registry) Labels() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()

	res := make([]string, 0, len(r.places))
	for _, p := range r.places {
		res = append(res, p.Label)
	}
	return res
}

// IsDefault reports whether the registry holds only the default place.
func (r *Registry) IsDefault() bool {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return r.onlyDefault()
}

func (r *Registry) Reset() {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.places = []domain.Place{r.defaultPlace.Clone()}
}

// Import replaces every place with the document's. On error the registry is untouched.
func (r *Registry) Import(doc *dto.PlacesDocument) error {
	places, err := doc.ToPlaces()
	if err != nil {
		return err
	}

	r.mx.Lock()
	defer r.mx.Unlock()
	r.places = places
	return nil
}

func (r *Registry) Export() *dto.PlacesDocument {
	return dto.NewPlacesDocument(r.List())
}

func (r *Registry) onlyDefault() bool {
	return len(r.places) == 1 && r.places[0].Label == r.defaultPlace.Label
}

func (r *Registry) indexOf(label string) int {
	for i, p := range r.places {
		if p.Label == label {
			return i
		}
	}
	return -1
}

func (r *Registry) resolveMembers(icb string, members []string) ([]string, error) {
	res := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		code, practiceICB, ok := r.resolver.Resolve(m)
		if !ok {
			return nil, fmt.Errorf("%w: %q", constants.ErrUnknownPractice, m)
		}
		if practiceICB != icb {
			return nil, fmt.Errorf("%w: %q belongs to %q, not %q", constants.ErrCrossRegion, m, practiceICB, icb)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		res = append(res, code)
	}
	return res, nil
}

func (r *Registry) checkOverlap(members []string) error {
	owner := make(map[string]string)
	for _, p := range r.places {
		for _, m := range p.Practices {
			owner[r.canonical(m)] = p.Label
		}
	}
	for _, m := range members {
		if label, ok := owner[r.canonical(m)]; ok {
			return fmt.Errorf("%w: %q is already in %q", constants.ErrMemberOverlap, m, label)
		}
	}
	return nil
}

func (r *Registry) canonical(id string) string {
	if r.resolver == nil {
		return id
	}
	if code, _, ok := r.resolver.Resolve(id); ok {
		return code
	}
	return id
}

func dedupe(ids []string) []string {
	res := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
