package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"transitguide.org/internal/geo"
	"transitguide.org/internal/models"
	"transitguide.org/internal/normalize"
)

// ErrNotLoaded is returned by Store.Current before the first refresh has
// produced a snapshot.
var ErrNotLoaded = errors.New("stop data not loaded yet")

// Finder answers nearest-stop queries against one registry.
type Finder interface {
	Nearest(ref models.Point) (models.NearestStopResult, error)
}

// FinderBuilder prepares a Finder for a registry when a snapshot is built.
type FinderBuilder func(*Registry) Finder

// Snapshot is everything one refresh produced. It is never mutated after
// NewSnapshot returns; a refresh builds a new one and swaps it in.
type Snapshot struct {
	ID          string
	LoadedAt    time.Time
	Landmarks   []models.LandmarkRecord
	Stops       *Registry
	BoundingBox *geo.BoundingBox
	Warnings    []string
	Reports     []normalize.Report

	views       map[TypeFilter]*Registry
	finders     map[TypeFilter]Finder
	landmarkIdx map[string]int
	landmarkIDs map[string]int
}

// NewSnapshot assembles a snapshot. Landmarks are expected in display order.
// build is called once per filter; a nil build leaves Finder returning nil.
func NewSnapshot(landmarks []models.LandmarkRecord, stops *Registry, warnings []string, reports []normalize.Report, build FinderBuilder) *Snapshot {
	if stops == nil {
		stops = New(nil)
	}
	s := &Snapshot{
		ID:          uuid.NewString(),
		LoadedAt:    time.Now().UTC(),
		Landmarks:   append([]models.LandmarkRecord(nil), landmarks...),
		Stops:       stops,
		Warnings:    append([]string(nil), warnings...),
		Reports:     append([]normalize.Report(nil), reports...),
		views:       make(map[TypeFilter]*Registry, len(Filters)),
		finders:     make(map[TypeFilter]Finder, len(Filters)),
		landmarkIdx: make(map[string]int, len(landmarks)),
		landmarkIDs: make(map[string]int, len(landmarks)),
	}
	for i, l := range s.Landmarks {
		s.landmarkIdx[l.Name] = i
		s.landmarkIDs[l.ID] = i
	}
	if bbox, err := geo.ComputeBoundingBox(stops.stops); err == nil {
		s.BoundingBox = &bbox
	}
	for _, f := range Filters {
		view := stops.Filter(f)
		s.views[f] = view
		if build != nil {
			s.finders[f] = build(view)
		}
	}
	return s
}

// View returns the registry for a filter.
func (s *Snapshot) View(f TypeFilter) *Registry {
	if v, ok := s.views[f]; ok {
		return v
	}
	return s.Stops.Filter(f)
}

// Finder returns the prepared finder for a filter.
func (s *Snapshot) Finder(f TypeFilter) Finder {
	return s.finders[f]
}

// LandmarkByName looks a landmark up by its selection key.
func (s *Snapshot) LandmarkByName(name string) (models.LandmarkRecord, bool) {
	i, ok := s.landmarkIdx[name]
	if !ok {
		return models.LandmarkRecord{}, false
	}
	return s.Landmarks[i], true
}

// LandmarkByID looks a landmark up by id.
func (s *Snapshot) LandmarkByID(id string) (models.LandmarkRecord, bool) {
	i, ok := s.landmarkIDs[id]
	if !ok {
		return models.LandmarkRecord{}, false
	}
	return s.Landmarks[i], true
}

// Store holds the current snapshot. Readers never see a partially built one.
type Store struct {
	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Current returns the latest snapshot or ErrNotLoaded.
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, ErrNotLoaded
	}
	return s.snapshot, nil
}

// Swap replaces the current snapshot and returns the previous one.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshot
	s.snapshot = next
	return prev
}
