// Package resolver answers "which stop is closest to this point" against a
// registry, either with a full scan or through a k-d tree index.
package resolver

import (
	"errors"
	"fmt"
	"strings"

	"transitguide.org/internal/geo"
	"transitguide.org/internal/models"
	"transitguide.org/internal/registry"
)

// ErrNoStopsAvailable means the (filtered) registry is empty. It is an
// expected outcome of a narrow filter, not a failure of the metric.
var ErrNoStopsAvailable = errors.New("no stops available")

// FindNearest scans every stop in reg and returns the geodesically closest
// one to ref. When several stops share the minimum distance the one that
// comes first in registry order is returned.
func FindNearest(ref models.Point, reg *registry.Registry) (models.NearestStopResult, error) {
	if reg.Len() == 0 {
		return models.NearestStopResult{}, ErrNoStopsAvailable
	}
	if err := geo.ValidatePoint(ref); err != nil {
		return models.NearestStopResult{}, fmt.Errorf("reference point: %w", err)
	}

	best := -1
	bestDist := 0.0
	for i := 0; i < reg.Len(); i++ {
		stop := reg.At(i)
		d, err := geo.Distance(ref, stop.Location())
		if err != nil {
			return models.NearestStopResult{}, fmt.Errorf("stop %s: %w", stop.Key(), err)
		}
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return models.NearestStopResult{Stop: reg.At(best), DistanceMiles: bestDist}, nil
}

// Scan is a registry.Finder backed by FindNearest.
type Scan struct {
	reg *registry.Registry
}

func NewScan(reg *registry.Registry) *Scan {
	return &Scan{reg: reg}
}

func (s *Scan) Nearest(ref models.Point) (models.NearestStopResult, error) {
	return FindNearest(ref, s.reg)
}

// Mode selects the Finder implementation used for snapshots.
type Mode string

const (
	ModeScan   Mode = "scan"
	ModeKDTree Mode = "kdtree"
)

// ParseMode parses an index mode; the empty string selects ModeScan.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeScan:
		return ModeScan, nil
	case ModeKDTree:
		return ModeKDTree, nil
	}
	return "", fmt.Errorf("unknown index mode %q (want scan or kdtree)", s)
}

// Builder returns the registry.FinderBuilder for a mode.
func Builder(mode Mode) registry.FinderBuilder {
	if mode == ModeKDTree {
		return func(reg *registry.Registry) registry.Finder { return NewKDIndex(reg) }
	}
	return func(reg *registry.Registry) registry.Finder { return NewScan(reg) }
}
