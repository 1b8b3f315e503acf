package resolver

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"transitguide.org/internal/geo"
	"transitguide.org/internal/models"
	"transitguide.org/internal/registry"
)

// candidateMargin widens the spherical search radius so that every stop whose
// ellipsoidal distance could beat the spherical nearest one is still checked.
// Ellipsoidal and spherical distances differ by well under one percent.
const candidateMargin = 1.02

// KDIndex is a registry.Finder that prunes with a k-d tree over unit vectors
// and then ranks the surviving candidates by exact geodesic distance. It
// returns the same stop as FindNearest, including the registry-order
// tie-break.
type KDIndex struct {
	reg  *registry.Registry
	tree *kdtree.Tree
}

// NewKDIndex builds the index. The registry is not modified.
func NewKDIndex(reg *registry.Registry) *KDIndex {
	points := make(stopPoints, reg.Len())
	for i := range points {
		points[i] = stopPoint{v: geo.UnitVector(reg.At(i).Location()), idx: i}
	}
	idx := &KDIndex{reg: reg}
	if len(points) > 0 {
		idx.tree = kdtree.New(points, false)
	}
	return idx
}

func (k *KDIndex) Nearest(ref models.Point) (models.NearestStopResult, error) {
	if k.reg.Len() == 0 || k.tree == nil {
		return models.NearestStopResult{}, ErrNoStopsAvailable
	}
	if err := geo.ValidatePoint(ref); err != nil {
		return models.NearestStopResult{}, fmt.Errorf("reference point: %w", err)
	}

	q := stopPoint{v: geo.UnitVector(ref), idx: -1}
	_, sqChord := k.tree.Nearest(q)
	angle := geo.ChordToAngle(math.Sqrt(sqChord))
	radius := geo.AngleToChord(math.Min(angle*candidateMargin+1e-9, math.Pi))

	keep := kdtree.NewDistKeeper(radius * radius)
	k.tree.NearestSet(keep, q)

	best := -1
	bestDist := 0.0
	for _, c := range keep.Heap {
		if c.Comparable == nil {
			continue
		}
		i := c.Comparable.(stopPoint).idx
		stop := k.reg.At(i)
		d, err := geo.Distance(ref, stop.Location())
		if err != nil {
			return models.NearestStopResult{}, fmt.Errorf("stop %s: %w", stop.Key(), err)
		}
		if best < 0 || d < bestDist || (d == bestDist && i < best) {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		// Unreachable while the tree holds every stop; fall back to the scan.
		return FindNearest(ref, k.reg)
	}
	return models.NearestStopResult{Stop: k.reg.At(best), DistanceMiles: bestDist}, nil
}

// stopPoint is a kdtree.Comparable holding a stop's unit vector and its
// position in the registry.
type stopPoint struct {
	v   r3.Vector
	idx int
}

// Compare satisfies kdtree.Comparable. Dimensions 0, 1 and 2 are x, y and z.
func (p stopPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(stopPoint)
	switch d {
	case 0:
		return p.v.X - q.v.X
	case 1:
		return p.v.Y - q.v.Y
	case 2:
		return p.v.Z - q.v.Z
	default:
		panic("illegal dimension")
	}
}

func (p stopPoint) Dims() int { return 3 }

// Distance returns the squared chord length between the two unit vectors.
func (p stopPoint) Distance(c kdtree.Comparable) float64 {
	d := p.v.Sub(c.(stopPoint).v)
	return d.Dot(d)
}

type stopPoints []stopPoint

func (p stopPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p stopPoints) Len() int                              { return len(p) }
func (p stopPoints) Pivot(d kdtree.Dim) int                { return plane{stopPoints: p, Dim: d}.Pivot() }
func (p stopPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type plane struct {
	kdtree.Dim
	stopPoints
}

func (p plane) Less(i, j int) bool {
	a, b := p.stopPoints[i].v, p.stopPoints[j].v
	switch p.Dim {
	case 0:
		return a.X < b.X
	case 1:
		return a.Y < b.Y
	case 2:
		return a.Z < b.Z
	default:
		panic("illegal dimension")
	}
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.stopPoints = p.stopPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.stopPoints[i], p.stopPoints[j] = p.stopPoints[j], p.stopPoints[i]
}
