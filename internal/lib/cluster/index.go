package cluster

import (
	"sort"

	"github.com/golang/geo/s2"

	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// minCellLevel is the coarsest s2 level CellIndex will bucket at. Radii wider than
// a level-2 cell fall back to a linear scan.
const minCellLevel = 2

type linearIndex struct {
	points []geo.Point
	eps    float64
}

// NewLinearIndex returns the naive all-pairs index
func NewLinearIndex(points []geo.Point, epsMeters float64) Index {
	return &linearIndex{points: points, eps: epsMeters}
}

func (l *linearIndex) Neighbors(i int) []int {
	var out []int
	for j := range l.points {
		if geo.Distance(l.points[i], l.points[j]) <= l.eps {
			out = append(out, j)
		}
	}
	return out
}

// cellIndex buckets points into s2 cells at least eps wide so that every point
// within eps of a query lies in the query's cell or one of its neighbors.
type cellIndex struct {
	points  []geo.Point
	eps     float64
	level   int
	cells   []s2.CellID
	buckets map[s2.CellID][]int
	linear  *linearIndex
}

// NewCellIndex returns an s2 cell bucket index. Candidates are re-checked with
// haversine distance so results match the linear index exactly.
func NewCellIndex(points []geo.Point, epsMeters float64) Index {
	angle := epsMeters / geo.EarthRadiusMeters
	level := s2.MinWidthMetric.MaxLevel(angle)
	if level < minCellLevel {
		return &cellIndex{points: points, eps: epsMeters, linear: &linearIndex{points: points, eps: epsMeters}}
	}

	idx := &cellIndex{
		points:  points,
		eps:     epsMeters,
		level:   level,
		cells:   make([]s2.CellID, len(points)),
		buckets: make(map[s2.CellID][]int),
	}
	for i, p := range points {
		cell := s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Latitude, p.Longitude)).Parent(level)
		idx.cells[i] = cell
		idx.buckets[cell] = append(idx.buckets[cell], i)
	}
	return idx
}

func (c *cellIndex) Neighbors(i int) []int {
	if c.linear != nil {
		return c.linear.Neighbors(i)
	}

	cell := c.cells[i]
	candidates := append([]int(nil), c.buckets[cell]...)
	for _, n := range cell.AllNeighbors(c.level) {
		candidates = append(candidates, c.buckets[n]...)
	}
	sort.Ints(candidates)

	var out []int
	last := -1
	for _, j := range candidates {
		if j == last {
			continue
		}
		last = j
		if geo.Distance(c.points[i], c.points[j]) <= c.eps {
			out = append(out, j)
		}
	}
	return out
}
