package cluster

import "github.com/campuspulse/pulse/server/internal/lib/geo"

// Index answers eps-neighborhood queries over a fixed point set.
// Neighbors must return indices in ascending (input) order and include i itself.
type Index interface {
	Neighbors(i int) []int
}

// IndexBuilder constructs an Index for a point set and radius in meters
type IndexBuilder func(points []geo.Point, epsMeters float64) Index

// Option configures a DBSCAN run
type Option func(*options)

type options struct {
	buildIndex IndexBuilder
}

// WithIndex selects the neighborhood index implementation
func WithIndex(builder IndexBuilder) Option {
	return func(o *options) {
		if builder != nil {
			o.buildIndex = builder
		}
	}
}
