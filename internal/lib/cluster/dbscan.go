package cluster

import "github.com/campuspulse/pulse/server/internal/lib/geo"

// DBSCAN partitions points into density-connected clusters. Each cluster is a list
// of indices into points; indices that belong to no cluster are noise (see Noise).
//
// Points are visited in input order, so the output is deterministic for a fixed
// ordering, eps and minPoints. Membership is tracked per cluster: a border point
// within eps of core points in two clusters is listed in both, so every cluster
// holds its seed's full eps-neighborhood and never has fewer than minPoints members.
// Core points always belong to exactly one cluster.
func DBSCAN(points []geo.Point, epsMeters float64, minPoints int, opts ...Option) [][]int {
	o := options{buildIndex: NewLinearIndex}
	for _, opt := range opts {
		opt(&o)
	}
	if len(points) == 0 {
		return nil
	}

	index := o.buildIndex(points, epsMeters)
	visited := make([]bool, len(points))
	var clusters [][]int

	for p := range points {
		if visited[p] {
			continue
		}
		visited[p] = true

		neighbors := index.Neighbors(p)
		if len(neighbors) < minPoints {
			continue
		}

		clusters = append(clusters, expand(p, neighbors, index, minPoints, visited))
	}

	return clusters
}

func expand(p int, neighbors []int, index Index, minPoints int, visited []bool) []int {
	cluster := []int{p}
	member := map[int]bool{p: true}

	seeds := append([]int(nil), neighbors...)
	inSeeds := make(map[int]bool, len(seeds))
	for _, n := range seeds {
		inSeeds[n] = true
	}

	for i := 0; i < len(seeds); i++ {
		n := seeds[i]
		if !visited[n] {
			visited[n] = true
			nNeighbors := index.Neighbors(n)
			if len(nNeighbors) >= minPoints {
				for _, nn := range nNeighbors {
					if !inSeeds[nn] {
						inSeeds[nn] = true
						seeds = append(seeds, nn)
					}
				}
			}
		}
		if !member[n] {
			member[n] = true
			cluster = append(cluster, n)
		}
	}

	return cluster
}

// Noise returns the indices in [0, n) that are not members of any cluster, in order
func Noise(n int, clusters [][]int) []int {
	member := make([]bool, n)
	for _, c := range clusters {
		for _, i := range c {
			if i >= 0 && i < n {
				member[i] = true
			}
		}
	}
	var noise []int
	for i := 0; i < n; i++ {
		if !member[i] {
			noise = append(noise, i)
		}
	}
	return noise
}
