package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/campuspulse/pulse/server/internal/lib/cluster"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "point-distance":
		handlePointDistance()
	case "encode-polyline":
		handleEncodePolyline()
	case "decode-polyline":
		handleDecodePolyline()
	case "cluster":
		handleCluster()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handlePointDistance() {
	fs := flag.NewFlagSet("point-distance", flag.ExitOnError)
	lat1 := fs.Float64("lat1", 0, "Latitude of first point")
	lng1 := fs.Float64("lng1", 0, "Longitude of first point")
	lat2 := fs.Float64("lat2", 0, "Latitude of second point")
	lng2 := fs.Float64("lng2", 0, "Longitude of second point")

	fs.Parse(os.Args[2:])

	if *lat1 == 0 && *lng1 == 0 && *lat2 == 0 && *lng2 == 0 {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils point-distance --lat1 18.0060 --lng1 -76.7466 --lat2 18.0183 --lng2 -76.7440")
		fmt.Println("  (Distance between the main library and Papine Square)")
		os.Exit(1)
	}

	p1, err := geo.NewPoint(*lat1, *lng1)
	if err != nil {
		log.Fatalf("Invalid first point: %v", err)
	}
	p2, err := geo.NewPoint(*lat2, *lng2)
	if err != nil {
		log.Fatalf("Invalid second point: %v", err)
	}

	distance := geo.Distance(p1, p2)

	fmt.Printf("Distance between points:\n")
	fmt.Printf("  Point 1: (%.6f, %.6f)\n", p1.Latitude, p1.Longitude)
	fmt.Printf("  Point 2: (%.6f, %.6f)\n", p2.Latitude, p2.Longitude)
	fmt.Printf("  Distance: %.2f meters (%.2f km)\n", distance, distance/1000)
}

func handleEncodePolyline() {
	fs := flag.NewFlagSet("encode-polyline", flag.ExitOnError)
	pointsStr := fs.String("points", "", "Semicolon separated lat,lng pairs")

	fs.Parse(os.Args[2:])

	if *pointsStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils encode-polyline --points \"38.5,-120.2;40.7,-120.95;43.252,-126.453\"")
		os.Exit(1)
	}

	points := parsePoints(*pointsStr)
	fmt.Printf("Encoded polyline (%d points):\n  %s\n", len(points), geo.EncodePolyline(points))
}

func handleDecodePolyline() {
	fs := flag.NewFlagSet("decode-polyline", flag.ExitOnError)
	polylineStr := fs.String("polyline", "", "Encoded polyline string")

	fs.Parse(os.Args[2:])

	if *polylineStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils decode-polyline --polyline \"_p~iF~ps|U_ulLnnqC_mqNvxq`@\"")
		os.Exit(1)
	}

	points, err := geo.DecodePolyline(*polylineStr)
	if err != nil {
		log.Fatalf("Error decoding polyline: %v", err)
	}

	fmt.Printf("Decoded polyline:\n")
	fmt.Printf("  Points: %d\n", len(points))
	for i, point := range points {
		fmt.Printf("  %d: (%.6f, %.6f)\n", i+1, point.Latitude, point.Longitude)
	}
	bounds := geo.Bounds(points)
	fmt.Printf("  Bounds: (%.6f, %.6f) - (%.6f, %.6f)\n",
		bounds.MinLatitude, bounds.MinLongitude, bounds.MaxLatitude, bounds.MaxLongitude)
}

func handleCluster() {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	pointsStr := fs.String("points", "", "Semicolon separated lat,lng pairs")
	eps := fs.Float64("eps", 400, "Neighborhood radius in meters")
	minPoints := fs.Int("min-points", 3, "Minimum neighborhood size for a core point")
	linear := fs.Bool("linear", false, "Use the linear neighbor index instead of the cell index")
	centerStr := fs.String("center", "", "Only cluster points within --radius of this lat,lng")
	radius := fs.Float64("radius", 1000, "Radius in meters around --center")

	fs.Parse(os.Args[2:])

	if *pointsStr == "" {
		fmt.Println("Example usage:")
		fmt.Println("  test-geo-utils cluster --eps 50 --min-points 3 \\")
		fmt.Println("    --points \"18.0060,-76.7466;18.0061,-76.7466;18.0060,-76.7465;18.0061,-76.7465;18.0105,-76.7466\"")
		os.Exit(1)
	}

	points := parsePoints(*pointsStr)
	if *centerStr != "" {
		center := parsePoints(*centerStr)
		if len(center) != 1 {
			log.Fatalf("Invalid center %q: expected a single lat,lng pair", *centerStr)
		}
		total := len(points)
		points = geo.FilterPointsByDistance(points, center[0], *radius)
		fmt.Printf("Kept %d of %d point(s) within %.0fm of (%.6f, %.6f)\n",
			len(points), total, *radius, center[0].Latitude, center[0].Longitude)
	}
	index := cluster.NewCellIndex
	if *linear {
		index = cluster.NewLinearIndex
	}

	clusters := cluster.DBSCAN(points, *eps, *minPoints, cluster.WithIndex(index))

	fmt.Printf("DBSCAN (eps=%.0fm, minPoints=%d): %d cluster(s) from %d point(s)\n",
		*eps, *minPoints, len(clusters), len(points))
	for i, members := range clusters {
		coords := make([]geo.Point, len(members))
		for j, m := range members {
			coords[j] = points[m]
		}
		centroid := geo.Centroid(coords)
		fmt.Printf("  Cluster %d: members %v, centroid (%.6f, %.6f)\n", i, members, centroid.Latitude, centroid.Longitude)
	}
	if noise := cluster.Noise(len(points), clusters); len(noise) > 0 {
		fmt.Printf("  Noise: %v\n", noise)
	}
}

func parsePoints(s string) []geo.Point {
	var points []geo.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		var lat, lng float64
		if _, err := fmt.Sscanf(pair, "%f,%f", &lat, &lng); err != nil {
			log.Fatalf("Invalid point %q: %v", pair, err)
		}
		p, err := geo.NewPoint(lat, lng)
		if err != nil {
			log.Fatalf("Invalid point %q: %v", pair, err)
		}
		points = append(points, p)
	}
	return points
}

func printUsage() {
	fmt.Println("Geo Utils Test Tool")
	fmt.Println()
	fmt.Println("Usage: test-geo-utils <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  point-distance    Haversine distance between two points")
	fmt.Println("  encode-polyline   Encode points as a Google polyline")
	fmt.Println("  decode-polyline   Decode a Google polyline into points")
	fmt.Println("  cluster           Run DBSCAN over a list of points")
	fmt.Println("  help              Show this help")
}
