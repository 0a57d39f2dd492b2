package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/clients/google"
	"github.com/campuspulse/pulse/server/internal/clients/nominatim"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/geocode"
)

func main() {
	var (
		apiKey    = flag.String("api-key", "", "Google Geocoding API key (or set GOOGLE_API_KEY env var)")
		pointStr  = flag.String("point", "17.8070312,-77.1420538", "Coordinate to resolve (lat,lng)")
		userAgent = flag.String("user-agent", nominatim.DefaultUserAgent, "User-Agent sent to Nominatim")
		locality  = flag.String("default-locality", geocode.DefaultLocality, "Locality used when nothing better is known")
		probe     = flag.Bool("probe", true, "Also probe for nearby road variants")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		fmt.Printf("Reverse Geocoder Test Tool\n\n")
		fmt.Printf("Resolves a coordinate through Google (when a key is set) and Nominatim.\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s -point=\"18.0060,-76.7466\"\n", os.Args[0])
		fmt.Printf("  GOOGLE_API_KEY=your_key %s -point=\"18.0060,-76.7466\"\n", os.Args[0])
		return
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv("GOOGLE_API_KEY")
	}

	var lat, lng float64
	if _, err := fmt.Sscanf(*pointStr, "%f,%f", &lat, &lng); err != nil {
		log.Fatalf("Invalid coordinates: %v", err)
	}
	point, err := geo.NewPoint(lat, lng)
	if err != nil {
		log.Fatalf("Invalid coordinates: %v", err)
	}

	var providers []geocode.Provider
	if key != "" {
		providers = append(providers, geocode.NewGoogleProvider(google.NewClient(key), *locality))
	}
	providers = append(providers, geocode.NewNominatimProvider(nominatim.NewClient(*userAgent), *locality))
	resolver := geocode.NewResolver(providers, nil)

	fmt.Printf("Reverse Geocoder Test\n")
	fmt.Printf("=====================\n")
	fmt.Printf("Point: %.6f, %.6f\n", point.Latitude, point.Longitude)
	fmt.Printf("Providers: %d (google enabled: %v)\n\n", len(providers), key != "")

	ctx, cancel := context.WithTimeout(logging.EnsureLogger(context.Background()), 2*time.Minute)
	defer cancel()

	place := resolver.Resolve(ctx, point)
	if place == nil {
		fmt.Printf("❌ Unresolved\n")
		os.Exit(1)
	}

	fmt.Printf("✅ Resolved by %s\n", place.Provider)
	fmt.Printf("  Display name:  %s\n", place.DisplayName)
	fmt.Printf("  Road:          %s\n", place.Road)
	fmt.Printf("  Neighbourhood: %s\n", place.Neighbourhood)
	fmt.Printf("  Locality:      %s\n", place.Locality)
	if street := geocode.ExtractStreet(place.DisplayName); street != "" {
		fmt.Printf("  Street (from display name): %s\n", street)
	}

	if !*probe {
		return
	}

	fmt.Printf("\nProbing nearby roads (Nominatim is limited to 1 request/second)...\n")
	variants := geocode.NewProber(resolver).Probe(ctx, point, place.Road)
	if len(variants) == 0 {
		fmt.Printf("  No nearby road variants found\n")
		return
	}
	for i, v := range variants {
		fmt.Printf("  %d. %s\n", i+1, v)
	}
}
