package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/campuspulse/pulse/server/internal/lib/enrichment"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "enrich":
		handleEnrich()
	case "test-prompt":
		handleTestPrompt()
	case "parse":
		handleParse()
	case "help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

type hotspotFlags struct {
	area    *string
	road    *string
	nearby  *string
	lat     *float64
	lng     *float64
	count   *int
	hotspot *string
}

func addHotspotFlags(fs *flag.FlagSet) hotspotFlags {
	return hotspotFlags{
		area:    fs.String("area", "Mona Road, Kingston", "Area name"),
		road:    fs.String("road", "Mona Road", "Primary road"),
		nearby:  fs.String("nearby", "", "Comma separated nearby road candidates"),
		lat:     fs.Float64("lat", 18.0060, "Centroid latitude"),
		lng:     fs.Float64("lng", -76.7466, "Centroid longitude"),
		count:   fs.Int("count", 5, "Number of alerts in the hotspot"),
		hotspot: fs.String("id", "hotspot-0", "Hotspot id"),
	}
}

func (f hotspotFlags) build() hotspot.Hotspot {
	var nearby []string
	for _, n := range strings.Split(*f.nearby, ",") {
		if n = strings.TrimSpace(n); n != "" {
			nearby = append(nearby, n)
		}
	}
	area, road := *f.area, *f.road
	return hotspot.Hotspot{
		ID:                 *f.hotspot,
		Centroid:           geo.Point{Latitude: *f.lat, Longitude: *f.lng},
		Count:              *f.count,
		AreaName:           &area,
		PrimaryRoad:        &road,
		NearbyRoadVariants: nearby,
	}
}

func handleEnrich() {
	fs := flag.NewFlagSet("enrich", flag.ExitOnError)
	hf := addHotspotFlags(fs)
	apiKey := fs.String("api-key", os.Getenv("PF__ENRICHMENT__OPENAI__API_KEY"), "OpenAI API key (or set PF__ENRICHMENT__OPENAI__API_KEY env var)")
	baseURL := fs.String("base-url", "", "OpenAI-compatible base URL")
	model := fs.String("model", enrichment.DefaultModel, "Model to use")
	timeout := fs.Int("timeout", 30, "Timeout in seconds")

	fs.Parse(os.Args[2:])

	if *apiKey == "" && *baseURL == "" {
		log.Fatal("OpenAI API key is required. Set PF__ENRICHMENT__OPENAI__API_KEY or use --api-key / --base-url")
	}

	h := hf.build()
	generator := enrichment.NewOpenAIGenerator("openai", *apiKey, *baseURL, *model)

	ctx, cancel := context.WithTimeout(logging.EnsureLogger(context.Background()), time.Duration(*timeout)*time.Second)
	defer cancel()

	fmt.Printf("Enriching %s at %s (model: %s)...\n\n", h.ID, *h.AreaName, *model)

	start := time.Now()
	text, err := generator.Generate(ctx, enrichment.BuildPrompt([]hotspot.Hotspot{h}))
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}
	fmt.Printf("Raw response (%v):\n%s\n\n", time.Since(start), text)

	patches, err := enrichment.ParseResponse(text)
	if err != nil {
		log.Fatalf("Could not parse response: %v", err)
	}
	for _, p := range patches {
		printHotspot(hotspot.Merge(h, p))
	}
}

func handleTestPrompt() {
	fs := flag.NewFlagSet("test-prompt", flag.ExitOnError)
	hf := addHotspotFlags(fs)
	fs.Parse(os.Args[2:])

	prompt := enrichment.BuildPrompt([]hotspot.Hotspot{hf.build()})
	fmt.Printf("System: %s\n", prompt.System)
	for i, m := range prompt.Messages {
		fmt.Printf("User %d: %s\n", i+1, m)
	}
	fmt.Printf("MaxTokens: %d  Temperature: %.1f\n", prompt.MaxTokens, prompt.Temperature)
}

func handleParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Generated text to parse")
	fs.Parse(os.Args[2:])

	if *text == "" {
		fmt.Println("Example usage:")
		fmt.Println(`  test-enricher parse --text 'Sure: [{"id":"hotspot-0","summary":"Thefts","alternativeRoute":"Ring Road"}]'`)
		os.Exit(1)
	}

	patches, err := enrichment.ParseResponse(*text)
	if err != nil {
		log.Fatalf("Could not parse: %v", err)
	}
	fmt.Printf("Parsed %d patch(es)\n", len(patches))
	for _, p := range patches {
		fmt.Printf("  %s: summary=%q recommendation=%q alternativeRoute=%q\n",
			p.ID, deref(p.Summary), deref(p.Recommendation), deref(p.AlternativeRoute))
	}
}

func printHotspot(h hotspot.Hotspot) {
	fmt.Printf("Hotspot %s\n", h.ID)
	fmt.Printf("  Summary:           %s\n", deref(h.Summary))
	fmt.Printf("  Recommendation:    %s\n", h.Recommendation)
	fmt.Printf("  Alternative route: %s\n", deref(h.AlternativeRoute))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func printUsage() {
	fmt.Println("Hotspot Enricher Test Tool")
	fmt.Println()
	fmt.Println("Usage: test-enricher <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  enrich        Ask the model for a summary and alternative route for one hotspot")
	fmt.Println("  test-prompt   Print the prompt that would be sent")
	fmt.Println("  parse         Parse a model response into patches")
	fmt.Println("  help          Show this help")
}
