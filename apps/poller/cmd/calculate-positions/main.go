package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/repository"
	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
)

func main() {
	source := flag.String("source", "json", "Snapshot source: json, sqlite or postgres")
	dataDir := flag.String("data-dir", "../data", "Directory of the JSON snapshot")
	dbPath := flag.String("db", "../data/busmap.db", "Path to SQLite database")
	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	tz := flag.String("tz", "Asia/Tokyo", "Time zone of the schedule")
	at := flag.String("at", "", "Local time to locate buses at (2006-01-02T15:04:05); defaults to now")
	route := flag.String("route", "", "Only show this route_id")
	asJSON := flag.Bool("json", false, "Print positions as JSON on stdout")
	flag.Parse()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Fatalf("Invalid time zone: %v", err)
	}

	now := time.Now().In(loc)
	if *at != "" {
		now, err = time.ParseInLocation("2006-01-02T15:04:05", *at, loc)
		if err != nil {
			log.Fatalf("Invalid -at: %v", err)
		}
	}

	ctx := context.Background()
	src, err := repository.OpenSource(ctx, repository.SourceOptions{
		Kind:        *source,
		DataDir:     *dataDir,
		SQLitePath:  *dbPath,
		DatabaseURL: *databaseURL,
	})
	if err != nil {
		log.Fatalf("Failed to open snapshot source: %v", err)
	}
	snap, err := repository.LoadSnapshot(ctx, src, loc)
	src.Close()
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	log.Printf("Local time: %s (%d seconds since midnight)", now.Format("2006-01-02 15:04:05"), schedule.SecondsSinceMidnight(now))

	positions := filterRoute(snap.ActivePositions(now, nil), *route)
	log.Printf("Positions calculated: %d", len(positions))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(positions); err != nil {
			log.Fatalf("Failed to encode positions: %v", err)
		}
		return
	}

	for _, c := range countByRoute(positions) {
		fmt.Printf("  %-12s %-16s %d vehicles\n", c.routeID, c.routeName, c.count)
	}
}

func filterRoute(positions []models.VehiclePosition, routeID string) []models.VehiclePosition {
	if routeID == "" {
		return positions
	}
	filtered := positions[:0]
	for _, p := range positions {
		if p.RouteID == routeID {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

type routeCount struct {
	routeID   string
	routeName string
	count     int
}

// countByRoute orders routes by vehicle count, busiest first
func countByRoute(positions []models.VehiclePosition) []routeCount {
	byRoute := make(map[string]*routeCount)
	for _, p := range positions {
		c, ok := byRoute[p.RouteID]
		if !ok {
			c = &routeCount{routeID: p.RouteID, routeName: p.RouteName}
			byRoute[p.RouteID] = c
		}
		c.count++
	}

	counts := make([]routeCount, 0, len(byRoute))
	for _, c := range byRoute {
		counts = append(counts, *c)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].routeID < counts[j].routeID
	})
	return counts
}
