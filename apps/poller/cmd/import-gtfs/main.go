package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/schedule"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/db"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/gtfs"
	"github.com/Haruday0/sendai-bus-map-v2/apps/poller/internal/static/snapshot"
)

var (
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	key     = color.New(color.FgCyan)
)

func main() {
	app := &cli.App{
		Name:  "import-gtfs",
		Usage: "convert a GTFS(-JP) feed into a bus map schedule snapshot",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "parse a GTFS zip and write the snapshot to JSON, SQLite and/or PostgreSQL",
				ArgsUsage: "[path to gtfs.zip]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "url",
						Usage: "download the feed from this URL instead of reading a local zip",
					},
					&cli.StringFlag{
						Name:  "cache-dir",
						Value: "../data/cache",
						Usage: "where downloaded feeds are kept",
					},
					&cli.StringFlag{
						Name:  "out-json",
						Usage: "write the JSON snapshot files into this directory",
					},
					&cli.StringFlag{
						Name:  "sqlite",
						Usage: "write the snapshot into this SQLite database",
					},
					&cli.StringFlag{
						Name:    "postgres",
						Usage:   "write the snapshot into this PostgreSQL database",
						EnvVars: []string{"DATABASE_URL"},
					},
					&cli.IntFlag{
						Name:  "keep-imports",
						Value: 10,
						Usage: "import records kept in the SQLite database",
					},
				},
				Action: runImport,
			},
			{
				Name:      "inspect",
				Usage:     "print what a GTFS zip would turn into, without writing anything",
				ArgsUsage: "path",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "list every route with its trip count",
					},
				},
				Action: runInspect,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func runImport(c *cli.Context) error {
	ctx := c.Context
	outJSON, sqlitePath, postgresURL := c.String("out-json"), c.String("sqlite"), c.String("postgres")
	if outJSON == "" && sqlitePath == "" && postgresURL == "" {
		return fmt.Errorf("nothing to do: set at least one of --out-json, --sqlite, --postgres")
	}

	zipPath := c.Args().First()
	if url := c.String("url"); url != "" {
		zipPath = filepath.Join(c.String("cache-dir"), "gtfs.zip")
		if err := gtfs.Download(ctx, url, zipPath); err != nil {
			return err
		}
	}
	if zipPath == "" {
		return fmt.Errorf("a path to the GTFS zip or --url was not provided")
	}

	tables, err := parseAndBuild(zipPath)
	if err != nil {
		return err
	}
	now := time.Now()

	if outJSON != "" {
		if err := snapshot.WriteJSON(outJSON, tables, now); err != nil {
			return fmt.Errorf("failed to write JSON snapshot: %w", err)
		}
		success.Printf("✓ JSON snapshot written to %s\n", outJSON)
	}

	if sqlitePath != "" {
		if err := writeSQLite(ctx, sqlitePath, tables, now, c.Int("keep-imports")); err != nil {
			return err
		}
		success.Printf("✓ SQLite snapshot written to %s\n", sqlitePath)
	}

	if postgresURL != "" {
		if err := writePostgres(ctx, postgresURL, tables, now); err != nil {
			return err
		}
		success.Println("✓ PostgreSQL snapshot written")
	}

	return nil
}

func parseAndBuild(zipPath string) (schedule.Tables, error) {
	data, err := gtfs.Parse(zipPath)
	if err != nil {
		return schedule.Tables{}, fmt.Errorf("failed to parse %s: %w", zipPath, err)
	}

	tables, report := snapshot.Build(data)
	printReport(report)
	return tables, nil
}

func writeSQLite(ctx context.Context, path string, tables schedule.Tables, now time.Time, keep int) error {
	database, err := db.Connect(path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	importID, err := database.WriteSnapshot(ctx, tables, now, snapshot.GeneratorVersion)
	if err != nil {
		return err
	}
	fmt.Printf("  import %s\n", key.Sprint(importID))
	return database.PruneImports(ctx, keep)
}

func writePostgres(ctx context.Context, url string, tables schedule.Tables, now time.Time) error {
	pg, err := db.ConnectPostgres(ctx, url)
	if err != nil {
		return err
	}
	defer pg.Close()

	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}
	importID, err := pg.WriteSnapshot(ctx, tables, now, snapshot.GeneratorVersion)
	if err != nil {
		return err
	}
	fmt.Printf("  import %s\n", key.Sprint(importID))
	return nil
}

func runInspect(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("a path to the GTFS zip was not provided")
	}

	tables, err := parseAndBuild(c.Args().First())
	if err != nil {
		return err
	}

	trips := 0
	for _, routeTrips := range tables.Timetables {
		trips += len(routeTrips)
	}
	fmt.Printf("Stops     %s\n", key.Sprint(len(tables.Stops)))
	fmt.Printf("Routes    %s\n", key.Sprint(len(tables.Routes)))
	fmt.Printf("Trips     %s\n", key.Sprint(trips))
	fmt.Printf("Patterns  %s\n", key.Sprint(len(tables.Shapes)))
	fmt.Printf("Services  %s\n", key.Sprint(len(tables.Calendar)))
	fmt.Printf("Offices   %s\n", key.Sprint(len(tables.Extra.Offices)))

	if c.Bool("verbose") {
		routeIDs := make([]string, 0, len(tables.Routes))
		for id := range tables.Routes {
			routeIDs = append(routeIDs, id)
		}
		sort.Strings(routeIDs)
		for _, id := range routeIDs {
			route := tables.Routes[id]
			fmt.Printf("- %s  %s  #%s  %d trips\n",
				key.Sprint(id), route.ShortName, route.Color, len(tables.Timetables[id]))
		}
	}
	return nil
}

func printReport(r snapshot.Report) {
	if r.SkippedTrips > 0 {
		warn.Printf("⚠ %d trips skipped (fewer than 2 stop times)\n", r.SkippedTrips)
	}
	if r.UnknownStopRefs > 0 {
		warn.Printf("⚠ %d stop times reference unknown stops\n", r.UnknownStopRefs)
	}
	if r.StraightShapes > 0 {
		warn.Printf("⚠ %d patterns use straight stop-to-stop shapes\n", r.StraightShapes)
	}
	if r.ParentStations > 0 {
		fmt.Printf("  %d parent stations ignored\n", r.ParentStations)
	}
}
