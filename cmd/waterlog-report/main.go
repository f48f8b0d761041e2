// waterlog-report prints consumption statistics for a waterlog database
// directly from the reading store, without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/guptarohit/asciigraph"

	"github.com/waterlogd/waterlog/internal/log"
	"github.com/waterlogd/waterlog/internal/stats"
	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "waterlog.yaml", "Path to YAML configuration file")
	showWeeks := flag.Bool("weeks", true, "Plot the 52-week rate series")
	flag.Parse()

	if err := log.Init(false); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.NewYAMLProvider(*cfgFile).LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	readingStore, err := store.New(&cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open reading store: %v", err)
	}
	defer readingStore.Close()

	readings, err := readingStore.ListReadings(context.Background())
	if err != nil {
		log.Fatalf("Failed to list readings: %v", err)
	}

	now := time.Now()
	result := stats.Compute(readings, now)

	fmt.Printf("waterlog report — %d readings\n\n", len(readings))

	if result.LastInterval.Available {
		fmt.Printf("Last interval:  %.1f L/day (%.1f L over %.1f days, %s → %s)\n",
			result.LastInterval.LitersPerDay,
			result.LastInterval.Liters,
			result.LastInterval.Days,
			result.LastInterval.From.Format("2006-01-02"),
			result.LastInterval.To.Format("2006-01-02"))
	} else {
		fmt.Println("Last interval:  unavailable (need at least two readings)")
	}

	if result.YearStats.Available {
		fmt.Printf("Year to date:   %.1f L/day (%.0f L over %d days)\n",
			result.YearStats.LitersPerDay,
			result.YearStats.Liters,
			result.YearStats.Days)
	} else {
		fmt.Println("Year to date:   unavailable")
	}

	if projection := stats.ProjectYearEnd(readings, now); projection.Available {
		fmt.Printf("Projection:     %.0f L by year end (%.1f L/day fitted)\n",
			projection.ProjectedLiters, projection.LitersPerDay)
	}

	fmt.Println("\nTrailing 12 months (L/day):")
	for _, b := range result.MonthlyData {
		if b.HasData {
			fmt.Printf("  %-9s %8.1f\n", b.Label, b.LitersPerDay)
		} else {
			fmt.Printf("  %-9s %8s\n", b.Label, "—")
		}
	}

	if *showWeeks {
		fmt.Println("\nTrailing 52 weeks (L/day, gaps plotted as 0):")
		series := make([]float64, len(result.WeeklyData))
		for i, b := range result.WeeklyData {
			if b.HasData {
				series[i] = b.LitersPerDay
			}
		}
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(10),
			asciigraph.Width(78),
			asciigraph.Caption(fmt.Sprintf("%s → %s",
				result.WeeklyData[0].Label, now.Format("2006-01-02")))))
	}
}
