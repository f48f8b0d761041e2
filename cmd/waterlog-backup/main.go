// waterlog-backup exports all stored readings to JSON or CSV.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/waterlogd/waterlog/internal/store"
	"github.com/waterlogd/waterlog/internal/types"
	"github.com/waterlogd/waterlog/pkg/config"
)

type BackupFormat string

const (
	FormatCSV  BackupFormat = "csv"
	FormatJSON BackupFormat = "json"
)

func main() {
	cfgFile := flag.String("config", "waterlog.yaml", "Path to YAML configuration file")
	formatStr := flag.String("format", "json", "Backup format: json or csv")
	output := flag.String("output", "waterlog_backup", "Output file base name (extension added automatically)")
	flag.Parse()

	var format BackupFormat
	switch BackupFormat(*formatStr) {
	case FormatCSV, FormatJSON:
		format = BackupFormat(*formatStr)
	default:
		log.Fatalf("Invalid format: %s. Must be json or csv", *formatStr)
	}

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

	filename := fmt.Sprintf("%s.%s", *output, format)
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", filename, err)
	}
	defer f.Close()

	switch format {
	case FormatJSON:
		err = writeJSON(f, readings)
	case FormatCSV:
		err = writeCSV(f, readings)
	}
	if err != nil {
		log.Fatalf("Failed to write backup: %v", err)
	}

	log.Printf("Exported %d readings to %s", len(readings), filename)
}

func writeJSON(f *os.File, readings []types.Reading) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(readings)
}

func writeCSV(f *os.File, readings []types.Reading) error {
	w := csv.NewWriter(f)

	if err := w.Write([]string{"id", "timestamp", "value_m3", "confidence", "notes", "image"}); err != nil {
		return err
	}

	for _, r := range readings {
		record := []string{
			r.ID,
			r.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(r.Value, 'f', -1, 64),
			string(r.Confidence),
			r.Notes,
			r.Image,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
