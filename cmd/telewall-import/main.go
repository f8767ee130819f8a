// Command telewall-import loads a published cold-call blacklist into the
// telewall database. It imports either a local CSV file or downloads the
// current K-Tipp list.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/importer"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "data directory with the telewall database")
	file := flag.String("file", "", "CSV file to import instead of downloading")
	url := flag.String("url", importer.DefaultURL, "blacklist URL to download")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.Open(*dataDir)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	im := importer.New(database.NewBlocklist(db), logger)
	ctx := context.Background()

	var stats importer.Stats
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			logger.Error("failed to open blacklist file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		stats, err = im.ImportCSV(ctx, f)
		if err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
	} else {
		stats, err = im.ImportURL(ctx, *url)
		if err != nil {
			logger.Error("import failed", "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("processed %d numbers, added %d, skipped %d\n",
		stats.Processed, stats.Added, stats.Skipped)
}
