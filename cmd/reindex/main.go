package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"kiosk/internal/model"
	"kiosk/internal/repository/sqlite"
	"kiosk/internal/service/storage"
)

// reindex registers snapshot photos that exist on disk but have no database
// row, e.g. after the database file was lost. Line items cannot be recovered.
func main() {
	fs := ff.NewFlagSet("kiosk-reindex")
	var (
		snapshotsDir = fs.StringLong("snapshots", filepath.Join(".", "snapshots"), "directory containing snapshot photos")
		dbPath       = fs.StringLong("db", filepath.Join(".", "data", "kiosk.db"), "database path")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("KIOSK")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Reindexing snapshots from %s into %s\n", *snapshotsDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewSnapshotRepository(db)

	files, err := os.ReadDir(*snapshotsDir)
	if err != nil {
		log.Fatalf("Failed to read snapshots directory: %v", err)
	}

	inserted, present, skipped := 0, 0, 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		timestamp, receiptID, err := storage.ParseFilename(file.Name())
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		exists, err := repo.Exists(file.Name())
		if err != nil {
			log.Fatalf("Failed to query database: %v", err)
		}
		if exists {
			present++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("⚠️  Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := repo.Insert(&model.Snapshot{
			Filename:  file.Name(),
			ReceiptID: receiptID,
			Timestamp: timestamp,
			FilePath:  filepath.Join(*snapshotsDir, file.Name()),
			FileSize:  info.Size(),
		}); err != nil {
			log.Printf("⚠️  Failed to insert %s: %v", file.Name(), err)
			skipped++
			continue
		}
		inserted++
	}

	fmt.Printf("✅ Inserted %d snapshots, %d already indexed\n", inserted, present)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid name or errors)\n", skipped)
	}

	total, err := repo.GetTotalCount(nil)
	if err == nil {
		fmt.Printf("\n📊 Snapshots in database: %d\n", total)
	}
}
