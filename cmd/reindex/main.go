package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"cctvstation/internal/config"
	"cctvstation/internal/model"
	"cctvstation/internal/repository/sqlite"
	"cctvstation/internal/service/storage"

	"github.com/google/uuid"
)

func main() {
	cfg := config.Load()
	resultsDir := flag.String("results", cfg.ResultsDir, "Directory containing session folders")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Parse()

	fmt.Printf("Indexing sessions from %s into %s\n", *resultsDir, *dbPath)

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	index := sqlite.NewIndex(db)

	entries, err := os.ReadDir(*resultsDir)
	if err != nil {
		log.Fatalf("Failed to read results directory: %v", err)
	}

	indexed, skipped, detections := 0, 0, 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		root := filepath.Join(*resultsDir, entry.Name())

		startedAt, err := storage.ParseSessionDir(entry.Name())
		if err != nil {
			continue
		}

		existing, err := index.Sessions.GetByRootDir(root)
		if err != nil {
			log.Fatalf("Failed to query session index: %v", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		records, err := sessionRecords(root, startedAt)
		if err != nil {
			log.Printf("⚠️  %s: %v (keeping %d rows)", entry.Name(), err, len(records))
		}

		frames, err := storage.CountFrames(root)
		if err != nil {
			log.Printf("⚠️  %s: failed to count frames: %v", entry.Name(), err)
		}

		stoppedAt := startedAt
		if len(records) > 0 {
			stoppedAt = records[len(records)-1].Time
		}

		session := &model.Session{
			ID:        uuid.NewString(),
			Source:    "reindex",
			RootDir:   root,
			StartedAt: startedAt,
			StoppedAt: &stoppedAt,
			Frames:    frames,
		}
		if err := index.Sessions.Start(session); err != nil {
			log.Printf("⚠️  Skipping %s: %v", entry.Name(), err)
			skipped++
			continue
		}

		for i := range records {
			records[i].SessionID = session.ID
		}
		if err := index.Detections.InsertBatch(records); err != nil {
			log.Fatalf("Failed to insert detections for %s: %v", entry.Name(), err)
		}

		indexed++
		detections += len(records)
	}

	fmt.Printf("✅ Indexed %d sessions with %d detections\n", indexed, detections)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d sessions (already indexed or invalid)\n", skipped)
	}
}

// sessionRecords reads the detection log of the session in root. A session that never
// logged a detection has no log file, which is not an error.
func sessionRecords(root string, startedAt time.Time) ([]model.DetectionRecord, error) {
	records, err := storage.ReadSessionLog(filepath.Join(root, storage.LogFileName), startedAt)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}
