package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appconfig "otogram/internal/config"
	"otogram/internal/ocr"
	"otogram/internal/repository"
	"otogram/internal/repository/postgres"
	"otogram/pkg/models"
)

// import walks a directory of audiogram chart images, runs the extraction
// pipeline over each, and either stores the results in the database or
// prints them as JSON.
func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dir := flag.String("dir", "", "directory of chart images to import")
	session := flag.String("session", "batch-import", "session ID to record imported tests under")
	workers := flag.Int("workers", 4, "number of concurrent extraction workers")
	dryRun := flag.Bool("dry-run", false, "parse and print results without writing to the database")
	flag.Parse()

	if *dir == "" {
		log.Fatal().Msg("-dir is required")
	}
	if *workers < 1 {
		*workers = 1
	}

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var repo repository.HearingTestRepository
	if !*dryRun {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database connection")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		repo = postgres.NewPostgresHearingTestRepository(db)
	}

	recognizer, err := ocr.NewTesseractRecognizer(cfg.Extraction.TesseractLang, cfg.Extraction.OCRTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Tesseract")
	}
	defer recognizer.Close()

	layout := ocr.JacotiLayout
	if f := cfg.Extraction.FooterFraction; f > 0 && f < 1 {
		layout.FooterFraction = f
	}
	parser := ocr.New(recognizer, ocr.Config{Layout: layout, Logger: &log.Logger})

	files, err := chartFiles(*dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", *dir).Msg("Failed to list chart images")
	}
	if len(files) == 0 {
		log.Warn().Str("dir", *dir).Msg("No chart images found")
		return
	}

	ctx := context.Background()
	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	imported, failed := 0, 0

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := importChart(ctx, parser, repo, *session, path, cfg.Extraction.ReviewThreshold); err != nil {
					log.Error().Err(err).Str("file", path).Msg("Import failed")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				imported++
				mu.Unlock()
			}
		}()
	}

	for _, f := range files {
		jobs <- f
	}
	close(jobs)
	wg.Wait()

	log.Info().
		Int("imported", imported).
		Int("failed", failed).
		Int("total", len(files)).
		Msg("Batch import finished")
}

// chartFiles lists JPEG and PNG files directly under dir.
func chartFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func importChart(ctx context.Context, parser *ocr.Pipeline, repo repository.HearingTestRepository, session, path string, reviewThreshold float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := parser.Parse(ctx, data)
	if err != nil {
		return err
	}

	if repo == nil {
		out, err := json.Marshal(struct {
			File string `json:"file"`
			*models.ParseResult
		}{File: path, ParseResult: result})
		if err != nil {
			return err
		}
		os.Stdout.Write(append(out, '\n'))
		return nil
	}

	now := time.Now().UTC()
	testID := uuid.New().String()
	key := "imported/" + filepath.Base(path)
	test := &models.HearingTest{
		ID:         testID,
		SessionID:  session,
		Status:     "pending",
		ImageS3Key: &key,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, test); err != nil {
		return err
	}

	results := &models.HearingTestResults{
		ID:          uuid.New().String(),
		TestID:      testID,
		LeftEar:     result.LeftEar,
		RightEar:    result.RightEar,
		Metadata:    result.Metadata,
		Confidence:  result.Confidence,
		NeedsReview: result.Confidence < reviewThreshold,
		CreatedAt:   now,
	}
	if err := repo.StoreResults(ctx, results); err != nil {
		return err
	}

	testUUID, err := uuid.Parse(testID)
	if err != nil {
		return err
	}
	return repo.UpdateStatus(ctx, testUUID, "completed", 100)
}
