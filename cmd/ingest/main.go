package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/dvloznov/splitledger/internal/app"
	"github.com/dvloznov/splitledger/internal/config"
	"github.com/dvloznov/splitledger/internal/logger"
	"github.com/dvloznov/splitledger/internal/pipeline"
)

func main() {
	log := logger.New("ingest")

	file := flag.String("file", "", "Path of a CSV statement to ingest once")
	watch := flag.String("watch", "", "Directory to watch; new CSV files are ingested as they appear")
	flag.Parse()

	if *file == "" && *watch == "" {
		log.Fatal().Msg("Either --file or --watch is required")
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := logger.WithContext(context.Background(), log)

	components, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build collaborators")
	}
	defer components.Close()

	if *file != "" {
		if err := ingestFile(ctx, components.Ingestor, *file, log); err != nil {
			log.Fatal().Err(err).Str("file", *file).Msg("Ingestion failed")
		}
		fmt.Println("Ingestion completed successfully.")
		return
	}

	if err := watchDirectory(ctx, components.Ingestor, *watch, log); err != nil {
		log.Fatal().Err(err).Str("dir", *watch).Msg("Watch failed")
	}
}

func ingestFile(ctx context.Context, ingestor *pipeline.Ingestor, path string, log zerolog.Logger) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	log.Info().Str("file", path).Msg("Starting ingestion")
	result, err := ingestor.Run(runCtx, string(content))
	if err != nil {
		return err
	}

	log.Info().
		Str("file", path).
		Int("parsed", result.Parsed).
		Int("newly_inserted", result.NewlyInserted).
		Int("deduplicated", result.Deduplicated).
		Int("row_errors", len(result.RowErrors)).
		Msg("File ingested")
	return nil
}

// watchDirectory ingests every CSV file created in dir until interrupted.
// Files are picked up on the write-complete rename most downloaders do;
// a plain create is followed by a short settle delay instead.
func watchDirectory(ctx context.Context, ingestor *pipeline.Ingestor, dir string, log zerolog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	log.Info().Str("dir", dir).Msg("Watching for CSV files")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}

			// Give the writer a moment to finish.
			time.Sleep(500 * time.Millisecond)

			if err := ingestFile(ctx, ingestor, event.Name, log); err != nil {
				log.Error().Err(err).Str("file", event.Name).Msg("Failed to ingest file")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Watcher error")
		}
	}
}
