package main

import (
	"context"
	"flag"
	"image"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"puzzle-lab/domain"
	"puzzle-lab/jobs"
	"puzzle-lab/repositories"
)

type config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
}

// The scanner detects the answer grid in a scanned puzzle image and stores
// the result as a new puzzle. Point it at one answer square with -x/-y; the
// detection walks outwards from there.
func main() {
	imagePath := flag.String("image", "", "scanned puzzle image (png or jpeg)")
	x := flag.Int("x", 0, "seed pixel x, inside one answer square")
	y := flag.Int("y", 0, "seed pixel y, inside one answer square")
	degrees := flag.Int("rotation", 0, "image rotation in degrees (0, 90, 180, -90)")
	flag.Parse()

	if *imagePath == "" {
		log.Fatal("missing -image")
	}

	_ = godotenv.Load()
	var cfg config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("config loading failed: %v", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	rotation, err := domain.RotationFromDegrees(*degrees)
	if err != nil {
		log.Fatalf("bad -rotation: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	puzzle := &domain.Puzzle{Path: *imagePath, Rotation: rotation}
	finder := jobs.NewSquareFinder(logger, puzzle, image.Point{X: *x, Y: *y})

	go func() {
		for status := range finder.Status() {
			switch s := status.(type) {
			case jobs.ReadingImage:
				logger.Info("Reading image", "path", *imagePath)
			case jobs.Processing:
				logger.Debug("Detecting squares", "queue", s.QueueSize)
			case jobs.PopulatingPuzzle:
				logger.Info("Populating grid")
			case jobs.Done:
				logger.Info("Detection finished")
			}
		}
	}()

	if err := finder.Run(ctx); err != nil {
		log.Fatalf("detection failed: %v", err)
	}

	db, err := badger.Open(badger.DefaultOptions(cfg.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	puzzles := repositories.NewPuzzleRepository(db, logger)
	defer puzzles.Close()

	id, err := puzzles.Create(puzzle)
	if err != nil {
		log.Fatalf("storing puzzle: %v", err)
	}

	cols := 0
	if len(puzzle.Rows) > 0 {
		cols = len(puzzle.Rows[0])
	}
	logger.Info("Scan Summary",
		"Puzzle", id,
		"Rows", len(puzzle.Rows),
		"Cols", cols,
		"Width", puzzle.Width,
		"Height", puzzle.Height,
	)
}
