package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"puzzle-lab/domain"
	"puzzle-lab/repositories"
)

type config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
}

// The viewer prints a stored puzzle to the terminal: the grid with each
// letter tinted in its writer's color, plus the solver list. It opens the
// database read-only with the lock guard bypassed, so it works while the
// server is running.
func main() {
	puzzleID := flag.Int64("puzzle", 0, "puzzle id to display")
	flag.Parse()

	_ = godotenv.Load()
	var cfg config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		log.Fatalf("config loading failed: %v", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	opts := badger.DefaultOptions(cfg.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	puzzles := repositories.NewPuzzleRepository(db, logger)
	defer puzzles.Close()
	users := repositories.NewUserRepository(db)
	defer users.Close()

	puzzle, err := puzzles.Load(domain.PuzzleID(*puzzleID))
	if err != nil {
		log.Fatalf("loading puzzle %d: %v", *puzzleID, err)
	}
	solvers, err := users.GetUsers()
	if err != nil {
		log.Fatalf("listing users: %v", err)
	}

	printGrid(puzzle, solvers)
	printUsers(solvers)
}

func printGrid(puzzle *domain.Puzzle, solvers []domain.User) {
	colors := make(map[domain.UserID]string, len(solvers))
	for _, solver := range solvers {
		colors[solver.ID] = solver.Color
	}

	fmt.Printf("Puzzle %d (%s, %d°)\n\n", puzzle.ID, puzzle.Path, puzzle.Rotation.Degrees())
	for _, row := range puzzle.Rows {
		for _, cell := range row {
			switch {
			case cell.IsNull():
				fmt.Print("  ")
			case cell.Character == domain.None:
				fmt.Print("· ")
			default:
				letter := cell.Character.String()
				if hex, ok := colors[cell.User]; ok {
					letter = color.HEX(hex).Sprint(letter)
				}
				fmt.Printf("%s ", letter)
			}
		}
		fmt.Println()
	}
	fmt.Println()
}

func printUsers(solvers []domain.User) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Color"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, solver := range solvers {
		table.Append([]string{
			fmt.Sprintf("%d", solver.ID),
			solver.Name,
			color.HEX(solver.Color).Sprint(solver.Color),
		})
	}
	table.Render()
}
