// Command analyze prints quick, human-readable statistics about the presets in
// the project's configs directory. For every preset it runs a batch of seeded
// simulations and summarizes when clouds reach the first and the last airport,
// then compares the engine's coverage prediction with a straight-line
// Manhattan estimate on the first run's placement.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/cloudcover/sim/engine"
	"github.com/wricardo/cloudcover/sim/service"
)

// dayStats accumulates arrival days across runs
type dayStats struct {
	count int
	min   int
	max   int
	total int
}

func (s *dayStats) add(day int) {
	if s.count == 0 || day < s.min {
		s.min = day
	}
	if s.count == 0 || day > s.max {
		s.max = day
	}
	s.count++
	s.total += day
}

func (s dayStats) String() string {
	if s.count == 0 {
		return "n/a"
	}
	return fmt.Sprintf("min %d, mean %.1f, max %d", s.min, float64(s.total)/float64(s.count), s.max)
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Summarize arrival days for every preset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: "configs",
				Usage: "Directory with preset JSON files",
			},
			&cli.IntFlag{
				Name:  "runs",
				Value: 20,
				Usage: "Seeded runs per preset",
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Value: 1,
				Usage: "Seed of the first run; later runs use the following seeds",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			runs := cmd.Int("runs")
			if runs < 1 {
				return fmt.Errorf("runs must be at least 1, got %d", runs)
			}
			return analyzeDir(cmd.Root().Writer, cmd.String("config-dir"), runs, cmd.Uint64("seed"))
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func analyzeDir(w io.Writer, dir string, runs int, seed uint64) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no presets found in %s", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(file))
		analyzePreset(w, file, runs, seed)
	}
	return nil
}

func analyzePreset(w io.Writer, path string, runs int, seed uint64) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error reading file: %v\n", err)
		return
	}

	var preset service.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		fmt.Fprintf(w, "Error parsing JSON: %v\n", err)
		return
	}

	params := preset.Params()
	fmt.Fprintf(w, "Name: %s\n", preset.Name)
	fmt.Fprintf(w, "Terrain: %d x %d\n", params.Height, params.Width)
	fmt.Fprintf(w, "Airports: %d\n", params.Airports)
	fmt.Fprintf(w, "Clouds: %d\n", params.Clouds)

	if err := service.ValidateParams(params); err != nil {
		fmt.Fprintf(w, "⚠️  Skipped: %v\n", err)
		return
	}

	var first, all, days dayStats
	var sample *engine.Result
	for i := 0; i < runs; i++ {
		result, err := engine.Simulate(params, engine.NewSource(seed+uint64(i)))
		if err != nil {
			fmt.Fprintf(w, "⚠️  Run with seed %d failed: %v\n", seed+uint64(i), err)
			return
		}
		if sample == nil {
			sample = result
		}
		days.add(result.Days())
		if result.FirstAirport.Reached {
			first.add(result.FirstAirport.DayOr(0))
		}
		if result.AllAirports.Reached {
			all.add(result.AllAirports.DayOr(0))
		}
	}

	fmt.Fprintf(w, "Runs: %d (seeds %d..%d)\n", runs, seed, seed+uint64(runs-1))
	fmt.Fprintf(w, "Days simulated: %s\n", days)
	fmt.Fprintf(w, "First airport covered: %s\n", first)
	fmt.Fprintf(w, "All airports covered: %s\n", all)

	if all.count < runs {
		fmt.Fprintf(w, "⚠️  WARNING: %d runs never covered every airport\n", runs-all.count)
	} else {
		fmt.Fprintf(w, "✅ Every run covered all airports\n")
	}

	describePlacement(w, sample, seed)
}

// describePlacement compares the predicted first arrival of a run with the
// closest cloud-to-airport Manhattan distance on its starting grid
func describePlacement(w io.Writer, result *engine.Result, seed uint64) {
	if result == nil || len(result.History) == 0 {
		return
	}

	grid := result.History[0].Grid.Initial
	width := result.Terrain.Width

	first, last, ok := engine.PredictArrivals(grid, width)
	if !ok {
		fmt.Fprintf(w, "⚠️  Seed %d: some airport can never be covered\n", seed)
		return
	}
	fmt.Fprintf(w, "Seed %d prediction: first airport day %d, all airports day %d\n", seed, first, last)

	nearest := closestManhattan(grid, width)
	if nearest < 0 {
		return
	}
	if first < nearest {
		fmt.Fprintf(w, "Row wrap shortcut: nearest airport is %d cells away on the map but covered on day %d\n", nearest, first)
	} else {
		fmt.Fprintf(w, "Nearest airport is %d cells from a cloud\n", nearest)
	}
}

// closestManhattan returns the smallest Manhattan distance between any cloud
// and any airport, or -1 when either is missing
func closestManhattan(grid engine.Grid, width int) int {
	var clouds, airports []int
	for i, cell := range grid {
		switch cell.Kind {
		case engine.Cloud:
			clouds = append(clouds, i)
		case engine.Airport:
			airports = append(airports, i)
		}
	}

	best := -1
	for _, c := range clouds {
		for _, a := range airports {
			if d := engine.ManhattanDistance(c, a, width); best == -1 || d < best {
				best = d
			}
		}
	}
	return best
}
