// Command validate checks the simulation preset JSON files in a directory
// (../configs unless a directory is given as the first argument). Each file
// goes through the same checks the preset manager applies when loading it,
// then a sample run must cover every airport within the day bound.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/cloudcover/sim/config"
	"github.com/wricardo/cloudcover/sim/engine"
)

// sampleSeed is used for the sample run of presets without a seed
const sampleSeed = 1

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it holds
// the reason the file was rejected.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// validatePreset loads and validates a single preset file, then runs one
// sample simulation with it
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	preset, err := config.ReadPreset(filePath)
	if err != nil {
		if errors.Is(err, config.ErrInvalidPreset) {
			result.fail("%v", err)
		} else {
			result.fail("Failed to read file: %v", err)
		}
		return result
	}

	params := preset.Params()
	seed := uint64(sampleSeed)
	if preset.Seed != nil {
		seed = *preset.Seed
	}

	// Sample run
	run, err := engine.Simulate(params, engine.NewSource(seed))
	if err != nil {
		result.fail("Sample run with seed %d failed: %v", seed, err)
		return result
	}

	result.Messages = append(result.Messages,
		fmt.Sprintf("✓ Sample run (seed %d): first airport day %d, all airports day %d",
			seed, run.FirstAirport.DayOr(0), run.AllAirports.DayOr(0)))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Name: %s", preset.Name))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Terrain: %dx%d (%d cells)", params.Height, params.Width, params.Terrain().Cells()))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Airports: %d", params.Airports))
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Clouds: %d", params.Clouds))
	if preset.Seed != nil {
		result.Messages = append(result.Messages, fmt.Sprintf("✓ Seed: %d", *preset.Seed))
	}

	return result
}

// run validates every *.json file in dir, writes a report to w and reports
// whether all of them are valid
func run(dir string, w io.Writer) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return false, fmt.Errorf("error finding preset files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no preset files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Messages {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				fmt.Fprintln(w, "  ❌ "+msg)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid, nil
}

func main() {
	dir := "../configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	ok, err := run(dir, os.Stdout)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}
