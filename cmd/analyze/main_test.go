package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/cloudcover/sim/engine"
)

func writePreset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return path
}

func TestDayStats(t *testing.T) {
	var s dayStats
	if s.String() != "n/a" {
		t.Errorf("Expected n/a for empty stats, got %q", s.String())
	}

	for _, d := range []int{4, 2, 6} {
		s.add(d)
	}
	if s.min != 2 || s.max != 6 || s.count != 3 {
		t.Errorf("Unexpected stats: %+v", s)
	}
	if got := s.String(); got != "min 2, mean 4.0, max 6" {
		t.Errorf("Unexpected rendering: %q", got)
	}
}

func TestClosestManhattan(t *testing.T) {
	grid := engine.NewGrid(100)
	grid[0].Kind = engine.Cloud
	grid[99].Kind = engine.Airport
	grid[23].Kind = engine.Airport

	if got := closestManhattan(grid, 10); got != 5 {
		t.Errorf("Expected distance 5, got %d", got)
	}

	if got := closestManhattan(engine.NewGrid(100), 10); got != -1 {
		t.Errorf("Expected -1 for an empty grid, got %d", got)
	}
}

func TestAnalyzePreset_Valid(t *testing.T) {
	path := writePreset(t, t.TempDir(), "classic.json",
		`{"name": "Classic", "airports": 3, "clouds": 4, "height": 10, "width": 10}`)

	var out bytes.Buffer
	analyzePreset(&out, path, 5, 7)

	report := out.String()
	for _, want := range []string{
		"Name: Classic",
		"Terrain: 10 x 10",
		"Runs: 5 (seeds 7..11)",
		"First airport covered: min",
		"Every run covered all airports",
		"Seed 7 prediction: first airport day",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}
}

func TestAnalyzePreset_InvalidParams(t *testing.T) {
	path := writePreset(t, t.TempDir(), "small.json",
		`{"name": "Small", "airports": 3, "clouds": 4, "height": 5, "width": 10}`)

	var out bytes.Buffer
	analyzePreset(&out, path, 5, 1)

	if !strings.Contains(out.String(), "Skipped: Provide a valid height") {
		t.Errorf("Expected a skipped preset:\n%s", out.String())
	}
}

func TestAnalyzePreset_BadFiles(t *testing.T) {
	var out bytes.Buffer
	analyzePreset(&out, "/non/existent/file.json", 1, 1)
	if !strings.Contains(out.String(), "Error reading file") {
		t.Errorf("Unexpected output: %s", out.String())
	}

	out.Reset()
	path := writePreset(t, t.TempDir(), "bad.json", `{"name": "test", invalid json}`)
	analyzePreset(&out, path, 1, 1)
	if !strings.Contains(out.String(), "Error parsing JSON") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestCommand(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "b.json", `{"name": "B", "airports": 4, "clouds": 5, "height": 10, "width": 12}`)
	writePreset(t, dir, "a.json", `{"name": "A", "airports": 3, "clouds": 4, "height": 10, "width": 10}`)

	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out

	err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", dir, "--runs", "3", "--seed", "10"})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	report := out.String()
	a := strings.Index(report, "=== Analyzing a.json ===")
	b := strings.Index(report, "=== Analyzing b.json ===")
	if a == -1 || b == -1 || a > b {
		t.Errorf("Expected both presets in name order:\n%s", report)
	}
	if !strings.Contains(report, "Runs: 3 (seeds 10..12)") {
		t.Errorf("Expected run range in report:\n%s", report)
	}
}

func TestCommand_Errors(t *testing.T) {
	cmd := newCommand()
	cmd.Writer = &bytes.Buffer{}
	if err := cmd.Run(context.Background(), []string{"analyze", "--config-dir", t.TempDir()}); err == nil {
		t.Error("Expected an error for an empty directory")
	}

	cmd = newCommand()
	cmd.Writer = &bytes.Buffer{}
	if err := cmd.Run(context.Background(), []string{"analyze", "--runs", "0"}); err == nil {
		t.Error("Expected an error for zero runs")
	}
}
