// Package main provides a performance benchmarking tool for the ceflow CLI.
// It generates synthetic scanner reports of increasing size and times 'ceflow run'
// on each, once without a store and several times against a SQLite store,
// treating the first stored run as cold (first analysis) and averaging the rest as warm.
// Results are written as CSV for performance analysis and documentation.
//
// Prerequisites:
// - ceflow binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory receiving the generated reports and the SQLite store
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/ceflow/internal/reportreader"
	"github.com/huangsam/ceflow/schema"
)

// BenchmarkResult holds the result of a benchmark run (no-store average, cold run and average of warm runs).
type BenchmarkResult struct {
	Files       int
	NoStoreTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir      string
	Timeout      time.Duration
	Workers      int
	NoStoreRuns  int
	StoreRuns    int
	FileCounts   []int
	LinesPerFile int
}

const millisPerDay = int64(24 * time.Hour / time.Millisecond)

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:      os.Args[1],
		Timeout:      5 * time.Minute,
		Workers:      8,
		NoStoreRuns:  3,
		StoreRuns:    4,
		FileCounts:   []int{100, 1000, 10000},
		LinesPerFile: 200,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the ceflow binary and the work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("ceflow"); err != nil {
		return fmt.Errorf("ceflow binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks executes the benchmark suite for every report size
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d sizes, %v timeout, %d workers, no-store: %d runs, store: %d runs\n",
		len(config.FileCounts), config.Timeout, config.Workers, config.NoStoreRuns, config.StoreRuns)

	for _, files := range config.FileCounts {
		fmt.Printf("Benchmarking %d files\n", files)
		results = append(results, runBenchmarkSuite(config, files))
	}

	return results
}

// runBenchmarkSuite runs both no-store and store benchmarks for one report size
func runBenchmarkSuite(config BenchmarkConfig, files int) BenchmarkResult {
	dbPath := filepath.Join(config.WorkDir, fmt.Sprintf("ceflow-%d.db", files))
	_ = os.Remove(dbPath)

	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, files, backend, dbPath, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: every run is a first analysis
	_, noStoreAvg := runPhase("none", config.NoStoreRuns, "No-store")

	// Phase 2: later runs compare against the stored history
	coldTime, warmAvg := runPhase("sqlite", config.StoreRuns, "Store")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-store average: %s, Cold time: %s, Warm average: %s\n", noStoreAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Files:       files,
		NoStoreTime: noStoreAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark runs 'ceflow run' numRuns times on reports one day apart and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, files int, backend, dbPath string, numRuns int) (coldTime float64, warmTimes []float64) {
	var times []float64
	for run := 1; run <= numRuns; run++ {
		reportPath, err := writeReport(config, files, run)
		if err != nil {
			fmt.Printf("  failed to write report: %v\n", err)
			continue
		}
		args := []string{
			"run", "--report", reportPath, "--period1", "previous_analysis",
			"--store-backend", backend, "--store-db-connect", dbPath,
			"--workers", fmt.Sprint(config.Workers), "--log-level", "warn",
		}

		start := time.Now()
		cmd := exec.Command("ceflow", args...)
		cmd.Dir = config.WorkDir

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// writeReport generates a report of files source files spread over ten directories.
func writeReport(config BenchmarkConfig, files, run int) (string, error) {
	doc := reportreader.Document{
		Metadata: schema.ReportMetadata{
			RootComponentRef: 1,
			ProjectKey:       fmt.Sprintf("bench:project-%d", files),
			AnalysisDate:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli() + int64(run)*millisPerDay,
		},
		Components: []schema.ReportComponent{{Ref: 1, Type: schema.ProjectType, Name: "Benchmark", Version: fmt.Sprintf("1.%d", run)}},
		Measures:   make(map[int][]schema.ReportMeasure),
		Issues:     make(map[int][]schema.Issue),
		Coverage:   make(map[int][]schema.LineCoverage),
	}

	const dirs = 10
	nextRef := 2
	for d := range dirs {
		dirRef := nextRef
		nextRef++
		doc.Components[0].ChildRefs = append(doc.Components[0].ChildRefs, dirRef)
		dir := schema.ReportComponent{Ref: dirRef, Type: schema.DirectoryType, Path: fmt.Sprintf("pkg%d", d)}
		for f := d; f < files; f += dirs {
			ref := nextRef
			nextRef++
			dir.ChildRefs = append(dir.ChildRefs, ref)
			doc.Components = append(doc.Components, schema.ReportComponent{
				Ref:      ref,
				Type:     schema.FileType,
				Path:     fmt.Sprintf("pkg%d/file%d.go", d, f),
				Language: "go",
				Lines:    config.LinesPerFile,
			})
			ncloc := config.LinesPerFile * 3 / 4
			functions := ncloc/20 + run
			doc.Measures[ref] = []schema.ReportMeasure{
				{MetricKey: schema.NclocKey, IntValue: &ncloc},
				{MetricKey: "functions", IntValue: &functions},
			}
			covered := true
			for line := 1; line <= config.LinesPerFile; line += 4 {
				doc.Coverage[ref] = append(doc.Coverage[ref], schema.LineCoverage{Line: line, Hits: &covered})
			}
			doc.Issues[ref] = []schema.Issue{{
				Key:           fmt.Sprintf("ISSUE-%d", ref),
				RuleKey:       "go:S100",
				Severity:      "MAJOR",
				Type:          "CODE_SMELL",
				EffortMinutes: 5,
				CreationDate:  doc.Metadata.AnalysisDate,
				ComponentRef:  ref,
				IsNew:         run == 1,
			}}
		}
		doc.Components = append(doc.Components, dir)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	path := filepath.Join(config.WorkDir, fmt.Sprintf("report-%d-%d.json", files, run))
	return path, os.WriteFile(path, raw, 0o644)
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "completed in") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/ceflow_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"files", "no_store_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{fmt.Sprint(result.Files), result.NoStoreTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %6d files: No-store: %s, Cold: %s, Warm: %s\n", result.Files, result.NoStoreTime, result.ColdTime, result.WarmTime)
	}
}
