// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"time"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/parquet"
	"github.com/huangsam/ceflow/schema"
)

// OutWriter provides a unified interface for all output operations.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteRun prints a run result using the configured output format.
func (ow *OutWriter) WriteRun(result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	return PrintRunResult(result, cfg, duration)
}

// PrintRunResult outputs a run result, dispatching based on the output format configured.
func PrintRunResult(result *schema.RunResult, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunCSV(w, result)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return parquet.WriteComponentMeasures(w, parquet.ConvertRunResult(result))
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	default:
		// Default to human-readable tables
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRunTable(w, result, cfg, duration)
		}, "Wrote table")
	}
	return nil
}
