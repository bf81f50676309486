package iocache

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/internal/parquet"
	"github.com/huangsam/ceflow/schema"
)

// ExecuteStoreExport exports the analyses and measures of the store to Parquet files
// named after outputFile.
func ExecuteStoreExport(ctx context.Context, store contract.AnalysisStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get store status: %w", err)
	}
	if status.TotalAnalyses == 0 {
		return errors.New("no analysis data found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total analyses: %d\n", status.TotalAnalyses)
	fmt.Printf("Total measures: %d\n", status.TotalMeasures)

	// 1. Analyses of every project
	analyses, err := store.SelectAnalyses(ctx, schema.AnalysisQuery{})
	if err != nil {
		return fmt.Errorf("failed to retrieve analyses: %w", err)
	}

	// 2. Measures of every analysis
	var measures []schema.MeasureRecord
	for _, a := range analyses {
		rows, err := store.SelectMeasures(ctx, a.UUID)
		if err != nil {
			return fmt.Errorf("failed to retrieve measures of %s: %w", a.UUID, err)
		}
		measures = append(measures, rows...)
	}

	// 3. Write
	analysesFile := outputFile + ".analyses.parquet"
	parquetAnalyses := parquet.ConvertAnalysisRecords(analyses)
	if err := parquet.WriteAnalysesParquet(parquetAnalyses, analysesFile); err != nil {
		return fmt.Errorf("failed to write analyses: %w", err)
	}
	fmt.Printf("Exported %d analyses to: %s\n", len(parquetAnalyses), analysesFile)

	measuresFile := outputFile + ".measures.parquet"
	parquetMeasures := parquet.ConvertMeasureRecords(measures)
	if err := parquet.WriteMeasuresParquet(parquetMeasures, measuresFile); err != nil {
		return fmt.Errorf("failed to write measures: %w", err)
	}
	fmt.Printf("Exported %d measures to: %s\n", len(parquetMeasures), measuresFile)

	fmt.Println("\nExport complete! The Parquet files can be read with DuckDB, Pandas or Apache Spark.")
	return nil
}
