package iocache

import (
	"fmt"
	"maps"
	"slices"

	"github.com/huangsam/ceflow/schema"
)

// PrintStoreStatus prints analysis store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Projects: %d\n", status.TotalProjects)
	fmt.Printf("Total Components: %d\n", status.TotalComponents)
	fmt.Printf("Total Analyses: %d\n", status.TotalAnalyses)
	if status.TotalAnalyses > 0 {
		fmt.Printf("Last Analysis: %s (%s)\n", status.LastAnalysisUUID, status.LastAnalysisTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Analysis: %s\n", status.OldestAnalysisTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Total Measures: %d\n", status.TotalMeasures)
	}
	fmt.Println("Table Sizes:")
	for _, table := range slices.Sorted(maps.Keys(status.TableSizes)) {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}
