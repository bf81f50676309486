package schema

import "time"

// StoreStatus represents the status of the analysis store.
type StoreStatus struct {
	Backend            string           `json:"backend"`
	Connected          bool             `json:"connected"`
	TotalProjects      int              `json:"total_projects"`
	TotalComponents    int              `json:"total_components"`
	TotalAnalyses      int              `json:"total_analyses"`
	TotalMeasures      int              `json:"total_measures"`
	LastAnalysisUUID   string           `json:"last_analysis_uuid"`
	LastAnalysisTime   time.Time        `json:"last_analysis_time"`
	OldestAnalysisTime time.Time        `json:"oldest_analysis_time"`
	TableSizes         map[string]int64 `json:"table_sizes"`
}
