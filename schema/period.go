package schema

import "time"

// PeriodMode is how a leak period setting was interpreted.
type PeriodMode string

// All period modes.
const (
	DateMode             PeriodMode = "DATE"
	DaysMode             PeriodMode = "DAYS"
	VersionMode          PeriodMode = "VERSION"
	PreviousAnalysisMode PeriodMode = "PREVIOUS_ANALYSIS"
	PreviousVersionMode  PeriodMode = "PREVIOUS_VERSION"
)

// Period is one resolved leak period.
type Period struct {
	Index         int        `json:"index"`
	Mode          PeriodMode `json:"mode"`
	ModeParameter *string    `json:"mode_parameter,omitempty"`
	SnapshotDate  int64      `json:"snapshot_date"` // epoch millis of the compared analysis
	AnalysisUUID  string     `json:"analysis_uuid"`
}

// SnapshotTime returns SnapshotDate as a time.Time in UTC.
func (p Period) SnapshotTime() time.Time {
	return time.UnixMilli(p.SnapshotDate).UTC()
}

// Parameter returns the mode parameter or "" when it is nil.
func (p Period) Parameter() string {
	if p.ModeParameter == nil {
		return ""
	}
	return *p.ModeParameter
}
