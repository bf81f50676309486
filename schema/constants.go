package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the analysis store.
	DatabaseBackend string

	// BranchType represents how component keys are derived for a branch.
	BranchType string

	// SnapshotStatus is the processing status of a persisted analysis.
	SnapshotStatus string

	// NotificationType identifies a kind of notification payload.
	NotificationType string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All branch types supported.
const (
	MainBranch       BranchType = "main" // default
	LegacyBranch     BranchType = "legacy"
	LongLivingBranch BranchType = "long"
)

// Analysis statuses. Only processed analyses are visible to period resolution.
const (
	UnprocessedStatus SnapshotStatus = "U"
	ProcessedStatus   SnapshotStatus = "P"
)

// Notification types built by the pipeline.
const (
	NewIssuesNotification    NotificationType = "new-issues"
	MyNewIssuesNotification  NotificationType = "my-new-issues"
	IssueChangesNotification NotificationType = "issue-changes"
)

// Event categories written by the events step.
const (
	VersionEventCategory = "Version"
	AlertEventCategory   = "Alert"
)

// MaxPeriods is the number of leak periods an analysis may carry.
const MaxPeriods = 5

// NotProvidedVersion is the root version used when neither the report nor history has one.
const NotProvidedVersion = "not provided"

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidBranchTypes lists all valid branch types.
var ValidBranchTypes = map[BranchType]struct{}{
	MainBranch:       {},
	LegacyBranch:     {},
	LongLivingBranch: {},
}

// ValidNotificationTypes lists all notification types a sink may subscribe to.
var ValidNotificationTypes = map[NotificationType]struct{}{
	NewIssuesNotification:    {},
	MyNewIssuesNotification:  {},
	IssueChangesNotification: {},
}
