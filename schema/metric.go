package schema

// MetricType is the declared type of a metric definition.
type MetricType string

// All metric types known to the catalog.
const (
	IntMetric          MetricType = "INT"
	LongMetric         MetricType = "LONG"
	FloatMetric        MetricType = "FLOAT"
	PercentMetric      MetricType = "PERCENT"
	BoolMetric         MetricType = "BOOL"
	StringMetric       MetricType = "STRING"
	WorkDurationMetric MetricType = "WORK_DURATION"
	DataMetric         MetricType = "DATA"
	DistribMetric      MetricType = "DISTRIB"
	LevelMetric        MetricType = "LEVEL"
	RatingMetric       MetricType = "RATING"
	MillisecMetric     MetricType = "MILLISEC"
)

// ValueType is the kind of value a measure holds.
type ValueType string

// All measure value types.
const (
	NoValueType      ValueType = "NO_VALUE"
	IntValueType     ValueType = "INT"
	LongValueType    ValueType = "LONG"
	DoubleValueType  ValueType = "DOUBLE"
	BooleanValueType ValueType = "BOOLEAN"
	StringValueType  ValueType = "STRING"
	LevelValueType   ValueType = "LEVEL"
)

// ValueType maps a metric type to the value type its measures must carry.
func (t MetricType) ValueType() ValueType {
	switch t {
	case IntMetric, RatingMetric:
		return IntValueType
	case LongMetric, WorkDurationMetric, MillisecMetric:
		return LongValueType
	case FloatMetric, PercentMetric:
		return DoubleValueType
	case BoolMetric:
		return BooleanValueType
	case StringMetric, DataMetric, DistribMetric:
		return StringValueType
	case LevelMetric:
		return LevelValueType
	default:
		return NoValueType
	}
}

// IsIntegral reports whether thresholds on this metric type compare as integers.
func (t MetricType) IsIntegral() bool {
	switch t {
	case IntMetric, LongMetric, WorkDurationMetric, MillisecMetric:
		return true
	default:
		return false
	}
}

// Metric is a static metric definition.
type Metric struct {
	ID          int        `json:"id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Type        MetricType `json:"type"`
	Direction   int        `json:"direction"`
	Qualitative bool       `json:"qualitative"`
	BestValue   *float64   `json:"best_value,omitempty"`
}

// Metric keys used by the pipeline.
const (
	LinesKey                      = "lines"
	NclocKey                      = "ncloc"
	NclocDataKey                  = "ncloc_data"
	FunctionsKey                  = "functions"
	StatementsKey                 = "statements"
	ClassesKey                    = "classes"
	GeneratedLinesKey             = "generated_lines"
	GeneratedNclocKey             = "generated_ncloc"
	FilesKey                      = "files"
	DirectoriesKey                = "directories"
	CommentLinesKey               = "comment_lines"
	CommentLinesDensityKey        = "comment_lines_density"
	PublicAPIKey                  = "public_api"
	PublicUndocumentedAPIKey      = "public_undocumented_api"
	PublicDocumentedAPIDensityKey = "public_documented_api_density"
	LinesToCoverKey               = "lines_to_cover"
	UncoveredLinesKey             = "uncovered_lines"
	ConditionsToCoverKey          = "conditions_to_cover"
	UncoveredConditionsKey        = "uncovered_conditions"
	CoverageKey                   = "coverage"
	LineCoverageKey               = "line_coverage"
	BranchCoverageKey             = "branch_coverage"
	TestsKey                      = "tests"
	TestErrorsKey                 = "test_errors"
	TestFailuresKey               = "test_failures"
	SkippedTestsKey               = "skipped_tests"
	TestExecutionTimeKey          = "test_execution_time"
	TestSuccessDensityKey         = "test_success_density"
	DuplicatedLinesKey            = "duplicated_lines"
	DuplicatedBlocksKey           = "duplicated_blocks"
	DuplicatedFilesKey            = "duplicated_files"
	DuplicatedLinesDensityKey     = "duplicated_lines_density"
	NewLinesKey                   = "new_lines"
	NewDuplicatedLinesKey         = "new_duplicated_lines"
	NewBlocksDuplicatedKey        = "new_blocks_duplicated"
	NewDuplicatedLinesDensityKey  = "new_duplicated_lines_density"
	NewLinesToCoverKey            = "new_lines_to_cover"
	NewUncoveredLinesKey          = "new_uncovered_lines"
	NewConditionsToCoverKey       = "new_conditions_to_cover"
	NewUncoveredConditionsKey     = "new_uncovered_conditions"
	NewCoverageKey                = "new_coverage"
	NewLineCoverageKey            = "new_line_coverage"
	NewBranchCoverageKey          = "new_branch_coverage"
	ViolationsKey                 = "violations"
	BugsKey                       = "bugs"
	NewBugsKey                    = "new_bugs"
	VulnerabilitiesKey            = "vulnerabilities"
	CodeSmellsKey                 = "code_smells"
	TechnicalDebtKey              = "sqale_index"
	MaintainabilityRatingKey      = "sqale_rating"
	LanguageDistributionKey       = "ncloc_language_distribution"
	AlertStatusKey                = "alert_status"
	QualityGateDetailsKey         = "quality_gate_details"
	QualityProfilesKey            = "quality_profiles"
)

// Directions follow the usual convention: -1 means higher values are worse.
const (
	worseIfHigher  = -1
	betterIfHigher = 1
	noDirection    = 0
)

type metricDef struct {
	key         string
	name        string
	typ         MetricType
	direction   int
	qualitative bool
	best        *float64
}

func best(v float64) *float64 { return &v }

var coreMetricDefs = []metricDef{
	{LinesKey, "Lines", IntMetric, worseIfHigher, false, nil},
	{NclocKey, "Lines of Code", IntMetric, worseIfHigher, false, nil},
	{NclocDataKey, "ncloc_data", DataMetric, noDirection, false, nil},
	{FunctionsKey, "Functions", IntMetric, worseIfHigher, false, nil},
	{StatementsKey, "Statements", IntMetric, worseIfHigher, false, nil},
	{ClassesKey, "Classes", IntMetric, worseIfHigher, false, nil},
	{GeneratedLinesKey, "Generated Lines", IntMetric, worseIfHigher, false, nil},
	{GeneratedNclocKey, "Generated Lines of Code", IntMetric, worseIfHigher, false, nil},
	{FilesKey, "Files", IntMetric, worseIfHigher, false, nil},
	{DirectoriesKey, "Directories", IntMetric, worseIfHigher, false, nil},
	{CommentLinesKey, "Comment Lines", IntMetric, betterIfHigher, false, nil},
	{CommentLinesDensityKey, "Comments (%)", PercentMetric, betterIfHigher, true, nil},
	{PublicAPIKey, "Public API", IntMetric, worseIfHigher, false, nil},
	{PublicUndocumentedAPIKey, "Public Undocumented API", IntMetric, worseIfHigher, true, best(0)},
	{PublicDocumentedAPIDensityKey, "Public Documented API (%)", PercentMetric, betterIfHigher, true, best(100)},
	{LinesToCoverKey, "Lines to Cover", IntMetric, betterIfHigher, false, nil},
	{UncoveredLinesKey, "Uncovered Lines", IntMetric, worseIfHigher, false, best(0)},
	{ConditionsToCoverKey, "Conditions to Cover", IntMetric, betterIfHigher, false, nil},
	{UncoveredConditionsKey, "Uncovered Conditions", IntMetric, worseIfHigher, false, best(0)},
	{CoverageKey, "Coverage", PercentMetric, betterIfHigher, true, best(100)},
	{LineCoverageKey, "Line Coverage", PercentMetric, betterIfHigher, true, best(100)},
	{BranchCoverageKey, "Condition Coverage", PercentMetric, betterIfHigher, true, best(100)},
	{TestsKey, "Unit Tests", IntMetric, betterIfHigher, false, nil},
	{TestErrorsKey, "Unit Test Errors", IntMetric, worseIfHigher, true, best(0)},
	{TestFailuresKey, "Unit Test Failures", IntMetric, worseIfHigher, true, best(0)},
	{SkippedTestsKey, "Skipped Unit Tests", IntMetric, worseIfHigher, true, best(0)},
	{TestExecutionTimeKey, "Unit Test Duration", MillisecMetric, worseIfHigher, false, nil},
	{TestSuccessDensityKey, "Unit Test Success (%)", PercentMetric, betterIfHigher, true, best(100)},
	{DuplicatedLinesKey, "Duplicated Lines", IntMetric, worseIfHigher, true, best(0)},
	{DuplicatedBlocksKey, "Duplicated Blocks", IntMetric, worseIfHigher, true, best(0)},
	{DuplicatedFilesKey, "Duplicated Files", IntMetric, worseIfHigher, true, best(0)},
	{DuplicatedLinesDensityKey, "Duplicated Lines (%)", PercentMetric, worseIfHigher, true, best(0)},
	{NewLinesKey, "New Lines", IntMetric, worseIfHigher, false, nil},
	{NewDuplicatedLinesKey, "Duplicated Lines on New Code", IntMetric, worseIfHigher, true, nil},
	{NewBlocksDuplicatedKey, "Duplicated Blocks on New Code", IntMetric, worseIfHigher, true, nil},
	{NewDuplicatedLinesDensityKey, "Duplicated Lines on New Code (%)", PercentMetric, worseIfHigher, true, nil},
	{NewLinesToCoverKey, "Lines to Cover on New Code", IntMetric, worseIfHigher, false, nil},
	{NewUncoveredLinesKey, "Uncovered Lines on New Code", IntMetric, worseIfHigher, true, nil},
	{NewConditionsToCoverKey, "Conditions to Cover on New Code", IntMetric, worseIfHigher, false, nil},
	{NewUncoveredConditionsKey, "Uncovered Conditions on New Code", IntMetric, worseIfHigher, true, nil},
	{NewCoverageKey, "Coverage on New Code", PercentMetric, betterIfHigher, true, nil},
	{NewLineCoverageKey, "Line Coverage on New Code", PercentMetric, betterIfHigher, true, nil},
	{NewBranchCoverageKey, "Condition Coverage on New Code", PercentMetric, betterIfHigher, true, nil},
	{ViolationsKey, "Issues", IntMetric, worseIfHigher, true, best(0)},
	{BugsKey, "Bugs", IntMetric, worseIfHigher, true, best(0)},
	{NewBugsKey, "New Bugs", IntMetric, worseIfHigher, true, best(0)},
	{VulnerabilitiesKey, "Vulnerabilities", IntMetric, worseIfHigher, true, best(0)},
	{CodeSmellsKey, "Code Smells", IntMetric, worseIfHigher, true, best(0)},
	{TechnicalDebtKey, "Technical Debt", WorkDurationMetric, worseIfHigher, true, best(0)},
	{MaintainabilityRatingKey, "Maintainability Rating", RatingMetric, worseIfHigher, true, best(1)},
	{LanguageDistributionKey, "Lines of Code Per Language", DistribMetric, worseIfHigher, false, nil},
	{AlertStatusKey, "Quality Gate Status", LevelMetric, betterIfHigher, true, nil},
	{QualityGateDetailsKey, "Quality Gate Details", DataMetric, noDirection, false, nil},
	{QualityProfilesKey, "Profiles", DataMetric, noDirection, false, nil},
}

// CoreMetrics returns the metric catalog loaded at the start of every run.
// IDs are assigned in catalog order starting at 1.
func CoreMetrics() []Metric {
	metrics := make([]Metric, 0, len(coreMetricDefs))
	for i, d := range coreMetricDefs {
		metrics = append(metrics, Metric{
			ID:          i + 1,
			Key:         d.key,
			Name:        d.name,
			Type:        d.typ,
			Direction:   d.direction,
			Qualitative: d.qualitative,
			BestValue:   d.best,
		})
	}
	return metrics
}
