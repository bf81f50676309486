package schema

// ReportMetadata describes the scanner run that produced a report.
type ReportMetadata struct {
	RootComponentRef               int                       `json:"root_component_ref" validate:"gt=0"`
	ProjectKey                     string                    `json:"project_key" validate:"required"`
	AnalysisDate                   int64                     `json:"analysis_date" validate:"gt=0"` // epoch millis
	Branch                         string                    `json:"branch,omitempty"`
	OrganizationKey                string                    `json:"organization_key,omitempty"`
	CrossProjectDuplicationEnabled bool                      `json:"cross_project_duplication_enabled"`
	QualityProfilesPerLanguage     map[string]QualityProfile `json:"quality_profiles_per_language,omitempty" validate:"dive"`
	PluginsByKey                   map[string]Plugin         `json:"plugins_by_key,omitempty" validate:"dive"`
}

// QualityProfile is the profile used for one language.
type QualityProfile struct {
	Key      string `json:"key" validate:"required"`
	Name     string `json:"name"`
	Language string `json:"language" validate:"required"`
	RulesAt  int64  `json:"rules_updated_at"`
}

// Plugin is a scanner plugin that contributed to the report.
type Plugin struct {
	Key       string `json:"key" validate:"required"`
	UpdatedAt int64  `json:"updated_at"`
}

// ReportComponent is a component as declared by the scanner.
type ReportComponent struct {
	Ref         int           `json:"ref" validate:"gt=0"`
	Type        ComponentType `json:"type" validate:"required,componenttype"`
	Key         string        `json:"key,omitempty"`
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Path        string        `json:"path,omitempty"`
	Version     string        `json:"version,omitempty"`
	Language    string        `json:"language,omitempty"`
	IsTest      bool          `json:"is_test,omitempty"`
	Lines       int           `json:"lines,omitempty" validate:"gte=0"`
	ChildRefs   []int         `json:"child_refs,omitempty" validate:"dive,gt=0"`
}

// ReportMeasure is a raw measure computed by the scanner. At most one value field is set.
type ReportMeasure struct {
	MetricKey    string   `json:"metric_key" validate:"required"`
	IntValue     *int     `json:"int_value,omitempty"`
	LongValue    *int64   `json:"long_value,omitempty"`
	DoubleValue  *float64 `json:"double_value,omitempty"`
	BooleanValue *bool    `json:"boolean_value,omitempty"`
	StringValue  *string  `json:"string_value,omitempty"`
	Data         string   `json:"data,omitempty"`
}

// ToMeasure converts the report form into a typed measure.
func (r ReportMeasure) ToMeasure() Measure {
	var m Measure
	switch {
	case r.IntValue != nil:
		m = IntMeasure(*r.IntValue)
	case r.LongValue != nil:
		m = LongMeasure(*r.LongValue)
	case r.DoubleValue != nil:
		m = DoubleMeasure(*r.DoubleValue)
	case r.BooleanValue != nil:
		m = BoolMeasure(*r.BooleanValue)
	case r.StringValue != nil:
		m = StringMeasure(*r.StringValue)
	default:
		m = NoValueMeasure()
	}
	if r.Data != "" {
		m = m.WithData(r.Data)
	}
	return m
}

// ReportDuplication is a duplication as declared by the scanner.
type ReportDuplication struct {
	Origin     TextBlock         `json:"origin"`
	Duplicates []ReportDuplicate `json:"duplicates" validate:"min=1,dive"`
}

// ReportDuplicate points at the location of a duplicate.
// OtherFileRef selects a file of the same report, OtherFileKey a file of another project.
// When both are empty the duplicate is in the same file.
type ReportDuplicate struct {
	OtherFileRef int       `json:"other_file_ref,omitempty"`
	OtherFileKey string    `json:"other_file_key,omitempty"`
	Range        TextBlock `json:"range"`
}

// Changeset is the SCM attribution of a line.
type Changeset struct {
	Revision string `json:"revision"`
	Author   string `json:"author,omitempty"`
	Date     int64  `json:"date"` // epoch millis
}

// ReportChangesets maps every line of a file to one of its changesets.
type ReportChangesets struct {
	Changesets []Changeset `json:"changesets"`
	LineIndex  []int       `json:"line_index"` // LineIndex[line-1] is an index into Changesets
}

// ForLine returns the changeset of a 1-based line.
func (c *ReportChangesets) ForLine(line int) (Changeset, bool) {
	if c == nil || line < 1 || line > len(c.LineIndex) {
		return Changeset{}, false
	}
	idx := c.LineIndex[line-1]
	if idx < 0 || idx >= len(c.Changesets) {
		return Changeset{}, false
	}
	return c.Changesets[idx], true
}

// LineCount returns the number of attributed lines.
func (c *ReportChangesets) LineCount() int {
	if c == nil {
		return 0
	}
	return len(c.LineIndex)
}

// LineCoverage is the coverage of one line. Hits is nil for lines that are not executable.
type LineCoverage struct {
	Line              int   `json:"line" validate:"gt=0"`
	Hits              *bool `json:"hits,omitempty"`
	Conditions        int   `json:"conditions,omitempty" validate:"gte=0"`
	CoveredConditions int   `json:"covered_conditions,omitempty" validate:"gte=0,ltefield=Conditions"`
}

// TestStatus is the outcome of a unit test.
type TestStatus string

// All test statuses.
const (
	TestOK      TestStatus = "OK"
	TestFailure TestStatus = "FAILURE"
	TestError   TestStatus = "ERROR"
	TestSkipped TestStatus = "SKIPPED"
)

// TestResult is one unit test executed in a test file.
type TestResult struct {
	Name       string     `json:"name" validate:"required"`
	Status     TestStatus `json:"status" validate:"oneof=OK FAILURE ERROR SKIPPED"`
	DurationMs int64      `json:"duration_ms"`
	Message    string     `json:"message,omitempty"`
	Stacktrace string     `json:"stacktrace,omitempty"`
}

// CoverageDetail lists the lines a test covered in another file.
type CoverageDetail struct {
	TestName       string `json:"test_name" validate:"required"`
	CoveredFileRef int    `json:"covered_file_ref" validate:"gt=0"`
	CoveredLines   []int  `json:"covered_lines"`
}

// FieldDiff is a change of one issue field.
type FieldDiff struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

// Issue is an issue raised on a component.
type Issue struct {
	Key           string      `json:"key" validate:"required"`
	RuleKey       string      `json:"rule_key" validate:"required"`
	Severity      string      `json:"severity"`
	Type          string      `json:"type"`
	Assignee      string      `json:"assignee,omitempty"`
	Tags          []string    `json:"tags,omitempty"`
	EffortMinutes int64       `json:"effort_minutes"`
	CreationDate  int64       `json:"creation_date"` // epoch millis
	ComponentRef  int         `json:"component_ref"`
	ComponentKey  string      `json:"component_key,omitempty"`
	IsNew         bool        `json:"is_new"`
	Changes       []FieldDiff `json:"changes,omitempty"`
}
