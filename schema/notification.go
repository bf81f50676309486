package schema

// Notification is a payload handed to a notification sink.
type Notification struct {
	Type        NotificationType   `json:"type"`
	ProjectUUID string             `json:"project_uuid"`
	ProjectKey  string             `json:"project_key"`
	ProjectName string             `json:"project_name"`
	Branch      string             `json:"branch,omitempty"`
	Assignee    string             `json:"assignee,omitempty"`
	AnalysisAt  int64              `json:"analysis_at"`
	Statistics  *IssueStatistics   `json:"statistics,omitempty"`
	IssueChange *IssueChangeDetail `json:"issue_change,omitempty"`
}

// IssueChangeDetail describes the field diffs of one existing issue.
type IssueChangeDetail struct {
	IssueKey     string      `json:"issue_key"`
	RuleKey      string      `json:"rule_key"`
	ComponentKey string      `json:"component_key"`
	Assignee     string      `json:"assignee,omitempty"`
	Changes      []FieldDiff `json:"changes"`
}

// Statistic dimensions counted for new issues.
const (
	SeverityDimension = "severity"
	TypeDimension     = "type"
	RuleDimension     = "rule"
	AssigneeDimension = "assignee"
	TagDimension      = "tag"
	FileDimension     = "file"
)

// Distribution counts issues per value of one dimension, split on and off the leak period.
type Distribution struct {
	OnLeak  map[string]int `json:"on_leak"`
	OffLeak map[string]int `json:"off_leak"`
}

// NewDistribution returns an empty distribution.
func NewDistribution() *Distribution {
	return &Distribution{OnLeak: map[string]int{}, OffLeak: map[string]int{}}
}

// Add counts one issue for value.
func (d *Distribution) Add(value string, onLeak bool) {
	if onLeak {
		d.OnLeak[value]++
	} else {
		d.OffLeak[value]++
	}
}

// Total returns the number of issues counted on or off the leak period.
func (d *Distribution) Total(onLeak bool) int {
	m := d.OffLeak
	if onLeak {
		m = d.OnLeak
	}
	total := 0
	for _, v := range m {
		total += v
	}
	return total
}

// IssueStatistics groups new issue counts and effort by dimension.
type IssueStatistics struct {
	Distributions map[string]*Distribution `json:"distributions"`
	EffortOnLeak  int64                    `json:"effort_on_leak"`
	EffortOffLeak int64                    `json:"effort_off_leak"`
	IssuesOnLeak  int                      `json:"issues_on_leak"`
	IssuesOffLeak int                      `json:"issues_off_leak"`
}

// NewIssueStatistics returns statistics with every dimension initialized.
func NewIssueStatistics() *IssueStatistics {
	s := &IssueStatistics{Distributions: map[string]*Distribution{}}
	for _, dim := range []string{SeverityDimension, TypeDimension, RuleDimension, AssigneeDimension, TagDimension, FileDimension} {
		s.Distributions[dim] = NewDistribution()
	}
	return s
}

// Add counts issue under every dimension.
func (s *IssueStatistics) Add(issue Issue, onLeak bool) {
	s.Distributions[SeverityDimension].Add(issue.Severity, onLeak)
	s.Distributions[TypeDimension].Add(issue.Type, onLeak)
	s.Distributions[RuleDimension].Add(issue.RuleKey, onLeak)
	if issue.Assignee != "" {
		s.Distributions[AssigneeDimension].Add(issue.Assignee, onLeak)
	}
	for _, tag := range issue.Tags {
		s.Distributions[TagDimension].Add(tag, onLeak)
	}
	s.Distributions[FileDimension].Add(issue.ComponentKey, onLeak)
	if onLeak {
		s.IssuesOnLeak++
		s.EffortOnLeak += issue.EffortMinutes
	} else {
		s.IssuesOffLeak++
		s.EffortOffLeak += issue.EffortMinutes
	}
}

// HasIssues reports whether at least one issue was counted.
func (s *IssueStatistics) HasIssues() bool {
	return s.IssuesOnLeak+s.IssuesOffLeak > 0
}
