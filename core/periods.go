package core

import (
	"cmp"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap"
)

const periodDateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const (
	previousAnalysisSetting = "previous_analysis"
	previousVersionSetting  = "previous_version"
	millisPerDay            = int64(24 * time.Hour / time.Millisecond)
)

// LoadPeriodsStep resolves the periodN settings against the analysis history.
type LoadPeriodsStep struct{}

func (LoadPeriodsStep) Description() string { return "Load differential periods" }

func (LoadPeriodsStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	first, err := rc.Metadata.IsFirstAnalysis()
	if err != nil {
		return err
	}
	if first {
		rc.Stats.Add("periods", 0)
		return rc.Periods.SetPeriods(nil)
	}
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	resolver, err := newPeriodResolver(ctx, rc, root)
	if err != nil {
		return err
	}
	var periods []schema.Period
	for index := 1; index <= schema.MaxPeriods; index++ {
		property, value := periodSetting(rc.Config.PeriodSettings, index, root.Type.Qualifier())
		if value == "" {
			continue
		}
		p, err := resolver.resolve(index, property, value)
		if err != nil {
			return err
		}
		if p != nil {
			periods = append(periods, *p)
		}
	}
	rc.Stats.Add("periods", len(periods))
	return rc.Periods.SetPeriods(periods)
}

// periodSetting returns the property and value for one period, preferring the qualifier override.
func periodSetting(settings map[string]string, index int, qualifier string) (string, string) {
	key := fmt.Sprintf("period%d", index)
	if v, ok := settings[key+"."+qualifier]; ok {
		return key + "." + qualifier, strings.TrimSpace(v)
	}
	return key, strings.TrimSpace(settings[key])
}

type periodResolver struct {
	logger       *zap.Logger
	isViews      bool
	analysisDate int64
	version      string
	history      []schema.AnalysisRecord // every analysis, oldest first
	processed    []schema.AnalysisRecord // processed analyses, oldest first
}

func newPeriodResolver(ctx context.Context, rc *repo.RunContext, root *schema.Component) (*periodResolver, error) {
	date, err := rc.Metadata.AnalysisDate()
	if err != nil {
		return nil, err
	}
	version, err := rc.Metadata.RootVersion()
	if err != nil {
		return nil, err
	}
	history, err := rc.Store.SelectAnalyses(ctx, schema.AnalysisQuery{ComponentUUID: root.UUID})
	if err != nil {
		return nil, fmt.Errorf("failed to load analyses of %s: %w", root.Key, err)
	}
	slices.SortStableFunc(history, func(a, b schema.AnalysisRecord) int {
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
	r := &periodResolver{
		logger:       rc.Logger,
		isViews:      root.Type.IsViewsType(),
		analysisDate: date,
		version:      version,
		history:      history,
	}
	for _, a := range history {
		if a.Status == schema.ProcessedStatus {
			r.processed = append(r.processed, a)
		}
	}
	return r, nil
}

func (r *periodResolver) resolve(index int, property, value string) (*schema.Period, error) {
	var (
		p   *schema.Period
		err error
	)
	switch {
	case strings.EqualFold(value, previousAnalysisSetting):
		p = r.previousAnalysis(index)
	case strings.EqualFold(value, previousVersionSetting):
		p = r.previousVersion(index)
	case isInteger(value):
		p, err = r.days(index, property, value)
	case datePattern.MatchString(value):
		p, err = r.date(index, property, value)
	default:
		p = r.byVersion(index, value)
	}
	if err != nil || p == nil {
		return nil, err
	}
	r.logger.Info(fmt.Sprintf("Compare to %s (analysis of %s)", describePeriod(*p), p.SnapshotTime().Format(time.RFC3339)),
		zap.Int("period", index))
	return p, nil
}

func (r *periodResolver) previousAnalysis(index int) *schema.Period {
	r.logger.Warn("The 'previous_analysis' period is deprecated, prefer a number of days, a date or a version")
	for i := len(r.processed) - 1; i >= 0; i-- {
		a := r.processed[i]
		if a.CreatedAt < r.analysisDate {
			param := a.CreatedTime().Format(periodDateLayout)
			return newPeriod(index, schema.PreviousAnalysisMode, &param, a)
		}
	}
	return nil
}

func (r *periodResolver) previousVersion(index int) *schema.Period {
	if r.isViews {
		return nil
	}
	for i := len(r.processed) - 1; i >= 0; i-- {
		a := r.processed[i]
		if a.Version != r.version {
			param := a.Version
			return newPeriod(index, schema.PreviousVersionMode, &param, a)
		}
	}
	return r.oldest(index, schema.PreviousVersionMode)
}

func (r *periodResolver) days(index int, property, value string) (*schema.Period, error) {
	days, err := strconv.Atoi(value)
	if err != nil {
		return nil, &ConfigurationError{Property: property, Value: value, Reason: err.Error(), Err: ErrInvalidPeriod}
	}
	if days <= 0 {
		return nil, &ConfigurationError{Property: property, Value: value, Reason: "number of days is <= 0", Err: ErrInvalidPeriod}
	}
	target := r.analysisDate - int64(days)*millisPerDay
	param := value
	return r.earliestSince(index, schema.DaysMode, &param, target), nil
}

func (r *periodResolver) date(index int, property, value string) (*schema.Period, error) {
	t, err := time.Parse(periodDateLayout, value)
	if err != nil {
		return nil, &ConfigurationError{Property: property, Value: value, Reason: "Invalid date", Err: ErrInvalidPeriod}
	}
	if t.UnixMilli() > r.analysisDate {
		return nil, &ConfigurationError{Property: property, Value: value, Reason: "date is in the future", Err: ErrInvalidPeriod}
	}
	param := value
	return r.earliestSince(index, schema.DateMode, &param, t.UnixMilli()), nil
}

func (r *periodResolver) byVersion(index int, version string) *schema.Period {
	for i := len(r.processed) - 1; i >= 0; i-- {
		a := r.processed[i]
		if a.Version == version {
			param := version
			return newPeriod(index, schema.VersionMode, &param, a)
		}
	}
	if len(r.history) > 0 && r.history[len(r.history)-1].Version == version {
		return r.oldest(index, schema.VersionMode)
	}
	return nil
}

func (r *periodResolver) earliestSince(index int, mode schema.PeriodMode, param *string, since int64) *schema.Period {
	for _, a := range r.processed {
		if a.CreatedAt >= since {
			return newPeriod(index, mode, param, a)
		}
	}
	return nil
}

func (r *periodResolver) oldest(index int, mode schema.PeriodMode) *schema.Period {
	if len(r.processed) == 0 {
		return nil
	}
	return newPeriod(index, mode, nil, r.processed[0])
}

func newPeriod(index int, mode schema.PeriodMode, param *string, a schema.AnalysisRecord) *schema.Period {
	return &schema.Period{Index: index, Mode: mode, ModeParameter: param, SnapshotDate: a.CreatedAt, AnalysisUUID: a.UUID}
}

func describePeriod(p schema.Period) string {
	switch p.Mode {
	case schema.DaysMode:
		return fmt.Sprintf("over %s days", p.Parameter())
	case schema.DateMode:
		return fmt.Sprintf("since %s", p.Parameter())
	case schema.VersionMode, schema.PreviousVersionMode:
		if p.ModeParameter == nil {
			return "first analysis"
		}
		return fmt.Sprintf("version %s", p.Parameter())
	default:
		return "previous analysis"
	}
}

func isInteger(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

