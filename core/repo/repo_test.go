package repo

import (
	"context"
	"testing"

	"github.com/huangsam/ceflow/internal/reportreader"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func sampleTree() *schema.Component {
	file := &schema.Component{
		Type:             schema.FileType,
		UUID:             "u3",
		Key:              "p:src/a.go",
		ReportAttributes: &schema.ReportAttributes{Ref: 3, Path: "src/a.go"},
		FileAttributes:   &schema.FileAttributes{Lines: 10},
	}
	other := &schema.Component{
		Type:             schema.FileType,
		UUID:             "u4",
		Key:              "p:src/b.go",
		ReportAttributes: &schema.ReportAttributes{Ref: 4, Path: "src/b.go"},
		FileAttributes:   &schema.FileAttributes{Lines: 5},
	}
	dir := &schema.Component{
		Type:             schema.DirectoryType,
		UUID:             "u2",
		Key:              "p:src",
		ReportAttributes: &schema.ReportAttributes{Ref: 2, Path: "src"},
		Children:         []*schema.Component{file, other},
	}
	return &schema.Component{
		Type:             schema.ProjectType,
		UUID:             "u1",
		Key:              "p",
		ReportAttributes: &schema.ReportAttributes{Ref: 1},
		Children:         []*schema.Component{dir},
	}
}

func loadedMetrics(t *testing.T) *MetricRepository {
	t.Helper()
	metrics := &MetricRepository{}
	require.NoError(t, metrics.Load(schema.CoreMetrics()))
	return metrics
}

func mustMetric(t *testing.T, r *MetricRepository, key string) schema.Metric {
	t.Helper()
	m, err := r.ByKey(key)
	require.NoError(t, err)
	return m
}

// TestTreeRootHolder tests set-once semantics and lookups.
func TestTreeRootHolder(t *testing.T) {
	h := &TreeRootHolder{}
	_, err := h.Root()
	assert.ErrorIs(t, err, ErrTreeNotSet)
	_, err = h.ComponentByRef(1)
	assert.ErrorIs(t, err, ErrTreeNotSet)

	root := sampleTree()
	require.NoError(t, h.SetRoot(root))
	assert.Error(t, h.SetRoot(root))
	assert.True(t, h.IsSet())
	assert.Equal(t, 4, h.Size())

	c, err := h.ComponentByRef(3)
	require.NoError(t, err)
	assert.Equal(t, "p:src/a.go", c.Key)

	c, err = h.ComponentByKey("p:src")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Ref())

	_, err = h.ComponentByRef(42)
	assert.Error(t, err)
	_, err = h.ComponentByKey("missing")
	assert.Error(t, err)
}

// TestMetricRepository tests catalog lookups.
func TestMetricRepository(t *testing.T) {
	r := loadedMetrics(t)
	assert.Error(t, r.Load(schema.CoreMetrics()))

	ncloc := mustMetric(t, r, schema.NclocKey)
	byID, err := r.ByID(ncloc.ID)
	require.NoError(t, err)
	assert.Equal(t, ncloc, byID)

	_, err = r.ByKey("unknown")
	assert.Error(t, err)
	_, err = r.ByID(-1)
	assert.Error(t, err)
	assert.Len(t, r.All(), len(schema.CoreMetrics()))

	dup := &MetricRepository{}
	assert.Error(t, dup.Load([]schema.Metric{{ID: 1, Key: "a"}, {ID: 2, Key: "a"}}))
}

func reportWithMeasures() *reportreader.Report {
	return reportreader.New(reportreader.Document{
		Metadata: schema.ReportMetadata{RootComponentRef: 1, ProjectKey: "p", AnalysisDate: 1},
		Components: []schema.ReportComponent{
			{Ref: 1, Type: schema.ProjectType, ChildRefs: []int{2}},
			{Ref: 2, Type: schema.DirectoryType, Path: "src", ChildRefs: []int{3, 4}},
			{Ref: 3, Type: schema.FileType, Path: "src/a.go", Lines: 10},
			{Ref: 4, Type: schema.FileType, Path: "src/b.go", Lines: 5},
		},
		Measures: map[int][]schema.ReportMeasure{
			3: {
				{MetricKey: schema.NclocKey, IntValue: intPtr(7)},
				{MetricKey: "not_a_metric", IntValue: intPtr(1)},
				{MetricKey: schema.NclocDataKey, Data: "1=1;2=0"},
			},
		},
	})
}

// TestMeasureRepository tests add, update and the report fallback.
func TestMeasureRepository(t *testing.T) {
	metrics := loadedMetrics(t)
	root := sampleTree()
	file := root.Children[0].Children[0]
	other := root.Children[0].Children[1]
	ncloc := mustMetric(t, metrics, schema.NclocKey)
	lines := mustMetric(t, metrics, schema.LinesKey)
	coverage := mustMetric(t, metrics, schema.CoverageKey)

	t.Run("report fallback is cached", func(t *testing.T) {
		r := NewMeasureRepository(reportWithMeasures(), nil, metrics)
		m, ok, err := r.GetRaw(file, ncloc)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 7, m.IntValue())

		all, err := r.GetRawMeasures(file)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Equal(t, "1=1;2=0", all[schema.NclocDataKey].Data())

		err = r.Add(file, ncloc, schema.IntMeasure(8))
		assert.ErrorIs(t, err, ErrMeasureExists)

		require.NoError(t, r.Update(file, ncloc, schema.IntMeasure(8)))
		m, _, err = r.GetRaw(file, ncloc)
		require.NoError(t, err)
		assert.Equal(t, 8, m.IntValue())
	})

	t.Run("add then get", func(t *testing.T) {
		r := NewMeasureRepository(nil, nil, metrics)
		_, ok, err := r.GetRaw(other, lines)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, r.Add(other, lines, schema.IntMeasure(5)))
		assert.ErrorIs(t, r.Add(other, lines, schema.IntMeasure(5)), ErrMeasureExists)

		m, ok, err := r.GetRaw(other, lines)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 5, m.IntValue())
	})

	t.Run("update missing", func(t *testing.T) {
		r := NewMeasureRepository(nil, nil, metrics)
		assert.ErrorIs(t, r.Update(file, lines, schema.IntMeasure(1)), ErrMeasureNotFound)
	})

	t.Run("value type mismatch", func(t *testing.T) {
		r := NewMeasureRepository(nil, nil, metrics)
		err := r.Add(file, coverage, schema.IntMeasure(1))
		require.Error(t, err)
		assert.Equal(t, "Measure's ValueType (INT) is not consistent with the Metric's ValueType (DOUBLE)", err.Error())
		assert.NoError(t, r.Add(file, coverage, schema.NoValueMeasure()))
		assert.Error(t, r.Update(file, coverage, schema.StringMeasure("x")))
	})

	t.Run("base without store", func(t *testing.T) {
		r := NewMeasureRepository(nil, nil, metrics)
		base, err := r.GetBase(context.Background(), file, ncloc)
		require.NoError(t, err)
		assert.Nil(t, base)
	})
}

// TestMeasureRepositoryConcurrentWrites tests writes partitioned per component.
func TestMeasureRepositoryConcurrentWrites(t *testing.T) {
	metrics := loadedMetrics(t)
	lines := mustMetric(t, metrics, schema.LinesKey)
	r := NewMeasureRepository(nil, nil, metrics)

	components := make([]*schema.Component, 50)
	for i := range components {
		components[i] = &schema.Component{Type: schema.DirectoryType, Key: "d"}
	}
	done := make(chan error, len(components))
	for i, c := range components {
		go func() { done <- r.Add(c, lines, schema.IntMeasure(i)) }()
	}
	for range components {
		require.NoError(t, <-done)
	}
	for i, c := range components {
		m, ok, err := r.GetRaw(c, lines)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, m.IntValue())
	}
}

// TestPeriodsHolder tests period storage and index validation.
func TestPeriodsHolder(t *testing.T) {
	h := &PeriodsHolder{}
	_, err := h.Periods()
	assert.ErrorIs(t, err, ErrPeriodsNotSet)
	assert.False(t, h.HasPeriod(1))

	require.NoError(t, h.SetPeriods([]schema.Period{
		{Index: 3, Mode: schema.DaysMode, SnapshotDate: 30},
		{Index: 1, Mode: schema.PreviousAnalysisMode, SnapshotDate: 10},
	}))
	assert.Error(t, h.SetPeriods(nil))

	periods, err := h.Periods()
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, 1, periods[0].Index)
	assert.Equal(t, 3, periods[1].Index)

	assert.True(t, h.HasPeriod(3))
	assert.False(t, h.HasPeriod(2))
	assert.False(t, h.HasPeriod(6))

	p, err := h.Period(3)
	require.NoError(t, err)
	assert.Equal(t, schema.DaysMode, p.Mode)
	_, err = h.Period(2)
	assert.Error(t, err)
	_, err = h.Period(0)
	assert.Error(t, err)

	invalid := &PeriodsHolder{}
	assert.Error(t, invalid.SetPeriods([]schema.Period{{Index: 6}}))
	assert.Error(t, (&PeriodsHolder{}).SetPeriods([]schema.Period{{Index: 1}, {Index: 1}}))
}

// TestDuplicationRepository tests file checks and insertion order.
func TestDuplicationRepository(t *testing.T) {
	root := sampleTree()
	dir := root.Children[0]
	file := dir.Children[0]
	r := &DuplicationRepository{}

	block := schema.TextBlock{Start: 1, End: 3}
	inner, err := schema.NewDuplication(block, schema.InnerDuplicate{Block: schema.TextBlock{Start: 5, End: 7}})
	require.NoError(t, err)
	inProject, err := schema.NewDuplication(block, schema.InProjectDuplicate{FileRef: 4, Block: block})
	require.NoError(t, err)
	self, err := schema.NewDuplication(block, schema.InProjectDuplicate{FileRef: 3, Block: block})
	require.NoError(t, err)

	assert.Empty(t, r.Get(file))
	require.NoError(t, r.Add(file, inner))
	require.NoError(t, r.Add(file, inProject))
	assert.Error(t, r.Add(dir, inner))
	assert.Error(t, r.Add(file, self))
	assert.Error(t, r.Add(file, schema.Duplication{Original: block}))

	dups := r.Get(file)
	require.Len(t, dups, 2)
	assert.IsType(t, schema.InnerDuplicate{}, dups[0].Duplicates[0])
	assert.IsType(t, schema.InProjectDuplicate{}, dups[1].Duplicates[0])
}

// TestQualityGateHolders tests gate and status holders.
func TestQualityGateHolders(t *testing.T) {
	gates := &QualityGateHolder{}
	_, err := gates.QualityGate()
	assert.Error(t, err)
	require.NoError(t, gates.SetQualityGate(nil))
	assert.Error(t, gates.SetQualityGate(&schema.QualityGate{}))
	g, err := gates.QualityGate()
	require.NoError(t, err)
	assert.Nil(t, g)

	status := &QualityGateStatusHolder{}
	_, err = status.Status()
	assert.ErrorIs(t, err, ErrStatusNotSet)

	cond := schema.Condition{ID: 1, MetricKey: schema.CoverageKey, Operator: schema.LessThanOperator, ErrorThreshold: "80"}
	other := schema.Condition{ID: 2, MetricKey: schema.NclocKey, Operator: schema.GreaterThanOperator, ErrorThreshold: "1"}
	require.NoError(t, status.SetStatus(schema.ErrorLevel, []schema.EvaluatedCondition{
		{Condition: cond, Status: schema.ErrorStatus, ActualValue: "50"},
	}))
	assert.Error(t, status.SetStatus(schema.OKLevel, nil))

	level, err := status.Status()
	require.NoError(t, err)
	assert.Equal(t, schema.ErrorLevel, level)

	ec, err := status.ConditionStatus(cond)
	require.NoError(t, err)
	assert.Equal(t, schema.ErrorStatus, ec.Status)
	_, err = status.ConditionStatus(other)
	assert.Error(t, err)

	conds, err := status.Conditions()
	require.NoError(t, err)
	assert.Len(t, conds, 1)
}

// TestAnalysisMetadataHolder tests set-once fields.
func TestAnalysisMetadataHolder(t *testing.T) {
	h := &AnalysisMetadataHolder{}
	_, err := h.AnalysisDate()
	assert.Error(t, err)

	require.NoError(t, h.SetAnalysisDate(42))
	assert.Error(t, h.SetAnalysisDate(43))
	date, err := h.AnalysisDate()
	require.NoError(t, err)
	assert.Equal(t, int64(42), date)

	require.NoError(t, h.SetBaseAnalysis(nil))
	base, err := h.BaseAnalysis()
	require.NoError(t, err)
	assert.Nil(t, base)

	require.NoError(t, h.SetBranch(Branch{Name: "feature", Type: schema.LongLivingBranch}))
	b, err := h.Branch()
	require.NoError(t, err)
	assert.False(t, b.IsMain())
	assert.True(t, Branch{}.IsMain())
}

// TestStats tests ordered draining of step statistics.
func TestStats(t *testing.T) {
	s := &Stats{}
	s.Add("components", 4)
	s.Add("updated", 1)
	s.Add("components", 5)

	fields, values := s.Drain()
	require.Len(t, fields, 2)
	assert.Equal(t, "components", fields[0].Key)
	assert.Equal(t, 5, values["components"])

	fields, values = s.Drain()
	assert.Empty(t, fields)
	assert.Empty(t, values)
}

// TestNewRunContext tests that every repository is wired.
func TestNewRunContext(t *testing.T) {
	rc := NewRunContext(nil, nil, nil, nil, nil, nil)
	assert.NotNil(t, rc.Logger)
	assert.NotNil(t, rc.Tree)
	assert.NotNil(t, rc.Measures)
	assert.NotNil(t, rc.Stats)
	assert.Same(t, rc.Metrics, rc.Measures.metrics)
}
