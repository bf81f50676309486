package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PersistComponentsStep upserts the tree and disables stored components that left it.
type PersistComponentsStep struct{}

func (PersistComponentsStep) Description() string { return "Persist components" }

func (PersistComponentsStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	records := make([]schema.ComponentRecord, 0, rc.Tree.Size())
	inTree := make(map[string]struct{}, rc.Tree.Size())
	_ = schema.Walk(root, schema.PreOrder, func(c *schema.Component) error {
		rec := schema.ComponentRecord{
			UUID:        c.UUID,
			Key:         c.Key,
			Name:        c.Name,
			Description: c.Description,
			Path:        c.Path(),
			Qualifier:   c.Type.Qualifier(),
			ProjectUUID: root.UUID,
			Enabled:     true,
		}
		if c.FileAttributes != nil {
			rec.Language = c.FileAttributes.Language
		}
		records = append(records, rec)
		inTree[c.UUID] = struct{}{}
		return nil
	})
	if err := rc.Store.UpsertComponents(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert components: %w", err)
	}

	existing, err := rc.Store.SelectComponentsByProjectKey(ctx, root.Key)
	if err != nil {
		return err
	}
	var disabled []string
	for _, e := range existing {
		if _, ok := inTree[e.UUID]; !ok && e.Enabled {
			disabled = append(disabled, e.UUID)
		}
	}
	if len(disabled) > 0 {
		if err := rc.Store.DisableComponents(ctx, disabled); err != nil {
			return fmt.Errorf("failed to disable components: %w", err)
		}
	}
	rc.Stats.Add("upserted", len(records))
	rc.Stats.Add("disabled", len(disabled))
	return nil
}

// PersistAnalysisStep inserts the current analysis as unprocessed.
type PersistAnalysisStep struct{}

func (PersistAnalysisStep) Description() string { return "Persist analysis" }

func (PersistAnalysisStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	analysisUUID, err := rc.Metadata.AnalysisUUID()
	if err != nil {
		return err
	}
	date, err := rc.Metadata.AnalysisDate()
	if err != nil {
		return err
	}
	version, err := rc.Metadata.RootVersion()
	if err != nil {
		return err
	}
	analysis := schema.AnalysisRecord{
		UUID:          analysisUUID,
		ComponentUUID: root.UUID,
		Status:        schema.UnprocessedStatus,
		Version:       version,
		CreatedAt:     date,
	}
	if p, err := rc.Periods.Period(1); err == nil {
		analysis.PeriodMode = string(p.Mode)
		analysis.PeriodParam = p.Parameter()
		analysis.PeriodDate = &p.SnapshotDate
	}
	if err := rc.Store.InsertAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	rc.Stats.Add("analysis", analysisUUID)
	return nil
}

// PersistMeasuresStep stores every raw measure that carries a value or variations.
type PersistMeasuresStep struct{}

func (PersistMeasuresStep) Description() string { return "Persist measures" }

func (PersistMeasuresStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	analysisUUID, err := rc.Metadata.AnalysisUUID()
	if err != nil {
		return err
	}
	var records []schema.MeasureRecord
	err = schema.Walk(root, schema.PreOrder, func(c *schema.Component) error {
		measures, err := rc.Measures.GetRawMeasures(c)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(measures))
		for k := range measures {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			m := measures[k]
			if !m.IsPersistable() {
				continue
			}
			metric, err := rc.Metrics.ByKey(k)
			if err != nil {
				return err
			}
			records = append(records, schema.NewMeasureRecord(analysisUUID, c, metric, m))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := rc.Store.InsertMeasures(ctx, records); err != nil {
		return fmt.Errorf("failed to insert measures: %w", err)
	}
	rc.Stats.Add("measures", len(records))
	return nil
}

// sourceLine is one line of the stored file source data.
type sourceLine struct {
	Line              int    `json:"line"`
	Source            string `json:"source"`
	Revision          string `json:"scm_revision,omitempty"`
	Author            string `json:"scm_author,omitempty"`
	Date              int64  `json:"scm_date,omitempty"`
	Hits              *bool  `json:"hits,omitempty"`
	Conditions        int    `json:"conditions,omitempty"`
	CoveredConditions int    `json:"covered_conditions,omitempty"`
	Duplications      []int  `json:"duplications,omitempty"`
}

// PersistFileSourcesStep hashes every file concurrently and stores the sources that changed.
type PersistFileSourcesStep struct{}

func (PersistFileSourcesStep) Description() string { return "Persist sources" }

func (PersistFileSourcesStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	previous, err := rc.Store.SelectFileSources(ctx, root.UUID)
	if err != nil {
		return fmt.Errorf("failed to load file sources: %w", err)
	}
	var files []*schema.Component
	for _, leaf := range schema.Leaves(root) {
		if leaf.Type == schema.FileType {
			files = append(files, leaf)
		}
	}

	// 1. Build and hash sources in parallel
	workers := rc.Config.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make([]*schema.FileSourceRecord, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := buildFileSource(rc, file, root.UUID)
			if err != nil {
				return fmt.Errorf("failed to build source of %s: %w", file.Key, err)
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// 2. Write only what changed
	updated, unchanged := 0, 0
	now := time.Now().UnixMilli()
	for _, rec := range results {
		if rec == nil {
			continue
		}
		if prev, ok := previous[rec.FileUUID]; ok && prev.SrcHash == rec.SrcHash && prev.DataHash == rec.DataHash {
			unchanged++
			continue
		}
		rec.UpdatedAt = now
		if err := rc.Store.UpsertFileSource(ctx, *rec); err != nil {
			return fmt.Errorf("failed to store source of file %s: %w", rec.FileUUID, err)
		}
		updated++
	}
	rc.Stats.Add("updated", updated)
	rc.Stats.Add("unchanged", unchanged)
	return nil
}

// buildFileSource returns nil for files the report has no source for.
func buildFileSource(rc *repo.RunContext, file *schema.Component, projectUUID string) (*schema.FileSourceRecord, error) {
	lines, err := rc.Report.SourceLines(file.Ref())
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}
	changesets, err := rc.Report.Changesets(file.Ref())
	if err != nil {
		return nil, err
	}
	coverage, err := rc.Report.Coverage(file.Ref())
	if err != nil {
		return nil, err
	}

	data := make([]sourceLine, len(lines))
	for i, src := range lines {
		data[i] = sourceLine{Line: i + 1, Source: src}
		if cs, ok := changesets.ForLine(i + 1); ok {
			data[i].Revision, data[i].Author, data[i].Date = cs.Revision, cs.Author, cs.Date
		}
	}
	for _, lc := range coverage {
		if lc.Line < 1 || lc.Line > len(data) {
			continue
		}
		d := &data[lc.Line-1]
		d.Hits, d.Conditions, d.CoveredConditions = lc.Hits, lc.Conditions, lc.CoveredConditions
	}
	block := 0
	markBlock := func(b schema.TextBlock) {
		block++
		for l := b.Start; l <= b.End && l <= len(data); l++ {
			data[l-1].Duplications = append(data[l-1].Duplications, block)
		}
	}
	for _, dup := range rc.Duplications.Get(file) {
		markBlock(dup.Original)
		for _, d := range dup.Duplicates {
			if inner, ok := d.(schema.InnerDuplicate); ok {
				markBlock(inner.Block)
			}
		}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &schema.FileSourceRecord{
		FileUUID:    file.UUID,
		ProjectUUID: projectUUID,
		SrcHash:     sha256Hex(strings.Join(lines, "\n")),
		DataHash:    sha256Hex(string(payload)),
		LineCount:   len(lines),
		Data:        string(payload),
	}, nil
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PersistTestsStep stores the unit test results of test files with the lines each test covered.
type PersistTestsStep struct{}

func (PersistTestsStep) Description() string { return "Persist unit tests" }

func (PersistTestsStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	var records []schema.TestRecord
	orphans := 0
	for _, file := range schema.Leaves(root) {
		if !file.IsUnitTest() {
			continue
		}
		recs, missing, err := testRecords(rc, file)
		if err != nil {
			return err
		}
		records = append(records, recs...)
		orphans += missing
	}
	if orphans > 0 {
		rc.Logger.Warn("Some coverage tests are not taken into account during analysis of project",
			zap.String("project", root.Key), zap.Int("details", orphans))
	}
	if err := rc.Store.InsertTests(ctx, records); err != nil {
		return fmt.Errorf("failed to insert tests: %w", err)
	}
	rc.Stats.Add("tests", len(records))
	rc.Stats.Add("orphan_details", orphans)
	return nil
}

func testRecords(rc *repo.RunContext, file *schema.Component) ([]schema.TestRecord, int, error) {
	results, err := rc.Report.Tests(file.Ref())
	if err != nil {
		return nil, 0, err
	}
	details, err := rc.Report.CoverageDetails(file.Ref())
	if err != nil {
		return nil, 0, err
	}
	byName := make(map[string]int, len(results))
	records := make([]schema.TestRecord, len(results))
	for i, r := range results {
		byName[r.Name] = i
		records[i] = schema.TestRecord{
			FileUUID:   file.UUID,
			Name:       r.Name,
			Status:     r.Status,
			DurationMs: r.DurationMs,
			Message:    r.Message,
			Stacktrace: r.Stacktrace,
		}
	}
	missing := 0
	for _, d := range details {
		i, ok := byName[d.TestName]
		if !ok {
			missing++
			rc.Logger.Debug("Coverage detail references an unknown test",
				zap.String("file", file.Key), zap.String("test", d.TestName))
			continue
		}
		covered, err := rc.Tree.ComponentByRef(d.CoveredFileRef)
		if err != nil {
			return nil, 0, err
		}
		if records[i].CoveredLines == nil {
			records[i].CoveredLines = make(map[string][]int)
		}
		records[i].CoveredLines[covered.UUID] = append(records[i].CoveredLines[covered.UUID], d.CoveredLines...)
	}
	return records, missing, nil
}

// PersistEventsStep records version changes and quality gate transitions.
type PersistEventsStep struct{}

func (PersistEventsStep) Description() string { return "Persist events" }

func (PersistEventsStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	analysisUUID, err := rc.Metadata.AnalysisUUID()
	if err != nil {
		return err
	}
	date, err := rc.Metadata.AnalysisDate()
	if err != nil {
		return err
	}
	base, err := rc.Metadata.BaseAnalysis()
	if err != nil {
		return err
	}
	version, err := rc.Metadata.RootVersion()
	if err != nil {
		return err
	}
	newEvent := func(name, category, description string) schema.EventRecord {
		return schema.EventRecord{
			UUID:          uuid.NewString(),
			AnalysisUUID:  analysisUUID,
			ComponentUUID: root.UUID,
			Name:          name,
			Category:      category,
			Description:   description,
			EventDate:     date,
			CreatedAt:     time.Now().UnixMilli(),
		}
	}

	var events []schema.EventRecord
	if base == nil || base.Version != version {
		events = append(events, newEvent(version, schema.VersionEventCategory, ""))
	}
	alert, err := alertEvent(ctx, rc, root)
	if err != nil {
		return err
	}
	if alert != nil {
		events = append(events, newEvent(alert.name, schema.AlertEventCategory, alert.description))
	}
	for _, e := range events {
		if err := rc.Store.InsertEvent(ctx, e); err != nil {
			return fmt.Errorf("failed to insert %s event: %w", e.Category, err)
		}
	}
	rc.Stats.Add("events", len(events))
	return nil
}

type eventText struct {
	name        string
	description string
}

// alertEvent returns the gate transition of the root, or nil when the status did not change.
// A first status only raises an event when it is not OK.
func alertEvent(ctx context.Context, rc *repo.RunContext, root *schema.Component) (*eventText, error) {
	metric, err := rc.Metrics.ByKey(schema.AlertStatusKey)
	if err != nil {
		return nil, err
	}
	current, ok, err := rc.Measures.GetRaw(root, metric)
	if err != nil || !ok {
		return nil, err
	}
	base, err := rc.Measures.GetBase(ctx, root, metric)
	if err != nil {
		return nil, err
	}
	level := current.LevelValue()
	var description string
	if qg := current.QualityGateStatus(); qg != nil {
		description = qg.Text
	}
	switch {
	case base == nil && level == schema.OKLevel:
		return nil, nil
	case base == nil:
		return &eventText{name: schema.GetPlainLabel(level), description: description}, nil
	case base.LevelValue() == level:
		return nil, nil
	default:
		name := fmt.Sprintf("%s (was %s)", schema.GetPlainLabel(level), schema.GetPlainLabel(base.LevelValue()))
		return &eventText{name: name, description: description}, nil
	}
}

// PersistScannerContextStep stores the scanner context log of the report.
type PersistScannerContextStep struct{}

func (PersistScannerContextStep) Description() string { return "Persist scanner context" }

func (PersistScannerContextStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	log, err := rc.Report.ScannerContext()
	if err != nil {
		return err
	}
	if log == "" {
		return nil
	}
	analysisUUID, err := rc.Metadata.AnalysisUUID()
	if err != nil {
		return err
	}
	if err := rc.Store.InsertScannerContext(ctx, analysisUUID, log); err != nil {
		return fmt.Errorf("failed to insert scanner context: %w", err)
	}
	rc.Stats.Add("bytes", len(log))
	return nil
}

// EnableAnalysisStep marks the analysis as processed and last. It must be the last store step.
type EnableAnalysisStep struct{}

func (EnableAnalysisStep) Description() string { return "Enable analysis" }

func (EnableAnalysisStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	analysisUUID, err := rc.Metadata.AnalysisUUID()
	if err != nil {
		return err
	}
	return rc.Store.MarkAnalysisProcessed(ctx, root.UUID, analysisUUID)
}
