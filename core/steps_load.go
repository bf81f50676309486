package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
)

// ValidateReportMetadataStep checks the report metadata and records the analysis facts.
type ValidateReportMetadataStep struct{}

func (ValidateReportMetadataStep) Description() string { return "Validate report metadata" }

func (ValidateReportMetadataStep) Execute(_ context.Context, rc *repo.RunContext) error {
	meta, err := rc.Report.Metadata()
	if err != nil {
		return err
	}
	if meta.AnalysisDate <= 0 {
		return fmt.Errorf("analysis date must be set, got %d", meta.AnalysisDate)
	}
	if meta.RootComponentRef <= 0 {
		return fmt.Errorf("%w: root component ref is %d", ErrMissingRoot, meta.RootComponentRef)
	}
	if _, err := rc.Report.Component(meta.RootComponentRef); err != nil {
		return fmt.Errorf("%w: %w", ErrMissingRoot, err)
	}

	// 1. Branch: the configured one wins, a report branch is a legacy branch
	branch := repo.Branch{Name: rc.Config.Branch, Type: rc.Config.BranchType}
	if branch.IsMain() && meta.Branch != "" {
		branch = repo.Branch{Name: meta.Branch, Type: schema.LegacyBranch}
	}
	if branch.Type == "" {
		branch.Type = schema.MainBranch
	}

	// 2. Cross project duplication only makes sense on the main branch
	crossProject := meta.CrossProjectDuplicationEnabled && branch.IsMain()

	analysisUUID := uuid.NewString()
	if err := errors.Join(
		rc.Metadata.SetAnalysisUUID(analysisUUID),
		rc.Metadata.SetAnalysisDate(meta.AnalysisDate),
		rc.Metadata.SetBranch(branch),
		rc.Metadata.SetCrossProjectDuplicationEnabled(crossProject),
		rc.Metadata.SetQualityProfiles(meta.QualityProfilesPerLanguage),
	); err != nil {
		return err
	}
	rc.Stats.Add("project", meta.ProjectKey)
	rc.Stats.Add("analysis", analysisUUID)
	rc.Stats.Add("date", time.UnixMilli(meta.AnalysisDate).UTC().Format(time.RFC3339))
	rc.Stats.Add("branch", string(branch.Type))
	return nil
}

// LoadMetricsStep registers the core metric catalog.
type LoadMetricsStep struct{}

func (LoadMetricsStep) Description() string { return "Load metrics" }

func (LoadMetricsStep) Execute(_ context.Context, rc *repo.RunContext) error {
	metrics := schema.CoreMetrics()
	if err := rc.Metrics.Load(metrics); err != nil {
		return err
	}
	rc.Stats.Add("metrics", len(metrics))
	return nil
}

// LoadDuplicationsStep reads the duplications of every file from the report.
type LoadDuplicationsStep struct{}

func (LoadDuplicationsStep) Description() string { return "Load duplications" }

func (LoadDuplicationsStep) Execute(_ context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	crossProject, err := rc.Metadata.IsCrossProjectDuplicationEnabled()
	if err != nil {
		return err
	}
	count, skipped := 0, 0
	for _, file := range schema.Leaves(root) {
		if file.Type != schema.FileType {
			continue
		}
		dups, err := rc.Report.Duplications(file.Ref())
		if err != nil {
			return err
		}
		for _, rd := range dups {
			dup, ignored, err := convertDuplication(rc, file, rd, crossProject)
			if err != nil {
				return fmt.Errorf("invalid duplication in %s: %w", file.Key, err)
			}
			skipped += ignored
			if len(dup.Duplicates) == 0 {
				continue
			}
			if err := rc.Duplications.Add(file, dup); err != nil {
				return err
			}
			count++
		}
	}
	rc.Stats.Add("duplications", count)
	if skipped > 0 {
		rc.Stats.Add("cross_project_skipped", skipped)
	}
	return nil
}

// convertDuplication turns a report duplication into the domain model.
// Cross project duplicates are dropped unless enabled; the count of dropped ones is returned.
// A zero Duplication with no duplicates means nothing is left to record.
func convertDuplication(rc *repo.RunContext, file *schema.Component, rd schema.ReportDuplication, crossProject bool) (schema.Duplication, int, error) {
	original, err := textBlockIn(file, rd.Origin)
	if err != nil {
		return schema.Duplication{}, 0, err
	}
	skipped := 0
	duplicates := make([]schema.Duplicate, 0, len(rd.Duplicates))
	for _, d := range rd.Duplicates {
		switch {
		case d.OtherFileKey != "":
			if !crossProject {
				skipped++
				continue
			}
			// lines of a file from another project are unknown here
			block, err := schema.NewTextBlock(d.Range.Start, d.Range.End)
			if err != nil {
				return schema.Duplication{}, 0, err
			}
			duplicates = append(duplicates, schema.CrossProjectDuplicate{FileKey: d.OtherFileKey, Block: block})
		case d.OtherFileRef != 0 && d.OtherFileRef != file.Ref():
			other, err := rc.Tree.ComponentByRef(d.OtherFileRef)
			if err != nil {
				return schema.Duplication{}, 0, err
			}
			if other.Type != schema.FileType {
				return schema.Duplication{}, 0, fmt.Errorf("duplicate ref %d is a %s, not a file", d.OtherFileRef, other.Type)
			}
			block, err := textBlockIn(other, d.Range)
			if err != nil {
				return schema.Duplication{}, 0, err
			}
			duplicates = append(duplicates, schema.InProjectDuplicate{FileRef: d.OtherFileRef, Block: block})
		default:
			block, err := textBlockIn(file, d.Range)
			if err != nil {
				return schema.Duplication{}, 0, err
			}
			duplicates = append(duplicates, schema.InnerDuplicate{Block: block})
		}
	}
	if len(duplicates) == 0 {
		return schema.Duplication{Original: original}, skipped, nil
	}
	dup, err := schema.NewDuplication(original, duplicates...)
	return dup, skipped, err
}

// textBlockIn validates a block against the line count of the file holding it.
func textBlockIn(file *schema.Component, r schema.TextBlock) (schema.TextBlock, error) {
	block, err := schema.NewTextBlock(r.Start, r.End)
	if err != nil {
		return schema.TextBlock{}, err
	}
	if fa := file.FileAttributes; fa != nil && fa.Lines > 0 && block.End > fa.Lines {
		return schema.TextBlock{}, fmt.Errorf("text block %s ends after the last line (%d) of %s", block, fa.Lines, file.Path())
	}
	return block, nil
}

// LoadIssuesStep spills the report issues of every component into the issue cache.
type LoadIssuesStep struct{}

func (LoadIssuesStep) Description() string { return "Load issues" }

func (LoadIssuesStep) Execute(_ context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	count := 0
	err = schema.Walk(root, schema.PreOrder, func(c *schema.Component) error {
		issues, err := rc.Report.Issues(c.Ref())
		if err != nil {
			return err
		}
		for _, issue := range issues {
			issue.ComponentRef = c.Ref()
			if issue.ComponentKey == "" {
				issue.ComponentKey = c.Key
			}
			if err := rc.Issues.Append(issue); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return err
	}
	rc.Stats.Add("issues", count)
	return rc.Issues.Close()
}
