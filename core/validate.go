package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/ceflow/core/algo"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
)

// ValidateProjectStep checks keys, branch and module ownership before anything is computed.
type ValidateProjectStep struct{}

func (ValidateProjectStep) Description() string { return "Validate project" }

func (ValidateProjectStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	branch, err := rc.Metadata.Branch()
	if err != nil {
		return err
	}
	var messages []string

	// 1. Branch name
	if !branch.IsMain() && !algo.IsValidBranch(branch.Name) {
		messages = append(messages, fmt.Sprintf(
			"%q is not a valid branch name. Allowed characters are alphanumeric, '-', '_', '.' and '/'.", branch.Name))
	}

	// 2. Project and module keys
	err = schema.Walk(root, schema.PreOrder, func(c *schema.Component) error {
		if c.Type != schema.ProjectType && c.Type != schema.ModuleType {
			return nil
		}
		if !algo.IsValidKey(c.PublicKey) {
			messages = append(messages, fmt.Sprintf(
				"%q is not a valid project or module key. Allowed characters are alphanumeric, '-', '_', '.' and ':', with at least one non-digit.", c.PublicKey))
		}
		msgs, err := checkOwnership(ctx, rc, root, c)
		messages = append(messages, msgs...)
		return err
	})
	if err != nil {
		return err
	}

	// 3. Analysis date against the last known one
	base, err := rc.Metadata.BaseAnalysis()
	if err != nil {
		return err
	}
	date, err := rc.Metadata.AnalysisDate()
	if err != nil {
		return err
	}
	if base != nil && base.CreatedAt > date {
		messages = append(messages, fmt.Sprintf(
			"Date of analysis cannot be older than the date of the last known analysis on this project. Value: %q. Latest analysis: %q.",
			time.UnixMilli(date).UTC().Format(time.RFC3339), base.CreatedTime().Format(time.RFC3339)))
	}

	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

func checkOwnership(ctx context.Context, rc *repo.RunContext, root, c *schema.Component) ([]string, error) {
	rec, err := rc.Store.SelectComponentByKey(ctx, c.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up component %s: %w", c.Key, err)
	}
	if rec == nil {
		return nil, nil
	}
	isProject := rec.Qualifier == schema.ProjectType.Qualifier() && rec.UUID == rec.ProjectUUID
	switch {
	case c.Type == schema.ProjectType && !isProject && rec.ProjectUUID != c.UUID:
		return []string{fmt.Sprintf(
			"The project %q is already defined as a module of another project (project uuid %s).", c.Key, rec.ProjectUUID)}, nil
	case c.Type == schema.ModuleType && isProject:
		return []string{fmt.Sprintf(
			"The project %q is already defined and cannot be a module of %q.", c.Key, root.Key)}, nil
	case c.Type == schema.ModuleType && rec.ProjectUUID != root.UUID:
		return []string{fmt.Sprintf(
			"Module %q is already part of another project (project uuid %s).", c.Key, rec.ProjectUUID)}, nil
	}
	return nil, nil
}
