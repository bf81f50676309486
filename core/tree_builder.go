package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
)

// KeyGenerator computes the key of a component.
// fileOrDir is nil for projects and modules, which are keyed by module alone.
type KeyGenerator func(module, fileOrDir *schema.ReportComponent) string

// MainBranchKeys keys components as the scanner declared them.
func MainBranchKeys(module, fileOrDir *schema.ReportComponent) string {
	return withPath(module.Key, fileOrDir)
}

// LegacyBranchKeys appends the branch name to every module key.
func LegacyBranchKeys(name string) KeyGenerator {
	return func(module, fileOrDir *schema.ReportComponent) string {
		return withPath(module.Key+":"+name, fileOrDir)
	}
}

// LongLivingBranchKeys inserts a BRANCH marker and the branch name after every module key.
func LongLivingBranchKeys(name string) KeyGenerator {
	return func(module, fileOrDir *schema.ReportComponent) string {
		return withPath(module.Key+":BRANCH:"+name, fileOrDir)
	}
}

// KeyGeneratorFor returns the key strategy of a branch.
func KeyGeneratorFor(b repo.Branch) KeyGenerator {
	switch b.Type {
	case schema.LegacyBranch:
		return LegacyBranchKeys(b.Name)
	case schema.LongLivingBranch:
		return LongLivingBranchKeys(b.Name)
	default:
		return MainBranchKeys
	}
}

func withPath(key string, fileOrDir *schema.ReportComponent) string {
	if fileOrDir == nil || fileOrDir.Path == "" {
		return key
	}
	return key + ":" + fileOrDir.Path
}

// BuildComponentTreeStep turns the report components into the analysis tree.
type BuildComponentTreeStep struct{}

func (BuildComponentTreeStep) Description() string { return "Build tree of components" }

func (BuildComponentTreeStep) Execute(ctx context.Context, rc *repo.RunContext) error {
	meta, err := rc.Report.Metadata()
	if err != nil {
		return err
	}
	rootReport, err := rc.Report.Component(meta.RootComponentRef)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMissingRoot, err)
	}
	if rootReport.Type != schema.ProjectType {
		return fmt.Errorf("root component must be a %s, got %s", schema.ProjectType, rootReport.Type)
	}
	if rootReport.Key == "" {
		rootReport.Key = meta.ProjectKey
	}
	branch, err := rc.Metadata.Branch()
	if err != nil {
		return err
	}

	// 1. Resolve what the store already knows about this project
	keys := KeyGeneratorFor(branch)
	rootKey := keys(&rootReport, nil)
	records, err := rc.Store.SelectComponentsByProjectKey(ctx, rootKey)
	if err != nil {
		return fmt.Errorf("failed to load stored components of %s: %w", rootKey, err)
	}
	stored := make(map[string]schema.ComponentRecord, len(records))
	for _, r := range records {
		stored[r.Key] = r
	}
	var base *schema.AnalysisRecord
	if r, ok := stored[rootKey]; ok {
		if base, err = rc.Store.SelectLastAnalysis(ctx, r.UUID); err != nil {
			return fmt.Errorf("failed to load last analysis of %s: %w", rootKey, err)
		}
	}

	// 2. Root version falls back to history
	version := rootReport.Version
	if version == "" && base != nil {
		version = base.Version
	}
	if version == "" {
		version = schema.NotProvidedVersion
	}

	// 3. Build and check the tree
	b := &treeBuilder{
		report:      rc.Report,
		keys:        keys,
		legacy:      branch.Type == schema.LegacyBranch,
		stored:      stored,
		rootVersion: version,
		seen:        make(map[int]struct{}),
	}
	root, err := b.build(rootReport, nil)
	if err != nil {
		return err
	}
	if err := schema.ValidateTree(root); err != nil {
		return err
	}
	if err := errors.Join(
		rc.Tree.SetRoot(root),
		rc.Metadata.SetFirstAnalysis(base == nil),
		rc.Metadata.SetBaseAnalysis(base),
		rc.Metadata.SetRootVersion(version),
	); err != nil {
		return err
	}
	rc.Stats.Add("components", rc.Tree.Size())
	rc.Stats.Add("first_analysis", base == nil)
	return nil
}

type treeBuilder struct {
	report      contract.ReportReader
	keys        KeyGenerator
	legacy      bool
	stored      map[string]schema.ComponentRecord
	rootVersion string
	seen        map[int]struct{}
}

func (b *treeBuilder) build(rc schema.ReportComponent, module *schema.ReportComponent) (*schema.Component, error) {
	if !rc.Type.IsReportType() {
		return nil, fmt.Errorf("Unsupported component type '%s'", rc.Type)
	}
	if _, ok := b.seen[rc.Ref]; ok {
		return nil, fmt.Errorf("component ref %d is referenced more than once", rc.Ref)
	}
	b.seen[rc.Ref] = struct{}{}

	var key, publicKey string
	switch rc.Type {
	case schema.ProjectType, schema.ModuleType:
		module = &rc
		key, publicKey = b.keys(module, nil), MainBranchKeys(module, nil)
	default:
		key, publicKey = b.keys(module, &rc), MainBranchKeys(module, &rc)
	}
	if b.legacy {
		publicKey = key
	}

	c := &schema.Component{
		Type:        rc.Type,
		Key:         key,
		PublicKey:   publicKey,
		Description: rc.Description,
		ReportAttributes: &schema.ReportAttributes{
			Ref:     rc.Ref,
			Path:    rc.Path,
			Version: rc.Version,
		},
	}
	stored, known := b.stored[key]
	if known {
		c.UUID = stored.UUID
	} else {
		c.UUID = uuid.NewString()
	}
	c.Name = b.name(rc, stored, key, publicKey)
	if rc.Type == schema.ProjectType {
		c.ReportAttributes.Version = b.rootVersion
	}
	if rc.Type == schema.FileType {
		if rc.Lines <= 0 {
			return nil, fmt.Errorf("File '%s' has no line", rc.Path)
		}
		c.FileAttributes = &schema.FileAttributes{IsUnitTest: rc.IsTest, Language: rc.Language, Lines: rc.Lines}
	}

	for _, ref := range rc.ChildRefs {
		child, err := b.report.Component(ref)
		if err != nil {
			return nil, fmt.Errorf("missing child ref %d of %s: %w", ref, key, err)
		}
		node, err := b.build(child, module)
		if err != nil {
			return nil, err
		}
		c.Children = append(c.Children, node)
	}
	return c, nil
}

func (b *treeBuilder) name(rc schema.ReportComponent, stored schema.ComponentRecord, key, publicKey string) string {
	if rc.Name != "" {
		return rc.Name
	}
	if rc.Type != schema.ProjectType {
		return publicKey
	}
	if stored.Name != "" {
		return stored.Name
	}
	return key
}
