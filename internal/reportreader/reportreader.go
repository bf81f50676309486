// Package reportreader decodes scanner reports stored as JSON documents.
package reportreader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/ceflow/internal/contract"
	"github.com/huangsam/ceflow/schema"
)

// reportValidate checks decoded documents before they are served to the pipeline.
var reportValidate *validator.Validate

func init() {
	reportValidate = validator.New()
	_ = reportValidate.RegisterValidation("componenttype", validateComponentType)
}

// validateComponentType accepts the closed set of component types.
func validateComponentType(fl validator.FieldLevel) bool {
	return schema.ComponentType(fl.Field().String()).Valid()
}

// Document is the on-disk layout of a report. Per-component sections are keyed by ref.
type Document struct {
	Metadata        schema.ReportMetadata              `json:"metadata"`
	ScannerContext  string                             `json:"scanner_context,omitempty"`
	Components      []schema.ReportComponent           `json:"components" validate:"required,min=1,dive"`
	Measures        map[int][]schema.ReportMeasure     `json:"measures,omitempty" validate:"dive,dive"`
	Issues          map[int][]schema.Issue             `json:"issues,omitempty" validate:"dive,dive"`
	Duplications    map[int][]schema.ReportDuplication `json:"duplications,omitempty" validate:"dive,dive"`
	Changesets      map[int]*schema.ReportChangesets   `json:"changesets,omitempty"`
	Coverage        map[int][]schema.LineCoverage      `json:"coverage,omitempty" validate:"dive,dive"`
	Tests           map[int][]schema.TestResult        `json:"tests,omitempty" validate:"dive,dive"`
	CoverageDetails map[int][]schema.CoverageDetail    `json:"coverage_details,omitempty" validate:"dive,dive"`
	Sources         map[int][]string                   `json:"sources,omitempty"`
}

// Report serves a decoded document through contract.ReportReader.
type Report struct {
	doc        Document
	components map[int]schema.ReportComponent
}

var _ contract.ReportReader = (*Report)(nil)

// New indexes a document. It does not validate it.
func New(doc Document) *Report {
	r := &Report{doc: doc, components: make(map[int]schema.ReportComponent, len(doc.Components))}
	for _, c := range doc.Components {
		r.components[c.Ref] = c
	}
	return r
}

// Decode reads and validates a JSON document.
func Decode(in io.Reader) (*Report, error) {
	var doc Document
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}
	return New(doc), nil
}

// Load reads and validates the report stored at path.
func Load(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Validate checks field constraints and the uniqueness of component refs.
func Validate(doc Document) error {
	if err := reportValidate.Struct(doc); err != nil {
		return fmt.Errorf("invalid report: %w", err)
	}
	seen := make(map[int]struct{}, len(doc.Components))
	for _, c := range doc.Components {
		if _, ok := seen[c.Ref]; ok {
			return fmt.Errorf("invalid report: duplicate component ref %d", c.Ref)
		}
		seen[c.Ref] = struct{}{}
	}
	return nil
}

// Metadata implements contract.ReportReader.
func (r *Report) Metadata() (schema.ReportMetadata, error) {
	return r.doc.Metadata, nil
}

// ScannerContext implements contract.ReportReader.
func (r *Report) ScannerContext() (string, error) {
	return r.doc.ScannerContext, nil
}

// Component implements contract.ReportReader.
func (r *Report) Component(ref int) (schema.ReportComponent, error) {
	c, ok := r.components[ref]
	if !ok {
		return schema.ReportComponent{}, fmt.Errorf("unable to find report for component #%d", ref)
	}
	return c, nil
}

func (r *Report) Measures(ref int) ([]schema.ReportMeasure, error)         { return r.doc.Measures[ref], nil }
func (r *Report) Issues(ref int) ([]schema.Issue, error)                   { return r.doc.Issues[ref], nil }
func (r *Report) Duplications(ref int) ([]schema.ReportDuplication, error) { return r.doc.Duplications[ref], nil }
func (r *Report) Changesets(ref int) (*schema.ReportChangesets, error)     { return r.doc.Changesets[ref], nil }
func (r *Report) Coverage(ref int) ([]schema.LineCoverage, error)          { return r.doc.Coverage[ref], nil }
func (r *Report) Tests(ref int) ([]schema.TestResult, error)               { return r.doc.Tests[ref], nil }
func (r *Report) CoverageDetails(ref int) ([]schema.CoverageDetail, error) { return r.doc.CoverageDetails[ref], nil }
func (r *Report) SourceLines(ref int) ([]string, error)                    { return r.doc.Sources[ref], nil }

// ComponentRefs returns every declared ref in document order.
func (r *Report) ComponentRefs() []int {
	refs := make([]int, 0, len(r.doc.Components))
	for _, c := range r.doc.Components {
		refs = append(refs, c.Ref)
	}
	return refs
}
