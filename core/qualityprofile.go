package core

import (
	"cmp"
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
)

// QualityProfileMeasuresStep records the quality profiles of the report on the project,
// as a JSON list sorted by language.
type QualityProfileMeasuresStep struct{}

func (QualityProfileMeasuresStep) Description() string { return "Compute Quality Profile measures" }

func (QualityProfileMeasuresStep) Execute(_ context.Context, rc *repo.RunContext) error {
	profiles, err := rc.Metadata.QualityProfiles()
	if err != nil {
		return err
	}
	root, err := rc.Tree.Root()
	if err != nil {
		return err
	}
	if len(profiles) == 0 || root.Type.IsViewsType() {
		return nil
	}

	sorted := slices.SortedFunc(maps.Values(profiles), func(a, b schema.QualityProfile) int {
		return cmp.Compare(a.Language, b.Language)
	})
	payload, err := json.Marshal(sorted)
	if err != nil {
		return err
	}
	metric, err := rc.Metrics.ByKey(schema.QualityProfilesKey)
	if err != nil {
		return err
	}
	if err := rc.Measures.Add(root, metric, schema.StringMeasure(string(payload))); err != nil {
		return err
	}
	rc.Stats.Add("profiles", len(sorted))
	return nil
}
