package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityProfileMeasures(t *testing.T) {
	doc := loadSampleDocument(t)
	doc.Metadata.QualityProfilesPerLanguage["java"] = schema.QualityProfile{Key: "java-way", Name: "Java Way", Language: "java"}
	rc, err := loadDuplicationsFor(t, doc, repo.Branch{Type: schema.MainBranch})
	require.NoError(t, err)

	require.NoError(t, QualityProfileMeasuresStep{}.Execute(context.Background(), rc))

	root, err := rc.Tree.Root()
	require.NoError(t, err)
	metric, err := rc.Metrics.ByKey(schema.QualityProfilesKey)
	require.NoError(t, err)
	m, ok, err := rc.Measures.GetRaw(root, metric)
	require.NoError(t, err)
	require.True(t, ok)

	text, ok := m.TextValue()
	require.True(t, ok)
	var profiles []schema.QualityProfile
	require.NoError(t, json.Unmarshal([]byte(text), &profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, "go-way", profiles[0].Key)
	assert.Equal(t, int64(1750000000000), profiles[0].RulesAt)
	assert.Equal(t, "java", profiles[1].Language)

	// files never carry profiles
	file, err := rc.Tree.ComponentByRef(3)
	require.NoError(t, err)
	_, ok, err = rc.Measures.GetRaw(file, metric)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQualityProfileMeasuresWithoutProfiles(t *testing.T) {
	doc := loadSampleDocument(t)
	doc.Metadata.QualityProfilesPerLanguage = nil
	rc, err := loadDuplicationsFor(t, doc, repo.Branch{Type: schema.MainBranch})
	require.NoError(t, err)

	require.NoError(t, QualityProfileMeasuresStep{}.Execute(context.Background(), rc))

	root, err := rc.Tree.Root()
	require.NoError(t, err)
	metric, err := rc.Metrics.ByKey(schema.QualityProfilesKey)
	require.NoError(t, err)
	_, ok, err := rc.Measures.GetRaw(root, metric)
	require.NoError(t, err)
	assert.False(t, ok)
}
