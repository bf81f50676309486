package schema_test

import (
	"testing"

	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		level    schema.Level
		expected string
	}{
		{"Error", schema.ErrorLevel, "Failed"},
		{"Warn", schema.WarnLevel, "Warning"},
		{"OK", schema.OKLevel, "Passed"},
		{"Unknown", schema.Level(""), "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, schema.GetPlainLabel(tt.level))
		})
	}
}

func TestRankComponents(t *testing.T) {
	components := []schema.ComponentMeasures{
		{Key: "a", Measures: map[string]string{"ncloc": "10"}, Values: map[string]float64{"ncloc": 10}},
		{Key: "b", Measures: map[string]string{}},
		{Key: "c", Measures: map[string]string{"ncloc": "30"}, Values: map[string]float64{"ncloc": 30}},
	}

	ranked := schema.RankComponents(components, "ncloc", 0)

	assert.Len(t, ranked, 3)
	assert.Equal(t, "c", ranked[0].Key)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "30", ranked[0].Label)
	assert.Equal(t, "a", ranked[1].Key)
	assert.Equal(t, "b", ranked[2].Key)
	assert.Empty(t, ranked[2].Label)

	limited := schema.RankComponents(components, "ncloc", 1)
	assert.Len(t, limited, 1)
	assert.Equal(t, "b", components[1].Key, "input order is preserved")
}
