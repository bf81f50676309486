package core

import (
	"context"
	"testing"

	"github.com/huangsam/ceflow/core/repo"
	"github.com/huangsam/ceflow/internal/iocache"
	"github.com/huangsam/ceflow/internal/reportreader"
	"github.com/huangsam/ceflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestKeyGenerators(t *testing.T) {
	module := &schema.ReportComponent{Key: "org:demo"}
	file := &schema.ReportComponent{Path: "src/a.go"}

	tests := []struct {
		name   string
		branch repo.Branch
		module string
		file   string
	}{
		{"main", repo.Branch{Type: schema.MainBranch}, "org:demo", "org:demo:src/a.go"},
		{"legacy", repo.Branch{Name: "dev", Type: schema.LegacyBranch}, "org:demo:dev", "org:demo:dev:src/a.go"},
		{"long living", repo.Branch{Name: "rel", Type: schema.LongLivingBranch}, "org:demo:BRANCH:rel", "org:demo:BRANCH:rel:src/a.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys := KeyGeneratorFor(tt.branch)
			assert.Equal(t, tt.module, keys(module, nil))
			assert.Equal(t, tt.file, keys(module, file))
		})
	}
}

func newTreeContext(t *testing.T, doc reportreader.Document, store *iocache.MockAnalysisStore, branch repo.Branch) *repo.RunContext {
	t.Helper()
	rc := repo.NewRunContext(nil, nil, reportreader.New(doc), store, nil, nil)
	require.NoError(t, rc.Metadata.SetBranch(branch))
	return rc
}

func TestBuildComponentTreeFirstAnalysis(t *testing.T) {
	store := &iocache.MockAnalysisStore{}
	store.On("SelectComponentsByProjectKey", mock.Anything, "org.sample:demo").Return(nil, nil)
	rc := newTreeContext(t, loadSampleDocument(t), store, repo.Branch{Type: schema.MainBranch})

	require.NoError(t, BuildComponentTreeStep{}.Execute(context.Background(), rc))

	root, err := rc.Tree.Root()
	require.NoError(t, err)
	assert.Equal(t, "org.sample:demo", root.Key)
	assert.Equal(t, "Demo", root.Name)
	assert.Equal(t, 5, rc.Tree.Size())

	file, err := rc.Tree.ComponentByRef(5)
	require.NoError(t, err)
	assert.Equal(t, "org.sample:demo:pkg/server_test.go", file.Key)
	assert.True(t, file.IsUnitTest())

	first, err := rc.Metadata.IsFirstAnalysis()
	require.NoError(t, err)
	assert.True(t, first)
	version, err := rc.Metadata.RootVersion()
	require.NoError(t, err)
	assert.Equal(t, "1.2", version)
	store.AssertExpectations(t)
}

func TestBuildComponentTreeReusesStoredComponents(t *testing.T) {
	doc := loadSampleDocument(t)
	doc.Components[0].Version = ""
	doc.Components[0].Name = ""
	store := &iocache.MockAnalysisStore{}
	store.On("SelectComponentsByProjectKey", mock.Anything, "org.sample:demo:dev").Return([]schema.ComponentRecord{
		{UUID: "p-uuid", Key: "org.sample:demo:dev", Name: "Stored name", ProjectUUID: "p-uuid", Enabled: true},
		{UUID: "f-uuid", Key: "org.sample:demo:dev:pkg/client.go", ProjectUUID: "p-uuid", Enabled: true},
	}, nil)
	base := &schema.AnalysisRecord{UUID: "a1", ComponentUUID: "p-uuid", Version: "0.9", CreatedAt: 1}
	store.On("SelectLastAnalysis", mock.Anything, "p-uuid").Return(base, nil)
	rc := newTreeContext(t, doc, store, repo.Branch{Name: "dev", Type: schema.LegacyBranch})

	require.NoError(t, BuildComponentTreeStep{}.Execute(context.Background(), rc))

	root, err := rc.Tree.Root()
	require.NoError(t, err)
	assert.Equal(t, "p-uuid", root.UUID)
	assert.Equal(t, "Stored name", root.Name)
	assert.Equal(t, "org.sample:demo:dev", root.PublicKey)
	client, err := rc.Tree.ComponentByRef(4)
	require.NoError(t, err)
	assert.Equal(t, "f-uuid", client.UUID)

	version, err := rc.Metadata.RootVersion()
	require.NoError(t, err)
	assert.Equal(t, "0.9", version)
	got, err := rc.Metadata.BaseAnalysis()
	require.NoError(t, err)
	assert.Equal(t, base, got)
}

func TestBuildComponentTreeReusesDisabledComponentUUID(t *testing.T) {
	store := &iocache.MockAnalysisStore{}
	store.On("SelectComponentsByProjectKey", mock.Anything, "org.sample:demo").Return([]schema.ComponentRecord{
		{UUID: "p-uuid", Key: "org.sample:demo", ProjectUUID: "p-uuid", Enabled: true},
		{UUID: "DEFG", Key: "org.sample:demo:pkg/client.go", ProjectUUID: "p-uuid", Enabled: false},
	}, nil)
	store.On("SelectLastAnalysis", mock.Anything, "p-uuid").Return(nil, nil)
	rc := newTreeContext(t, loadSampleDocument(t), store, repo.Branch{Type: schema.MainBranch})

	require.NoError(t, BuildComponentTreeStep{}.Execute(context.Background(), rc))

	client, err := rc.Tree.ComponentByRef(4)
	require.NoError(t, err)
	assert.Equal(t, "DEFG", client.UUID)
	server, err := rc.Tree.ComponentByRef(3)
	require.NoError(t, err)
	assert.NotEqual(t, "DEFG", server.UUID)
	assert.NotEmpty(t, server.UUID)
}

func TestBuildComponentTreeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*reportreader.Document)
		want   string
	}{
		{
			name:   "root is not a project",
			mutate: func(d *reportreader.Document) { d.Metadata.RootComponentRef = 2 },
			want:   "root component must be a PROJECT, got DIRECTORY",
		},
		{
			name:   "file without lines",
			mutate: func(d *reportreader.Document) { d.Components[3].Lines = 0 },
			want:   "File 'pkg/client.go' has no line",
		},
		{
			name:   "ref used twice",
			mutate: func(d *reportreader.Document) { d.Components[1].ChildRefs = []int{3, 3} },
			want:   "component ref 3 is referenced more than once",
		},
		{
			name:   "missing child",
			mutate: func(d *reportreader.Document) { d.Components[1].ChildRefs = []int{3, 42} },
			want:   "missing child ref 42",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := loadSampleDocument(t)
			tt.mutate(&doc)
			store := &iocache.MockAnalysisStore{}
			store.On("SelectComponentsByProjectKey", mock.Anything, mock.Anything).Return(nil, nil)
			rc := newTreeContext(t, doc, store, repo.Branch{Type: schema.MainBranch})

			err := BuildComponentTreeStep{}.Execute(context.Background(), rc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.False(t, rc.Tree.IsSet())
		})
	}
}
