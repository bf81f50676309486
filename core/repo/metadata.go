package repo

import (
	"sync"

	"github.com/huangsam/ceflow/schema"
)

// Branch is the branch an analysis is made on.
type Branch struct {
	Name string
	Type schema.BranchType
}

// IsMain reports whether the analysis targets the main branch.
func (b Branch) IsMain() bool {
	return b.Type == schema.MainBranch || b.Type == ""
}

// AnalysisMetadataHolder keeps the facts about the current analysis.
// Every value can be set once and read only after it was set.
type AnalysisMetadataHolder struct {
	mu sync.RWMutex

	analysisUUID    once[string]
	analysisDate    once[int64]
	branch          once[Branch]
	firstAnalysis   once[bool]
	baseAnalysis    once[*schema.AnalysisRecord]
	rootVersion     once[string]
	crossProjectDup once[bool]
	qualityProfiles once[map[string]schema.QualityProfile]
}

func (h *AnalysisMetadataHolder) SetAnalysisUUID(uuid string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.analysisUUID.put("analysis uuid", uuid)
}

func (h *AnalysisMetadataHolder) AnalysisUUID() (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.analysisUUID.get("analysis uuid")
}

// SetAnalysisDate stores the analysis date in epoch millis.
func (h *AnalysisMetadataHolder) SetAnalysisDate(date int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.analysisDate.put("analysis date", date)
}

func (h *AnalysisMetadataHolder) AnalysisDate() (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.analysisDate.get("analysis date")
}

func (h *AnalysisMetadataHolder) SetBranch(b Branch) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.branch.put("branch", b)
}

func (h *AnalysisMetadataHolder) Branch() (Branch, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.branch.get("branch")
}

// SetFirstAnalysis records whether the project has no processed analysis yet.
func (h *AnalysisMetadataHolder) SetFirstAnalysis(first bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firstAnalysis.put("first analysis flag", first)
}

func (h *AnalysisMetadataHolder) IsFirstAnalysis() (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.firstAnalysis.get("first analysis flag")
}

// SetBaseAnalysis stores the last processed analysis of the project. It may be nil.
func (h *AnalysisMetadataHolder) SetBaseAnalysis(base *schema.AnalysisRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseAnalysis.put("base analysis", base)
}

func (h *AnalysisMetadataHolder) BaseAnalysis() (*schema.AnalysisRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.baseAnalysis.get("base analysis")
}

func (h *AnalysisMetadataHolder) SetRootVersion(version string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rootVersion.put("root version", version)
}

func (h *AnalysisMetadataHolder) RootVersion() (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rootVersion.get("root version")
}

func (h *AnalysisMetadataHolder) SetCrossProjectDuplicationEnabled(enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.crossProjectDup.put("cross project duplication flag", enabled)
}

func (h *AnalysisMetadataHolder) IsCrossProjectDuplicationEnabled() (bool, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.crossProjectDup.get("cross project duplication flag")
}

func (h *AnalysisMetadataHolder) SetQualityProfiles(profiles map[string]schema.QualityProfile) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.qualityProfiles.put("quality profiles", profiles)
}

func (h *AnalysisMetadataHolder) QualityProfiles() (map[string]schema.QualityProfile, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.qualityProfiles.get("quality profiles")
}
