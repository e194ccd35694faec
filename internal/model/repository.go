package model

import (
	"time"

	"github.com/google/uuid"
)

// Repository identifies the source tree being analyzed.
type Repository struct {
	URL        string `json:"url,omitempty"`
	LocalPath  string `json:"localPath"`
	AnalysisID string `json:"analysisId"`
}

// AnalysisRun wraps a Repository with the budgets and identity of a
// single end-to-end pipeline invocation.
type AnalysisRun struct {
	Repository Repository   `json:"repository"`
	Budgets    TokenBudgets `json:"budgets"`
	StartedAt  time.Time    `json:"startedAt"`
}

// NewAnalysisRun stamps a fresh run identity for one end-to-end
// pipeline invocation over the repository at localPath.
func NewAnalysisRun(localPath string, budgets TokenBudgets) AnalysisRun {
	return AnalysisRun{
		Repository: Repository{
			LocalPath:  localPath,
			AnalysisID: uuid.NewString(),
		},
		Budgets:   budgets,
		StartedAt: time.Now().UTC(),
	}
}

// ContentDigest records a per-file content hash, used by the
// incremental-analysis cache (internal/incache) to detect files that
// are unchanged between runs without re-parsing them.
type ContentDigest struct {
	RelativePath string `json:"relativePath"`
	Language     string `json:"language"`
	Digest       string `json:"digest"`
}

// TokenBudgets are the process-wide numeric thresholds governing
// clustering splits, sub-agent recursion, model output size, and
// recursion depth.
type TokenBudgets struct {
	MaxTokensPerModule     int `json:"maxTokensPerModule"`
	MaxTokensPerLeafModule int `json:"maxTokensPerLeafModule"`
	MaxOutputTokens        int `json:"maxOutputTokens"`
	MaxRecursionDepth      int `json:"maxRecursionDepth"`
}

// DefaultTokenBudgets mirrors the values a typical documentation run
// is configured with absent any override.
func DefaultTokenBudgets() TokenBudgets {
	return TokenBudgets{
		MaxTokensPerModule:     12000,
		MaxTokensPerLeafModule: 16000,
		MaxOutputTokens:        4096,
		MaxRecursionDepth:      4,
	}
}
