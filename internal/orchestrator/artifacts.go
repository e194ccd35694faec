package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"codedoc/internal/errors"
	"codedoc/internal/graph"
	"codedoc/internal/model"
)

// Metadata is the run-summary artifact written after a successful run.
type Metadata struct {
	AnalysisID      string    `json:"analysisId,omitempty"`
	PrimaryModel    string    `json:"primaryModel"`
	GeneratedAt     time.Time `json:"generatedAt"`
	CommitID        string    `json:"commitId,omitempty"`
	TotalComponents int       `json:"totalComponents"`
	MaxDepth        int       `json:"maxDepth"`
	FilesAnalyzed   int       `json:"filesAnalyzed"`
}

// WriteDependencyGraph writes the component-id -> (Component fields +
// dependsOn array) mapping. dependsOn reflects the resolved,
// cycle-broken graph rather than each Component's raw extracted
// DependsOn field.
func WriteDependencyGraph(outPath string, reg *graph.Registry, g model.DependencyGraph, compress bool) error {
	out := make(map[string]map[string]any, reg.Len())
	for _, c := range reg.All() {
		entry, err := componentToMap(c)
		if err != nil {
			return errors.Wrap(errors.ModelFatal, "failed to encode component "+c.ID, err)
		}
		entry["dependsOn"] = g.Successors(c.ID)
		out[c.ID] = entry
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ModelFatal, "failed to encode dependency graph", err)
	}
	return writeArtifact(outPath, data, compress)
}

func componentToMap(c *model.Component) (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteModuleTree writes tree as JSON (the required format) and,
// when emitYAML is set, as a human-readable YAML companion.
func WriteModuleTree(outPath string, tree *model.ModuleNode, compress, emitYAML bool) error {
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ModelFatal, "failed to encode module tree", err)
	}
	if err := writeArtifact(outPath, data, compress); err != nil {
		return err
	}
	if !emitYAML {
		return nil
	}

	yamlData, err := yaml.Marshal(tree)
	if err != nil {
		return errors.Wrap(errors.ModelFatal, "failed to encode module tree as YAML", err)
	}
	yamlPath := trimExt(outPath) + ".yaml"
	return writeArtifact(yamlPath, yamlData, compress)
}

// writeMetadata assembles and writes the metadata artifact for the
// just-completed run.
func (o *Orchestrator) writeMetadata() error {
	primaryModel := ""
	if o.Chain != nil && len(o.Chain.Models) > 0 {
		primaryModel = o.Chain.Models[0]
	}

	meta := Metadata{
		AnalysisID:      o.AnalysisID,
		PrimaryModel:    primaryModel,
		GeneratedAt:     time.Now().UTC(),
		CommitID:        commitIdentifier(o.RepoRoot),
		TotalComponents: o.Registry.Len(),
		MaxDepth:        treeDepth(o.Tree),
		FilesAnalyzed:   countFiles(o.Registry),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ModelFatal, "failed to encode metadata", err)
	}
	return writeArtifact(filepath.Join(o.DocsDir, "metadata.json"), data, o.CompressArtifacts)
}

func treeDepth(node *model.ModuleNode) int {
	if node.IsLeaf() {
		return 0
	}
	max := 0
	for _, name := range node.ChildNames() {
		if d := treeDepth(node.Children[name]); d > max {
			max = d
		}
	}
	return max + 1
}

func countFiles(reg *graph.Registry) int {
	seen := make(map[string]struct{})
	for _, c := range reg.All() {
		seen[c.RelativePath] = struct{}{}
	}
	return len(seen)
}

// commitIdentifier returns the repository's current commit hash, or
// "" if repoRoot is not a git working tree.
func commitIdentifier(repoRoot string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = repoRoot
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return trimNewline(string(out))
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}

// writeArtifact writes data to path, or to path+".gz" gzip-compressed
// when compress is set.
func writeArtifact(path string, data []byte, compress bool) error {
	if !compress {
		return os.WriteFile(path, data, 0o644)
	}

	f, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
