package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codedoc/internal/errors"
	"codedoc/internal/llmclient"
	"codedoc/internal/model"
)

const moduleOverviewPromptTemplate = `You are an AI documentation assistant. Your task is to generate a brief overview of the %s module.

The overview should be a brief documentation of the module, including:
- The purpose of the module
- The architecture of the module visualized by Mermaid diagrams
- References to the core components' documentation

Provide the module's structure and its children's documentation:
<REPO_STRUCTURE>
%s
</REPO_STRUCTURE>

Please generate the overview of the %s module in Markdown format with the following structure:
<OVERVIEW>
overview_content
</OVERVIEW>`

const repoOverviewPromptTemplate = `You are an AI documentation assistant. Your task is to generate a brief overview of the %s repository.

The overview should be a brief documentation of the repository, including:
- The purpose of the repository
- The end-to-end architecture of the repository visualized by Mermaid diagrams
- References to the core modules' documentation

Provide the repository structure and its core modules' documentation:
<REPO_STRUCTURE>
%s
</REPO_STRUCTURE>

Please generate the overview of the %s repository in Markdown format with the following structure:
<OVERVIEW>
overview_content
</OVERVIEW>`

var overviewTagRE = regexp.MustCompile(`(?s)<OVERVIEW>\s*(.*?)\s*</OVERVIEW>`)

// extractOverview pulls the content between <OVERVIEW> sentinel tags
// out of a model response.
func extractOverview(response string) (string, bool) {
	m := overviewTagRE.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// synthesizeModuleOverview concatenates node's already-written child
// artifacts and asks the model for an overview, written directly to
// disk with no tool loop.
func (o *Orchestrator) synthesizeModuleOverview(ctx context.Context, node *model.ModuleNode) error {
	structure := o.formatChildStructure(node)
	prompt := fmt.Sprintf(moduleOverviewPromptTemplate, node.Name, structure, node.Name)
	return o.synthesizeOverview(ctx, prompt, o.outputPathFor(node), node.Name)
}

// synthesizeRepositoryOverview is the final synthesis step, run once
// the entire tree (including the root's own artifact, if the root was
// itself a leaf) has been written.
func (o *Orchestrator) synthesizeRepositoryOverview(ctx context.Context) error {
	var structure string
	if o.Tree.IsLeaf() {
		data, err := os.ReadFile(o.outputPathFor(o.Tree))
		if err == nil {
			structure = string(data)
		}
	} else {
		structure = o.formatChildStructure(o.Tree)
	}
	prompt := fmt.Sprintf(repoOverviewPromptTemplate, o.RepositoryName, structure, o.RepositoryName)
	return o.synthesizeOverview(ctx, prompt, filepath.Join(o.DocsDir, "overview.md"), o.RepositoryName)
}

func (o *Orchestrator) synthesizeOverview(ctx context.Context, prompt, outPath, name string) error {
	if _, err := os.Stat(outPath); err == nil {
		if o.Logger != nil {
			o.Logger.Info("overview already exists, skipping", map[string]any{"path": outPath})
		}
		return nil
	}

	messages := []llmclient.Message{{Role: "user", Content: prompt}}
	msg, _, err := o.Chain.Complete(ctx, messages, nil, o.Budgets.MaxOutputTokens)
	if err != nil {
		return errors.Wrap(errors.ModelFatal, "overview synthesis failed for "+name, err)
	}

	content, ok := extractOverview(msg.Content)
	if !ok {
		content = strings.TrimSpace(msg.Content)
	}

	return os.WriteFile(outPath, []byte(content+"\n"), 0o644)
}

// formatChildStructure renders node's direct children as a flat
// listing, each followed by the full text of its already-written
// Markdown artifact.
func (o *Orchestrator) formatChildStructure(node *model.ModuleNode) string {
	var b strings.Builder
	for _, name := range node.ChildNames() {
		child := node.Children[name]
		fmt.Fprintf(&b, "## %s\n", name)
		data, err := os.ReadFile(o.outputPathFor(child))
		if err == nil {
			b.Write(data)
		}
		b.WriteString("\n\n")
	}
	if len(node.Components) > 0 {
		fmt.Fprintf(&b, "## Components\n%s\n", strings.Join(node.Components, ", "))
	}
	return b.String()
}
