// Package orchestrator implements the documentation orchestrator: a
// leaf-first, post-order walk of the module tree that drives the
// agent runtime over leaves, synthesizes module overviews for
// interior nodes, and finishes with a repository-level overview and a
// metadata artifact. Sibling subtrees run concurrently; a parent
// never starts before all of its children have completed.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"codedoc/internal/agent"
	"codedoc/internal/errors"
	"codedoc/internal/graph"
	"codedoc/internal/llmclient"
	"codedoc/internal/logging"
	"codedoc/internal/model"
)

// Orchestrator drives one end-to-end documentation run over an
// already-built module tree.
type Orchestrator struct {
	RepoRoot           string
	DocsDir            string
	RepositoryName     string
	AnalysisID         string
	Registry           *graph.Registry
	Graph              model.DependencyGraph
	Tree               *model.ModuleNode
	Chain              *llmclient.FallbackChain
	Budgets            model.TokenBudgets
	DocType            string
	FocusModules       []string
	CustomInstructions string
	Logger             *logging.Logger
	CompressArtifacts  bool

	history       *model.EditHistory
	artifactNames map[*model.ModuleNode]string
}

// Run executes the full traversal, writes the repository overview,
// and emits the metadata artifact. Any ModelFatal failure anywhere in
// the tree aborts the whole run immediately, naming the offending
// module; artifacts already written to disk are left in place so a
// subsequent run can resume via idempotency.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := os.MkdirAll(o.DocsDir, 0o755); err != nil {
		return errors.Wrap(errors.ModelFatal, "cannot create documentation output directory", err)
	}
	o.history = model.NewEditHistory()
	o.artifactNames = model.DocFileNames(o.Tree)

	if err := o.processNode(ctx, o.Tree, 0); err != nil {
		return err
	}

	if err := o.synthesizeRepositoryOverview(ctx); err != nil {
		return err
	}

	return o.writeMetadata()
}

// processNode processes node and, for non-leaf nodes, all of its
// descendants first: children of the same parent run concurrently,
// and a parent's own overview is synthesized only once every child
// artifact exists. The root's module overview is written like any
// other interior node's; the repository overview is a separate, final
// synthesis step in Run.
func (o *Orchestrator) processNode(ctx context.Context, node *model.ModuleNode, depth int) error {
	if node.IsLeaf() {
		return o.runAgent(ctx, node, depth)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range node.ChildNames() {
		child := node.Children[name]
		g.Go(func() error {
			return o.processNode(gctx, child, depth+1)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return o.synthesizeModuleOverview(ctx, node)
}

func (o *Orchestrator) runAgent(ctx context.Context, node *model.ModuleNode, depth int) error {
	rt := agent.NewRuntime(agent.SharedDependencies{
		DocsDir:            o.DocsDir,
		RepoRoot:           o.RepoRoot,
		History:            o.history,
		Registry:           o.Registry,
		ModuleTree:         o.Tree,
		CurrentDepth:       depth,
		MaxDepth:           o.Budgets.MaxRecursionDepth,
		Budgets:            o.Budgets,
		DocType:            o.DocType,
		FocusModules:       o.FocusModules,
		CustomInstructions: o.CustomInstructions,
		ArtifactNames:      o.artifactNames,
		Chain:              o.Chain,
		Logger:             o.Logger,
	}, node)

	if err := rt.Run(ctx); err != nil {
		return errors.Wrap(errors.ModelFatal, "agent runtime failed for module "+node.Name, err)
	}
	return nil
}

// outputPathFor returns node's artifact path using the tree-wide
// disambiguated name assigned at the start of the run.
func (o *Orchestrator) outputPathFor(node *model.ModuleNode) string {
	name := node.Name
	if n, ok := o.artifactNames[node]; ok {
		name = n
	}
	return filepath.Join(o.DocsDir, name+".md")
}
