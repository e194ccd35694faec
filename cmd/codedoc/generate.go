package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"codedoc/internal/cluster"
	"codedoc/internal/config"
	"codedoc/internal/extract"
	"codedoc/internal/graph"
	"codedoc/internal/incache"
	"codedoc/internal/llmclient"
	"codedoc/internal/model"
	"codedoc/internal/orchestrator"
)

var (
	generateOutput       string
	generateInclude      []string
	generateExclude      []string
	generateFocus        []string
	generateDocType      string
	generateCustom       string
	generateMainModel    string
	generateClusterModel string
	generateScipIndex    string
	generateIncremental  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Analyze the repository and generate its documentation",
	Long: `Run the full pipeline: discover and parse source files, build the
dependency graph, cluster leaf components into a module hierarchy, and
drive the documentation agent leaf-first over the resulting tree.

Re-running over an unchanged repository skips every module whose
artifact already exists, so an aborted run can be resumed in place.

Examples:
  codedoc generate --repo ./myproject --output ./myproject-docs
  codedoc generate --doc-type architecture --exclude 'test/**'
  codedoc generate --incremental --scip-index index.scip`,
	Args: cobra.NoArgs,
	Run:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateOutput, "output", "", "Documentation output directory (default: <config> or ./docs)")
	generateCmd.Flags().StringSliceVar(&generateInclude, "include", nil, "Glob patterns a file must match to be analyzed")
	generateCmd.Flags().StringSliceVar(&generateExclude, "exclude", nil, "Glob patterns excluding files from analysis")
	generateCmd.Flags().StringSliceVar(&generateFocus, "focus", nil, "Module names to prioritize in prompts")
	generateCmd.Flags().StringVar(&generateDocType, "doc-type", "", "Documentation emphasis: api, architecture, user-guide, or developer")
	generateCmd.Flags().StringVar(&generateCustom, "custom-instructions", "", "Free-form text appended to the agent system prompt")
	generateCmd.Flags().StringVar(&generateMainModel, "main-model", "", "Model identifier for the documentation agent")
	generateCmd.Flags().StringVar(&generateClusterModel, "cluster-model", "", "Model identifier for the clustering step")
	generateCmd.Flags().StringVar(&generateScipIndex, "scip-index", "", "Optional SCIP index file for cross-checking unresolved edges")
	generateCmd.Flags().BoolVar(&generateIncremental, "incremental", false, "Use the content-digest cache to shrink clustering prompts for unchanged files")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) {
	start := time.Now()

	repoRoot, err := resolveRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving repository root: %v\n", err)
		os.Exit(1)
	}
	repoRoot, err = filepath.Abs(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving repository root: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	applyGenerateFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	docsDir := cfg.Output.Directory
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(repoRoot, docsDir)
	}
	if err := os.MkdirAll(docsDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	// Phase 1: discovery and extraction.
	entries, err := extract.Discover(repoRoot, cfg.Repository.IncludePatterns, cfg.Repository.ExcludePatterns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering source files: %v\n", err)
		os.Exit(1)
	}
	logger.Info("discovered source files", map[string]any{"files": len(entries)})

	extracted, err := extract.Run(ctx, repoRoot, entries, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting components: %v\n", err)
		os.Exit(1)
	}
	logger.Info("extraction complete", map[string]any{
		"components": len(extracted.Components),
		"edges":      len(extracted.Edges),
	})

	// Phase 2: graph build, cycle resolution, leaf identification.
	br := graph.Build(extracted.Components, extracted.Edges)

	if generateScipIndex != "" {
		idx, err := graph.LoadSCIPIndex(generateScipIndex)
		if err != nil {
			logger.Warn("SCIP index unavailable, continuing without cross-check", map[string]any{"error": err.Error()})
		} else {
			br.Edges = graph.CrossCheckUnresolved(idx, br.Registry, br.Edges)
		}
	}

	if removed := graph.ResolveCycles(br.Graph); removed > 0 {
		logger.Warn("dependency cycles resolved by edge removal", map[string]any{"edgesRemoved": removed})
	}
	leaves := graph.Leaves(br.Graph, br.Registry)
	logger.Info("graph build complete", map[string]any{"components": br.Registry.Len(), "leaves": len(leaves)})

	if err := orchestrator.WriteDependencyGraph(filepath.Join(docsDir, "dependency_graph.json"), br.Registry, br.Graph, cfg.Output.CompressArtifacts); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing dependency graph: %v\n", err)
		os.Exit(1)
	}

	// Phase 3: hierarchical clustering.
	apiKey := os.Getenv(cfg.LLM.APIKeyEnv)
	client := llmclient.NewClient(cfg.LLM.BaseURL, apiKey, time.Duration(cfg.LLM.RequestTimeoutS)*time.Second)
	client.Logger = logger
	budgets := cfg.Budgets.TokenBudgets()
	run := model.NewAnalysisRun(repoRoot, budgets)
	logger.Info("starting analysis run", map[string]any{"analysisId": run.Repository.AnalysisID})

	var unchangedFiles map[string]bool
	if generateIncremental {
		cache, _ := incache.Open(filepath.Join(repoRoot, ".codedoc", "digests.db"), logger)
		defer cache.Close()
		_, unchanged := cache.FilterChanged(ctx, repoRoot, entries)
		if len(unchanged) > 0 {
			unchangedFiles = make(map[string]bool, len(unchanged))
			for _, e := range unchanged {
				unchangedFiles[e.RelPath] = true
			}
			logger.Info("incremental cache hit", map[string]any{"unchangedFiles": len(unchanged)})
		}
	}

	clusterer := &cluster.Clusterer{
		Chain:          llmclient.NewFallbackChain(client, cfg.LLM.ClusterModel, cfg.LLM.FallbackModels, logger),
		Logger:         logger,
		Budgets:        budgets,
		UnchangedFiles: unchangedFiles,
	}
	tree, err := clusterer.Build(ctx, br.Registry, br.Graph, leaves)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error clustering components: %v\n", err)
		os.Exit(1)
	}

	if err := orchestrator.WriteModuleTree(filepath.Join(docsDir, "module_tree.json"), tree, cfg.Output.CompressArtifacts, cfg.Output.EmitYAMLModuleTree); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing module tree: %v\n", err)
		os.Exit(1)
	}

	// Phase 4: documentation generation.
	orch := &orchestrator.Orchestrator{
		RepoRoot:           repoRoot,
		DocsDir:            docsDir,
		RepositoryName:     filepath.Base(repoRoot),
		AnalysisID:         run.Repository.AnalysisID,
		Registry:           br.Registry,
		Graph:              br.Graph,
		Tree:               tree,
		Chain:              llmclient.NewFallbackChain(client, cfg.LLM.MainModel, cfg.LLM.FallbackModels, logger),
		Budgets:            budgets,
		DocType:            cfg.DocType.Type,
		FocusModules:       cfg.Repository.FocusModules,
		CustomInstructions: cfg.DocType.CustomInstructions,
		Logger:             logger,
		CompressArtifacts:  cfg.Output.CompressArtifacts,
	}
	if err := orch.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating documentation: %v\n", err)
		os.Exit(1)
	}

	logger.Info("documentation run complete", map[string]any{
		"output":   docsDir,
		"duration": time.Since(start).String(),
	})
}

// applyGenerateFlags overlays any explicitly set CLI flags onto the
// loaded configuration. Precedence: flag > config file > default.
func applyGenerateFlags(cfg *config.Config) {
	if generateOutput != "" {
		cfg.Output.Directory = generateOutput
	}
	if len(generateInclude) > 0 {
		cfg.Repository.IncludePatterns = generateInclude
	}
	if len(generateExclude) > 0 {
		cfg.Repository.ExcludePatterns = generateExclude
	}
	if len(generateFocus) > 0 {
		cfg.Repository.FocusModules = generateFocus
	}
	if generateDocType != "" {
		cfg.DocType.Type = generateDocType
	}
	if generateCustom != "" {
		cfg.DocType.CustomInstructions = generateCustom
	}
	if generateMainModel != "" {
		cfg.LLM.MainModel = generateMainModel
	}
	if generateClusterModel != "" {
		cfg.LLM.ClusterModel = generateClusterModel
	}
}
