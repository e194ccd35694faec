// Package agent implements the tool-using documentation agent: a
// bounded tool-call loop over a language-model fallback chain, backed
// by the two-root scoped file editor, a code-component reader, and a
// self-spawning sub-module documentation tool.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"codedoc/internal/errors"
	"codedoc/internal/graph"
	"codedoc/internal/llmclient"
	"codedoc/internal/logging"
	"codedoc/internal/model"
)

// maxToolTurns bounds the agent loop so a misbehaving model cannot
// spin forever; reaching it is logged as a warning, not a hard error.
const maxToolTurns = 25

// SharedDependencies is the read-only (aside from History) context
// injected into every tool call within one Runtime invocation.
type SharedDependencies struct {
	DocsDir            string // absolute
	RepoRoot           string // absolute
	History            *model.EditHistory
	Registry           *graph.Registry
	ModuleTree         *model.ModuleNode // root, read-only navigation
	CurrentDepth       int
	MaxDepth           int
	Budgets            model.TokenBudgets
	DocType            string
	FocusModules       []string
	CustomInstructions string
	// ArtifactNames maps every tree node to its flat-directory
	// artifact base name (model.DocFileNames). May be nil, in which
	// case each node's plain Name is used.
	ArtifactNames map[*model.ModuleNode]string
	Chain         *llmclient.FallbackChain
	Logger        *logging.Logger
}

// Runtime executes one agent invocation against a single module node.
type Runtime struct {
	Deps   SharedDependencies
	Node   *model.ModuleNode
	Editor *Editor
}

// NewRuntime builds a Runtime for node, wiring a fresh Editor against
// the shared edit history.
func NewRuntime(deps SharedDependencies, node *model.ModuleNode) *Runtime {
	return &Runtime{
		Deps: deps,
		Node: node,
		Editor: &Editor{
			RepoRoot: deps.RepoRoot,
			DocsDir:  deps.DocsDir,
			History:  deps.History,
		},
	}
}

// docName is the artifact base name for node: the tree-wide
// disambiguated name when the orchestrator supplied one, the node's
// own name otherwise.
func (rt *Runtime) docName(node *model.ModuleNode) string {
	if name, ok := rt.Deps.ArtifactNames[node]; ok {
		return name
	}
	return node.Name
}

// outputPath is the artifact this runtime's invocation is responsible for.
func (rt *Runtime) outputPath() string {
	return filepath.Join(rt.Deps.DocsDir, rt.docName(rt.Node)+".md")
}

// isComplex reports whether node's components span more than one
// file, determining the agent variant and its tool set.
func isComplex(node *model.ModuleNode, reg *graph.Registry) bool {
	files := make(map[string]bool)
	for _, id := range node.Components {
		if c, ok := reg.Get(id); ok {
			files[c.RelativePath] = true
		}
	}
	return len(files) > 1
}

// Run executes the agent loop for rt.Node, skipping entirely if the
// expected output artifact already exists (idempotent resume).
func (rt *Runtime) Run(ctx context.Context) error {
	if _, err := os.Stat(rt.outputPath()); err == nil {
		rt.logInfo("documentation already exists, skipping", nil)
		return nil
	}

	complex := isComplex(rt.Node, rt.Deps.Registry)
	systemPrompt := buildSystemPrompt(promptContext{
		ModuleName:         rt.Node.Name,
		DocName:            rt.docName(rt.Node),
		Complex:            complex,
		DocType:            rt.Deps.DocType,
		FocusModules:       rt.Deps.FocusModules,
		CustomInstructions: rt.Deps.CustomInstructions,
	})
	userPrompt := buildUserPrompt(rt.Node.Name, rt.Node.Components, rt.Deps.Registry, rt.Deps.ModuleTree)

	tools := []llmclient.ToolSpec{readCodeComponentsSpec(), strReplaceEditorSpec()}
	if complex {
		tools = append(tools, generateSubModuleDocumentationSpec())
	}

	messages := []llmclient.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}

	for turn := 0; turn < maxToolTurns; turn++ {
		msg, modelUsed, err := rt.Deps.Chain.Complete(ctx, messages, tools, rt.Deps.Budgets.MaxOutputTokens)
		if err != nil {
			return errors.Wrap(errors.ModelFatal, "agent invocation failed for module "+rt.Node.Name, err)
		}
		messages = append(messages, msg)

		if len(msg.ToolCalls) == 0 {
			rt.logInfo("agent finished without further tool calls", map[string]any{"model": modelUsed})
			return nil
		}

		for _, tc := range msg.ToolCalls {
			result := rt.dispatchTool(ctx, tc)
			messages = append(messages, llmclient.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	rt.logWarn("agent reached the tool-turn cap without a natural stop", map[string]any{"module": rt.Node.Name, "maxToolTurns": maxToolTurns})
	return nil
}

func (rt *Runtime) dispatchTool(ctx context.Context, tc llmclient.ToolCall) string {
	switch tc.Function.Name {
	case toolReadCodeComponents:
		return rt.readCodeComponents(tc.Function.Arguments)
	case toolStrReplaceEditor:
		return rt.executeEditor(tc.Function.Arguments)
	case toolGenerateSubModuleDocs:
		return rt.generateSubModuleDocumentation(ctx, tc.Function.Arguments)
	default:
		return "error: unknown tool " + tc.Function.Name
	}
}

func (rt *Runtime) executeEditor(argsJSON string) string {
	var in EditorInput
	if err := json.Unmarshal([]byte(argsJSON), &in); err != nil {
		return "error: malformed arguments for " + toolStrReplaceEditor
	}
	result, err := rt.Editor.Execute(in)
	if err != nil {
		return "error: " + err.Error()
	}
	return result
}

// docInlineMessage is returned by generate_sub_module_documentation
// when recursion is not warranted, instructing the calling agent to
// document the child module directly inside its own Markdown file.
const docInlineMessage = "Document this sub-module inline within the current file rather than delegating to a sub-agent."

func (rt *Runtime) generateSubModuleDocumentation(ctx context.Context, argsJSON string) string {
	var args subModuleArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "error: malformed arguments for " + toolGenerateSubModuleDocs
	}

	child, ok := rt.Node.Children[args.ChildModuleName]
	if !ok {
		return fmt.Sprintf("error: %q is not a child of %q", args.ChildModuleName, rt.Node.Name)
	}

	eligible := rt.Deps.CurrentDepth < rt.Deps.MaxDepth &&
		isComplex(child, rt.Deps.Registry) &&
		estimateComponentTokens(child.AllComponents(), rt.Deps.Registry) > rt.Deps.Budgets.MaxTokensPerLeafModule

	if !eligible {
		return docInlineMessage
	}

	childDeps := rt.Deps
	childDeps.CurrentDepth = rt.Deps.CurrentDepth + 1
	childRuntime := NewRuntime(childDeps, child)
	if err := childRuntime.Run(ctx); err != nil {
		return "error: sub-agent failed for " + args.ChildModuleName + ": " + err.Error()
	}
	return "generated documentation for sub-module " + args.ChildModuleName
}

func estimateComponentTokens(ids []string, reg *graph.Registry) int {
	sort.Strings(ids)
	total := 0
	for _, id := range ids {
		if c, ok := reg.Get(id); ok {
			total += llmclient.EstimateTokens(c.SourceCode)
		}
	}
	return total
}

func (rt *Runtime) logInfo(message string, fields map[string]any) {
	if rt.Deps.Logger != nil {
		rt.Deps.Logger.Info(message, fields)
	}
}

func (rt *Runtime) logWarn(message string, fields map[string]any) {
	if rt.Deps.Logger != nil {
		rt.Deps.Logger.Warn(message, fields)
	}
}
