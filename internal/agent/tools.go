package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"codedoc/internal/llmclient"
)

const (
	toolReadCodeComponents    = "read_code_components"
	toolStrReplaceEditor      = "str_replace_editor"
	toolGenerateSubModuleDocs = "generate_sub_module_documentation"
)

func readCodeComponentsSpec() llmclient.ToolSpec {
	return llmclient.ToolSpec{
		Type: "function",
		Function: llmclient.ToolFuncSpec{
			Name:        toolReadCodeComponents,
			Description: "Return the source code of the given component ids, concatenated with path/line headers. Unknown ids are reported inline rather than failing the call.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"component_ids": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string"},
					},
				},
				"required": []string{"component_ids"},
			},
		},
	}
}

func strReplaceEditorSpec() llmclient.ToolSpec {
	return llmclient.ToolSpec{
		Type: "function",
		Function: llmclient.ToolFuncSpec{
			Name:        toolStrReplaceEditor,
			Description: "A stateful file editor. Commands: view, create, str_replace, insert, undo_edit. Only 'view' is permitted on paths under the repository root; all commands are permitted under the documentation output directory.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command":          map[string]any{"type": "string", "enum": []string{"view", "create", "str_replace", "insert", "undo_edit"}},
					"path":             map[string]any{"type": "string"},
					"file_text":        map[string]any{"type": "string"},
					"old_str":          map[string]any{"type": "string"},
					"new_str":          map[string]any{"type": "string"},
					"insert_line":      map[string]any{"type": "integer"},
					"insert_text":      map[string]any{"type": "string"},
					"view_range_start": map[string]any{"type": "integer"},
					"view_range_end":   map[string]any{"type": "integer"},
				},
				"required": []string{"command", "path"},
			},
		},
	}
}

func generateSubModuleDocumentationSpec() llmclient.ToolSpec {
	return llmclient.ToolSpec{
		Type: "function",
		Function: llmclient.ToolFuncSpec{
			Name:        toolGenerateSubModuleDocs,
			Description: "Generate documentation for a named child module, recursing into a sub-agent when the child is complex and oversized; otherwise instructs inline documentation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"child_module_name": map[string]any{"type": "string"},
				},
				"required": []string{"child_module_name"},
			},
		},
	}
}

// readCodeComponentsArgs and subModuleArgs are decoded from a ToolCall's
// JSON-encoded Function.Arguments.
type readCodeComponentsArgs struct {
	ComponentIDs []string `json:"component_ids"`
}

type subModuleArgs struct {
	ChildModuleName string `json:"child_module_name"`
}

// readCodeComponents concatenates each requested component's source
// with a path/line header; unknown ids produce an inline error marker
// rather than failing the whole call.
func (rt *Runtime) readCodeComponents(argsJSON string) string {
	var args readCodeComponentsArgs
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "error: malformed arguments for " + toolReadCodeComponents
	}

	var b strings.Builder
	for _, id := range args.ComponentIDs {
		c, ok := rt.Deps.Registry.Get(id)
		if !ok {
			fmt.Fprintf(&b, "# %s\nError: component not found\n\n", id)
			continue
		}
		fmt.Fprintf(&b, "# %s (%s:%d-%d)\n%s\n\n", id, c.RelativePath, c.StartLine, c.EndLine, c.SourceCode)
	}
	return b.String()
}
