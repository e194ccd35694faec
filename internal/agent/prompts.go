package agent

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"codedoc/internal/graph"
	"codedoc/internal/model"
)

const systemPromptTemplate = `<ROLE>
You are an AI documentation assistant. Your task is to generate comprehensive system documentation for the %s module and its core code components.
</ROLE>

<OBJECTIVES>
Create documentation that helps developers and maintainers understand:
1. The module's purpose and core functionality
2. Architecture and component relationships
3. How the module fits into the overall system
</OBJECTIVES>

<DOCUMENTATION_STRUCTURE>
1. Main documentation file (%s.md): introduction, architecture overview with diagrams, high-level functionality of each sub-module with links to its documentation file.
2. Sub-module documentation, when applicable: one file per sub-module, detailing its core components and responsibilities.
3. Visual documentation: Mermaid diagrams for architecture, dependencies, and data flow.
</DOCUMENTATION_STRUCTURE>

<WORKFLOW>
1. Analyze the provided code components and module structure; explore dependencies not already given if needed.
2. Create the main %s.md file with an overview and architecture section.
3. Use generate_sub_module_documentation for complex sub-modules spanning more than one file.
4. Include relevant Mermaid diagrams throughout the documentation.
5. After all sub-modules are documented, make exactly one pass over %s.md to cross-reference the generated files.
</WORKFLOW>

<AVAILABLE_TOOLS>
- str_replace_editor: file system operations for creating and editing documentation files
- read_code_components: explore additional code dependencies not included in the provided components
- generate_sub_module_documentation: generate detailed documentation for individual sub-modules via sub-agents
</AVAILABLE_TOOLS>
%s`

const leafSystemPromptTemplate = `<ROLE>
You are an AI documentation assistant. Your task is to generate comprehensive system documentation for the %s module and its core code components.
</ROLE>

<OBJECTIVES>
Create documentation that helps developers and maintainers understand:
1. The module's purpose and core functionality
2. Architecture and component relationships
3. How the module fits into the overall system
</OBJECTIVES>

<DOCUMENTATION_REQUIREMENTS>
1. Structure: brief introduction, then comprehensive documentation with Mermaid diagrams.
2. Diagrams: architecture, dependencies, data flow, and component interaction as relevant.
3. References: link to other module documentation instead of duplicating information.
</DOCUMENTATION_REQUIREMENTS>

<WORKFLOW>
1. Analyze the provided code components and module structure.
2. Explore dependencies between components if needed.
3. Generate the complete %s.md documentation file.
</WORKFLOW>

<AVAILABLE_TOOLS>
- str_replace_editor: file system operations for creating and editing documentation files
- read_code_components: explore additional code dependencies not included in the provided components
</AVAILABLE_TOOLS>
%s`

const userPromptTemplate = `Generate comprehensive documentation for the %s module using the provided module tree and core components.

<MODULE_TREE>
%s
</MODULE_TREE>
NOTE: all documentation files are saved in a single flat directory, not structured as the module tree; reference other modules as [module_name](module_name.md).

<CORE_COMPONENT_CODES>
%s
</CORE_COMPONENT_CODES>`

// docTypeParagraphs are the fixed emphasis paragraphs inserted into
// the system prompt per the configured doc type.
var docTypeParagraphs = map[string]string{
	"api":          "Emphasize the public API surface: document exported functions, types, and their contracts, parameters, return values, and error behavior. Usage examples take precedence over internal mechanics.",
	"architecture": "Emphasize architecture: document component boundaries, dependency direction, data flow, and the design decisions behind them. Individual function signatures matter less than how the pieces fit together.",
	"user-guide":   "Emphasize practical usage: write for someone operating or integrating this software, with task-oriented walkthroughs and configuration guidance. Keep internal implementation detail to a minimum.",
	"developer":    "Emphasize maintainer concerns: document internal structure, extension points, invariants, and the places a contributor must understand before changing the code.",
}

// promptContext carries everything the system prompt depends on for
// one agent invocation.
type promptContext struct {
	ModuleName         string
	DocName            string // artifact base name; equals ModuleName unless disambiguated
	Complex            bool
	DocType            string
	FocusModules       []string
	CustomInstructions string
}

// buildSystemPrompt selects the complex or leaf template and appends
// the doc-type emphasis paragraph, focus-module priorities, and any
// caller-supplied custom instructions.
func buildSystemPrompt(pc promptContext) string {
	var extra strings.Builder
	if para, ok := docTypeParagraphs[pc.DocType]; ok {
		extra.WriteString("\n\n<DOCUMENTATION_EMPHASIS>\n" + para + "\n</DOCUMENTATION_EMPHASIS>")
	}
	if len(pc.FocusModules) > 0 {
		extra.WriteString("\n\n<FOCUS_MODULES>\nGive particular depth and priority to these modules when they appear: " + strings.Join(pc.FocusModules, ", ") + "\n</FOCUS_MODULES>")
	}
	if pc.CustomInstructions != "" {
		extra.WriteString("\n\n<CUSTOM_INSTRUCTIONS>\n" + pc.CustomInstructions + "\n</CUSTOM_INSTRUCTIONS>")
	}
	if pc.Complex {
		return fmt.Sprintf(systemPromptTemplate, pc.ModuleName, pc.DocName, pc.DocName, pc.DocName, extra.String())
	}
	return fmt.Sprintf(leafSystemPromptTemplate, pc.ModuleName, pc.DocName, extra.String())
}

// buildUserPrompt formats the module tree and concatenated source of
// every core component grouped by file.
func buildUserPrompt(moduleName string, componentIDs []string, reg *graph.Registry, tree *model.ModuleNode) string {
	treeLines := formatModuleTreeLines(tree, moduleName, 0)

	byFile := make(map[string][]string)
	var files []string
	for _, id := range componentIDs {
		c, ok := reg.Get(id)
		if !ok {
			continue
		}
		if _, seen := byFile[c.RelativePath]; !seen {
			files = append(files, c.RelativePath)
		}
		byFile[c.RelativePath] = append(byFile[c.RelativePath], id)
	}
	sort.Strings(files)

	var code strings.Builder
	for _, f := range files {
		ids := byFile[f]
		fmt.Fprintf(&code, "# File: %s\n\n## Core Components in this file:\n", f)
		for _, id := range ids {
			fmt.Fprintf(&code, "- %s\n", id)
		}
		code.WriteString("\n## File Content:\n```\n")
		if first, ok := reg.Get(ids[0]); ok {
			if data, err := os.ReadFile(first.FilePath); err == nil {
				code.Write(data)
			} else {
				code.WriteString(first.SourceCode)
			}
		}
		code.WriteString("\n```\n\n")
	}

	return fmt.Sprintf(userPromptTemplate, moduleName, strings.Join(treeLines, "\n"), code.String())
}

// formatModuleTreeLines renders the module tree with the current
// module annotated.
func formatModuleTreeLines(node *model.ModuleNode, currentName string, indent int) []string {
	var lines []string
	for _, name := range node.ChildNames() {
		child := node.Children[name]
		label := name
		if name == currentName {
			label += " (current module)"
		}
		lines = append(lines, strings.Repeat("  ", indent)+label)
		if len(child.Components) > 0 {
			lines = append(lines, fmt.Sprintf("%s Core components: %s", strings.Repeat("  ", indent+1), strings.Join(child.Components, ", ")))
		}
		if len(child.Children) > 0 {
			lines = append(lines, strings.Repeat("  ", indent+1)+" Children:")
			lines = append(lines, formatModuleTreeLines(child, currentName, indent+2)...)
		}
	}
	return lines
}
