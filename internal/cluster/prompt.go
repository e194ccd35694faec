package cluster

import (
	"fmt"
	"sort"
	"strings"

	"codedoc/internal/graph"
	"codedoc/internal/model"
)

// formatPotentialCoreComponents renders ids grouped by file, with and
// without embedded source. The "with code" variant is what the
// token-budget check is measured against; the plain variant is what
// is actually sent in the clustering prompt. Files listed in skipCode
// (unchanged since the prior run, per the incremental cache)
// contribute only their component ids to the with-code variant.
func formatPotentialCoreComponents(ids []string, reg *graph.Registry, g model.DependencyGraph, skipCode map[string]bool) (plain string, withCode string) {
	byFile := make(map[string][]string)
	var valid []string
	for _, id := range ids {
		c, ok := reg.Get(id)
		if !ok {
			continue
		}
		byFile[c.RelativePath] = append(byFile[c.RelativePath], id)
		valid = append(valid, id)
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	var plainB, codeB strings.Builder
	for _, f := range files {
		members := byFile[f]
		sort.Strings(members)
		fmt.Fprintf(&plainB, "# %s\n", f)
		fmt.Fprintf(&codeB, "# %s\n", f)
		for _, id := range members {
			c, _ := reg.Get(id)
			fmt.Fprintf(&plainB, "\t%s\n", id)
			if skipCode[f] {
				fmt.Fprintf(&codeB, "\t%s\n", id)
			} else {
				fmt.Fprintf(&codeB, "\t%s\n%s\n", id, c.SourceCode)
			}
		}
	}

	if communities := communityHint(valid, g); hasMultiMember(communities) {
		plainB.WriteString("\n# Algorithm-detected community groupings (hints):\n")
		grouped := make(map[int][]string)
		for id, cid := range communities {
			grouped[cid] = append(grouped[cid], id)
		}
		var cids []int
		for cid := range grouped {
			cids = append(cids, cid)
		}
		sort.Ints(cids)
		for _, cid := range cids {
			members := grouped[cid]
			if len(members) < 2 {
				continue
			}
			sort.Strings(members)
			fmt.Fprintf(&plainB, "# Community %d: %s\n", cid, strings.Join(members, ", "))
		}
	}

	return plainB.String(), codeB.String()
}

func hasMultiMember(communities map[string]int) bool {
	counts := make(map[int]int)
	for _, cid := range communities {
		counts[cid]++
	}
	for _, n := range counts {
		if n > 1 {
			return true
		}
	}
	return false
}

// formatModuleTreeLines renders the tree sibling context shown to the
// model when clustering a non-root level.
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

const clusterRepoPromptTemplate = `Here is list of all potential core components of the repository (It's normal that some components are not essential to the repository):
<POTENTIAL_CORE_COMPONENTS>
%s
</POTENTIAL_CORE_COMPONENTS>

Please group the components into groups such that each group is a set of components that are closely related to each other and together they form a module. DO NOT include components that are not essential to the repository.
Note: Algorithm-detected community groupings may be provided as comments in the component list. You may use them as a starting point but are free to adjust groupings based on your analysis.
Firstly reason about the components and then group them and return the result in the following format:
<GROUPED_COMPONENTS>
{
    "module_name_1": {
        "path": "<path_to_the_module_1>",
        "components": ["<component_id_1>", "<component_id_2>"]
    }
}
</GROUPED_COMPONENTS>`

const clusterModulePromptTemplate = `Here is the module tree of a repository:

<MODULE_TREE>
%s
</MODULE_TREE>

Here is list of all potential core components of the module %s (It's normal that some components are not essential to the module):
<POTENTIAL_CORE_COMPONENTS>
%s
</POTENTIAL_CORE_COMPONENTS>

Please group the components into groups such that each group is a set of components that are closely related to each other and together they form a smaller module. DO NOT include components that are not essential to the module.
Note: Algorithm-detected community groupings may be provided as comments in the component list. You may use them as a starting point but are free to adjust groupings based on your analysis.

Firstly reason based on given context and then group them and return the result in the following format:
<GROUPED_COMPONENTS>
{
    "module_name_1": {
        "path": "<path_to_the_module_1>",
        "components": ["<component_id_1>", "<component_id_2>"]
    }
}
</GROUPED_COMPONENTS>`

// buildClusterPrompt selects the repo-level or module-level template
// depending on whether any partitioning has happened yet.
func buildClusterPrompt(potentialCoreComponents string, root *model.ModuleNode, currentName string) string {
	if root == nil || len(root.Children) == 0 {
		return fmt.Sprintf(clusterRepoPromptTemplate, potentialCoreComponents)
	}
	treeLines := formatModuleTreeLines(root, currentName, 0)
	return fmt.Sprintf(clusterModulePromptTemplate, strings.Join(treeLines, "\n"), currentName, potentialCoreComponents)
}
