// Package cluster implements the hierarchical clusterer: a
// token-budgeted, recursive partition of the leaf component set into
// a named ModuleNode tree, driven by an external language model.
package cluster

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"codedoc/internal/errors"
	"codedoc/internal/graph"
	"codedoc/internal/llmclient"
	"codedoc/internal/logging"
	"codedoc/internal/model"
)

const miscellaneousName = "Miscellaneous"

// Clusterer drives the recursive partitioning. It is stateless
// across invocations; the registry and dependency graph it is given
// are read-only.
type Clusterer struct {
	Chain   *llmclient.FallbackChain
	Logger  *logging.Logger
	Budgets model.TokenBudgets
	// UnchangedFiles lists relative paths the incremental-analysis
	// cache reported unchanged since the prior run; their source is
	// left out of the with-code token measure. Nil disables the
	// optimization entirely.
	UnchangedFiles map[string]bool
}

// Build partitions leafIDs into a ModuleNode tree rooted at "root".
func (c *Clusterer) Build(ctx context.Context, reg *graph.Registry, g model.DependencyGraph, leafIDs []string) (*model.ModuleNode, error) {
	sorted := append([]string(nil), leafIDs...)
	sort.Strings(sorted)
	return c.clusterNode(ctx, "root", nil, sorted, reg, g, nil, 0)
}

// clusterNode implements one recursive step: emit a leaf ModuleNode if
// ids fit the budget (or the depth cap is reached), otherwise invoke
// the model and recurse into the validated partition.
func (c *Clusterer) clusterNode(ctx context.Context, name string, path []string, ids []string, reg *graph.Registry, g model.DependencyGraph, root *model.ModuleNode, depth int) (*model.ModuleNode, error) {
	node := model.NewModuleNode(name, append(path, name))
	if root == nil {
		root = node
	}

	if depth >= c.Budgets.MaxRecursionDepth {
		node.Components = ids
		return node, nil
	}

	plain, withCode := formatPotentialCoreComponents(ids, reg, g, c.UnchangedFiles)
	if llmclient.EstimateTokens(withCode) <= c.Budgets.MaxTokensPerModule {
		node.Components = ids
		return node, nil
	}

	prompt := buildClusterPrompt(plain, root, name)
	msg, _, err := c.Chain.Complete(ctx, []llmclient.Message{{Role: "user", Content: prompt}}, nil, c.Budgets.MaxOutputTokens)
	if err != nil {
		c.warn("clustering model call failed, emitting single leaf module", name, err)
		node.Components = ids
		return node, nil
	}

	grouped, ok := parseGroupedComponents(msg.Content)
	if !ok || len(grouped) == 0 {
		c.warn("clustering response malformed or empty, emitting single leaf module", name, nil)
		node.Components = ids
		return node, nil
	}

	names := make([]string, 0, len(grouped))
	for k := range grouped {
		names = append(names, k)
	}
	sort.Strings(names)

	validIDs := make(map[string]bool, len(ids))
	for _, id := range ids {
		validIDs[id] = true
	}

	assigned := make(map[string]bool, len(ids))
	node.Children = make(map[string]*model.ModuleNode)
	for _, modName := range names {
		info := grouped[modName]
		var subIDs []string
		for _, id := range info.Components {
			if !validIDs[id] {
				c.warn("dropping unknown id from clustering response for module "+modName, name, nil)
				continue
			}
			if assigned[id] {
				c.warn("dropping id already assigned to another module at this level: "+id, name, nil)
				continue
			}
			assigned[id] = true
			subIDs = append(subIDs, id)
		}
		if len(subIDs) == 0 {
			continue
		}
		sort.Strings(subIDs)

		child, err := c.clusterNode(ctx, modName, append(append([]string(nil), path...), name), subIDs, reg, g, root, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children[modName] = child
	}

	var leftover []string
	for _, id := range ids {
		if !assigned[id] {
			leftover = append(leftover, id)
		}
	}
	if len(leftover) > 0 {
		sort.Strings(leftover)
		misc, err := c.clusterNode(ctx, miscellaneousName, append(append([]string(nil), path...), name), leftover, reg, g, root, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children[miscellaneousName] = misc
	}

	return node, nil
}

func (c *Clusterer) warn(message, moduleName string, err error) {
	if c.Logger == nil {
		return
	}
	fields := map[string]any{"module": moduleName}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.Logger.Warn(message, fields)
}

type groupedModuleInfo struct {
	Path       string   `json:"path,omitempty"`
	Components []string `json:"components"`
}

// parseGroupedComponents extracts and decodes the sentinel-delimited
// JSON object the clustering model is instructed to return.
func parseGroupedComponents(response string) (map[string]groupedModuleInfo, bool) {
	const openTag, closeTag = "<GROUPED_COMPONENTS>", "</GROUPED_COMPONENTS>"
	start := strings.Index(response, openTag)
	end := strings.Index(response, closeTag)
	if start < 0 || end < 0 || end < start {
		return nil, false
	}
	body := response[start+len(openTag) : end]

	var raw map[string]groupedModuleInfo
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, false
	}
	return raw, true
}

// ClusterMalformedError wraps a parse failure for callers that want to
// surface it as an errors.CodeDocError rather than silently degrade.
func ClusterMalformedError(moduleName string, cause error) error {
	return errors.Wrap(errors.ClusterMalformed, "clustering response malformed for module "+moduleName, cause)
}
