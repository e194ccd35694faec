package llmclient

import (
	"encoding/json"
	"strings"
)

// FixStringifiedJSONArrays repairs tool-call arguments where a model
// returned a JSON array encoded as a string, e.g. {"view_range":
// "[1, 100]"} instead of {"view_range": [1, 100]}. Malformed or
// non-object input is returned unchanged rather than erroring.
func FixStringifiedJSONArrays(argsJSON string) string {
	if argsJSON == "" {
		return argsJSON
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return argsJSON
	}

	modified := false
	for key, value := range args {
		str, ok := value.(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(str)
		if !strings.HasPrefix(trimmed, "[") || !strings.HasSuffix(trimmed, "]") {
			continue
		}
		var parsed []any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			continue
		}
		args[key] = parsed
		modified = true
	}

	if !modified {
		return argsJSON
	}
	fixed, err := json.Marshal(args)
	if err != nil {
		return argsJSON
	}
	return string(fixed)
}
