package agent

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"codedoc/internal/errors"
	"codedoc/internal/mermaid"
	"codedoc/internal/model"
	"codedoc/internal/paths"
)

// Editor is the stateful file editor exposed as the str_replace_editor
// tool. It enforces the two-root scope invariant: the repository root
// is view-only, the documentation directory is fully writable, and any
// path resolving outside both (including via a symlink) is rejected.
// Patterned after a well-known agent text-editor tool contract.
type Editor struct {
	RepoRoot string
	DocsDir  string
	History  *model.EditHistory
}

// EditorInput is the decoded argument set for one str_replace_editor call.
type EditorInput struct {
	Command    string `json:"command"`
	Path       string `json:"path"`
	FileText   string `json:"file_text,omitempty"`
	OldStr     string `json:"old_str,omitempty"`
	NewStr     string `json:"new_str,omitempty"`
	InsertLine int    `json:"insert_line,omitempty"`
	InsertText string `json:"insert_text,omitempty"`
	ViewStart  int    `json:"view_range_start,omitempty"`
	ViewEnd    int    `json:"view_range_end,omitempty"`
}

// Execute dispatches in to the named command, enforcing the scope
// invariant before any filesystem access.
func (e *Editor) Execute(in EditorInput) (string, error) {
	underRepo := paths.IsWithin(in.Path, e.RepoRoot)
	underDocs := paths.IsWithin(in.Path, e.DocsDir)

	if !underRepo && !underDocs {
		return "", errors.New(errors.ToolViolation, "path escapes the repository root and documentation directory").
			WithDetails(map[string]any{"path": in.Path})
	}
	if underRepo && !underDocs && in.Command != "view" {
		return "", errors.New(errors.ToolViolation, "only 'view' is permitted on paths under the repository root").
			WithDetails(map[string]any{"path": in.Path, "command": in.Command})
	}

	switch in.Command {
	case "view":
		return e.view(in)
	case "create":
		return e.create(in)
	case "str_replace":
		return e.strReplace(in)
	case "insert":
		return e.insert(in)
	case "undo_edit":
		return e.undoEdit(in)
	default:
		return "", errors.New(errors.ToolViolation, "unrecognized editor command "+in.Command)
	}
}

func (e *Editor) view(in EditorInput) (string, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot stat path", err)
	}

	if info.IsDir() {
		entries, err := os.ReadDir(in.Path)
		if err != nil {
			return "", errors.Wrap(errors.ToolViolation, "cannot list directory", err)
		}
		names := make([]string, 0, len(entries))
		for _, en := range entries {
			name := en.Name()
			if en.IsDir() {
				name += "/"
			}
			names = append(names, name)
		}
		sort.Strings(names)
		return strings.Join(names, "\n"), nil
	}

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot read file", err)
	}
	content := string(data)
	if in.ViewStart <= 0 && in.ViewEnd <= 0 {
		return content, nil
	}
	lines := strings.Split(content, "\n")
	start := in.ViewStart
	if start < 1 {
		start = 1
	}
	end := in.ViewEnd
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", errors.New(errors.ToolViolation, "view range start exceeds end")
	}
	var b strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&b, "%d\t%s\n", i, lines[i-1])
	}
	return b.String(), nil
}

func (e *Editor) create(in EditorInput) (string, error) {
	if _, err := os.Stat(in.Path); err == nil {
		return "", errors.New(errors.ToolViolation, "file already exists: "+in.Path)
	}
	if err := os.WriteFile(in.Path, []byte(in.FileText), 0o644); err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot create file", err)
	}
	e.History.Push(in.Path, "")
	return "created " + in.Path + e.validationSuffix(in.Path, in.FileText), nil
}

func (e *Editor) strReplace(in EditorInput) (string, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot read file", err)
	}
	content := string(data)
	count := strings.Count(content, in.OldStr)
	if count == 0 {
		return "", errors.New(errors.ToolViolation, "old_str not found in "+in.Path)
	}
	if count > 1 {
		return "", errors.New(errors.ToolViolation, fmt.Sprintf("old_str occurs %d times in %s, must be unique", count, in.Path)).
			WithDetails(map[string]any{"lines": matchLines(content, in.OldStr)})
	}

	updated := strings.Replace(content, in.OldStr, in.NewStr, 1)
	e.History.Push(in.Path, content)
	if err := os.WriteFile(in.Path, []byte(updated), 0o644); err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot write file", err)
	}
	return "replaced 1 occurrence in " + in.Path + e.validationSuffix(in.Path, updated), nil
}

func (e *Editor) insert(in EditorInput) (string, error) {
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot read file", err)
	}
	content := string(data)
	lines := strings.Split(content, "\n")
	if in.InsertLine < 0 || in.InsertLine > len(lines) {
		return "", errors.New(errors.ToolViolation, "insert_line out of range for "+in.Path)
	}

	newLines := make([]string, 0, len(lines)+1)
	newLines = append(newLines, lines[:in.InsertLine]...)
	newLines = append(newLines, in.InsertText)
	newLines = append(newLines, lines[in.InsertLine:]...)
	updated := strings.Join(newLines, "\n")

	e.History.Push(in.Path, content)
	if err := os.WriteFile(in.Path, []byte(updated), 0o644); err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot write file", err)
	}
	return "inserted text after line " + strconv.Itoa(in.InsertLine) + " in " + in.Path + e.validationSuffix(in.Path, updated), nil
}

func (e *Editor) undoEdit(in EditorInput) (string, error) {
	prior, ok := e.History.Pop(in.Path)
	if !ok {
		return "", errors.New(errors.ToolViolation, "no prior edit recorded for "+in.Path)
	}
	if err := os.WriteFile(in.Path, []byte(prior), 0o644); err != nil {
		return "", errors.Wrap(errors.ToolViolation, "cannot write file", err)
	}
	return "reverted " + in.Path + " to its previous content", nil
}

// validationSuffix extracts and validates Mermaid fences in content
// when path is a Markdown file, appending a diagnostic block the agent
// can act on. Validation failures are reported in the tool-result
// text, never raised as errors.
func (e *Editor) validationSuffix(path, content string) string {
	if !strings.HasSuffix(strings.ToLower(path), ".md") {
		return ""
	}
	failures := mermaid.ValidateAll(content)
	if len(failures) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n<MERMAID_VALIDATION_ERRORS>\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "- %s\n", f.Error())
	}
	b.WriteString("</MERMAID_VALIDATION_ERRORS>")
	return b.String()
}

func matchLines(content, needle string) []int {
	var lines []int
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, needle) {
			lines = append(lines, i+1)
		}
	}
	return lines
}
