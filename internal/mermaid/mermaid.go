// Package mermaid extracts Mermaid code fences from Markdown text and
// validates their contents with a dual-parser strategy: a strict
// structural parser recognizes the well-known diagram grammars, and a
// permissive fallback parser accepts anything with a recognized
// diagram header and balanced brackets/quotes. A diagram is invalid
// only when both parsers reject it.
package mermaid

import (
	"fmt"
	"regexp"
	"strings"

	"codedoc/internal/errors"
)

// Diagram is a single fenced Mermaid block extracted from Markdown.
type Diagram struct {
	Index      int // 1-based position among diagrams in the document
	SourceLine int // line number of the opening fence, 1-based
	Content    string
}

var fenceRE = regexp.MustCompile("(?s)```mermaid\\s*\\n(.*?)```")

// Extract returns every fenced ```mermaid block in markdown, in
// document order, with the 1-based line number of each opening fence.
func Extract(markdown string) []Diagram {
	lines := strings.Split(markdown, "\n")
	lineOffsets := make([]int, 0, len(lines)+1)
	offset := 0
	for _, l := range lines {
		lineOffsets = append(lineOffsets, offset)
		offset += len(l) + 1
	}

	matches := fenceRE.FindAllStringSubmatchIndex(markdown, -1)
	diagrams := make([]Diagram, 0, len(matches))
	for i, m := range matches {
		start := m[0]
		lineNum := 1
		for j, lo := range lineOffsets {
			if lo > start {
				break
			}
			lineNum = j + 1
		}
		content := markdown[m[2]:m[3]]
		diagrams = append(diagrams, Diagram{
			Index:      i + 1,
			SourceLine: lineNum,
			Content:    strings.TrimRight(content, "\n"),
		})
	}
	return diagrams
}

var recognizedHeaders = []string{
	"graph ", "graph\t", "flowchart ", "flowchart\t",
	"sequenceDiagram", "classDiagram", "stateDiagram", "stateDiagram-v2",
	"erDiagram", "gantt", "pie", "journey", "mindmap", "gitGraph",
}

// ValidationError names which diagram (by 1-based index and source
// line) failed both parsers and why.
type ValidationError struct {
	Diagram int
	Line    int
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("diagram %d (line %d): %s", e.Diagram, e.Line, e.Reason)
}

// ValidateAll parses every diagram in markdown and returns one
// errors.CodeDocError (errors.MermaidInvalid) per failing diagram.
// Diagrams that parse under either the strict or permissive parser are
// not reported.
func ValidateAll(markdown string) []error {
	var failures []error
	for _, d := range Extract(markdown) {
		if err := Validate(d.Content); err != nil {
			failures = append(failures, errors.Wrap(errors.MermaidInvalid,
				fmt.Sprintf("diagram %d at line %d failed validation", d.Index, d.SourceLine), err).
				WithDetails(map[string]any{"diagram": d.Index, "line": d.SourceLine}))
		}
	}
	return failures
}

// Validate tries the strict parser first, falling back to the
// permissive parser on failure. Only if both reject the content is it
// considered invalid.
func Validate(content string) error {
	if err := parseStrict(content); err == nil {
		return nil
	}
	return parsePermissive(content)
}

// parseStrict recognizes graph/flowchart/sequenceDiagram/classDiagram
// grammars by leading keyword and walks their body line by line,
// rejecting statements that don't match the expected shape for that
// diagram type.
func parseStrict(content string) error {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 {
		return fmt.Errorf("empty diagram")
	}
	header := strings.TrimSpace(lines[0])

	switch {
	case strings.HasPrefix(header, "graph ") || strings.HasPrefix(header, "flowchart "):
		return parseGraphBody(lines[1:])
	case header == "sequenceDiagram":
		return parseSequenceBody(lines[1:])
	case header == "classDiagram":
		return parseClassBody(lines[1:])
	default:
		return fmt.Errorf("unrecognized strict diagram header %q", header)
	}
}

var nodeEdgeRE = regexp.MustCompile(`^[A-Za-z0-9_]+(\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\})?\s*(-->|---|-\.->|==>)\s*[A-Za-z0-9_]+(\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\})?$`)
var bareNodeRE = regexp.MustCompile(`^[A-Za-z0-9_]+(\[[^\[\]]*\]|\([^()]*\)|\{[^{}]*\})?$`)

func parseGraphBody(lines []string) error {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if nodeEdgeRE.MatchString(line) || bareNodeRE.MatchString(line) {
			continue
		}
		if strings.Contains(line, "subgraph") || line == "end" {
			continue
		}
		if !balanced(line) {
			return fmt.Errorf("unbalanced brackets/quotes in %q", line)
		}
		return fmt.Errorf("malformed graph statement %q", line)
	}
	return nil
}

var sequenceLineRE = regexp.MustCompile(`^[A-Za-z0-9_ ]+(->>|-->>|->|-->)\s*[A-Za-z0-9_ ]+:\s*.+$`)

func parseSequenceBody(lines []string) error {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if strings.HasPrefix(line, "participant ") || strings.HasPrefix(line, "Note ") ||
			line == "end" || strings.HasPrefix(line, "loop ") || strings.HasPrefix(line, "alt ") ||
			strings.HasPrefix(line, "else") || strings.HasPrefix(line, "activate ") ||
			strings.HasPrefix(line, "deactivate ") {
			continue
		}
		if sequenceLineRE.MatchString(line) {
			continue
		}
		if !balanced(line) {
			return fmt.Errorf("unbalanced brackets/quotes in %q", line)
		}
		return fmt.Errorf("malformed sequence statement %q", line)
	}
	return nil
}

func parseClassBody(lines []string) error {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if !balanced(line) {
			return fmt.Errorf("unbalanced brackets/quotes in %q", line)
		}
	}
	return nil
}

// parsePermissive only checks that the content opens with a recognized
// diagram header and that brackets/quotes balance across the whole
// body, catching diagrams the strict parser rejects on cosmetic
// grounds (unusual but legal arrow styles, vendor extensions, etc.).
func parsePermissive(content string) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return fmt.Errorf("empty diagram")
	}
	lines := strings.SplitN(trimmed, "\n", 2)
	header := strings.TrimSpace(lines[0])

	recognized := false
	for _, h := range recognizedHeaders {
		if strings.HasPrefix(header, h) || header == strings.TrimSpace(h) {
			recognized = true
			break
		}
	}
	if !recognized {
		return fmt.Errorf("no recognized diagram header in %q", header)
	}
	if !balanced(trimmed) {
		return fmt.Errorf("unbalanced brackets/quotes in diagram body")
	}
	return nil
}

// balanced reports whether square, round, and curly brackets and
// double quotes are each balanced in s.
func balanced(s string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	inQuote := false
	for _, r := range s {
		if r == '"' {
			inQuote = !inQuote
			continue
		}
		if inQuote {
			continue
		}
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0 && !inQuote
}
