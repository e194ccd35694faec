// Package extract implements the Component Extractor: per-language
// parsing strategies that turn source text into model.Component and
// model.CallEdge records.
package extract

import (
	"context"
	"strings"

	"codedoc/internal/model"
)

// Language is the extractor's dispatch tag, derived from file extension.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangPHP        Language = "php"
	LangGo         Language = "go"
	LangVue        Language = "vue"
)

// extensionLanguage maps a lowercase file extension to its Language tag.
var extensionLanguage = map[string]Language{
	".py":   LangPython,
	".js":   LangJavaScript,
	".jsx":  LangJavaScript,
	".mjs":  LangJavaScript,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".java": LangJava,
	".cs":   LangCSharp,
	".c":    LangC,
	".h":    LangC,
	".cc":   LangCPP,
	".cpp":  LangCPP,
	".cxx":  LangCPP,
	".hpp":  LangCPP,
	".php":  LangPHP,
	".go":   LangGo,
	".vue":  LangVue,
}

// LanguageForPath returns the Language dispatch tag for path's
// extension, and false if the extension is unsupported.
func LanguageForPath(path string) (Language, bool) {
	ext := strings.ToLower(extOf(path))
	lang, ok := extensionLanguage[ext]
	return lang, ok
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

// Result is a single file's extraction output.
type Result struct {
	Components []model.Component
	Edges      []model.CallEdge
}

// Strategy is the per-language extraction contract: given a file's
// content, it returns components and (possibly unresolved) call
// edges. Strategies never raise on syntactic error; they return
// whatever was parsed, without logging, and a parse that fails
// outright yields an empty Result and a nil error.
type Strategy interface {
	Extract(ctx context.Context, absPath, relPath string, source []byte) (Result, error)
}

// Dispatch builds a fresh Strategy for lang. Strategies hold no
// parser state: each Extract call creates its own tree-sitter parser.
func Dispatch(lang Language) (Strategy, bool) {
	switch lang {
	case LangGo:
		return &goStrategy{}, true
	case LangPython:
		return &pythonStrategy{}, true
	case LangJavaScript:
		return newTSStrategy(LangJavaScript), true
	case LangTypeScript:
		return newTSStrategy(LangTypeScript), true
	case LangJava:
		return &javaStrategy{}, true
	case LangCSharp:
		return &csharpStrategy{}, true
	case LangC:
		return &cStrategy{}, true
	case LangCPP:
		return &cppStrategy{}, true
	case LangPHP:
		return &phpStrategy{}, true
	case LangVue:
		return &vueStrategy{}, true
	default:
		return nil, false
	}
}

// ComponentID derives the stable id "<dotted_module_path>.<name>" (or
// "<dotted_module_path>.<class>.<method>" for members) from a file's
// repository-relative path and symbol name.
func ComponentID(relPath string, enclosing, name string) string {
	modulePath := relPath
	if i := strings.LastIndexByte(modulePath, '.'); i >= 0 {
		modulePath = modulePath[:i]
	}
	modulePath = strings.ReplaceAll(modulePath, "/", ".")
	modulePath = strings.ReplaceAll(modulePath, "\\", ".")
	if enclosing != "" {
		return modulePath + "." + enclosing + "." + name
	}
	return modulePath + "." + name
}
