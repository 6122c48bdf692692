package scanner

import (
	"path/filepath"
	"slices"
	"strings"
)

// Delims is an opening and closing marker pair.
type Delims struct {
	Open, Close string
}

// StringRule describes a string literal whose contents are data and never checked.
type StringRule struct {
	Delim     string
	Escapes   bool // backslash escapes the next byte
	Multiline bool // literal may span lines (raw strings, template literals)
}

// Syntax is the lexical rule set for one family of source languages. It only
// knows enough structure to separate comments, docstrings, string data and
// declared names.
type Syntax struct {
	Name          string
	LineComments  []string
	BlockComments []Delims
	DocStrings    []string // triple-quoted regions checked as prose
	Strings       []StringRule
	Declarations  []string // keywords whose next identifier is a declared name
	// Functions are the declaration keywords whose name is followed by a
	// parameter list.
	Functions []string
	// Modifiers may precede a parameter name and are not names themselves.
	Modifiers []string
	// ReceiverKeyword is a declaration keyword that may be followed by a
	// parenthesised receiver before the name (Go methods).
	ReceiverKeyword string
}

func (s *Syntax) isDeclaration(ident string) bool {
	return slices.Contains(s.Declarations, ident)
}

func (s *Syntax) isFunction(kw string) bool {
	return slices.Contains(s.Functions, kw)
}

func (s *Syntax) isModifier(ident string) bool {
	return slices.Contains(s.Modifiers, ident)
}

var (
	quoted = []StringRule{{Delim: `"`, Escapes: true}, {Delim: `'`, Escapes: true}}

	syntaxPython = &Syntax{
		Name:         "python",
		LineComments: []string{"#"},
		DocStrings:   []string{`"""`, `'''`},
		Strings:      quoted,
		Declarations: []string{"def", "class"},
		Functions:    []string{"def"},
	}
	syntaxGo = &Syntax{
		Name:          "go",
		LineComments:  []string{"//"},
		BlockComments: []Delims{{"/*", "*/"}},
		Strings: []StringRule{
			{Delim: `"`, Escapes: true},
			{Delim: `'`, Escapes: true},
			{Delim: "`", Multiline: true},
		},
		Declarations:    []string{"package", "func", "type", "var", "const"},
		Functions:       []string{"func"},
		ReceiverKeyword: "func",
	}
	syntaxJS = &Syntax{
		Name:          "javascript",
		LineComments:  []string{"//"},
		BlockComments: []Delims{{"/*", "*/"}},
		Strings: []StringRule{
			{Delim: `"`, Escapes: true},
			{Delim: `'`, Escapes: true},
			{Delim: "`", Escapes: true, Multiline: true},
		},
		Declarations: []string{"function", "class", "const", "let", "var", "interface", "type", "enum"},
		Functions:    []string{"function"},
		Modifiers:    []string{"public", "private", "protected", "readonly"},
	}
	syntaxCLike = &Syntax{
		Name:          "c-like",
		LineComments:  []string{"//"},
		BlockComments: []Delims{{"/*", "*/"}},
		Strings:       quoted,
		Declarations: []string{
			"class", "interface", "enum", "struct", "union", "trait", "record",
			"fn", "fun", "func", "def", "let", "var", "val", "type", "namespace",
		},
		Functions: []string{"fn", "fun", "func", "def"},
		Modifiers: []string{"mut", "ref", "out", "in", "final", "const", "vararg", "inout"},
	}
	syntaxShell = &Syntax{
		Name:         "shell",
		LineComments: []string{"#"},
		Strings:      quoted,
		Declarations: []string{"function"},
	}
	syntaxRuby = &Syntax{
		Name:         "ruby",
		LineComments: []string{"#"},
		Strings:      quoted,
		Declarations: []string{"def", "class", "module"},
		Functions:    []string{"def"},
	}
	syntaxConfig = &Syntax{
		Name:         "config",
		LineComments: []string{"#"},
		Strings:      quoted,
	}
	syntaxSQL = &Syntax{
		Name:          "sql",
		LineComments:  []string{"--"},
		BlockComments: []Delims{{"/*", "*/"}},
		Strings:       []StringRule{{Delim: `'`}, {Delim: `"`}},
	}
	syntaxLua = &Syntax{
		Name:          "lua",
		LineComments:  []string{"--"},
		BlockComments: []Delims{{"--[[", "]]"}},
		Strings:       quoted,
		Declarations:  []string{"function", "local"},
		Functions:     []string{"function"},
	}
	syntaxGeneric = &Syntax{
		Name:          "generic",
		LineComments:  []string{"//", "#"},
		BlockComments: []Delims{{"/*", "*/"}},
		Strings:       quoted,
	}

	syntaxByExt = map[string]*Syntax{
		".py": syntaxPython, ".pyi": syntaxPython,
		".go": syntaxGo,
		".js": syntaxJS, ".jsx": syntaxJS, ".mjs": syntaxJS, ".cjs": syntaxJS,
		".ts": syntaxJS, ".tsx": syntaxJS,
		".c": syntaxCLike, ".h": syntaxCLike, ".cc": syntaxCLike, ".cpp": syntaxCLike, ".hpp": syntaxCLike,
		".java": syntaxCLike, ".kt": syntaxCLike, ".scala": syntaxCLike, ".swift": syntaxCLike,
		".rs": syntaxCLike, ".cs": syntaxCLike, ".dart": syntaxCLike,
		".sh": syntaxShell, ".bash": syntaxShell, ".zsh": syntaxShell,
		".rb": syntaxRuby,
		".yaml": syntaxConfig, ".yml": syntaxConfig, ".toml": syntaxConfig, ".cfg": syntaxConfig, ".ini": syntaxConfig,
		".sql": syntaxSQL,
		".lua": syntaxLua,
	}
)

// SyntaxFor picks the rule set for a path by extension, falling back to a
// generic rule set that understands //, # and /* */ comments.
func SyntaxFor(path string) *Syntax {
	ext := strings.ToLower(filepath.Ext(path))
	if s, ok := syntaxByExt[ext]; ok {
		return s
	}
	base := strings.ToLower(filepath.Base(path))
	if base == "makefile" || base == "dockerfile" {
		return syntaxShell
	}
	return syntaxGeneric
}
