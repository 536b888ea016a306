package token

import "fmt"

// FileID indexes into a program's list of source file names. The main
// entry source is always FileID 0; an included file gets the id that the
// lexer's Includer returns for it.
type FileID uint16

// Pos identifies a single byte position in some source file: which file,
// and the 1-based line/column within it.
type Pos struct {
	File FileID
	Line uint32
	Col  uint32
}

// Unknown is the zero Pos, used when no useful position is available.
var Unknown = Pos{}

// IsValid reports whether p carries real line/column information.
func (p Pos) IsValid() bool { return p.Line > 0 }

func (p Pos) String() string {
	if !p.IsValid() {
		return "?"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// FileNames resolves FileID values to the names under which their source
// text was read (the entry file's path, or an include's resolved path).
type FileNames interface {
	FileName(FileID) string
}

// Format renders p as "name:line:col", resolving the file name through fn.
// The tokenizer, parser and compiler error messages use String instead,
// which renders only "line:col".
func (p Pos) Format(fn FileNames) string {
	name := "?"
	if fn != nil {
		if n := fn.FileName(p.File); n != "" {
			name = n
		}
	}
	if !p.IsValid() {
		return name
	}
	return fmt.Sprintf("%s:%d:%d", name, p.Line, p.Col)
}
