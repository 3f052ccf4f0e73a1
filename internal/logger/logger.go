// Package logger carries source locations and diagnostic messages through
// the bundler core. It mirrors the shape of esbuild's internal/logger (Loc,
// Range, Source, Msg) without the terminal-width-aware color rendering that
// belongs to a CLI, not to the core.
package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Loc is a 0-based byte offset into a Source's Contents.
type Loc struct {
	Start int32
}

// Range is a Loc plus a byte length.
type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

// Source is one module's identity plus its raw text, used to turn a Loc
// into a human-readable line/column for diagnostics.
type Source struct {
	// ID is the module identifier, typically an absolute path.
	ID string

	// PrettyPath is what gets printed in messages; usually ID made relative
	// to some base directory.
	PrettyPath string

	Contents string
}

// LineColumn resolves a byte offset to a 1-based line and 0-based column,
// along with the text of that line, the way esbuild's logger does for
// message rendering.
func (s *Source) LineColumn(loc Loc) (line int, column int, lineText string) {
	offset := int(loc.Start)
	if offset < 0 {
		offset = 0
	}
	if offset > len(s.Contents) {
		offset = len(s.Contents)
	}

	line = 1
	lineStart := 0
	for i := 0; i < offset; i++ {
		if s.Contents[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	column = offset - lineStart

	lineEnd := strings.IndexByte(s.Contents[lineStart:], '\n')
	if lineEnd < 0 {
		lineText = s.Contents[lineStart:]
	} else {
		lineText = s.Contents[lineStart : lineStart+lineEnd]
	}
	return
}

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
	Info
)

func (k MsgKind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// MsgLocation is the rendered form of a Loc: a file, a 1-based line, a
// 0-based column, and the source line's text for context.
type MsgLocation struct {
	File     string
	Line     int
	Column   int
	LineText string
}

type Msg struct {
	Kind     MsgKind
	Text     string
	Location *MsgLocation
}

func (m Msg) String() string {
	var sb strings.Builder
	if m.Location != nil {
		fmt.Fprintf(&sb, "%s:%d:%d: ", m.Location.File, m.Location.Line, m.Location.Column)
	}
	fmt.Fprintf(&sb, "%s: %s", m.Kind, m.Text)
	if m.Location != nil && m.Location.LineText != "" {
		fmt.Fprintf(&sb, "\n  %s", m.Location.LineText)
	}
	return sb.String()
}

// Log accumulates messages produced during a build. Unlike esbuild's Log,
// which streams messages through an async AddMsg callback because scanning
// happens across goroutines, flatbundle's core runs single-threaded (spec
// §5), so this is just an ordered slice behind simple append/read methods.
type Log struct {
	msgs []Msg
}

func NewLog() *Log {
	return &Log{}
}

func (log *Log) AddError(source *Source, loc Loc, text string) {
	log.add(Error, source, loc, text)
}

func (log *Log) AddWarning(source *Source, loc Loc, text string) {
	log.add(Warning, source, loc, text)
}

func (log *Log) AddInfo(text string) {
	log.msgs = append(log.msgs, Msg{Kind: Info, Text: text})
}

func (log *Log) add(kind MsgKind, source *Source, loc Loc, text string) {
	msg := Msg{Kind: kind, Text: text}
	if source != nil {
		line, column, lineText := source.LineColumn(loc)
		msg.Location = &MsgLocation{
			File:     source.PrettyPath,
			Line:     line,
			Column:   column,
			LineText: lineText,
		}
	}
	log.msgs = append(log.msgs, msg)
}

func (log *Log) HasErrors() bool {
	for _, msg := range log.msgs {
		if msg.Kind == Error {
			return true
		}
	}
	return false
}

func (log *Log) Msgs() []Msg {
	return log.msgs
}

// Done returns every accumulated message sorted by file then line, mirroring
// esbuild's final-sort-before-print behavior.
func (log *Log) Done() []Msg {
	out := make([]Msg, len(log.msgs))
	copy(out, log.msgs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a == nil || b == nil {
			return b != nil && a == nil
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})
	return out
}
