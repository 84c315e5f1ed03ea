// Package diag provides the structured diagnostic type shared by the
// lexer, parser, and resolver (spec §7). It is modeled on the
// teacher's internal/errors package: a JSON-serializable Report,
// wrapped as a Go error, with phase-tagged codes.
package diag

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btrc-lang/btrc/internal/ast"
)

// Report is the canonical structured diagnostic.
type Report struct {
	Schema  string         `json:"schema"`
	Code    string         `json:"code"`
	Phase   string         `json:"phase"`
	Message string         `json:"message"`
	Pos     *ast.Pos       `json:"pos,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report so it can travel through the standard
// `error` interface while staying recoverable via errors.As.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts a *Report from an error chain.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// Wrap turns a Report into an error.
func Wrap(r *Report) error {
	if r == nil {
		return nil
	}
	return &ReportError{Rep: r}
}

// New builds a Report for the given phase/code/message/position.
func New(phase, code, message string, pos ast.Pos) *Report {
	return &Report{
		Schema:  "btrc.error/v1",
		Code:    code,
		Phase:   phase,
		Message: message,
		Pos:     &pos,
	}
}

// ToJSON serializes the report, optionally compact.
func (r *Report) ToJSON(compact bool) (string, error) {
	var data []byte
	var err error
	if compact {
		data, err = json.Marshal(r)
	} else {
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Format renders a Report in the CLI's caret-diagnostic style (spec
// §6):
//
//	error: <message>
//	  --> <file>:<line>:<col>
//	   |
//	42 |     <source line>
//	   |     ^
func (r *Report) Format(source string) string {
	if r.Pos == nil {
		return fmt.Sprintf("error: %s", r.Message)
	}
	return FormatAt(r.Message, *r.Pos, source)
}

// FormatAt renders a raw message/position pair in the same style,
// for lexer/parser errors that never allocate a Report.
func FormatAt(message string, pos ast.Pos, source string) string {
	lines := splitLines(source)
	if pos.Line < 1 || pos.Line > len(lines) {
		return fmt.Sprintf("error: %s\n --> %s:%d:%d", message, pos.File, pos.Line, pos.Column)
	}
	srcLine := lines[pos.Line-1]
	lineNoStr := fmt.Sprintf("%d", pos.Line)
	pad := spaces(len(lineNoStr))
	caretCol := pos.Column - 1
	if caretCol < 0 {
		caretCol = 0
	}
	caret := spaces(caretCol) + "^"
	return fmt.Sprintf(
		"error: %s\n %s--> %s:%d:%d\n %s |\n %s | %s\n %s | %s",
		message, pad, pos.File, pos.Line, pos.Column,
		pad, lineNoStr, srcLine, pad, caret,
	)
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}
