// Package lookup defines the dictionary lookup result model shared by
// plugins, request handlers, and the note formatter.
package lookup

import "strings"

// TermResult is the outcome of looking up a single term.
type TermResult struct {
	// Expression is the dictionary form of the term.
	Expression string `json:"expression"`

	// Reading is the phonetic reading, if the source language has one.
	Reading string `json:"reading,omitempty"`

	// Definitions are the glosses, in source order.
	Definitions []string `json:"definitions"`

	// Tags are dictionary-specific annotations (part of speech, register).
	Tags []string `json:"tags,omitempty"`

	// URL points at the online entry the result came from, if any.
	URL string `json:"url,omitempty"`
}

// IsEmpty reports whether the result carries no definitions.
func (r *TermResult) IsEmpty() bool {
	return r == nil || len(r.Definitions) == 0
}

// Summary returns a single-line rendering used for logs and fallbacks.
func (r *TermResult) Summary() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.Expression)
	if r.Reading != "" && r.Reading != r.Expression {
		b.WriteString(" [")
		b.WriteString(r.Reading)
		b.WriteString("]")
	}
	if len(r.Definitions) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(r.Definitions, "; "))
	}
	return b.String()
}
