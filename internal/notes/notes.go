// Package notes turns lookup results into flashcard notes for an external
// note-taking service. The service itself is an out-of-process collaborator;
// this package only builds the note and hands it over.
package notes

import (
	"context"
	"errors"
	"strings"

	"github.com/lexide/lexide/internal/lookup"
)

// Note is one flashcard handed to the note service.
type Note struct {
	Deck   string            `json:"deck"`
	Model  string            `json:"model"`
	Fields map[string]string `json:"fields"`
	Tags   []string          `json:"tags,omitempty"`
}

// Service is the narrow contract with the external note-taking client.
type Service interface {
	// AddNote stores one note and returns its service-assigned ID.
	AddNote(ctx context.Context, note Note) (string, error)
}

// ErrEmptyResult is returned when a note is built from a result with no
// expression.
var ErrEmptyResult = errors.New("lookup result has no expression")

// Formatter builds notes from lookup results.
type Formatter struct {
	deck  string
	model string
	tags  []string
}

// NewFormatter creates a formatter targeting the given deck and model.
func NewFormatter(deck, model string, tags []string) *Formatter {
	return &Formatter{deck: deck, model: model, tags: tags}
}

// Format builds the note for one lookup result. Definitions join into one
// field; reading and source URL map to their own fields when present.
func (f *Formatter) Format(res *lookup.TermResult) (Note, error) {
	if res == nil || res.Expression == "" {
		return Note{}, ErrEmptyResult
	}

	fields := map[string]string{
		"Expression": res.Expression,
		"Definition": strings.Join(res.Definitions, "; "),
	}
	if res.Reading != "" {
		fields["Reading"] = res.Reading
	}
	if res.URL != "" {
		fields["Source"] = res.URL
	}

	tags := make([]string, 0, len(f.tags)+len(res.Tags))
	tags = append(tags, f.tags...)
	tags = append(tags, res.Tags...)

	return Note{
		Deck:   f.deck,
		Model:  f.model,
		Fields: fields,
		Tags:   tags,
	}, nil
}
