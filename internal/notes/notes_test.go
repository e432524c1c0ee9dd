package notes

import (
	"errors"
	"testing"

	"github.com/lexide/lexide/internal/lookup"
)

func TestFormatter_Format(t *testing.T) {
	f := NewFormatter("Japanese", "Basic", []string{"lexide"})

	note, err := f.Format(&lookup.TermResult{
		Expression:  "食べる",
		Reading:     "たべる",
		Definitions: []string{"to eat", "to live on"},
		Tags:        []string{"verb"},
		URL:         "https://dict.example.com/taberu",
	})
	if err != nil {
		t.Fatalf("Format() failed: %v", err)
	}

	if note.Deck != "Japanese" || note.Model != "Basic" {
		t.Errorf("note = %+v", note)
	}
	if note.Fields["Expression"] != "食べる" {
		t.Errorf("expression = %q", note.Fields["Expression"])
	}
	if note.Fields["Definition"] != "to eat; to live on" {
		t.Errorf("definition = %q", note.Fields["Definition"])
	}
	if note.Fields["Reading"] != "たべる" {
		t.Errorf("reading = %q", note.Fields["Reading"])
	}
	if note.Fields["Source"] != "https://dict.example.com/taberu" {
		t.Errorf("source = %q", note.Fields["Source"])
	}
	if len(note.Tags) != 2 || note.Tags[0] != "lexide" || note.Tags[1] != "verb" {
		t.Errorf("tags = %v", note.Tags)
	}
}

func TestFormatter_OmitsAbsentFields(t *testing.T) {
	f := NewFormatter("Default", "Basic", nil)

	note, err := f.Format(&lookup.TermResult{
		Expression:  "hello",
		Definitions: []string{"greeting"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := note.Fields["Reading"]; ok {
		t.Error("empty reading produced a field")
	}
	if _, ok := note.Fields["Source"]; ok {
		t.Error("empty URL produced a field")
	}
}

func TestFormatter_RejectsEmptyResult(t *testing.T) {
	f := NewFormatter("Default", "Basic", nil)

	for _, res := range []*lookup.TermResult{nil, {}} {
		if _, err := f.Format(res); !errors.Is(err, ErrEmptyResult) {
			t.Errorf("Format(%+v): got %v, want ErrEmptyResult", res, err)
		}
	}
}
