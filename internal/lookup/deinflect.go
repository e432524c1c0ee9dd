package lookup

import "strings"

// deinflectRule rewrites one suffix into zero or more candidate base-form
// suffixes.
type deinflectRule struct {
	suffix       string
	replacements []string
}

// English inflection rules, most specific first. Dictionary plugins do the
// language-specific heavy lifting; this table only widens the net for the
// common regular forms.
var deinflectRules = []deinflectRule{
	{"ies", []string{"y"}},
	{"ied", []string{"y"}},
	{"ying", []string{"ie"}},
	{"ing", []string{"", "e"}},
	{"est", []string{"", "e"}},
	{"ed", []string{"", "e"}},
	{"er", []string{"", "e"}},
	{"es", []string{"", "e"}},
	{"s", []string{""}},
}

// Deinflect returns candidate base forms for an inflected word, most likely
// first. The word itself is always the first candidate.
func Deinflect(word string) []string {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return nil
	}

	forms := []string{word}
	seen := map[string]bool{word: true}

	for _, rule := range deinflectRules {
		stem, ok := strings.CutSuffix(word, rule.suffix)
		if !ok || stem == "" {
			continue
		}
		for _, repl := range rule.replacements {
			candidate := stem + repl
			if len(candidate) < 2 || seen[candidate] {
				continue
			}
			seen[candidate] = true
			forms = append(forms, candidate)
		}
	}
	return forms
}
