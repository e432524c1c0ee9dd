package security

import (
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// RedactionMarker replaces sensitive values in logged parameters.
const RedactionMarker = "[redacted]"

// DefaultSensitiveFields are parameter paths redacted from debug logs unless
// the guard configures its own list.
var DefaultSensitiveFields = []string{
	"apiKey",
	"token",
	"password",
	"deckApiKey",
	"credentials.secret",
}

// Redact returns a copy of the params JSON with each named field path
// replaced by the redaction marker. Paths absent from the payload are left
// untouched; a payload that is not valid JSON is replaced wholesale.
func Redact(params []byte, fields []string) []byte {
	if len(params) == 0 {
		return params
	}
	if !gjson.ValidBytes(params) {
		return []byte(`"` + RedactionMarker + `"`)
	}

	out := params
	for _, path := range fields {
		if !gjson.GetBytes(out, path).Exists() {
			continue
		}
		replaced, err := sjson.SetBytes(out, path, RedactionMarker)
		if err != nil {
			continue
		}
		out = replaced
	}
	return out
}
