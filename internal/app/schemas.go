package app

import "github.com/lexide/lexide/internal/validate"

// newValidator declares the parameter contracts for every coordinator
// action. Unknown fields are rejected unless a schema opts out.
func newValidator() (*validate.Validator, error) {
	v := validate.New()

	schemas := map[string]validate.ActionSchema{
		"ping": {},

		"fetch": {
			Fields: map[string]validate.Field{
				"url": {Type: validate.TypeURL, Required: true, MaxLength: 2048},
			},
		},

		"fetchSource": {
			Fields: map[string]validate.Field{
				"location": {Type: validate.TypeString, Required: true, MaxLength: 2048},
			},
		},

		// The configuration object is free-form; plugins interpret it.
		"configure": {AllowExtra: true},

		"deinflect": {
			Fields: map[string]validate.Field{
				"word": {Type: validate.TypeString, Required: true, MaxLength: 256},
			},
		},

		"locale": {},

		"findTerm": {
			Fields: map[string]validate.Field{
				"word": {Type: validate.TypeString, Required: true, MaxLength: 256},
			},
		},

		"loadPlugins": {
			Fields: map[string]validate.Field{
				"names": {Type: validate.TypeArray, Required: true},
			},
		},

		"getOptions": {},

		"setOptions": {
			Fields: map[string]validate.Field{
				"options": {Type: validate.TypeObject, Required: true},
			},
		},

		"addNote": {
			Fields: map[string]validate.Field{
				"word": {Type: validate.TypeString, Required: true, MaxLength: 256},
			},
		},
	}

	for action, schema := range schemas {
		if err := v.Register(action, schema); err != nil {
			return nil, err
		}
	}
	return v, nil
}
