package tools

import (
	"testing"

	"github.com/xeipuuv/gojsonschema"
)

func TestAllTools_Valid(t *testing.T) {
	seen := make(map[string]bool)
	for _, spec := range AllTools {
		t.Run(spec.Name, func(t *testing.T) {
			if seen[spec.Name] {
				t.Errorf("duplicate tool name %q", spec.Name)
			}
			seen[spec.Name] = true

			if spec.Method == "" || spec.Description == "" || spec.Category == "" {
				t.Errorf("incomplete spec: %+v", spec)
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(spec.Parameters)); err != nil {
				t.Errorf("parameter schema does not compile: %v", err)
			}
		})
	}
}

func TestObjectSchema_RequiresNonEmptyStrings(t *testing.T) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(objectSchema([2]string{"to", "recipient"})))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		doc   string
		valid bool
	}{
		{`{"to":"alice"}`, true},
		{`{"to":""}`, false},
		{`{}`, false},
		{`{"to":7}`, false},
	}
	for _, tt := range tests {
		res, err := schema.Validate(gojsonschema.NewStringLoader(tt.doc))
		if err != nil {
			t.Fatalf("Validate(%s): %v", tt.doc, err)
		}
		if res.Valid() != tt.valid {
			t.Errorf("Validate(%s).Valid() = %v, want %v", tt.doc, res.Valid(), tt.valid)
		}
	}
}

func TestSpecByName(t *testing.T) {
	spec, ok := SpecByName("chat")
	if !ok || spec.Method != "Chat" {
		t.Errorf("SpecByName(chat) = %+v, %v", spec, ok)
	}
	if _, ok := SpecByName("nope"); ok {
		t.Error("SpecByName(nope) found a spec")
	}
	if got := Names(); len(got) != 3 || got[0] != "getWeather" {
		t.Errorf("Names() = %v", got)
	}
}
