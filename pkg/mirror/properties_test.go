package mirror

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

func TestPropertyLine(t *testing.T) {
	number := 3.5

	tests := []struct {
		name    string
		prop    notion.Property
		exp     string
		skipped bool
	}{
		{
			name:    "Title",
			prop:    notion.Property{Type: "title"},
			skipped: true,
		},
		{
			name:    "Unsupported",
			prop:    notion.Property{Type: "rollup"},
			skipped: true,
		},
		{
			name: "RichText",
			prop: notion.Property{
				Type:     "rich_text",
				RichText: []notion.RichText{{PlainText: "note"}},
			},
			exp: "- Notes: note",
		},
		{
			name: "Select",
			prop: notion.Property{
				Type:   "select",
				Select: &notion.SelectOption{Name: "High"},
			},
			exp: "- Notes: High",
		},
		{
			name: "MultiSelect",
			prop: notion.Property{
				Type: "multi_select",
				MultiSelect: []notion.SelectOption{
					{Name: "a"}, {Name: "b"},
				},
			},
			exp: "- Notes: a, b",
		},
		{
			name: "Checkbox",
			prop: notion.Property{Type: "checkbox", Checkbox: true},
			exp:  "- Notes: true",
		},
		{
			name: "Number",
			prop: notion.Property{Type: "number", Number: &number},
			exp:  "- Notes: 3.5",
		},
		{
			name: "Date",
			prop: notion.Property{
				Type: "date",
				Date: &notion.DateValue{Start: "2026-01-02"},
			},
			exp: "- Notes: 2026-01-02",
		},
		{
			name: "Relation",
			prop: notion.Property{
				Type:     "relation",
				Relation: []notion.Relation{{ID: "x"}, {ID: "y"}},
			},
			exp: "- Notes: 2 related",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			line, ok := propertyLine("Notes", test.prop)
			assert.Equal(t, !test.skipped, ok)
			assert.Equal(t, test.exp, line)
		})
	}
}
