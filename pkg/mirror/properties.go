package mirror

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwjcw/Notion2GoogleDriver/pkg/markdown"
	"github.com/cwjcw/Notion2GoogleDriver/pkg/notion"
)

// propertyLine renders one page property as a bullet line. The title
// property and unsupported types produce no line.
func propertyLine(name string, prop notion.Property) (string, bool) {
	var value string
	switch prop.Type {
	case "title":
		return "", false
	case "rich_text":
		value = markdown.RichText(prop.RichText)
	case "select":
		if prop.Select != nil {
			value = prop.Select.Name
		}
	case "multi_select":
		var names []string
		for _, option := range prop.MultiSelect {
			names = append(names, option.Name)
		}
		value = strings.Join(names, ", ")
	case "status":
		if prop.Status != nil {
			value = prop.Status.Name
		}
	case "checkbox":
		value = strconv.FormatBool(prop.Checkbox)
	case "number":
		if prop.Number != nil {
			value = strconv.FormatFloat(*prop.Number, 'f', -1, 64)
		}
	case "url":
		value = prop.URL
	case "email":
		value = prop.Email
	case "phone_number":
		value = prop.PhoneNumber
	case "date":
		if prop.Date != nil {
			value = prop.Date.Start
		}
	case "people":
		var names []string
		for _, person := range prop.People {
			names = append(names, person.Name)
		}
		value = strings.Join(names, ", ")
	case "files":
		var names []string
		for _, file := range prop.Files {
			names = append(names, file.Name)
		}
		value = strings.Join(names, ", ")
	case "relation":
		value = fmt.Sprintf("%d related", len(prop.Relation))
	default:
		return "", false
	}

	return fmt.Sprintf("- %s: %s", name, value), true
}
