// Package render substitutes {{field}} placeholders in template text.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"campaign_worker/core/domain"
)

// Render replaces {{name}}, {{email}}, {{company}}, {{phone}} and every
// custom field of the contact, case-insensitively. Placeholders with no
// matching field are left verbatim. The function is pure and idempotent
// for inputs without placeholders.
func Render(text string, contact *domain.Contact) string {
	if text == "" || contact == nil {
		return text
	}

	out := replaceField(text, "name", contact.DisplayName())
	out = replaceField(out, "email", contact.Email)
	out = replaceField(out, "company", contact.Company)
	out = replaceField(out, "phone", contact.Phone)

	for key, value := range contact.CustomFields {
		out = replaceField(out, key, stringify(value))
	}

	return out
}

func replaceField(text, field, value string) string {
	re, err := regexp.Compile(`(?i)\{\{\s*` + regexp.QuoteMeta(field) + `\s*\}\}`)
	if err != nil {
		return text
	}
	return re.ReplaceAllLiteralString(text, value)
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		// JSON numbers decode as float64; keep integers clean.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}
