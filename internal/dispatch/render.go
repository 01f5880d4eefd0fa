package dispatch

import (
	"fmt"
	"strings"

	"github.com/Berkaniis/survey-tool/internal/domain"
)

// MergeVars builds the substitution scope for one recipient. Later sources
// win: standard contact fields, then contact extra data, then per-campaign
// custom data. Nil values become empty strings so a half-filled import never
// renders "<nil>" into a subject line.
func MergeVars(contact domain.Contact, customData map[string]any) map[string]string {
	vars := map[string]string{
		"email":      contact.Email,
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"full_name":  strings.TrimSpace(contact.FirstName + " " + contact.LastName),
	}
	for k, v := range contact.ExtraData {
		vars[k] = stringify(v)
	}
	for k, v := range customData {
		vars[k] = stringify(v)
	}
	return vars
}

// Render substitutes {name} placeholders in text with values from vars.
// Placeholders with no matching variable are left as-is so a typo in a
// template is visible in the output rather than silently erased.
func Render(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))

	for {
		open := strings.IndexByte(text, '{')
		if open < 0 {
			b.WriteString(text)
			return b.String()
		}
		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			b.WriteString(text)
			return b.String()
		}
		close += open
		// Innermost brace wins: "{{first_name}}" renders as "{Ann}".
		open = strings.LastIndexByte(text[:close], '{')

		b.WriteString(text[:open])
		name := text[open+1 : close]
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(text[open : close+1])
		}
		text = text[close+1:]
	}
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
