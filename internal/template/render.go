// Package template renders tenant-owned email templates by substituting
// {{variable}} placeholders with caller-supplied bindings.
package template

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Rendered holds the output of a template render.
type Rendered struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Render substitutes every {{name}} placeholder in the subject, HTML body,
// and text body with the matching value from vars. Placeholders without a
// binding are left verbatim; rendering never fails.
func Render(subject, htmlBody, textBody string, vars map[string]string) Rendered {
	return Rendered{
		Subject:  substitute(subject, vars),
		HTMLBody: substitute(htmlBody, vars),
		TextBody: substitute(textBody, vars),
	}
}

func substitute(s string, vars map[string]string) string {
	if s == "" || !strings.Contains(s, "{{") {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := vars[name]; ok {
			return value
		}
		return match
	})
}
