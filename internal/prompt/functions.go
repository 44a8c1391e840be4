package prompt

import (
	"bytes"
	"encoding/json"
	"strings"
	"text/template"
)

// CustomFuncMap returns the custom template functions available in prompt templates.
func CustomFuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"toLower":   strings.ToLower,
		"trimSpace": strings.TrimSpace,
		"join":      strings.Join,
		"truncate":  truncate,
		"toJSON":    toJSON,
		"indent": func(spaces int, s string) string {
			pad := strings.Repeat(" ", spaces)
			lines := strings.Split(s, "\n")
			for i, line := range lines {
				if line != "" {
					lines[i] = pad + line
				}
			}
			return strings.Join(lines, "\n")
		},
	}
}

// truncate cuts s to at most n runes.
func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// toJSON indents v without HTML escaping so rule text such as "<" or "&"
// reaches the model unchanged.
func toJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
