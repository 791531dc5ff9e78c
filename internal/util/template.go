package util

import (
	"bytes"
	"strings"
	"sync"
	"text/template"
)

var (
	promptFuncs = template.FuncMap{
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
	}

	// parsed caches templates by source text; prompts are rendered on every
	// generation step but only a handful of sources exist.
	parsed sync.Map // string -> *template.Template
)

// RenderTemplate renders a text/template prompt with state. Prompts are
// plain text, so no HTML escaping is applied, and a key missing from state
// is an error rather than "<no value>".
// This lives in internal to avoid committing to public API stability prematurely.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := lookup(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func lookup(text string) (*template.Template, error) {
	if t, ok := parsed.Load(text); ok {
		return t.(*template.Template), nil
	}

	t, err := template.New("prompt").Funcs(promptFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}

	actual, _ := parsed.LoadOrStore(text, t)
	return actual.(*template.Template), nil
}
