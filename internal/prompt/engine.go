package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/fjglira/srd-testgen/internal/domain"
)

//go:embed templates/*.tmpl
var builtinTemplates embed.FS

// TemplateEngine renders named prompt templates.
type TemplateEngine interface {
	Render(name string, data any) (string, error)
	ListTemplates() []string
}

// DefaultEngine implements TemplateEngine over the built-in templates,
// optionally overridden by files from a directory.
type DefaultEngine struct {
	set         *template.Template
	templateDir string
}

// NewEngine loads the built-in templates, then any .tmpl files found in
// templateDir. A file in templateDir replaces the built-in one of the same
// name. An empty templateDir uses the built-ins only.
func NewEngine(templateDir string) (*DefaultEngine, error) {
	set, err := template.New("prompts").Funcs(CustomFuncMap()).ParseFS(builtinTemplates, "templates/*.tmpl")
	if err != nil {
		return nil, domain.NewError("prompt", "", "", "failed to parse built-in templates", err)
	}

	engine := &DefaultEngine{set: set, templateDir: templateDir}
	if templateDir != "" {
		if err := engine.loadOverrides(); err != nil {
			return nil, err
		}
	}
	return engine, nil
}

// loadOverrides reads all .tmpl files from the template directory.
func (e *DefaultEngine) loadOverrides() error {
	entries, err := os.ReadDir(e.templateDir)
	if err != nil {
		return domain.NewErrorWithSuggestion("prompt", "", "", "failed to read template directory",
			"check pipeline.templates_dir in the configuration", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".tmpl") {
			continue
		}

		path := filepath.Join(e.templateDir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return domain.NewError("prompt", "", "", fmt.Sprintf("failed to read template file %s", path), err)
		}

		if _, err := e.set.New(entry.Name()).Parse(string(content)); err != nil {
			return domain.NewError("prompt", "", "", fmt.Sprintf("failed to parse template %s", path), err)
		}
	}
	return nil
}

// Render executes the template called name.
func (e *DefaultEngine) Render(name string, data any) (string, error) {
	if e.set.Lookup(name) == nil {
		return "", domain.NewError("prompt", "", "",
			fmt.Sprintf("template %q not found (available: %s)", name, strings.Join(e.ListTemplates(), ", ")), nil)
	}

	var buf bytes.Buffer
	if err := e.set.ExecuteTemplate(&buf, name, data); err != nil {
		return "", domain.NewError("prompt", "", "", fmt.Sprintf("failed to execute template %q", name), err)
	}
	return buf.String(), nil
}

// ListTemplates returns the names of all loaded file templates, sorted.
func (e *DefaultEngine) ListTemplates() []string {
	var names []string
	for _, t := range e.set.Templates() {
		if strings.HasSuffix(t.Name(), ".tmpl") {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names
}

// templateName maps a section kind to its template file.
func templateName(kind domain.SectionKind) string {
	return strings.ReplaceAll(string(kind), " ", "_") + ".tmpl"
}
